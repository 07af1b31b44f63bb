package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewOnboardingTemplateHolder),
)

// Provider identifiers shared by integrations, provisioning and config.
const (
	ProviderSlack      = "slack"
	ProviderGitHub     = "github"
	ProviderDeel       = "deel"
	ProviderQuickBooks = "quickbooks"
	ProviderMercury    = "mercury"
	ProviderRamp       = "ramp"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	AppURL      string
	HTTPAddr    string

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis RedisConfig

	IntegrationTokenSecret string
	OAuthClients           map[string]OAuthClientConfig
	MercuryAPIKey          string
	RampAPIKey             string
	QuickBooksSandbox      bool

	Email EmailConfig

	Provisioning ProvisioningConfig
	InviteTTL    time.Duration

	SchedulerInterval time.Duration
}

// TelemetryConfig covers logging, tracing and OTLP export.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	LogFile       string
	OTLPEndpoint  string
	OTLPProtocol  string
	OtelEnabled   bool
	SamplingRatio float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
}

// Configured reports whether both halves of the client credential are set.
func (c OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type EmailConfig struct {
	From         string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

type ProvisioningConfig struct {
	CallTimeout time.Duration
	Workers     int
	QueueSize   int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	appURL := strings.TrimRight(getenv("APP_URL", getenv("NEXT_PUBLIC_APP_URL", "http://localhost:3000")), "/")

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "runway"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		AppURL:            appURL,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			LogFile:       strings.TrimSpace(getenv("LOG_FILE", "")),
			OTLPEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
			OTLPProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "runway"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		IntegrationTokenSecret: strings.TrimSpace(getenv("INTEGRATION_TOKEN_SECRET", "")),
		OAuthClients:           map[string]OAuthClientConfig{},
		MercuryAPIKey:          strings.TrimSpace(getenv("MERCURY_API_KEY", "")),
		RampAPIKey:             strings.TrimSpace(getenv("RAMP_API_KEY", "")),
		QuickBooksSandbox:      getenvBool("QUICKBOOKS_SANDBOX", true),
		Email: EmailConfig{
			From:         getenv("EMAIL_FROM", "Runway <onboarding@runway.local>"),
			ResendAPIKey: strings.TrimSpace(getenv("RESEND_API_KEY", "")),
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUser:     getenv("SMTP_USER", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
		},
		Provisioning: ProvisioningConfig{
			CallTimeout: getenvDuration("PROVISIONING_CALL_TIMEOUT", 5*time.Second),
			Workers:     getenvInt("PROVISIONING_WORKERS", 2),
			QueueSize:   getenvInt("PROVISIONING_QUEUE_SIZE", 64),
		},
		InviteTTL:         getenvDuration("INVITE_TTL", 7*24*time.Hour),
		SchedulerInterval: getenvDuration("SCHEDULER_INTERVAL", time.Minute),
	}

	for _, provider := range []string{ProviderSlack, ProviderGitHub, ProviderDeel, ProviderQuickBooks, ProviderRamp} {
		prefix := strings.ToUpper(provider)
		cfg.OAuthClients[provider] = OAuthClientConfig{
			ClientID:     strings.TrimSpace(getenv(prefix+"_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(getenv(prefix+"_CLIENT_SECRET", "")),
		}
	}

	return cfg
}

// OAuthClient returns the client credentials for provider, if any.
func (c Config) OAuthClient(provider string) OAuthClientConfig {
	if c.OAuthClients == nil {
		return OAuthClientConfig{}
	}
	return c.OAuthClients[strings.ToLower(strings.TrimSpace(provider))]
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsDevelopment covers the environments where debug logging is on by default.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
