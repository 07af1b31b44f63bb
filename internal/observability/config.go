package observability

import (
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/config"
)

// Config is the slice of application config the logger, tracer and meters read.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Telemetry   config.TelemetryConfig

	development bool
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "runway"
	}
	return Config{
		ServiceName: serviceName,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		Telemetry:   cfg.Telemetry,
		development: cfg.IsDevelopment(),
	}
}

// Debug turns on console-friendly logs, stack traces and per-request debug lines.
func (c Config) Debug() bool {
	return c.Telemetry.LogLevel == "debug" || c.development
}
