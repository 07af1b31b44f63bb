package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsProviderCredentials(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_APP_URL", "https://app.example.com/")
	t.Setenv("SLACK_CLIENT_ID", "sid")
	t.Setenv("SLACK_CLIENT_SECRET", "ssecret")
	t.Setenv("PROVISIONING_CALL_TIMEOUT", "2s")

	cfg := Load()

	assert.Equal(t, "https://app.example.com", cfg.AppURL)
	assert.True(t, cfg.OAuthClient("Slack").Configured())
	assert.False(t, cfg.OAuthClient(ProviderGitHub).Configured())
	assert.Equal(t, 2*time.Second, cfg.Provisioning.CallTimeout)
}

func TestAppURLPrefersExplicitValue(t *testing.T) {
	t.Setenv("APP_URL", "https://runway.dev")
	t.Setenv("NEXT_PUBLIC_APP_URL", "https://ignored.dev")

	assert.Equal(t, "https://runway.dev", Load().AppURL)
}

func TestValidateOnboardingTemplate(t *testing.T) {
	assert.NoError(t, validateOnboardingTemplate(DefaultOnboardingTemplate()))

	err := validateOnboardingTemplate(OnboardingTemplate{Steps: []OnboardingStepTemplate{
		{Title: "Handbook", StepType: "document"},
	}})
	assert.Error(t, err)

	err = validateOnboardingTemplate(OnboardingTemplate{Steps: []OnboardingStepTemplate{
		{Title: "Whatever", StepType: "quiz"},
	}})
	assert.Error(t, err)
}

func TestLoadTelemetry(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP")

	tel := Load().Telemetry

	assert.Equal(t, "debug", tel.LogLevel)
	assert.True(t, tel.OtelEnabled)
	assert.Equal(t, 0.5, tel.SamplingRatio)
	assert.Equal(t, "collector:4318", tel.OTLPEndpoint)
	assert.Equal(t, "http", tel.OTLPProtocol)
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, Config{Environment: "local"}.IsDevelopment())
	assert.False(t, Config{Environment: "production"}.IsDevelopment())
	assert.True(t, Config{Environment: "production"}.IsProduction())
}
