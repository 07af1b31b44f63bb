package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// OnboardingStepTemplate is one default step seeded for a new organization.
type OnboardingStepTemplate struct {
	Title               string `mapstructure:"title"`
	Description         string `mapstructure:"description"`
	Category            string `mapstructure:"category"`
	StepType            string `mapstructure:"stepType"`
	IntegrationProvider string `mapstructure:"integrationProvider"`
	DocumentURL         string `mapstructure:"documentUrl"`
	Required            bool   `mapstructure:"required"`
}

type OnboardingTemplate struct {
	Steps []OnboardingStepTemplate `mapstructure:"steps"`
}

func DefaultOnboardingTemplate() OnboardingTemplate {
	return OnboardingTemplate{
		Steps: []OnboardingStepTemplate{
			{
				Title:               "Join Slack",
				Description:         "Get added to your team's Slack channels.",
				Category:            "tools",
				StepType:            "integration",
				IntegrationProvider: ProviderSlack,
				Required:            true,
			},
			{
				Title:       "Meet your manager",
				Description: "Schedule an intro with your manager.",
				Category:    "people",
				StepType:    "manual",
				Required:    true,
			},
		},
	}
}

// OnboardingTemplateHolder serves the current template and reloads it when the file changes.
type OnboardingTemplateHolder struct {
	current atomic.Value // holds OnboardingTemplate
}

// NewStaticOnboardingTemplateHolder returns a holder pinned to tmpl.
func NewStaticOnboardingTemplateHolder(tmpl OnboardingTemplate) *OnboardingTemplateHolder {
	holder := &OnboardingTemplateHolder{}
	holder.current.Store(tmpl)
	return holder
}

func NewOnboardingTemplateHolder(log *zap.Logger) (*OnboardingTemplateHolder, error) {
	log = log.Named("config.onboarding")
	v := viper.New()

	v.SetConfigName("onboarding")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/runway")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RUNWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fromFile = false
	}

	cfg := DefaultOnboardingTemplate()
	if fromFile {
		if err := v.UnmarshalKey("onboarding", &cfg); err != nil {
			return nil, err
		}
		if err := validateOnboardingTemplate(cfg); err != nil {
			return nil, err
		}
	}

	holder := NewStaticOnboardingTemplateHolder(cfg)
	if !fromFile {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated OnboardingTemplate
		if err := v.UnmarshalKey("onboarding", &updated); err != nil {
			log.Warn("onboarding template reload failed", zap.Error(err))
			return
		}
		if err := validateOnboardingTemplate(updated); err != nil {
			log.Warn("invalid onboarding template ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("onboarding template reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *OnboardingTemplateHolder) Get() OnboardingTemplate {
	return h.current.Load().(OnboardingTemplate)
}

func validateOnboardingTemplate(cfg OnboardingTemplate) error {
	for _, step := range cfg.Steps {
		if strings.TrimSpace(step.Title) == "" {
			return errors.New("onboarding.steps[].title cannot be empty")
		}
		switch step.StepType {
		case "integration":
			if strings.TrimSpace(step.IntegrationProvider) == "" {
				return errors.New("integration step requires integrationProvider")
			}
		case "document":
			if strings.TrimSpace(step.DocumentURL) == "" {
				return errors.New("document step requires documentUrl")
			}
		case "manual":
		default:
			return errors.New("unknown stepType " + step.StepType)
		}
	}
	return nil
}
