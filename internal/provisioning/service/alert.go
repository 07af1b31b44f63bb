package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/config"
	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"go.uber.org/zap"
)

func needsAttention(status string) bool {
	switch status {
	case domain.StatusError, domain.StatusFailed, domain.StatusPartial:
		return true
	default:
		return false
	}
}

// alert posts a summary to the organization's Slack alert channel when any provider did not
// fully succeed. Delivery failures are logged and never change the run's result.
func (s *Service) alert(ctx context.Context, log *zap.Logger, user *userdomain.User, conns []integrationdomain.Connection, results []domain.Result) {
	if s.alerts == nil {
		return
	}

	var lines []string
	for _, r := range results {
		if !needsAttention(r.Status) {
			continue
		}
		line := fmt.Sprintf("- %s: %s", r.Provider, r.Status)
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return
	}

	conn, channel := alertTarget(conns)
	if channel == "" {
		return
	}
	text := fmt.Sprintf("Provisioning for %s needs attention:\n%s", user.Email, strings.Join(lines, "\n"))
	if err := s.alerts.PostMessage(ctx, conn.AccessToken, channel, text); err != nil {
		log.Warn("post provisioning alert", zap.String("channel", channel), zap.Error(err))
		return
	}
	log.Info("provisioning alert posted", zap.String("channel", channel), zap.Int("providers", len(lines)))
}

func alertTarget(conns []integrationdomain.Connection) (integrationdomain.Connection, string) {
	for _, conn := range conns {
		if conn.Provider != config.ProviderSlack || len(conn.Config) == 0 {
			continue
		}
		var cfg integrationdomain.SlackConfig
		if err := json.Unmarshal(conn.Config, &cfg); err != nil {
			return conn, ""
		}
		return conn, strings.TrimSpace(cfg.AlertChannel)
	}
	return integrationdomain.Connection{}, ""
}
