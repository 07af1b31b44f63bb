package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization       = "organization"
	ObjectTeam               = "team"
	ObjectInvite             = "invite"
	ObjectIntegration        = "integration"
	ObjectOnboardingStep     = "onboarding_step"
	ObjectOnboardingWizard   = "onboarding_wizard"
	ObjectOnboardingProgress = "onboarding_progress"
	ObjectProvisioning       = "provisioning"
	ObjectProvisioningLog    = "provisioning_log"
)

const (
	ActionOrganizationView   = "organization.view"
	ActionOrganizationManage = "organization.manage"

	ActionTeamView   = "team.view"
	ActionTeamManage = "team.manage"

	ActionInviteView   = "invite.view"
	ActionInviteCreate = "invite.create"

	ActionIntegrationView   = "integration.view"
	ActionIntegrationManage = "integration.manage"

	ActionOnboardingStepView   = "onboarding_step.view"
	ActionOnboardingStepManage = "onboarding_step.manage"

	ActionOnboardingWizardUse    = "onboarding_wizard.use"
	ActionOnboardingProgressView = "onboarding_progress.view"

	// ActionProvisioningTriggerSelf covers a user's own run; other users need ActionProvisioningTriggerAny.
	ActionProvisioningTriggerSelf = "provisioning.trigger_self"
	ActionProvisioningTriggerAny  = "provisioning.trigger_any"
	ActionProvisioningLogView     = "provisioning_log.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Users    userdomain.Service
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	users    userdomain.Service
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		users:    p.Users,
		enforcer: p.Enforcer,
	}
}

// Authorize expects actor as "user:<id>" and orgID as the organization's snowflake id.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := s.resolveRole(ctx, actor, orgID)
	if err != nil {
		s.logDenied(actor, orgID, object, action, err)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(actor, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.logDenied(actor, orgID, object, action, ErrForbidden)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveRole(ctx context.Context, actor string, orgID string) (string, error) {
	if !strings.HasPrefix(actor, "user:") {
		return "", ErrInvalidActor
	}
	userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
	if err != nil || userID == 0 {
		return "", ErrInvalidActor
	}
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return "", ErrInvalidOrganization
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return "", ErrForbidden
		}
		return "", err
	}
	if user.OrgID != parsedOrgID {
		return "", ErrForbidden
	}
	role := strings.ToLower(strings.TrimSpace(user.Role))
	if role == "" {
		return "", ErrForbidden
	}
	return "role:" + role, nil
}

// ensureGrouping keeps exactly one role link per subject and domain.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) logDenied(actor, orgID, object, action string, err error) {
	s.log.Info("authorization denied",
		zap.String("actor", actor),
		zap.String("org_id", orgID),
		zap.String("object", object),
		zap.String("action", action),
		zap.Error(err),
	)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Employee permissions
		{"role:employee", ObjectOrganization, ActionOrganizationView},
		{"role:employee", ObjectTeam, ActionTeamView},
		{"role:employee", ObjectOnboardingWizard, ActionOnboardingWizardUse},
		{"role:employee", ObjectProvisioning, ActionProvisioningTriggerSelf},

		// Founder permissions
		{"role:founder", ObjectOrganization, ActionOrganizationView},
		{"role:founder", ObjectOrganization, ActionOrganizationManage},
		{"role:founder", ObjectTeam, ActionTeamView},
		{"role:founder", ObjectTeam, ActionTeamManage},
		{"role:founder", ObjectInvite, ActionInviteView},
		{"role:founder", ObjectInvite, ActionInviteCreate},
		{"role:founder", ObjectIntegration, ActionIntegrationView},
		{"role:founder", ObjectIntegration, ActionIntegrationManage},
		{"role:founder", ObjectOnboardingStep, ActionOnboardingStepView},
		{"role:founder", ObjectOnboardingStep, ActionOnboardingStepManage},
		{"role:founder", ObjectOnboardingWizard, ActionOnboardingWizardUse},
		{"role:founder", ObjectOnboardingProgress, ActionOnboardingProgressView},
		{"role:founder", ObjectProvisioning, ActionProvisioningTriggerSelf},
		{"role:founder", ObjectProvisioning, ActionProvisioningTriggerAny},
		{"role:founder", ObjectProvisioningLog, ActionProvisioningLogView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
