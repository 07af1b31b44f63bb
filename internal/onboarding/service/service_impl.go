package service

import (
	"context"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/observability/logger"
	"github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	"github.com/abbydulski/Runway-sub000/internal/onboarding/domain"
	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	Users        userdomain.Service
	Provisioning provisioningdomain.Service
	Templates    *config.OnboardingTemplateHolder `optional:"true"`
	Metrics      *metrics.Metrics                 `optional:"true"`
	Clock        clock.Clock                      `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	users        userdomain.Service
	provisioning provisioningdomain.Service
	templates    *config.OnboardingTemplateHolder
	metrics      *metrics.Metrics
	clock        clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("onboarding.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		users:        p.Users,
		provisioning: p.Provisioning,
		templates:    p.Templates,
		metrics:      p.Metrics,
		clock:        clk,
	}
}

func (s *Service) ListSteps(ctx context.Context, orgID snowflake.ID) ([]domain.Step, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.ListSteps(ctx, s.db, orgID, false)
}

func (s *Service) SaveSteps(ctx context.Context, orgID snowflake.ID, req domain.SaveStepsRequest) ([]domain.Step, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	normalized := domain.SaveStepsRequest{Steps: make([]domain.StepInput, 0, len(req.Steps))}
	for _, in := range req.Steps {
		normalized.Steps = append(normalized.Steps, normalizeInput(in))
	}
	if err := validateSteps(normalized); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	steps := make([]domain.Step, 0, len(normalized.Steps))
	for i, in := range normalized.Steps {
		steps = append(steps, domain.Step{
			ID:                  s.genID.Generate(),
			OrgID:               orgID,
			Title:               in.Title,
			Description:         in.Description,
			Category:            in.Category,
			StepType:            in.StepType,
			IntegrationProvider: in.IntegrationProvider,
			DocumentURL:         in.DocumentURL,
			StepOrder:           i + 1,
			Required:            boolOr(in.Required, true),
			IsEnabled:           boolOr(in.IsEnabled, true),
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}

	if err := s.repo.ReplaceSteps(ctx, s.db, orgID, steps); err != nil {
		return nil, err
	}
	logger.WithContext(ctx, s.log).Info("onboarding steps replaced",
		zap.String("organization_id", orgID.String()),
		zap.Int("count", len(steps)),
	)
	return s.repo.ListSteps(ctx, s.db, orgID, false)
}

func (s *Service) SeedDefaults(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if tx == nil {
		tx = s.db
	}

	tmpl := config.DefaultOnboardingTemplate()
	if s.templates != nil {
		tmpl = s.templates.Get()
	}

	now := s.clock.Now()
	steps := make([]domain.Step, 0, len(tmpl.Steps))
	for i, t := range tmpl.Steps {
		steps = append(steps, domain.Step{
			ID:                  s.genID.Generate(),
			OrgID:               orgID,
			Title:               t.Title,
			Description:         t.Description,
			Category:            t.Category,
			StepType:            t.StepType,
			IntegrationProvider: t.IntegrationProvider,
			DocumentURL:         t.DocumentURL,
			StepOrder:           i + 1,
			Required:            t.Required,
			IsEnabled:           true,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}
	return s.repo.ReplaceSteps(ctx, tx, orgID, steps)
}

func (s *Service) GetWizard(ctx context.Context, userID snowflake.ID) (*domain.Wizard, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.wizard(ctx, user)
}

func (s *Service) ViewDocument(ctx context.Context, userID, stepID snowflake.ID) (*domain.Wizard, error) {
	user, step, progress, err := s.load(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}
	if step.StepType != domain.StepTypeDocument {
		return nil, domain.ErrNotDocumentStep
	}

	now := s.clock.Now()
	if progress.DocumentViewedAt == nil {
		progress.DocumentViewedAt = &now
		progress.UpdatedAt = now
		if err := s.repo.UpsertProgress(ctx, s.db, progress); err != nil {
			return nil, err
		}
	}
	return s.wizard(ctx, user)
}

func (s *Service) AcknowledgeDocument(ctx context.Context, userID, stepID snowflake.ID) (*domain.Wizard, error) {
	user, step, progress, err := s.load(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}
	if step.StepType != domain.StepTypeDocument {
		return nil, domain.ErrNotDocumentStep
	}
	if progress.DocumentViewedAt == nil {
		return nil, domain.ErrDocumentNotViewed
	}

	if !progress.Acknowledged {
		progress.Acknowledged = true
		progress.UpdatedAt = s.clock.Now()
		if err := s.repo.UpsertProgress(ctx, s.db, progress); err != nil {
			return nil, err
		}
	}
	return s.wizard(ctx, user)
}

func (s *Service) CompleteStep(ctx context.Context, userID, stepID snowflake.ID) (*domain.CompleteResult, error) {
	user, step, progress, err := s.load(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx, s.log).With(
		zap.String("user_id", user.ID.String()),
		zap.String("step_id", step.ID.String()),
	)

	if progress.Completed {
		wizard, err := s.wizard(ctx, user)
		if err != nil {
			return nil, err
		}
		return &domain.CompleteResult{Wizard: *wizard}, nil
	}
	before, err := s.wizard(ctx, user)
	if err != nil {
		return nil, err
	}
	if current := before.Current(); current == nil || current.ID != step.ID {
		return nil, domain.ErrStepOutOfOrder
	}
	if step.StepType == domain.StepTypeDocument && !progress.Acknowledged {
		return nil, domain.ErrDocumentNotAcknowledged
	}

	result := &domain.CompleteResult{}
	if step.IsSlackIntegration() && s.provisioning != nil {
		result.Provisioning = s.runProvisioning(ctx, log, user)
	}

	now := s.clock.Now()
	progress.Completed = true
	progress.CompletedAt = &now
	progress.UpdatedAt = now
	if err := s.repo.UpsertProgress(ctx, s.db, progress); err != nil {
		return nil, err
	}
	s.metrics.RecordStepCompleted(ctx, step.StepType)
	log.Info("onboarding step completed", zap.String("step_type", step.StepType))

	wizard, err := s.wizard(ctx, user)
	if err != nil {
		return nil, err
	}
	result.Wizard = *wizard
	return result, nil
}

// runProvisioning runs the orchestrator inline; its failures never block the step.
func (s *Service) runProvisioning(ctx context.Context, log *zap.Logger, user *userdomain.User) *provisioningdomain.Response {
	req := provisioningdomain.Request{
		UserID:         user.ID.String(),
		OrganizationID: user.OrgID.String(),
	}
	if user.TeamID != nil {
		req.TeamID = user.TeamID.String()
	}
	resp, err := s.provisioning.Provision(ctx, req)
	if err != nil {
		log.Warn("provisioning from onboarding step failed", zap.Error(err))
		return nil
	}
	return resp
}

func (s *Service) Finish(ctx context.Context, userID snowflake.ID) (*domain.Wizard, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	wizard, err := s.wizard(ctx, user)
	if err != nil {
		return nil, err
	}
	if wizard.OnboardingCompleted {
		return wizard, nil
	}
	if !wizard.CanFinish {
		return nil, domain.ErrStepsIncomplete
	}
	if _, err := s.users.MarkOnboardingCompleted(ctx, user.ID); err != nil {
		return nil, err
	}
	wizard.OnboardingCompleted = true
	return wizard, nil
}

func (s *Service) Progress(ctx context.Context, orgID snowflake.ID) (*domain.ProgressOverview, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	steps, err := s.repo.ListSteps(ctx, s.db, orgID, true)
	if err != nil {
		return nil, err
	}
	employees, err := s.users.ListByOrg(ctx, orgID, userdomain.RoleEmployee)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountCompleted(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	overview := &domain.ProgressOverview{
		Employees:  make([]domain.EmployeeProgress, 0, len(employees)),
		TotalSteps: len(steps),
	}
	for _, u := range employees {
		overview.Employees = append(overview.Employees, domain.EmployeeProgress{
			UserID:              u.ID,
			Name:                u.Name,
			Email:               u.Email,
			Position:            u.Position,
			CompletedSteps:      counts[u.ID],
			TotalSteps:          len(steps),
			OnboardingCompleted: u.OnboardingCompleted,
		})
	}
	return overview, nil
}

// load resolves the user, one of their organization's enabled steps and its progress row.
// A missing progress row comes back as a fresh, unsaved record.
func (s *Service) load(ctx context.Context, userID, stepID snowflake.ID) (*userdomain.User, *domain.Step, *domain.Progress, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	step, err := s.repo.FindStep(ctx, s.db, user.OrgID, stepID)
	if err != nil {
		return nil, nil, nil, err
	}
	if step == nil || !step.IsEnabled {
		return nil, nil, nil, domain.ErrStepNotFound
	}
	progress, err := s.repo.FindProgress(ctx, s.db, user.ID, step.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if progress == nil {
		now := s.clock.Now()
		progress = &domain.Progress{UserID: user.ID, StepID: step.ID, CreatedAt: now, UpdatedAt: now}
	}
	return user, step, progress, nil
}

func (s *Service) wizard(ctx context.Context, user *userdomain.User) (*domain.Wizard, error) {
	steps, err := s.repo.ListSteps(ctx, s.db, user.OrgID, true)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListProgress(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	return buildWizard(steps, rows, user.OnboardingCompleted), nil
}

func buildWizard(steps []domain.Step, rows []domain.Progress, onboardingCompleted bool) *domain.Wizard {
	byStep := make(map[snowflake.ID]*domain.Progress, len(rows))
	for i := range rows {
		byStep[rows[i].StepID] = &rows[i]
	}

	w := &domain.Wizard{
		Steps:               make([]domain.WizardStep, 0, len(steps)),
		CurrentIndex:        -1,
		TotalCount:          len(steps),
		OnboardingCompleted: onboardingCompleted,
	}
	for i, step := range steps {
		progress := byStep[step.ID]
		ws := domain.WizardStep{Step: step, State: domain.StateIncomplete}
		if step.StepType == domain.StepTypeDocument {
			ws.DocumentState = progress.DocumentState()
		}
		if progress != nil && progress.Completed {
			ws.State = domain.StateCompleted
			ws.CompletedAt = progress.CompletedAt
			w.CompletedCount++
		} else if w.CurrentIndex < 0 {
			w.CurrentIndex = i
		}
		w.Steps = append(w.Steps, ws)
	}
	if w.CurrentIndex < 0 {
		w.CurrentIndex = len(steps)
	}
	w.AllComplete = w.CompletedCount == w.TotalCount
	w.CanFinish = w.AllComplete
	return w
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
