package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/auth/session"
	"github.com/abbydulski/Runway-sub000/internal/authorization"
	"github.com/abbydulski/Runway-sub000/internal/config"
	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/abbydulski/Runway-sub000/internal/integration/oauth"
	"github.com/abbydulski/Runway-sub000/internal/integration/status"
	invitationdomain "github.com/abbydulski/Runway-sub000/internal/invitation/domain"
	"github.com/abbydulski/Runway-sub000/internal/observability"
	obsmiddleware "github.com/abbydulski/Runway-sub000/internal/observability/logger"
	obsmetrics "github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	obstracing "github.com/abbydulski/Runway-sub000/internal/observability/tracing"
	onboardingdomain "github.com/abbydulski/Runway-sub000/internal/onboarding/domain"
	orgdomain "github.com/abbydulski/Runway-sub000/internal/organization/domain"
	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/ratelimit"
	signupdomain "github.com/abbydulski/Runway-sub000/internal/signup/domain"
	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger, shutdowner fx.Shutdowner) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	userSvc         userdomain.Service
	organizationSvc orgdomain.Service
	teamSvc         teamdomain.Service
	signupSvc       signupdomain.Service
	inviteSvc       invitationdomain.Service
	integrationSvc  integrationdomain.Service
	connector       *oauth.Connector
	checker         *status.Checker
	provisioningSvc provisioningdomain.Service
	onboardingSvc   onboardingdomain.Service
	authzSvc        authorization.Service
	sessions        *session.Manager
	limiter         *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	UserSvc         userdomain.Service
	OrganizationSvc orgdomain.Service
	TeamSvc         teamdomain.Service
	SignupSvc       signupdomain.Service
	InviteSvc       invitationdomain.Service
	IntegrationSvc  integrationdomain.Service
	Connector       *oauth.Connector
	Checker         *status.Checker
	ProvisioningSvc provisioningdomain.Service
	OnboardingSvc   onboardingdomain.Service
	AuthzSvc        authorization.Service
	Sessions        *session.Manager
	Limiter         *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		userSvc:         p.UserSvc,
		organizationSvc: p.OrganizationSvc,
		teamSvc:         p.TeamSvc,
		signupSvc:       p.SignupSvc,
		inviteSvc:       p.InviteSvc,
		integrationSvc:  p.IntegrationSvc,
		connector:       p.Connector,
		checker:         p.Checker,
		provisioningSvc: p.ProvisioningSvc,
		onboardingSvc:   p.OnboardingSvc,
		authzSvc:        p.AuthzSvc,
		sessions:        p.Sessions,
		limiter:         p.Limiter,
	}
	svc.registerPublicRoutes()
	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api")

	api.POST("/signup", s.Signup)
	api.POST("/join", s.Join)
	api.GET("/invites/lookup/:token", s.LookupInvite)

	// Browser redirects carry no session header; the nonce cookie ties the callback to the connect.
	api.GET("/integrations/:provider/connect", s.ConnectIntegration)
	api.GET("/integrations/:provider/callback", s.IntegrationCallback)
	api.GET("/integrations/:provider/status", s.IntegrationStatus)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(session.Middleware(s.userSvc))
	api.Use(session.RequireSession())

	// -------- Provisioning --------
	api.POST("/provisioning/trigger", s.ProvisioningTriggerRateLimit(), s.TriggerProvisioning)
	api.GET("/provisioning/logs", s.authorizeOrgAction(authorization.ObjectProvisioningLog, authorization.ActionProvisioningLogView), s.ListProvisioningLogs)

	// -------- Integrations --------
	api.GET("/integrations", s.authorizeOrgAction(authorization.ObjectIntegration, authorization.ActionIntegrationView), s.ListIntegrations)
	api.PUT("/integrations/slack/config", s.authorizeOrgAction(authorization.ObjectIntegration, authorization.ActionIntegrationManage), s.UpdateSlackConfig)
	api.PATCH("/integrations/:provider", s.authorizeOrgAction(authorization.ObjectIntegration, authorization.ActionIntegrationManage), s.UpdateIntegration)
	api.DELETE("/integrations/:provider", s.authorizeOrgAction(authorization.ObjectIntegration, authorization.ActionIntegrationManage), s.DisconnectIntegration)

	// -------- Organization --------
	api.GET("/organization", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.GetOrganization)
	api.PATCH("/organization", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionOrganizationManage), s.UpdateOrganization)
	api.POST("/organization/setup", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionOrganizationManage), s.CompleteOrganizationSetup)

	// -------- Teams --------
	api.GET("/teams", s.authorizeOrgAction(authorization.ObjectTeam, authorization.ActionTeamView), s.ListTeams)
	api.POST("/teams", s.authorizeOrgAction(authorization.ObjectTeam, authorization.ActionTeamManage), s.CreateTeam)
	api.GET("/teams/:id", s.authorizeOrgAction(authorization.ObjectTeam, authorization.ActionTeamView), s.GetTeam)
	api.PATCH("/teams/:id", s.authorizeOrgAction(authorization.ObjectTeam, authorization.ActionTeamManage), s.UpdateTeam)
	api.DELETE("/teams/:id", s.authorizeOrgAction(authorization.ObjectTeam, authorization.ActionTeamManage), s.DeleteTeam)

	// -------- Invites --------
	api.GET("/invites", s.authorizeOrgAction(authorization.ObjectInvite, authorization.ActionInviteView), s.ListInvites)
	api.POST("/invites", s.authorizeOrgAction(authorization.ObjectInvite, authorization.ActionInviteCreate), s.CreateInvite)

	// -------- Onboarding setup --------
	api.GET("/onboarding/steps", s.authorizeOrgAction(authorization.ObjectOnboardingStep, authorization.ActionOnboardingStepView), s.ListOnboardingSteps)
	api.PUT("/onboarding/steps", s.authorizeOrgAction(authorization.ObjectOnboardingStep, authorization.ActionOnboardingStepManage), s.ReplaceOnboardingSteps)
	api.GET("/onboarding/progress", s.authorizeOrgAction(authorization.ObjectOnboardingProgress, authorization.ActionOnboardingProgressView), s.GetOnboardingProgress)

	// -------- Onboarding wizard --------
	wizard := api.Group("/onboarding", s.authorizeOrgAction(authorization.ObjectOnboardingWizard, authorization.ActionOnboardingWizardUse))
	{
		wizard.GET("/wizard", s.GetOnboardingWizard)
		wizard.POST("/steps/:id/view", s.ViewOnboardingDocument)
		wizard.POST("/steps/:id/acknowledge", s.AcknowledgeOnboardingDocument)
		wizard.POST("/steps/:id/complete", s.CompleteOnboardingStep)
		wizard.POST("/finish", s.FinishOnboarding)
	}
}
