package server

import (
	"context"
	"net/http"

	onboardingdomain "github.com/abbydulski/Runway-sub000/internal/onboarding/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListOnboardingSteps(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	steps, err := s.onboardingSvc.ListSteps(c.Request.Context(), sess.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": steps})
}

// ReplaceOnboardingSteps stores the full ordered step list; steps missing from the body are removed.
func (s *Server) ReplaceOnboardingSteps(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req onboardingdomain.SaveStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	steps, err := s.onboardingSvc.SaveSteps(c.Request.Context(), sess.OrgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": steps})
}

func (s *Server) GetOnboardingWizard(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	wizard, err := s.onboardingSvc.GetWizard(c.Request.Context(), sess.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": wizard})
}

func (s *Server) ViewOnboardingDocument(c *gin.Context) {
	s.wizardStepAction(c, s.onboardingSvc.ViewDocument)
}

func (s *Server) AcknowledgeOnboardingDocument(c *gin.Context) {
	s.wizardStepAction(c, s.onboardingSvc.AcknowledgeDocument)
}

func (s *Server) wizardStepAction(c *gin.Context, fn func(ctx context.Context, userID, stepID snowflake.ID) (*onboardingdomain.Wizard, error)) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	stepID, ok := pathID(c, "id")
	if !ok {
		return
	}

	wizard, err := fn(c.Request.Context(), sess.UserID, stepID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": wizard})
}

// CompleteOnboardingStep may run provisioning first when the step is the Slack integration step.
func (s *Server) CompleteOnboardingStep(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	stepID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := s.onboardingSvc.CompleteStep(c.Request.Context(), sess.UserID, stepID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) FinishOnboarding(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	wizard, err := s.onboardingSvc.Finish(c.Request.Context(), sess.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": wizard})
}

func (s *Server) GetOnboardingProgress(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	overview, err := s.onboardingSvc.Progress(c.Request.Context(), sess.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": overview})
}
