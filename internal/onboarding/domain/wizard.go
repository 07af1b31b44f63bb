package domain

import (
	"time"

	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/bwmarrin/snowflake"
)

type WizardStep struct {
	Step
	State         string     `json:"state"`
	DocumentState string     `json:"document_state,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Wizard is recomputed from persisted progress on every load.
type Wizard struct {
	Steps               []WizardStep `json:"steps"`
	CurrentIndex        int          `json:"current_index"`
	CompletedCount      int          `json:"completed_count"`
	TotalCount          int          `json:"total_count"`
	AllComplete         bool         `json:"all_complete"`
	CanFinish           bool         `json:"can_finish"`
	OnboardingCompleted bool         `json:"onboarding_completed"`
}

// Current returns the step the pointer is on, or nil once every step is complete.
func (w Wizard) Current() *WizardStep {
	if w.CurrentIndex < 0 || w.CurrentIndex >= len(w.Steps) {
		return nil
	}
	return &w.Steps[w.CurrentIndex]
}

type CompleteResult struct {
	Wizard       Wizard                       `json:"wizard"`
	Provisioning *provisioningdomain.Response `json:"provisioning,omitempty"`
}

type EmployeeProgress struct {
	UserID              snowflake.ID `json:"user_id"`
	Name                string       `json:"name"`
	Email               string       `json:"email"`
	Position            string       `json:"position,omitempty"`
	CompletedSteps      int          `json:"completed_steps"`
	TotalSteps          int          `json:"total_steps"`
	OnboardingCompleted bool         `json:"onboarding_completed"`
}

type ProgressOverview struct {
	Employees  []EmployeeProgress `json:"employees"`
	TotalSteps int                `json:"total_steps"`
}
