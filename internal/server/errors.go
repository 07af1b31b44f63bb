package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/auth/session"
	"github.com/abbydulski/Runway-sub000/internal/authorization"
	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	invitationdomain "github.com/abbydulski/Runway-sub000/internal/invitation/domain"
	onboardingdomain "github.com/abbydulski/Runway-sub000/internal/onboarding/domain"
	orgdomain "github.com/abbydulski/Runway-sub000/internal/organization/domain"
	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/ratelimit"
	signupdomain "github.com/abbydulski/Runway-sub000/internal/signup/domain"
	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/abbydulski/Runway-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog reports the error type and code attached to request log entries.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var stepsErr *onboardingdomain.ValidationError
	if errors.As(err, &stepsErr) {
		fields := make([]ValidationError, 0, len(stepsErr.Fields))
		for _, f := range stepsErr.Fields {
			fields = append(fields, ValidationError{
				Field:   f.Field,
				Code:    f.Code,
				Message: validationErrorMessage(f.Code),
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fields,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrEmailTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isStateError(err):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_state",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, provisioningdomain.ErrDispatchQueueFull),
		errors.Is(err, integrationdomain.ErrEncryptionKeyMissing):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	signupdomain.ErrInvalidRequest,
	pagination.ErrInvalidPageToken,
	userdomain.ErrInvalidEmail,
	userdomain.ErrInvalidName,
	orgdomain.ErrInvalidName,
	orgdomain.ErrInvalidProvider,
	orgdomain.ErrInvalidLogoURL,
	teamdomain.ErrInvalidName,
	invitationdomain.ErrInvalidEmail,
	invitationdomain.ErrInvalidToken,
	invitationdomain.ErrInvalidTeam,
	invitationdomain.ErrInvalidManager,
	invitationdomain.ErrInvalidStatus,
	invitationdomain.ErrInvalidOrganization,
	integrationdomain.ErrInvalidProvider,
	integrationdomain.ErrInvalidOrganization,
	integrationdomain.ErrInvalidToken,
	integrationdomain.ErrInvalidProviderData,
	integrationdomain.ErrInvalidConfig,
	provisioningdomain.ErrInvalidUserID,
	provisioningdomain.ErrInvalidOrganization,
	provisioningdomain.ErrInvalidTeamID,
	provisioningdomain.ErrInvalidStatus,
	onboardingdomain.ErrInvalidOrganization,
	onboardingdomain.ErrInvalidSteps,
	onboardingdomain.ErrNotDocumentStep,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// isStateError covers requests that are well formed but not allowed in the current onboarding state.
func isStateError(err error) bool {
	switch {
	case errors.Is(err, onboardingdomain.ErrDocumentNotViewed),
		errors.Is(err, onboardingdomain.ErrDocumentNotAcknowledged),
		errors.Is(err, onboardingdomain.ErrStepsIncomplete),
		errors.Is(err, onboardingdomain.ErrStepOutOfOrder):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, teamdomain.ErrNotFound),
		errors.Is(err, invitationdomain.ErrNotFound),
		errors.Is(err, integrationdomain.ErrNotFound),
		errors.Is(err, onboardingdomain.ErrStepNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidRequest):
		return "invalid_request"
	default:
		for _, target := range validationErrors {
			if errors.Is(err, target) {
				return target.Error()
			}
		}
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_access_token", "invalid_invite_token":
		return "token"
	case "not_document_step":
		return "step_id"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "required":
		return "field is required"
	case "too_long":
		return "value is too long"
	case "invalid_url":
		return "value must be an http(s) URL"
	case "not_document_step":
		return "step is not a document step"
	default:
		return "invalid value"
	}
}
