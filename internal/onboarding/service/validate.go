package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/onboarding/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func normalizeInput(in domain.StepInput) domain.StepInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.StepType = strings.ToLower(strings.TrimSpace(in.StepType))
	in.IntegrationProvider = strings.ToLower(strings.TrimSpace(in.IntegrationProvider))
	in.DocumentURL = strings.TrimSpace(in.DocumentURL)
	if in.StepType != domain.StepTypeIntegration {
		in.IntegrationProvider = ""
	}
	if in.StepType != domain.StepTypeDocument {
		in.DocumentURL = ""
	}
	return in
}

func validateSteps(req domain.SaveStepsRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &domain.ValidationError{Fields: make([]domain.FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, domain.FieldError{
			Field: fieldPath(fe.Namespace()),
			Code:  fieldCode(fe.Tag()),
		})
	}
	return out
}

// fieldPath drops the root struct name: "SaveStepsRequest.steps[0].title" -> "steps[0].title".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldCode(tag string) string {
	switch tag {
	case "required", "required_if":
		return "required"
	case "max":
		return "too_long"
	case "http_url":
		return "invalid_url"
	default:
		return "invalid"
	}
}
