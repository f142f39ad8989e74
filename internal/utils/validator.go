package utils

import (
	"reflect"
	"strings"

	apperrors "github.com/SAP-F-2025/exam-client/internal/errors"
	"github.com/SAP-F-2025/exam-client/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator with the custom rules used across
// the session engine.
type Validator struct {
	structValidator *validator.Validate
}

// NewValidator creates a new validator instance with all custom validators
// registered.
func NewValidator() *Validator {
	structValidator := validator.New()
	RegisterCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// Validate validates struct tags and converts failures into the shared
// ValidationErrors type so callers can surface them per field.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// Custom validation functions

func ValidateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).IsValid()
}

func ValidateSubmitTrigger(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "manual" || value == "timeout"
}

func ValidateSubmissionStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.SubmissionStatus{
		models.SubmissionInProgress,
		models.SubmissionSubmitted,
		models.SubmissionTimedOut,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("submit_trigger", ValidateSubmitTrigger)
	validate.RegisterValidation("submission_status", ValidateSubmissionStatus)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
