package errors

import (
	"testing"
)

func TestValidationError(t *testing.T) {
	// Test NewValidationError
	err := NewValidationError("exam_id", "is required", "")

	if err.Field != "exam_id" {
		t.Errorf("Expected field to be 'exam_id', got '%s'", err.Field)
	}

	if err.Message != "is required" {
		t.Errorf("Expected message to be 'is required', got '%s'", err.Message)
	}

	// Test Error method
	expected := "validation error on field 'exam_id': is required"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	// Test empty ValidationErrors
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	// Test single ValidationError
	errs = append(errs, *NewValidationError("questionId", "is required", nil))
	expected := "validation failed: questionId is required"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	// Test multiple ValidationErrors
	errs = append(errs, *NewValidationError("answer", "must be manual or timeout", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("type", "must be a valid question type (single_choice, multiple_choice, true_false, true_false_not_given, short_answer, image_choice, audio_choice)", "question_type", "essay")

	if err.Rule != "question_type" {
		t.Errorf("Expected rule to be 'question_type', got '%s'", err.Rule)
	}

	if err.Value != "essay" {
		t.Errorf("Expected value to be 'essay', got '%v'", err.Value)
	}
}
