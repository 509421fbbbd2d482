package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Wrap tags every error leaving a
// phase or service client with exactly one of these so the runner and the CLI
// can decide whether to retry, halt, or point the user at their configuration.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTransient     = errors.New("transient failure")
	ErrPermanent     = errors.New("permanent failure")
	ErrTimeout       = errors.New("timeout")
	ErrExternalTool  = errors.New("external tool error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the error is worth another attempt inside the
// same phase.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// ErrorDetails carries the user-facing pieces of a classified error.
type ErrorDetails struct {
	Category string
	Message  string
}

// Details extracts the classification and the human-readable message from a
// wrapped error. Unclassified errors report an empty category.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Message: err.Error()}
	markers := []struct {
		err   error
		label string
	}{
		{ErrConfiguration, "configuration"},
		{ErrValidation, "validation"},
		{ErrTimeout, "timeout"},
		{ErrTransient, "transient"},
		{ErrPermanent, "permanent"},
		{ErrExternalTool, "external_tool"},
		{ErrNotFound, "not_found"},
	}
	for _, marker := range markers {
		if errors.Is(err, marker.err) {
			details.Category = marker.label
			trimmed := strings.TrimPrefix(err.Error(), marker.err.Error()+": ")
			details.Message = strings.TrimSpace(trimmed)
			break
		}
	}
	if details.Message == "" {
		details.Message = err.Error()
	}
	return details
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
