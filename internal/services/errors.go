package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures expected to self-heal on a later tick:
	// encoder hiccups, network faults, remote quota pushback.
	ErrTransient = errors.New("transient failure")
	// ErrValidation marks constraint violations that need a human or policy
	// decision, such as a single item whose encoded size exceeds the chunk
	// ceiling at the current compression level.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks problems with the loaded configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups of items or records that do not exist.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether an error should be retried on a later
// scheduling tick rather than surfaced to the caller.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) {
		return false
	}
	return true
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
