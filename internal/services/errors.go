package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation flags bad names or paths rejected before any I/O.
	ErrValidation = errors.New("validation error")
	// ErrNotFound flags a missing project, source, or scan.
	ErrNotFound = errors.New("not found")
	// ErrConflict flags an operation that would violate a catalog invariant,
	// such as a normalized file whose hash collides with another indexed path.
	ErrConflict = errors.New("conflict")
	// ErrOrientation flags a probe or rewrite failure; the original file is
	// always left intact.
	ErrOrientation = errors.New("orientation error")
	// ErrExternalTool flags a missing or misbehaving external binary.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above; a nil marker leaves the error
// unclassified so it propagates as a plain I/O failure.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
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
