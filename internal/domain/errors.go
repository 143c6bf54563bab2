package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateMismatch signals a path that does not fit a naming template.
	ErrTemplateMismatch = errors.New("template mismatch")
	// ErrUnknownConstraint signals a file-system search constraint with no matching path segment.
	ErrUnknownConstraint = errors.New("unknown constraint")
	// ErrUnsupportedOperation signals a versioned operation on a non-versionable template.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrBackendCommunication signals an unreachable index or a malformed index response.
	ErrBackendCommunication = errors.New("backend communication error")
	// ErrTemplateNotFound signals an unregistered template id.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrInvalidConstraint signals a constraint value that cannot be used (bad glob, bad offset).
	ErrInvalidConstraint = errors.New("invalid constraint")
)

// UnknownConstraintError names the constraint keys that matched no template segment.
type UnknownConstraintError struct {
	Template string
	Keys     []string
	Valid    []string
}

func (e *UnknownConstraintError) Error() string {
	return fmt.Sprintf("%s: %s (template %s accepts: %s)",
		ErrUnknownConstraint.Error(),
		strings.Join(e.Keys, ","), e.Template, strings.Join(e.Valid, ","))
}

func (e *UnknownConstraintError) Unwrap() error { return ErrUnknownConstraint }
