package databrowser

import (
	"github.com/freva-org/databrowser/internal/domain"
	"github.com/freva-org/databrowser/internal/domain/drs"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrTemplateMismatch     = domain.ErrTemplateMismatch
	ErrTemplateNotFound     = domain.ErrTemplateNotFound
	ErrUnknownConstraint    = domain.ErrUnknownConstraint
	ErrInvalidConstraint    = domain.ErrInvalidConstraint
	ErrUnsupportedOperation = domain.ErrUnsupportedOperation
	ErrBackendCommunication = domain.ErrBackendCommunication
)

// UnknownConstraintError lists constraint keys a template does not know.
// Use errors.As() to inspect.
type UnknownConstraintError = domain.UnknownConstraintError

// TemplateMismatchError describes why a path or attribute set does not fit a template.
type TemplateMismatchError = drs.TemplateMismatchError
