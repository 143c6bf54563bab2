package chi

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeUnauthorized         ErrorCode = "unauthorized"
	CodeValidationFailed     ErrorCode = "validation_failed"
	CodeUnknownConstraint    ErrorCode = "unknown_constraint"
	CodeTemplateNotFound     ErrorCode = "template_not_found"
	CodeTemplateMismatch     ErrorCode = "template_mismatch"
	CodeUnsupportedOperation ErrorCode = "unsupported_operation"
	CodeBackendUnavailable   ErrorCode = "backend_unavailable"
	CodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
