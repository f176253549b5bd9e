package boarddto

const (
	CodeInvalidRequest    = "invalid_request"
	CodeNotFound          = "not_found"
	CodeMalformedPosition = "malformed_position"
	CodeEngineFailure     = "engine_failure"
	CodeTooManySessions   = "too_many_sessions"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "boardsync error"
}

type ErrorResponse struct {
	Error DomainError `json:"error"`
}
