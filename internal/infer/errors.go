package infer

// ErrorCode classifies inference forwarding failures.
type ErrorCode string

const (
	ErrForwardFailed ErrorCode = "ForwardFailed"
	ErrBadResponse   ErrorCode = "BadResponse"
	ErrPrompt        ErrorCode = "Prompt"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
