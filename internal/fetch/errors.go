package fetch

import "github.com/morikuni/failure/v2"

// ErrorCode classifies why a single fetch did not produce a page.
type ErrorCode string

const (
	ErrInvalidURL     ErrorCode = "InvalidURL"
	ErrTimeout        ErrorCode = "Timeout"
	ErrResponseStatus ErrorCode = "ResponseStatus"
	ErrTransport      ErrorCode = "Transport"
	ErrReadBody       ErrorCode = "ReadBody"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// KindOf returns a short human label for the failure kind of err, suitable
// for diagnostics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case failure.Is(err, ErrResponseStatus):
		return "response error"
	case failure.Is(err, ErrInvalidURL):
		return "invalid url"
	case failure.Is(err, ErrTimeout):
		return "timeout"
	case failure.Is(err, ErrReadBody):
		return "read error"
	default:
		return "client error"
	}
}
