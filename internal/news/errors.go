package news

// ErrorCode classifies news source failures.
type ErrorCode string

const (
	ErrSearchFailed ErrorCode = "SearchFailed"
	ErrMissingField ErrorCode = "MissingField"
	ErrInvalidQuery ErrorCode = "InvalidQuery"
	ErrFeedFailed   ErrorCode = "FeedFailed"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
