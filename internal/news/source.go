package news

import "context"

// Source produces the article links for one run together with the raw
// payload they were read from, which is persisted verbatim.
type Source interface {
	Links(ctx context.Context) ([]string, []byte, error)
	Name() string
}
