package news

import (
	"context"
	"os"
	"strings"

	"github.com/morikuni/failure/v2"
)

// FileSource replays a saved /v2/everything payload, such as the out.json of
// an earlier run, for offline use.
type FileSource struct {
	Path string
}

func (f *FileSource) Name() string { return "file" }

func (f *FileSource) Links(_ context.Context) ([]string, []byte, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, nil, failure.New(ErrSearchFailed, failure.Message("file source path is empty"))
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, nil, failure.Wrap(err, failure.WithCode(ErrSearchFailed),
			failure.Message("cannot read saved search"),
			failure.Context{"path": f.Path})
	}
	r, err := DecodeResponse(b)
	if err != nil {
		return nil, b, err
	}
	links, err := URLs(r)
	if err != nil {
		return nil, b, err
	}
	return links, b, nil
}
