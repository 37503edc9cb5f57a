package news

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// FeedSource reads article links from an RSS, Atom or JSON feed.
type FeedSource struct {
	URL        string
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds the feed download. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (f *FeedSource) Name() string { return "feed" }

// Links returns the feed's item links in feed order. Items without a link are
// skipped. The raw payload is the parsed feed re-encoded as JSON.
func (f *FeedSource) Links(ctx context.Context) ([]string, []byte, error) {
	body, err := f.fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, nil, failure.Wrap(err, failure.WithCode(ErrFeedFailed),
			failure.Message("cannot parse feed"),
			failure.Context{"url": f.URL})
	}
	raw, err := json.Marshal(feed)
	if err != nil {
		return nil, nil, failure.Wrap(err, failure.WithCode(ErrFeedFailed))
	}
	return FeedLinks(feed), raw, nil
}

// FeedLinks lists the non-empty item links of feed.
func FeedLinks(feed *gofeed.Feed) []string {
	if feed == nil {
		return []string{}
	}
	links := lo.FilterMap(feed.Items, func(it *gofeed.Item, _ int) (string, bool) {
		if it == nil {
			return "", false
		}
		link := strings.TrimSpace(it.Link)
		return link, link != ""
	})
	return links
}

func (f *FeedSource) fetch(ctx context.Context) ([]byte, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrFeedFailed),
			failure.Message("invalid feed url"),
			failure.Context{"url": f.URL})
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	hc := f.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrFeedFailed),
			failure.Message("feed request failed"),
			failure.Context{"url": f.URL})
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.New(ErrFeedFailed,
			failure.Message("feed status: "+resp.Status),
			failure.Context{"url": f.URL, "status": strconv.Itoa(resp.StatusCode)})
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrFeedFailed),
			failure.Message("reading feed failed"),
			failure.Context{"url": f.URL})
	}
	return body, nil
}
