package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"
)

// FailureSentinel is the text carried downstream in place of a page that
// could not be fetched.
const FailureSentinel = "Error"

// DefaultTimeout bounds each request when Client.PerRequestTimeout is unset.
const DefaultTimeout = 5 * time.Second

const defaultRedirectMaxHops = 10

// Result is the outcome of fetching one URL. Exactly one of Body and Err is
// meaningful: Err == nil means the server answered 200 and Body holds the
// decoded response text.
type Result struct {
	URL        string
	Body       string
	StatusCode int
	Err        error
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Text returns the page body, or FailureSentinel for a failed fetch.
func (r Result) Text() string {
	if r.Err != nil {
		return FailureSentinel
	}
	return r.Body
}

// Client fetches pages over a shared HTTP client. A zero Client is usable.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request independently. Zero means DefaultTimeout.
	PerRequestTimeout time.Duration
	// MaxConcurrent limits in-flight requests within FetchAll. Zero means
	// unlimited; the transport's connection pool is then the only bound.
	MaxConcurrent int
	// RedirectMaxHops caps redirect following. Zero means 10.
	RedirectMaxHops int
	// OnFailure is called once for every failed fetch. Nil means LogFailure.
	OnFailure func(Result)
}

// LogFailure is the default failure policy: it emits a warning naming the URL
// and never aborts the batch.
func LogFailure(r Result) {
	ev := log.Warn().Err(r.Err).Str("url", r.URL).Str("kind", KindOf(r.Err))
	if r.StatusCode != 0 {
		ev = ev.Int("status", r.StatusCode)
	}
	ev.Msg("fetch failed")
}

// FetchAll fetches every URL concurrently and waits for all of them. The
// returned slice has the same length and order as urls; failed items hold a
// failure Result instead of aborting the batch.
func (c *Client) FetchAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	var g errgroup.Group
	if c.MaxConcurrent > 0 {
		g.SetLimit(c.MaxConcurrent)
	}
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = c.FetchOne(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FetchOne issues a GET against rawURL. Only status 200 is a success; every
// other status and every transport or read error becomes a failure Result.
func (c *Client) FetchOne(ctx context.Context, rawURL string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{
				URL: rawURL,
				Err: failure.New(ErrTransport,
					failure.Message("unexpected panic while fetching"),
					failure.Context{"url": rawURL, "panic": fmt.Sprint(p)}),
			}
		}
		if res.Err != nil {
			c.reportFailure(res)
		}
	}()

	body, status, err := c.get(ctx, rawURL)
	return Result{URL: rawURL, Body: body, StatusCode: status, Err: err}
}

// Texts maps results to the strings handed to the extractor.
func Texts(results []Result) []string {
	return lo.Map(results, func(r Result, _ int) string { return r.Text() })
}

func (c *Client) get(ctx context.Context, rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, failure.Wrap(err, failure.WithCode(ErrInvalidURL),
			failure.Message("cannot parse url"),
			failure.Context{"url": rawURL})
	}
	if !isHTTPScheme(u) || u.Host == "" {
		return "", 0, failure.New(ErrInvalidURL,
			failure.Message("url must be absolute http or https"),
			failure.Context{"url": rawURL})
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", 0, failure.Wrap(err, failure.WithCode(ErrInvalidURL),
			failure.Message("cannot build request"),
			failure.Context{"url": rawURL})
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return "", 0, failure.Wrap(err, failure.WithCode(classify(err)),
			failure.Message("request failed"),
			failure.Context{"url": rawURL})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", resp.StatusCode, failure.New(ErrResponseStatus,
			failure.Message("unexpected status: "+resp.Status),
			failure.Context{"url": rawURL, "status": strconv.Itoa(resp.StatusCode)})
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", resp.StatusCode, readError(err, rawURL)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", resp.StatusCode, readError(err, rawURL)
	}
	return string(b), resp.StatusCode, nil
}

func readError(err error, rawURL string) error {
	code := ErrReadBody
	if classify(err) == ErrTimeout {
		code = ErrTimeout
	}
	return failure.Wrap(err, failure.WithCode(code),
		failure.Message("reading body failed"),
		failure.Context{"url": rawURL})
}

func classify(err error) ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrTransport
}

func (c *Client) timeout() time.Duration {
	if c.PerRequestTimeout > 0 {
		return c.PerRequestTimeout
	}
	return DefaultTimeout
}

func (c *Client) reportFailure(r Result) {
	if c.OnFailure != nil {
		c.OnFailure(r)
		return
	}
	LogFailure(r)
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = defaultRedirectMaxHops
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
