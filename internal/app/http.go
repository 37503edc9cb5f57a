package app

import (
	"net"
	"net/http"
	"time"

	"github.com/motemen/go-loghttp"
	"github.com/rs/zerolog/log"
)

// newHighThroughputHTTPClient returns an HTTP client tuned for high parallelism
// without client-side throttling. Per-request deadlines come from the callers'
// contexts; the client timeout only guards against hangs. In verbose mode
// every request and response is logged at debug level.
func newHighThroughputHTTPClient(verbose bool) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,    // no global limit
		MaxIdleConnsPerHost:   1024, // large per-host pool
		MaxConnsPerHost:       0,    // unlimited
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if verbose {
		transport = withHTTPLogging(transport)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   180 * time.Second,
	}
}

func withHTTPLogging(next http.RoundTripper) http.RoundTripper {
	return &loghttp.Transport{
		Transport: next,
		LogRequest: func(req *http.Request) {
			log.Debug().
				Str("method", req.Method).
				Str("url", redactURL(req)).
				Msg("HTTP request")
		},
		LogResponse: func(resp *http.Response) {
			log.Debug().
				Str("method", resp.Request.Method).
				Str("url", redactURL(resp.Request)).
				Int("status_code", resp.StatusCode).
				Msg("HTTP response")
		},
	}
}

// redactURL hides the NewsAPI key, which travels as a query parameter.
func redactURL(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	u := *req.URL
	q := u.Query()
	if q.Has("apiKey") {
		q.Set("apiKey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
