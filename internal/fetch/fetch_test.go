package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects failures reported by the client's failure policy.
type recorder struct {
	mu   sync.Mutex
	urls []string
}

func (r *recorder) record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, res.URL)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>page a</p>"))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>page b</p>"))
	})
	mux.HandleFunc("/500", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/204", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte("too late"))
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte{'n', 'o', 't', 0xed, 'c', 'i', 'a'})
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/a", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchOne_Success(t *testing.T) {
	srv := newTestServer(t)
	rec := &recorder{}
	c := &Client{HTTPClient: srv.Client(), UserAgent: "finweb-test", OnFailure: rec.record}

	res := c.FetchOne(context.Background(), srv.URL+"/a")
	require.True(t, res.OK())
	assert.Equal(t, "<p>page a</p>", res.Body)
	assert.Equal(t, "<p>page a</p>", res.Text())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, rec.urls)
}

func TestFetchOne_SendsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), UserAgent: "finweb-test/1"}
	res := c.FetchOne(context.Background(), srv.URL)
	require.True(t, res.OK())
	assert.Equal(t, "finweb-test/1", got)
}

func TestFetchOne_NonOKStatusIsFailure(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/500", "/204", "/missing"} {
		t.Run(path, func(t *testing.T) {
			rec := &recorder{}
			c := &Client{HTTPClient: srv.Client(), OnFailure: rec.record}
			res := c.FetchOne(context.Background(), srv.URL+path)
			assert.False(t, res.OK())
			assert.Equal(t, FailureSentinel, res.Text())
			assert.True(t, failure.Is(res.Err, ErrResponseStatus))
			assert.Equal(t, "response error", KindOf(res.Err))
			assert.Equal(t, []string{srv.URL + path}, rec.urls)
		})
	}
}

func TestFetchOne_Timeout(t *testing.T) {
	srv := newTestServer(t)
	rec := &recorder{}
	c := &Client{HTTPClient: srv.Client(), PerRequestTimeout: 100 * time.Millisecond, OnFailure: rec.record}

	start := time.Now()
	res := c.FetchOne(context.Background(), srv.URL+"/slow")
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, res.OK())
	assert.True(t, failure.Is(res.Err, ErrTimeout), "got %v", res.Err)
	assert.Equal(t, "timeout", KindOf(res.Err))
	assert.Len(t, rec.urls, 1)
}

func TestFetchOne_InvalidURLs(t *testing.T) {
	rec := &recorder{}
	c := &Client{OnFailure: rec.record}

	for _, u := range []string{"", "not a url", "file:///etc/hosts", "http://", "://missing-scheme"} {
		res := c.FetchOne(context.Background(), u)
		assert.False(t, res.OK(), "url %q", u)
		assert.Equal(t, FailureSentinel, res.Text())
		assert.True(t, failure.Is(res.Err, ErrInvalidURL), "url %q: %v", u, res.Err)
	}
	assert.Len(t, rec.urls, 5)
}

func TestFetchOne_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := &Client{OnFailure: func(Result) {}}
	res := c.FetchOne(context.Background(), addr)
	assert.False(t, res.OK())
	assert.True(t, failure.Is(res.Err, ErrTransport), "got %v", res.Err)
	assert.Equal(t, "client error", KindOf(res.Err))
}

func TestFetchOne_DecodesCharset(t *testing.T) {
	srv := newTestServer(t)
	c := &Client{HTTPClient: srv.Client()}

	res := c.FetchOne(context.Background(), srv.URL+"/latin1")
	require.True(t, res.OK())
	assert.Equal(t, "notícia", res.Body)
}

func TestFetchOne_FollowsRedirects(t *testing.T) {
	srv := newTestServer(t)
	c := &Client{HTTPClient: srv.Client()}

	res := c.FetchOne(context.Background(), srv.URL+"/redirect")
	require.True(t, res.OK())
	assert.Equal(t, "<p>page a</p>", res.Body)

	limited := &Client{HTTPClient: srv.Client(), RedirectMaxHops: 1, OnFailure: func(Result) {}}
	srvLoop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer srvLoop.Close()
	res = limited.FetchOne(context.Background(), srvLoop.URL)
	assert.False(t, res.OK())
}

func TestFetchAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	srv := newTestServer(t)
	rec := &recorder{}
	c := &Client{HTTPClient: srv.Client(), PerRequestTimeout: 200 * time.Millisecond, OnFailure: rec.record}

	urls := []string{srv.URL + "/a", srv.URL + "/500", srv.URL + "/slow", srv.URL + "/b"}
	results := c.FetchAll(context.Background(), urls)

	require.Len(t, results, len(urls))
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.Equal(t, []string{"<p>page a</p>", FailureSentinel, FailureSentinel, "<p>page b</p>"}, Texts(results))
	assert.ElementsMatch(t, []string{srv.URL + "/500", srv.URL + "/slow"}, rec.urls)
}

func TestFetchAll_PermutedInputPermutesOutput(t *testing.T) {
	srv := newTestServer(t)
	c := &Client{HTTPClient: srv.Client(), OnFailure: func(Result) {}}

	forward := []string{srv.URL + "/a", srv.URL + "/500", srv.URL + "/b"}
	reversed := []string{forward[2], forward[1], forward[0]}

	a := Texts(c.FetchAll(context.Background(), forward))
	b := Texts(c.FetchAll(context.Background(), reversed))
	assert.Equal(t, []string{a[2], a[1], a[0]}, b)
}

func TestFetchAll_Empty(t *testing.T) {
	c := &Client{}
	assert.Empty(t, c.FetchAll(context.Background(), nil))
	assert.Empty(t, c.FetchAll(context.Background(), []string{}))
	assert.Empty(t, Texts(nil))
}

func TestFetchAll_MaxConcurrent(t *testing.T) {
	var inFlight, maxObserved int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		curr := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxObserved)
			if curr <= prev || atomic.CompareAndSwapInt32(&maxObserved, prev, curr) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), MaxConcurrent: 2}
	urls := make([]string, 6)
	for i := range urls {
		urls[i] = srv.URL
	}
	results := c.FetchAll(context.Background(), urls)
	require.Len(t, results, 6)
	for _, r := range results {
		assert.True(t, r.OK())
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&maxObserved), int32(2))
}

func TestFetchAll_UnboundedRunsConcurrently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client()}
	urls := []string{srv.URL + "/1", srv.URL + "/2", srv.URL + "/3", srv.URL + "/4"}
	start := time.Now()
	results := c.FetchAll(context.Background(), urls)
	assert.Less(t, time.Since(start), 1200*time.Millisecond)
	assert.Len(t, results, 4)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "", KindOf(nil))
	assert.Equal(t, "read error", KindOf(failure.New(ErrReadBody)))
	assert.Equal(t, "client error", KindOf(failure.New(ErrTransport)))
}
