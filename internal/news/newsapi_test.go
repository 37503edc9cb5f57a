package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/morikuni/failure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {"source": {"id": null, "name": "Valor"}, "author": "A", "title": "Petrobras sobe",
     "url": "https://example.com/a", "publishedAt": "2024-05-01T10:00:00Z", "content": "..."},
    {"source": {"id": "g1", "name": "G1"}, "author": null, "title": "Petrobras cai",
     "url": "https://example.com/b", "publishedAt": "2024-05-02T10:00:00Z", "content": null}
  ]
}`

func TestClient_Search_SendsQueryAndParses(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "secret", HTTPClient: srv.Client()}
	resp, raw, err := c.Search(context.Background(), Query{Q: "Petrobras", SearchIn: "title,content", Language: "pt-BR", PageSize: 20})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/v2/everything", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "secret", q.Get("apiKey"))
	assert.Equal(t, "Petrobras", q.Get("q"))
	assert.Equal(t, "title,content", q.Get("searchIn"))
	assert.Equal(t, "pt", q.Get("language"))
	assert.Equal(t, "20", q.Get("pageSize"))
	assert.False(t, q.Has("sortBy"))

	assert.Equal(t, samplePayload, string(raw))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.TotalResults)
	require.Len(t, resp.Articles, 2)
	assert.Equal(t, "Valor", resp.Articles[0].Source.Name)
	assert.Equal(t, "g1", resp.Articles[1].Source.ID)

	urls, err := URLs(resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestClient_Search_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "bad", HTTPClient: srv.Client()}
	_, _, err := c.Search(context.Background(), DefaultQuery())
	require.Error(t, err)
	assert.True(t, failure.Is(err, ErrSearchFailed))
	assert.Contains(t, failure.MessageOf(err).String(), "Your API key is invalid")
}

func TestClient_Search_ErrorPayloadWith200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, _, err := c.Search(context.Background(), DefaultQuery())
	assert.True(t, failure.Is(err, ErrSearchFailed))
}

func TestClient_Search_MissingArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, raw, err := c.Search(context.Background(), DefaultQuery())
	assert.True(t, failure.Is(err, ErrMissingField))
	assert.NotEmpty(t, raw)
}

func TestClient_Search_EmptyArticlesIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0,"articles":[]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	resp, _, err := c.Search(context.Background(), DefaultQuery())
	require.NoError(t, err)
	urls, err := URLs(resp)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestClient_Search_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := &Client{BaseURL: base}
	_, _, err := c.Search(context.Background(), DefaultQuery())
	assert.True(t, failure.Is(err, ErrSearchFailed))
}

func TestQuery_Normalize(t *testing.T) {
	cases := []struct {
		name    string
		in      Query
		wantErr bool
		lang    string
	}{
		{name: "default", in: DefaultQuery(), lang: "pt"},
		{name: "region stripped", in: Query{Q: "x", Language: "en-US"}, lang: "en"},
		{name: "no language", in: Query{Q: "x"}, lang: ""},
		{name: "empty term", in: Query{Q: "   "}, wantErr: true},
		{name: "bad language", in: Query{Q: "x", Language: "not a language!"}, wantErr: true},
		{name: "page size too big", in: Query{Q: "x", PageSize: 101}, wantErr: true},
		{name: "bad sort", in: Query{Q: "x", SortBy: "newest"}, wantErr: true},
		{name: "good sort", in: Query{Q: "x", SortBy: "publishedAt"}, lang: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.in.Normalize()
			if tc.wantErr {
				assert.True(t, failure.Is(err, ErrInvalidQuery), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.lang, got.Language)
		})
	}
}

func TestURLs_MissingURL(t *testing.T) {
	_, err := URLs(Response{Articles: []Article{{URL: "https://example.com"}, {Title: "no url"}}})
	assert.True(t, failure.Is(err, ErrMissingField))
}

func TestSearchSource_Links(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	var s Source = &SearchSource{Client: &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}, Query: DefaultQuery()}
	links, raw, err := s.Links(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "newsapi", s.Name())
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, links)
	assert.JSONEq(t, samplePayload, string(raw))
}

func TestFileSource_Links(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePayload), 0o644))

	f := &FileSource{Path: path}
	links, raw, err := f.Links(context.Background())
	require.NoError(t, err)
	assert.Len(t, links, 2)
	assert.Equal(t, samplePayload, string(raw))

	_, _, err = (&FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Links(context.Background())
	assert.True(t, failure.Is(err, ErrSearchFailed))
}
