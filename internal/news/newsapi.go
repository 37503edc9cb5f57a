package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"golang.org/x/text/language"
)

const (
	// DefaultBaseURL is the public NewsAPI endpoint.
	DefaultBaseURL = "https://newsapi.org"
	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 120 * time.Second

	everythingPath = "/v2/everything"
	maxPageSize    = 100
)

// Article is the subset of a NewsAPI article the pipeline reads.
type Article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Response is the typed view of an /v2/everything payload.
type Response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// Query describes one search. Zero fields are omitted from the request.
type Query struct {
	Q        string
	SearchIn string
	Language string
	PageSize int
	SortBy   string
}

// DefaultQuery returns the query the pipeline runs when nothing overrides it.
func DefaultQuery() Query {
	return Query{Q: "Petrobras", SearchIn: "title,content", Language: "pt"}
}

var sortOrders = []string{"relevancy", "popularity", "publishedAt"}

// Normalize validates q and returns it with the language reduced to its
// two-letter base.
func (q Query) Normalize() (Query, error) {
	q.Q = strings.TrimSpace(q.Q)
	if q.Q == "" {
		return q, failure.New(ErrInvalidQuery, failure.Message("search term is empty"))
	}
	if q.Language != "" {
		tag, err := language.Parse(q.Language)
		if err != nil {
			return q, failure.Wrap(err, failure.WithCode(ErrInvalidQuery),
				failure.Message("invalid language"),
				failure.Context{"language": q.Language})
		}
		base, _ := tag.Base()
		q.Language = base.String()
	}
	if q.PageSize < 0 || q.PageSize > maxPageSize {
		return q, failure.New(ErrInvalidQuery,
			failure.Message("page size must be between 1 and 100"),
			failure.Context{"pageSize": strconv.Itoa(q.PageSize)})
	}
	if q.SortBy != "" && !lo.Contains(sortOrders, q.SortBy) {
		return q, failure.New(ErrInvalidQuery,
			failure.Message("unknown sort order"),
			failure.Context{"sortBy": q.SortBy})
	}
	return q, nil
}

func (q Query) values(apiKey string) url.Values {
	v := url.Values{}
	v.Set("apiKey", apiKey)
	v.Set("q", q.Q)
	if q.SearchIn != "" {
		v.Set("searchIn", q.SearchIn)
	}
	if q.Language != "" {
		v.Set("language", q.Language)
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	return v
}

// Client talks to the NewsAPI /v2/everything endpoint with a single static
// API key.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds each search. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Search runs q and returns the decoded response together with the raw body.
// A non-2xx status, a payload with status "error", or a payload without an
// articles list is an error.
func (c *Client) Search(ctx context.Context, q Query) (Response, []byte, error) {
	q, err := q.Normalize()
	if err != nil {
		return Response{}, nil, err
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return Response{}, nil, failure.Wrap(err, failure.WithCode(ErrSearchFailed),
			failure.Message("invalid news api base url"),
			failure.Context{"baseURL": base})
	}
	if !strings.HasSuffix(u.Path, everythingPath) {
		u.Path = strings.TrimRight(u.Path, "/") + everythingPath
	}
	u.RawQuery = q.values(c.APIKey).Encode()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, nil, failure.Wrap(err, failure.WithCode(ErrSearchFailed))
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Response{}, nil, failure.Wrap(err, failure.WithCode(ErrSearchFailed),
			failure.Message("news search request failed"),
			failure.Context{"q": q.Q})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, nil, failure.Wrap(err, failure.WithCode(ErrSearchFailed),
			failure.Message("reading news search response failed"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("news search status: %d", resp.StatusCode)
		var apiErr Response
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			msg += ": " + apiErr.Message
		}
		return Response{}, body, failure.New(ErrSearchFailed,
			failure.Message(msg),
			failure.Context{"status": strconv.Itoa(resp.StatusCode), "code": apiErr.Code})
	}

	r, err := DecodeResponse(body)
	if err != nil {
		return Response{}, body, err
	}
	return r, body, nil
}

// DecodeResponse parses a NewsAPI payload. An "error" status and a missing
// articles list are both errors.
func DecodeResponse(body []byte) (Response, error) {
	var raw struct {
		Response
		Articles *[]Article `json:"articles"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Response{}, failure.Wrap(err, failure.WithCode(ErrSearchFailed),
			failure.Message("news search response is not valid JSON"))
	}
	r := raw.Response
	if r.Status == "error" {
		return r, failure.New(ErrSearchFailed,
			failure.Message("news search error: "+r.Message),
			failure.Context{"code": r.Code})
	}
	if raw.Articles == nil {
		return r, failure.New(ErrMissingField,
			failure.Message("news search response has no articles"),
			failure.Context{"field": "articles"})
	}
	r.Articles = *raw.Articles
	return r, nil
}

// URLs returns articles[].url in response order. An article without a url is
// an error.
func URLs(r Response) ([]string, error) {
	for i, a := range r.Articles {
		if strings.TrimSpace(a.URL) == "" {
			return nil, failure.New(ErrMissingField,
				failure.Message("article has no url"),
				failure.Context{"field": "url", "index": strconv.Itoa(i)})
		}
	}
	return lo.Map(r.Articles, func(a Article, _ int) string { return a.URL }), nil
}

// SearchSource is the NewsAPI-backed Source.
type SearchSource struct {
	Client *Client
	Query  Query
}

func (s *SearchSource) Name() string { return "newsapi" }

func (s *SearchSource) Links(ctx context.Context) ([]string, []byte, error) {
	r, raw, err := s.Client.Search(ctx, s.Query)
	if err != nil {
		return nil, raw, err
	}
	links, err := URLs(r)
	if err != nil {
		return nil, raw, err
	}
	return links, raw, nil
}
