package newsapi

// Client for a newsapi.org-style search endpoint.
// Handles one page at a time - pagination policy is up to the caller
// (keep going until you see a short page).

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/bcampbell/arts/util"
	"golang.org/x/time/rate"
)

// ErrSearchUnavailable signals a failed page fetch (transport error or
// non-200 status). The whole page is lost - there are no partial pages.
var ErrSearchUnavailable = errors.New("search unavailable")

const DefaultPageSize = 100

// Article is a single raw search result, as returned by the API.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Content is usually truncated by the API (see TruncatedContent)
	Content     string   `json:"content"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"publishedAt"`
	URLToImage  string   `json:"urlToImage"`
	Images      []string `json:"images"`
}

// ImageURLs returns the candidate image URLs for an article, in order.
// Always returns at least one entry - a lone "" placeholder when the
// article has no images at all.
func (a *Article) ImageURLs() []string {
	if len(a.Images) > 0 {
		return a.Images
	}
	if a.URLToImage != "" {
		return []string{a.URLToImage}
	}
	return []string{""}
}

var truncPat = regexp.MustCompile(`\[\+\d+ chars\]\s*$`)

// TruncatedContent reports whether the content field carries the API's
// "[+N chars]" truncation marker.
func (a *Article) TruncatedContent() bool {
	return truncPat.MatchString(a.Content)
}

type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (l nullLogger) Printf(format string, v ...interface{}) {}

// Client issues date-windowed queries against the search API.
// Zero value isn't usable - use NewClient.
type Client struct {
	HTTPClient *http.Client
	// eg "https://newsapi.org/v2/everything"
	BaseURL  string
	APIKey   string
	PageSize int
	// limiter paces successive calls to keep under the API rate limit
	limiter *rate.Limiter
	ErrLog  Logger
}

func NewClient(baseURL, apiKey string, limiter *rate.Limiter) *Client {
	return &Client{
		HTTPClient: &http.Client{Transport: util.NewPoliteTripper()},
		BaseURL:    baseURL,
		APIKey:     apiKey,
		PageSize:   DefaultPageSize,
		limiter:    limiter,
		ErrLog:     nullLogger{},
	}
}

// wire format of a search response
type searchResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// Search fetches one page of results for query within [from,to).
// from/to are ISO dates, pages are 1-indexed.
// Fewer than PageSize results means it's the last page.
func (c *Client) Search(ctx context.Context, query, from, to string, page int) ([]Article, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("from", from)
	params.Set("to", to)
	params.Set("pageSize", strconv.Itoa(c.PageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("apiKey", c.APIKey)
	params.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSearchUnavailable, err)
	}

	if resp.StatusCode != 200 {
		c.ErrLog.Printf("search error: %s\n", string(raw))
		return nil, fmt.Errorf("%w: HTTP %s", ErrSearchUnavailable, resp.Status)
	}

	var sr searchResponse
	err = json.Unmarshal(raw, &sr)
	if err != nil {
		return nil, fmt.Errorf("%w: bad response (%s)", ErrSearchUnavailable, err)
	}
	if sr.Status != "" && sr.Status != "ok" {
		return nil, fmt.Errorf("%w: %s (%s)", ErrSearchUnavailable, sr.Status, sr.Message)
	}

	return sr.Articles, nil
}
