package europepmc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pharmalens/research-assistant/internal/domain"
	"github.com/pharmalens/research-assistant/internal/sources"
)

const (
	// DefaultBaseURL is the default Europe PMC REST API base URL.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 100

	// DefaultLookbackDays is the default trailing publication window.
	DefaultLookbackDays = 30

	// articleURLPrefix builds the public article URL from source and id.
	articleURLPrefix = "https://europepmc.org/article/"

	// dateLayout is the ISO date layout used in the query expression.
	dateLayout = "2006-01-02"

	// sourceName is the human-readable name for this source.
	sourceName = "EuropePMC"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Config holds configuration for the Europe PMC client.
type Config struct {
	// BaseURL is the REST API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout is the request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results per search request.
	MaxResults int

	// Now returns the current time; used to compute the date range.
	// Defaults to time.Now. Overridable for tests.
	Now func() time.Time
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Client implements the sources.ArticleSource interface for Europe PMC.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements ArticleSource.
var _ sources.ArticleSource = (*Client)(nil)

// New creates a new Europe PMC client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Europe PMC client with a custom HTTP
// client. This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// Search queries Europe PMC for articles matching the query term within
// the trailing publication window. The date range is embedded in the
// query expression as FIRST_PDATE:[start TO end].
func (c *Client) Search(ctx context.Context, params sources.SearchParams) ([]domain.Article, error) {
	u, err := url.Parse(c.config.BaseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	lookback := params.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	now := c.config.Now()
	endDate := now.Format(dateLayout)
	startDate := now.AddDate(0, 0, -lookback).Format(dateLayout)

	q := u.Query()
	q.Set("query", fmt.Sprintf("%s AND FIRST_PDATE:[%s TO %s]", params.Term, startDate, endDate))
	q.Set("format", "json")
	q.Set("pageSize", strconv.Itoa(maxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	articles := make([]domain.Article, 0, len(searchResp.ResultList.Result))
	for _, r := range searchResp.ResultList.Result {
		articles = append(articles, toArticle(r))
	}

	return articles, nil
}

// toArticle maps a Europe PMC result record into the uniform
// domain.Article shape, substituting fixed sentinel strings for any
// missing optional field.
func toArticle(r result) domain.Article {
	title := r.Title
	if title == "" {
		title = domain.NoTitleAvailable
	}

	authors := r.AuthorString
	if authors == "" {
		authors = domain.NoAuthorsAvailable
	}

	doi := r.DOI
	if doi == "" {
		doi = domain.NoDOIAvailable
	}

	abstract := domain.NewAbstract()
	if r.AbstractText != "" {
		abstract = domain.NewAbstract(domain.AbstractSection{Text: r.AbstractText})
	}

	return domain.Article{
		Title:    title,
		Abstract: abstract,
		Journal:  r.JournalTitle,
		URL:      articleURLPrefix + r.Source + "/" + r.ID,
		Authors:  authors,
		DOI:      doi,
	}
}
