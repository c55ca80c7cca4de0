package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pharmalens/research-assistant/internal/domain"
	"github.com/pharmalens/research-assistant/internal/sources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 100

	// DefaultLookbackDays is the default trailing publication window.
	DefaultLookbackDays = 30

	// MaxResultsLimit is the maximum results allowed per request by the API.
	MaxResultsLimit = 10000

	// articleURLPrefix builds the public article URL from a PMID.
	articleURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits. Optional.
	APIKey string

	// Timeout is the request timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit (3 req/sec) if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default maximum results per search.
	MaxResults int
}

// applyDefaults applies default values to the config.
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
}

// Client implements the sources.ArticleSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements ArticleSource.
var _ sources.ArticleSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	}

	return &Client{
		config:     cfg,
		httpClient: sources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
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

// Search queries PubMed for recent articles matching the query term.
// It performs a two-step search:
//  1. esearch.fcgi - resolves the term (with the trailing-day window in
//     PubMed's native "last N days"[dp] syntax) to a set of PMIDs
//  2. efetch.fcgi - retrieves full article metadata for the PMIDs in
//     one batch call
func (c *Client) Search(ctx context.Context, params sources.SearchParams) ([]domain.Article, error) {
	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	// Phrase-not-found is an empty result, not an error.
	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return []domain.Article{}, nil
	}

	if len(searchResult.IDList.IDs) == 0 {
		return []domain.Article{}, nil
	}

	articleSet, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	articles := make([]domain.Article, 0, len(articleSet.Articles))
	for _, pa := range articleSet.Articles {
		articles = append(articles, toArticle(pa))
	}

	return articles, nil
}

// esearch performs a search query and returns matching PMIDs.
func (c *Client) esearch(ctx context.Context, params sources.SearchParams) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
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
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", fmt.Sprintf("%s AND (\"last %d days\"[dp])", params.Term, lookback))
	q.Set("retmode", "xml")
	q.Set("retmax", strconv.Itoa(maxResults))
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	var result ESearchResult
	if err := c.getXML(ctx, u.String(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	var result PubmedArticleSet
	if err := c.getXML(ctx, u.String(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// getXML issues a GET request and decodes the XML response into out.
func (c *Client) getXML(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse XML response: %w", err)
	}
	return nil
}

// toArticle converts a PubmedArticle to the uniform domain.Article.
func toArticle(pa PubmedArticle) domain.Article {
	citation := pa.MedlineCitation

	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	return domain.Article{
		Title:    citation.Article.ArticleTitle,
		Abstract: extractAbstract(citation.Article.Abstract),
		Journal:  journal,
		URL:      articleURLPrefix + citation.PMID.Value + "/",
		Authors:  extractAuthors(citation.Article.AuthorList),
		DOI:      extractDOI(citation.Article.ELocationID),
	}
}

// extractAbstract normalizes the PubMed abstract into the canonical
// sequence-of-sections shape. Three source shapes are tolerated: a
// sequence of labeled sections, a single section (labeled or not), and
// an absent abstract, which becomes the no-abstract sentinel.
// A structured section missing its label gets the generic default label.
func extractAbstract(abstract *Abstract) []domain.AbstractSection {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return domain.NewAbstract()
	}

	// A single unlabeled section is a plain (bare) abstract block.
	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		text := strings.TrimSpace(abstract.AbstractTexts[0].Value)
		if text == "" {
			return domain.NewAbstract()
		}
		return domain.NewAbstract(domain.AbstractSection{Text: text})
	}

	sections := make([]domain.AbstractSection, 0, len(abstract.AbstractTexts))
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		label := at.Label
		if label == "" {
			label = domain.DefaultSectionLabel
		}
		sections = append(sections, domain.AbstractSection{Label: label, Text: text})
	}

	return domain.NewAbstract(sections...)
}

// extractAuthors formats the author list as a single display string.
func extractAuthors(authorList *AuthorList) string {
	if authorList == nil || len(authorList.Authors) == 0 {
		return ""
	}

	names := make([]string, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}
		if a.CollectiveName != "" {
			names = append(names, a.CollectiveName)
			continue
		}
		parts := make([]string, 0, 2)
		if a.ForeName != "" {
			parts = append(parts, a.ForeName)
		}
		if a.LastName != "" {
			parts = append(parts, a.LastName)
		}
		if name := strings.Join(parts, " "); name != "" {
			names = append(names, name)
		}
	}

	return strings.Join(names, ", ")
}

// extractDOI extracts a valid DOI from the ELocationID entries.
func extractDOI(elocs []ELocationID) string {
	for _, eloc := range elocs {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}
	return ""
}
