// Package clinicaltrials provides a client for the ClinicalTrials.gov
// study registry API.
//
// The client requests study records in CSV form, keeps only rows whose
// interventions name a drug (a "DRUG:" marker), and applies a
// client-side trailing window on the study's first-posted date.
// Malformed rows are skipped, never fatal: the registry export is not
// strictly rectangular.
package clinicaltrials

import (
	"context"
	"encoding/csv"
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
	// DefaultBaseURL is the default ClinicalTrials.gov API base URL.
	DefaultBaseURL = "https://clinicaltrials.gov/api/v2"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum studies per request.
	DefaultMaxResults = 100

	// DefaultWindow is the default trailing window on the
	// first-posted date for the newly-trialed-drugs result.
	DefaultWindow = 730 * 24 * time.Hour

	// drugMarker tags a pharmacological intervention in the
	// interventions field, e.g. "DRUG: Aspirin|DEVICE: Stent".
	drugMarker = "DRUG:"

	// dateLayout is the layout of the First Posted column.
	dateLayout = "2006-01-02"

	// sourceName is the human-readable name for this source.
	sourceName = "ClinicalTrials.gov"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Column order of the requested CSV fields.
const (
	colNCTID = iota
	colTitle
	colStatus
	colInterventions
	colFirstPosted
	columnCount
)

// csvFields is the field list requested from the registry, in column order.
var csvFields = []string{"NCT Number", "Study Title", "Study Status", "Interventions", "First Posted"}

// Config holds configuration for the ClinicalTrials.gov client.
type Config struct {
	// BaseURL is the API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout is the request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum studies per request.
	MaxResults int

	// Window is the trailing first-posted window. Defaults to
	// DefaultWindow (~2 years).
	Window time.Duration

	// Now returns the current time; used for the window filter.
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
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Client implements the sources.TrialSource interface for ClinicalTrials.gov.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements TrialSource.
var _ sources.TrialSource = (*Client)(nil)

// New creates a new ClinicalTrials.gov client with the given configuration.
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

// NewWithHTTPClient creates a new client with a custom HTTP client.
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

// Search queries the registry for studies matching the condition term
// and returns trials that name a drug intervention and were first
// posted within the configured trailing window.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) ([]domain.Trial, error) {
	u, err := url.Parse(c.config.BaseURL + "/studies")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	q := u.Query()
	q.Set("query.cond", params.Term)
	q.Set("format", "csv")
	q.Set("fields", strings.Join(csvFields, "|"))
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

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	return c.parseStudies(io.LimitReader(resp.Body, maxResponseBytes))
}

// parseStudies reads the CSV study export and converts qualifying rows
// into trials. Rows shorter than the expected field count and rows with
// unparseable posting dates are skipped rather than failing the batch.
func (c *Client) parseStudies(r io.Reader) ([]domain.Trial, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV response: %w", err)
	}

	if len(records) == 0 {
		return []domain.Trial{}, nil
	}

	now := c.config.Now()
	trials := make([]domain.Trial, 0, len(records))

	// Skip the header row.
	for _, row := range records[1:] {
		trial, ok := c.rowToTrial(row, now)
		if !ok {
			continue
		}
		trials = append(trials, trial)
	}

	return trials, nil
}

// rowToTrial converts one CSV row into a Trial. The second return value
// is false for rows that do not qualify: short rows, rows without a
// drug intervention, rows with unparseable posting dates, and rows
// posted outside the window.
func (c *Client) rowToTrial(row []string, now time.Time) (domain.Trial, bool) {
	if len(row) < columnCount {
		return domain.Trial{}, false
	}

	drugName := extractDrugName(row[colInterventions])
	if drugName == "" {
		return domain.Trial{}, false
	}

	posted, err := time.Parse(dateLayout, strings.TrimSpace(row[colFirstPosted]))
	if err != nil {
		return domain.Trial{}, false
	}

	trial := domain.Trial{
		NCTID:       strings.TrimSpace(row[colNCTID]),
		Title:       strings.TrimSpace(row[colTitle]),
		Status:      strings.TrimSpace(row[colStatus]),
		DrugName:    drugName,
		FirstPosted: &posted,
	}

	if !trial.PostedWithin(c.config.Window, now) {
		return domain.Trial{}, false
	}

	return trial, true
}

// extractDrugName scans an interventions field for the DRUG marker and
// returns the drug name that follows it, terminated by the next
// intervention separator. Returns empty when no drug intervention is named.
func extractDrugName(interventions string) string {
	idx := indexFoldASCII(interventions, drugMarker)
	if idx < 0 {
		return ""
	}

	rest := interventions[idx+len(drugMarker):]
	if sep := strings.IndexByte(rest, '|'); sep >= 0 {
		rest = rest[:sep]
	}

	return strings.TrimSpace(rest)
}

// indexFoldASCII returns the byte index of the first case-insensitive
// occurrence of the ASCII string sub in s, or -1. Folding byte by byte
// keeps indices valid for s even when s contains multi-byte runes whose
// upper-case form has a different length.
func indexFoldASCII(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if foldEqualASCII(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

// foldEqualASCII compares two equal-length strings ignoring ASCII case.
func foldEqualASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
