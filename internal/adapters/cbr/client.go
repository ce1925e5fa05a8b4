package cbr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/core/ports/sources"
)

// DefaultBaseURL is the public site of the Central Bank of Russia.
const DefaultBaseURL = "https://www.cbr.ru"

const (
	dailyPagePath   = "/currency_base/daily/"
	dailyXMLPath    = "/scripts/XML_daily.asp"
	dynamicXMLPath  = "/scripts/XML_dynamic.asp"
	maxDocumentSize = 4 << 20
)

// Client fetches raw rate documents from the CBR site.
type Client struct {
	baseURL    string
	source     string
	dailyKind  sources.DocumentKind
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithDailyKind selects the markup daily fetches use (sources.DailyHTML or sources.DailyXML).
func WithDailyKind(kind sources.DocumentKind) ClientOption {
	return func(c *Client) {
		c.dailyKind = kind
	}
}

// NewClient creates a Client. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid source base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		source:     u.Host,
		dailyKind:  sources.DailyHTML,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "cbr-rates/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dailyKind != sources.DailyHTML && c.dailyKind != sources.DailyXML {
		return nil, fmt.Errorf("unsupported daily document kind %q", c.dailyKind)
	}
	return c, nil
}

// Source returns the host documents are fetched from.
func (c *Client) Source() string {
	return c.source
}

// FetchDaily fetches the daily rates document for date.
func (c *Client) FetchDaily(ctx context.Context, date civil.Date) (sources.RawDocument, error) {
	query := url.Values{}
	var path string
	switch c.dailyKind {
	case sources.DailyXML:
		path = dailyXMLPath
		query.Set("date_req", domain.FormatDotted(date))
	default:
		path = dailyPagePath
		query.Set("UniDbQuery.Posted", "True")
		query.Set("UniDbQuery.To", domain.FormatDotted(date))
	}
	return c.get(ctx, c.dailyKind, path, query)
}

// FetchPeriod fetches the rates of one currency for [from, to].
func (c *Client) FetchPeriod(ctx context.Context, currency domain.Currency, from, to civil.Date) (sources.RawDocument, error) {
	query := url.Values{}
	query.Set("date_req1", domain.FormatSlashed(from))
	query.Set("date_req2", domain.FormatSlashed(to))
	query.Set("VAL_NM_RQ", currency.SourceID)
	return c.get(ctx, sources.PeriodXML, dynamicXMLPath, query)
}

func (c *Client) get(ctx context.Context, kind sources.DocumentKind, path string, query url.Values) (sources.RawDocument, error) {
	fullURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return sources.RawDocument{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sources.RawDocument{}, fmt.Errorf("%w: GET %s: %v", apperrors.ErrSourceUnavailable, fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return sources.RawDocument{}, fmt.Errorf("%w: GET %s returned status %d", apperrors.ErrSourceUnavailable, fullURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return sources.RawDocument{}, fmt.Errorf("%w: reading %s: %v", apperrors.ErrSourceUnavailable, fullURL, err)
	}

	return sources.RawDocument{
		Kind:      kind,
		Body:      body,
		URL:       fullURL,
		Source:    c.source,
		FetchedAt: time.Now(),
	}, nil
}
