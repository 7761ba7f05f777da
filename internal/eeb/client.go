// Package eeb is a client for the Early Evidence Base API, the platform
// that hosts the reviews this tool deposits DOIs for. Depositions are
// verified against it before being sent.
package eeb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the production EEB API.
	BaseURL = "https://eeb.embo.org/api/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit keeps verification runs polite: 5 requests per second.
	RateLimit = 5.0
)

// Client is a rate-limited HTTP client for the EEB API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a new EEB API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Author is a contributor as EEB records it.
type Author struct {
	Corresp     string `json:"corresp"`
	Orcid       string `json:"orcid"`
	PositionIdx int    `json:"position_idx"`
	GivenNames  string `json:"given_names"`
	Surname     string `json:"surname"`
}

// Review is a referee report or author response hosted on EEB.
type Review struct {
	Source            string `json:"source"`
	PostingDate       string `json:"posting_date"`
	ReviewIdx         string `json:"review_idx"`
	Highlight         string `json:"highlight"`
	RelatedArticleDOI string `json:"related_article_doi"`
	Text              string `json:"text"`
	ReviewedBy        string `json:"reviewed_by"`
	PositionIdx       int    `json:"position_idx"`
	DOI               string `json:"doi"`
}

// ReviewProcess groups the reviews and the author response of one article.
type ReviewProcess struct {
	Reviews  []Review `json:"reviews"`
	Response *Review  `json:"response"`
}

// Article is a preprint as EEB records it.
type Article struct {
	ID            int            `json:"id"`
	DOI           string         `json:"doi"`
	Version       string         `json:"version"`
	Source        string         `json:"source"`
	Journal       string         `json:"journal"`
	Title         string         `json:"title"`
	Abstract      string         `json:"abstract"`
	Authors       []Author       `json:"authors"`
	PubDate       string         `json:"pub_date"`
	ReviewProcess *ReviewProcess `json:"review_process"`
}

// Articles fetches all EEB records for the preprint with the given DOI.
// An unknown DOI is not an error: the API answers with an empty list.
func (c *Client) Articles(ctx context.Context, doi string) ([]Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	// DOIs contain slashes; the API takes them unescaped in the path
	url := fmt.Sprintf("%s/doi/%s", c.baseURL, doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	var articles []Article
	if err := json.NewDecoder(resp.Body).Decode(&articles); err != nil {
		return nil, fmt.Errorf("decoding response for %q: %w", doi, err)
	}
	return articles, nil
}
