package crossref

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit for the deposition endpoint. Depositions are heavyweight
	// server-side, one per second is plenty.
	RateLimit = 1.0
)

// Client sends deposition files to the Crossref deposition API.
type Client struct {
	httpClient    *http.Client
	limiter       *rate.Limiter
	depositionURL string
	username      string
	password      string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the deposition endpoint at the given URL.
func NewClient(depositionURL, username, password string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		limiter:       rate.NewLimiter(rate.Limit(RateLimit), 1),
		depositionURL: depositionURL,
		username:      username,
		password:      password,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deposit uploads a deposition file. Crossref accepts the upload
// asynchronously: a successful response only means the file was received,
// the outcome is reported later by email to the depositor. The response
// body is returned for logging.
func (c *Client) Deposit(ctx context.Context, deposition string) (string, error) {
	if c.username == "" || c.password == "" {
		return "", fmt.Errorf("depositing: no Crossref username or password given")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("login_id", c.username); err != nil {
		return "", fmt.Errorf("building deposition request: %w", err)
	}
	if err := form.WriteField("login_passwd", c.password); err != nil {
		return "", fmt.Errorf("building deposition request: %w", err)
	}
	file, err := form.CreateFormFile("fname", "deposition.xml")
	if err != nil {
		return "", fmt.Errorf("building deposition request: %w", err)
	}
	if _, err := io.Copy(file, strings.NewReader(deposition)); err != nil {
		return "", fmt.Errorf("building deposition request: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("building deposition request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.depositionURL, &body)
	if err != nil {
		return "", fmt.Errorf("building deposition request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending deposition: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading deposition response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sending deposition: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return string(text), nil
}
