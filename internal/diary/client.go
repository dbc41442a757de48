package diary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/ringbell/internal/sentiment"
)

// ErrUnreachable is returned when the proxy cannot be contacted at all.
var ErrUnreachable = errors.New("diary server is unreachable")

// APIError is a non-success proxy response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("diary server returned %d: %s", e.StatusCode, e.Message)
}

// Health is the proxy health payload.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client talks to a running proxy over HTTP.
type Client struct {
	base *url.URL
	http *http.Client
}

func NewClient(serverURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(serverURL), "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse diary server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("diary server url %q must be http or https", serverURL)
	}
	return &Client{base: base, http: &http.Client{Timeout: timeout}}, nil
}

// Health checks that the proxy is up.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "api/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

// Analyze sends text for classification and feedback. A fallback response
// (HTTP 429 or 503 carrying feedback) is not an error: the returned Analysis
// has Fallback set.
func (c *Client) Analyze(ctx context.Context, text string) (Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return Analysis{}, ErrEmptyText
	}

	var out struct {
		Sentiment string `json:"sentiment"`
		Feedback  string `json:"feedback"`
	}
	err := c.do(ctx, http.MethodPost, "api/analyze", map[string]string{"text": text}, &out)

	var apiErr *APIError
	switch {
	case err == nil:
		return Analysis{Sentiment: sentiment.NormalizeLabel(out.Sentiment), Feedback: out.Feedback}, nil
	case errors.As(err, &apiErr) && fallbackStatus(apiErr.StatusCode) && out.Feedback != "":
		return Analysis{Sentiment: sentiment.NormalizeLabel(out.Sentiment), Feedback: out.Feedback, Fallback: true}, nil
	default:
		return Analysis{}, err
	}
}

func fallbackStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// Recent lists the newest recorded entries.
func (c *Client) Recent(ctx context.Context, limit int) ([]Entry, error) {
	path := "api/diary"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Entries []Entry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// do performs one JSON request. On non-2xx it still decodes the body into out
// and returns an *APIError carrying the server's error message.
func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("build diary url: %w", err)
	}
	target := c.base.ResolveReference(ref)

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode diary request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("build diary request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read diary response: %w", err)
	}
	if len(raw) > 0 && out != nil {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode diary response: %w", err)
		}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var problem struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &problem)
	if problem.Error == "" {
		problem.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: problem.Error}
}
