// CLAUDE:SUMMARY Bearer-token HTTP client for the forms API with page/page_count traversal and no retries.
package forms

import (
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
)

// ErrMissingToken is returned by NewClient when no API token is configured.
var ErrMissingToken = errors.New("forms API token is required")

// StatusError is a non-2xx answer from the forms API.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// Config configures a Client.
type Config struct {
	BaseURL  string
	Token    string
	PageSize int
	Timeout  time.Duration
}

// Client reads forms, definitions and responses from the forms API.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
}

const (
	DefaultBaseURL  = "https://api.typeform.com"
	DefaultPageSize = 200
)

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type page[T any] struct {
	PageCount int `json:"page_count"`
	Items     []T `json:"items"`
}

// ListForms returns every form visible to the token.
func (c *Client) ListForms(ctx context.Context) ([]FormRef, error) {
	return paginate[FormRef](ctx, c, "/forms", 0)
}

// GetForm returns the definition of one form.
func (c *Client) GetForm(ctx context.Context, formID string) (*Form, error) {
	var f Form
	if err := c.getJSON(ctx, "/forms/"+url.PathEscape(formID), nil, &f); err != nil {
		return nil, err
	}
	if f.ID == "" {
		f.ID = formID
	}
	return &f, nil
}

// ListResponses returns the responses of a form. A positive limit stops the
// traversal once that many responses were collected.
func (c *Client) ListResponses(ctx context.Context, formID string, limit int) ([]Response, error) {
	return paginate[Response](ctx, c, "/forms/"+url.PathEscape(formID)+"/responses", limit)
}

func paginate[T any](ctx context.Context, c *Client, path string, limit int) ([]T, error) {
	var out []T
	for p := 1; ; p++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(p))
		q.Set("page_size", strconv.Itoa(c.pageSize))

		var pg page[T]
		if err := c.getJSON(ctx, path, q, &pg); err != nil {
			return nil, fmt.Errorf("%s page %d: %w", path, p, err)
		}
		out = append(out, pg.Items...)

		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if p >= pg.PageCount || len(pg.Items) == 0 {
			return out, nil
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, URL: u, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
