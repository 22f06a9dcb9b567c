package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/retry"
)

const (
	shopifyAPIVersion = "2024-01"
	shopifyPageSize   = 250

	// maxPages bounds a single extraction so one runaway endpoint cannot
	// stall a run forever.
	maxPages = 40
)

// Shopify pulls records from the Shopify Admin REST API, following Link
// header pagination and retrying rate-limited or failing requests with
// exponential backoff.
type Shopify struct {
	http        *http.Client
	retryPolicy retry.Policy
	logger      zerolog.Logger
}

func NewShopify(cfg *config.Config, logger zerolog.Logger) *Shopify {
	return &Shopify{
		http: &http.Client{Timeout: cfg.HTTPClientTimeout},
		retryPolicy: retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Backoff:     retry.Exponential{Base: cfg.RetryBaseDelay, Max: 30 * time.Second},
			Retryable:   retryableSource,
		},
		logger: logger.With().Str("component", "shopify-client").Logger(),
	}
}

func retryableSource(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}

// Fetch returns every record of the endpoint, selecting only the given
// fields server-side.
func (c *Shopify) Fetch(ctx context.Context, src *model.Source, endpoint string, fields []string) ([]map[string]any, error) {
	pageURL, err := c.firstPageURL(src, endpoint, fields)
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	for page := 0; pageURL != ""; page++ {
		if page >= maxPages {
			return nil, &Error{Type: src.Type, Endpoint: endpoint, Err: fmt.Errorf("more than %d pages", maxPages)}
		}

		var pageRecords []map[string]any
		var next string
		err := c.retryPolicy.Do(ctx, func(ctx context.Context) error {
			var fetchErr error
			pageRecords, next, fetchErr = c.fetchPage(ctx, src, endpoint, pageURL)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}

		records = append(records, pageRecords...)
		pageURL = next
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("records", len(records)).
		Msg("shopify fetch complete")
	return records, nil
}

func (c *Shopify) firstPageURL(src *model.Source, endpoint string, fields []string) (string, error) {
	base, err := url.Parse(src.BaseURL)
	if err != nil {
		return "", &Error{Type: src.Type, Endpoint: endpoint, Err: fmt.Errorf("parse base url: %w", err)}
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + fmt.Sprintf("/admin/api/%s/%s.json", shopifyAPIVersion, endpoint)

	q := url.Values{}
	q.Set("limit", fmt.Sprint(shopifyPageSize))
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (c *Shopify) fetchPage(ctx context.Context, src *model.Source, endpoint, pageURL string) ([]map[string]any, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", &Error{Type: src.Type, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("X-Shopify-Access-Token", src.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", &Error{Type: src.Type, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, "", &Error{Type: src.Type, Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", &Error{Type: src.Type, Endpoint: endpoint, Status: resp.StatusCode}
	}

	// The payload is keyed by the endpoint name: {"orders": [...]}.
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", &Error{Type: src.Type, Endpoint: endpoint, Err: fmt.Errorf("malformed response: %w", err)}
	}
	raw, ok := payload[endpoint]
	if !ok {
		return nil, "", &Error{Type: src.Type, Endpoint: endpoint, Err: fmt.Errorf("response missing %q key", endpoint)}
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, "", &Error{Type: src.Type, Endpoint: endpoint, Err: fmt.Errorf("malformed records: %w", err)}
	}

	return records, nextPageURL(resp.Header.Get("Link")), nil
}

// nextPageURL extracts the rel="next" target from a Shopify Link header:
//
//	<https://shop.example.com/...page_info=abc>; rel="next"
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}
