// Package source implements the external-API clients the extract stage pulls
// records from. Clients own their auth and rate-limit handling; the pipeline
// treats any returned error as an extraction failure.
package source

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/model"
)

// Error is a source API failure, classified so the client's own retry loop
// can tell transient failures from permanent ones.
type Error struct {
	Type     string
	Endpoint string
	// Status is the HTTP status, 0 for transport-level failures.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s %s: %v", e.Type, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("source %s %s: status %d", e.Type, e.Endpoint, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	if e.Status == 0 {
		return e.Err != nil
	}
	return e.Status == 429 || e.Status >= 500
}

// Clients routes fetches to the client for the source's type. It satisfies
// pipeline.SourceClient.
type Clients struct {
	shopify *Shopify
}

func NewClients(cfg *config.Config, logger zerolog.Logger) *Clients {
	return &Clients{shopify: NewShopify(cfg, logger)}
}

func (c *Clients) Fetch(ctx context.Context, src *model.Source, endpoint string, fields []string) ([]map[string]any, error) {
	switch src.Type {
	case model.SourceShopify:
		return c.shopify.Fetch(ctx, src, endpoint, fields)
	default:
		return nil, &Error{Type: src.Type, Endpoint: endpoint, Err: fmt.Errorf("unsupported source type")}
	}
}
