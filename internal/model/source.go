package model

import "time"

// Source types.
const (
	SourceShopify = "shopify"
)

// Source identifies an external API to pull records from, with the endpoints
// and fields the user selected.
type Source struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	// Type names the source kind, e.g. "shopify".
	Type string `json:"type"`
	// BaseURL is the API root, e.g. "https://shop.myshopify.com".
	BaseURL string `json:"base_url"`
	// APIKey authenticates against the source. Sources own their auth;
	// the pipeline passes it through opaquely.
	APIKey string `json:"-"`
	// Endpoints maps an endpoint name ("orders", "products") to the
	// fields selected from its records.
	Endpoints map[string][]string `json:"endpoints"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}
