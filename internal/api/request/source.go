package request

// CreateSource is the payload for registering a data source. APIKey is
// accepted write-only and never echoed back.
type CreateSource struct {
	UserID  string `json:"user_id" validate:"required"`
	Name    string `json:"name" validate:"required,max=128"`
	Type    string `json:"type" validate:"required,oneof=shopify"`
	BaseURL string `json:"base_url" validate:"required,url"`
	APIKey  string `json:"api_key" validate:"required"`
	// Endpoints maps endpoint names to the fields selected from their
	// records. At least one endpoint with at least one field.
	Endpoints map[string][]string `json:"endpoints" validate:"required,min=1,dive,min=1"`
}

// UpdateSource carries the mutable source fields. Nil fields are left
// unchanged.
type UpdateSource struct {
	Name      *string              `json:"name,omitempty" validate:"omitempty,max=128"`
	BaseURL   *string              `json:"base_url,omitempty" validate:"omitempty,url"`
	APIKey    *string              `json:"api_key,omitempty"`
	Endpoints *map[string][]string `json:"endpoints,omitempty" validate:"omitempty,min=1,dive,min=1"`
}
