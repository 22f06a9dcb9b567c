package model

import "time"

// Transformation operation types.
const (
	OpCast        = "cast"
	OpStringify   = "stringify"
	OpConcatenate = "concatenate"
)

// FieldOperation is one field-level operation applied during the transform
// stage. Operations are applied in order.
type FieldOperation struct {
	// Type is one of OpCast, OpStringify, OpConcatenate.
	Type string `json:"type"`
	// Field is the record field the operation writes.
	Field string `json:"field"`
	// TargetType is the cast target ("string", "int", "float", "bool").
	TargetType string `json:"target_type,omitempty"`
	// Sources lists the input fields for concatenate.
	Sources []string `json:"sources,omitempty"`
	// Separator joins concatenated values.
	Separator string `json:"separator,omitempty"`
}

// Transformation is an ordered list of field operations a user configured
// for their export.
type Transformation struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Name       string           `json:"name"`
	Operations []FieldOperation `json:"operations"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
