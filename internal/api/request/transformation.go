package request

import "github.com/feedline/feedline/internal/model"

// Operation is one field operation in a transformation payload.
type Operation struct {
	Type       string   `json:"type" validate:"required,oneof=cast stringify concatenate"`
	Field      string   `json:"field" validate:"required"`
	TargetType string   `json:"target_type,omitempty" validate:"omitempty,oneof=string int float bool"`
	Sources    []string `json:"sources,omitempty"`
	Separator  string   `json:"separator,omitempty"`
}

// CreateTransformation is the payload for creating a named operation list.
type CreateTransformation struct {
	UserID     string      `json:"user_id" validate:"required"`
	Name       string      `json:"name" validate:"required,max=128"`
	Operations []Operation `json:"operations" validate:"required,min=1,dive"`
}

// UpdateTransformation carries the mutable transformation fields. Nil
// fields are left unchanged.
type UpdateTransformation struct {
	Name       *string     `json:"name,omitempty" validate:"omitempty,max=128"`
	Operations []Operation `json:"operations,omitempty" validate:"omitempty,min=1,dive"`
}

// ModelOperations converts payload operations to their model form.
func ModelOperations(ops []Operation) []model.FieldOperation {
	out := make([]model.FieldOperation, len(ops))
	for i, op := range ops {
		out[i] = model.FieldOperation{
			Type:       op.Type,
			Field:      op.Field,
			TargetType: op.TargetType,
			Sources:    op.Sources,
			Separator:  op.Separator,
		}
	}
	return out
}
