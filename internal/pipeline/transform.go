package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/feedline/feedline/internal/model"
)

// Transform applies the configured field operations in order to every record
// of every endpoint. A nil transformation passes the data through unchanged.
func (p *Pipeline) Transform(data DataSet, t *model.Transformation) (DataSet, error) {
	if t == nil || len(t.Operations) == 0 {
		return data, nil
	}

	out := make(DataSet, len(data))
	for endpoint, records := range data {
		transformed := make([]map[string]any, len(records))
		for i, record := range records {
			rec := make(map[string]any, len(record))
			for k, v := range record {
				rec[k] = v
			}
			for _, op := range t.Operations {
				if err := applyOperation(rec, op); err != nil {
					return nil, err
				}
			}
			transformed[i] = rec
		}
		out[endpoint] = transformed
	}
	return out, nil
}

func applyOperation(record map[string]any, op model.FieldOperation) error {
	switch op.Type {
	case model.OpCast:
		return applyCast(record, op)
	case model.OpStringify:
		if v, ok := record[op.Field]; ok && v != nil {
			record[op.Field] = stringify(v)
		}
		return nil
	case model.OpConcatenate:
		return applyConcatenate(record, op)
	default:
		return &TransformationError{Op: op.Type, Field: op.Field, Reason: "unknown operation type"}
	}
}

func applyCast(record map[string]any, op model.FieldOperation) error {
	value, ok := record[op.Field]
	if !ok || value == nil {
		return nil
	}
	cast, err := castValue(value, op.TargetType)
	if err != nil {
		return &TransformationError{Op: op.Type, Field: op.Field, Reason: err.Error()}
	}
	record[op.Field] = cast
	return nil
}

func applyConcatenate(record map[string]any, op model.FieldOperation) error {
	if len(op.Sources) == 0 {
		return &TransformationError{Op: op.Type, Field: op.Field, Reason: "no source fields configured"}
	}
	parts := make([]string, 0, len(op.Sources))
	for _, src := range op.Sources {
		if v, ok := record[src]; ok && v != nil {
			parts = append(parts, stringify(v))
		} else {
			parts = append(parts, "")
		}
	}
	record[op.Field] = strings.Join(parts, op.Separator)
	return nil
}

func castValue(value any, target string) (any, error) {
	switch target {
	case "string":
		return stringify(value), nil
	case "int":
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("cannot cast %q to int", v)
			}
			return n, nil
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		}
	case "float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("cannot cast %q to float", v)
			}
			return f, nil
		}
	case "bool":
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("cannot cast %q to bool", v)
			}
			return b, nil
		}
	default:
		return nil, fmt.Errorf("unknown cast target %q", target)
	}
	return nil, fmt.Errorf("cannot cast %T to %s", value, target)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
