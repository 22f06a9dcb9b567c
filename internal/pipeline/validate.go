package pipeline

import "fmt"

// Rule is one declarative validation check applied to every record of an
// endpoint. An empty Endpoint applies the rule to all endpoints.
type Rule struct {
	Endpoint string
	Field    string
	Required bool
	// Type constrains the field's value when present: "string", "number",
	// "bool". Empty means any type.
	Type string
}

// RulesForEndpoints derives the default rule set from the source's selected
// fields: every selected field must be present on every record of its
// endpoint.
func RulesForEndpoints(endpoints map[string][]string) []Rule {
	var rules []Rule
	for endpoint, fields := range endpoints {
		for _, field := range fields {
			rules = append(rules, Rule{Endpoint: endpoint, Field: field, Required: true})
		}
	}
	return rules
}

// Validate checks every record against the rule set and fails with the full
// violation list. It never lets a partially valid data set through.
func (p *Pipeline) Validate(data DataSet, rules []Rule) error {
	var violations []Violation

	for endpoint, records := range data {
		for i, record := range records {
			for _, rule := range rules {
				if rule.Endpoint != "" && rule.Endpoint != endpoint {
					continue
				}
				if v := checkRule(record, rule, endpoint, i); v != nil {
					violations = append(violations, *v)
				}
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func checkRule(record map[string]any, rule Rule, endpoint string, idx int) *Violation {
	value, present := record[rule.Field]
	if !present || value == nil {
		if rule.Required {
			return &Violation{Endpoint: endpoint, Record: idx, Field: rule.Field, Reason: "required field missing"}
		}
		return nil
	}
	if rule.Type == "" {
		return nil
	}
	if !typeMatches(value, rule.Type) {
		return &Violation{
			Endpoint: endpoint,
			Record:   idx,
			Field:    rule.Field,
			Reason:   fmt.Sprintf("expected %s, got %T", rule.Type, value),
		}
	}
	return nil
}

func typeMatches(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case "bool":
		_, ok := value.(bool)
		return ok
	}
	return false
}
