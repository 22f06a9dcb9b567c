package format

import (
	"encoding/json"
	"fmt"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

// JSON serializes the data set as one object keyed by endpoint name.
type JSON struct{}

func (JSON) Convert(data pipeline.DataSet, baseName string) (*pipeline.Output, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json export: %w", err)
	}
	content = append(content, '\n')
	return output(baseName, model.FormatJSON, content), nil
}
