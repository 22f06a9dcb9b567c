package format

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

// CSV flattens the data set into one comma-separated file. With a single
// endpoint the columns are the sorted union of its field names; with several
// endpoints a leading "endpoint" column disambiguates the rows.
type CSV struct{}

func (CSV) Convert(data pipeline.DataSet, baseName string) (*pipeline.Output, error) {
	endpoints := sortedEndpoints(data)
	multi := len(endpoints) > 1

	columns := columnSet(data)
	header := columns
	if multi {
		header = append([]string{"endpoint"}, columns...)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, endpoint := range endpoints {
		for _, record := range data[endpoint] {
			row := make([]string, 0, len(header))
			if multi {
				row = append(row, endpoint)
			}
			for _, col := range columns {
				row = append(row, cell(record[col]))
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return output(baseName, model.FormatCSV, buf.Bytes()), nil
}

// columnSet is the sorted union of field names across all records.
func columnSet(data pipeline.DataSet) []string {
	seen := map[string]struct{}{}
	for _, records := range data {
		for _, record := range records {
			for field := range record {
				seen[field] = struct{}{}
			}
		}
	}
	columns := make([]string, 0, len(seen))
	for field := range seen {
		columns = append(columns, field)
	}
	sort.Strings(columns)
	return columns
}

func cell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
