// Package format serializes extracted data sets into export files. One
// converter per file format, looked up by name through the Registry.
package format

import (
	"sort"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

// Registry resolves converters by file format name. It satisfies
// pipeline.ConverterRegistry.
type Registry struct {
	converters map[string]pipeline.Converter
}

// NewRegistry returns a registry with the built-in csv, json, and xml
// converters.
func NewRegistry() *Registry {
	return &Registry{converters: map[string]pipeline.Converter{
		model.FormatCSV:  CSV{},
		model.FormatJSON: JSON{},
		model.FormatXML:  XML{},
	}}
}

func (r *Registry) Converter(format string) (pipeline.Converter, bool) {
	c, ok := r.converters[format]
	return c, ok
}

// Formats lists the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.converters))
	for name := range r.converters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortedEndpoints returns the data set's endpoint names in a stable order so
// converter output is deterministic.
func sortedEndpoints(data pipeline.DataSet) []string {
	endpoints := make([]string, 0, len(data))
	for name := range data {
		endpoints = append(endpoints, name)
	}
	sort.Strings(endpoints)
	return endpoints
}

func output(baseName, format string, content []byte) *pipeline.Output {
	return &pipeline.Output{
		Path:    baseName + "." + format,
		Format:  format,
		Size:    int64(len(content)),
		Content: content,
	}
}
