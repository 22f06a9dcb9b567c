package format

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

// XML serializes the data set as
//
//	<export>
//	  <endpoint name="orders">
//	    <record><field name="id">1</field>...</record>
//	  </endpoint>
//	</export>
//
// Field values are written as character data, so arbitrary field names never
// produce invalid element names.
type XML struct{}

func (XML) Convert(data pipeline.DataSet, baseName string) (*pipeline.Output, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "export"}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}

	for _, endpoint := range sortedEndpoints(data) {
		el := xml.StartElement{
			Name: xml.Name{Local: "endpoint"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: endpoint}},
		}
		if err := enc.EncodeToken(el); err != nil {
			return nil, fmt.Errorf("encode xml: %w", err)
		}
		for _, record := range data[endpoint] {
			if err := encodeRecord(enc, record); err != nil {
				return nil, err
			}
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return nil, fmt.Errorf("encode xml: %w", err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("flush xml: %w", err)
	}
	buf.WriteByte('\n')
	return output(baseName, model.FormatXML, buf.Bytes()), nil
}

func encodeRecord(enc *xml.Encoder, record map[string]any) error {
	rec := xml.StartElement{Name: xml.Name{Local: "record"}}
	if err := enc.EncodeToken(rec); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}

	fields := make([]string, 0, len(record))
	for field := range record {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		el := xml.StartElement{
			Name: xml.Name{Local: "field"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: field}},
		}
		if err := enc.EncodeToken(el); err != nil {
			return fmt.Errorf("encode xml: %w", err)
		}
		if err := enc.EncodeToken(xml.CharData(cell(record[field]))); err != nil {
			return fmt.Errorf("encode xml: %w", err)
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return fmt.Errorf("encode xml: %w", err)
		}
	}

	if err := enc.EncodeToken(rec.End()); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	return nil
}
