// Package config loads the run inputs: settings.json with field
// placements and font selection, and data.csv with one record per row.
package config

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kcrt/qr-code-print/placement"
	"github.com/kcrt/qr-code-print/units"
)

// Dimension accepts either a JSON number (points) or a string with an
// optional unit, e.g. "100 mm", "10 cm", "1 in".
type Dimension float64

func (d *Dimension) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*d = Dimension(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &units.MalformedDimensionError{Token: string(data), Reason: "not a number or string"}
	}
	pts, err := units.Resolve(s)
	if err != nil {
		return err
	}
	*d = Dimension(pts)
	return nil
}

// Points returns the resolved value in PDF points.
func (d Dimension) Points() float64 { return float64(d) }

type fieldJSON struct {
	X        Dimension  `json:"x"`
	Y        Dimension  `json:"y"`
	W        Dimension  `json:"w"`
	H        Dimension  `json:"h"`
	Type     string     `json:"type"`
	FontSize *Dimension `json:"font_size"`
}

type settingsJSON struct {
	Fields   map[string]fieldJSON `json:"fields"`
	Settings struct {
		Font string `json:"font"`
	} `json:"settings"`
}

// LoadSettings reads path and builds the validated placement schema.
// Field order in the schema follows the declaration order of the JSON
// fields object.
func LoadSettings(path string) (*placement.Schema, map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read settings: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings parses settings.json content. It returns the schema and
// the per-field font-size overrides in points.
func ParseSettings(data []byte) (*placement.Schema, map[string]float64, error) {
	var cfg settingsJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parse settings: %w", err)
	}
	order, err := fieldDeclarationOrder(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse settings: %w", err)
	}

	fields := make(map[string]placement.FieldSpec, len(cfg.Fields))
	sizes := make(map[string]float64)
	for name, f := range cfg.Fields {
		kind, err := placement.ParseKind(f.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = placement.FieldSpec{
			X:    f.X.Points(),
			Y:    f.Y.Points(),
			W:    f.W.Points(),
			H:    f.H.Points(),
			Kind: kind,
		}
		if f.FontSize != nil {
			sizes[name] = f.FontSize.Points()
		}
	}
	schema, err := placement.NewSchema(fields, order, cfg.Settings.Font)
	if err != nil {
		return nil, nil, err
	}
	return schema, sizes, nil
}

// fieldDeclarationOrder re-tokenizes the JSON to recover the order of
// keys inside the fields object, which encoding/json maps discard.
func fieldDeclarationOrder(data []byte) ([]string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	rawFields, ok := top["fields"]
	if !ok {
		return nil, fmt.Errorf("missing fields object")
	}
	dec := json.NewDecoder(bytes.NewReader(rawFields))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("fields is not an object")
	}
	var order []string
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				if depth == 0 {
					return order, nil
				}
				depth--
			}
			continue
		}
		if depth == 0 {
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected token %v in fields object", tok)
			}
			order = append(order, key)
			// Skip the key's value.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
	}
}

// Record is one CSV row keyed by header name.
type Record map[string]string

// LoadRecords reads the CSV file at path.
func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer f.Close()
	return ParseRecords(f)
}

// ParseRecords parses CSV content. The first row is the header; every
// later row becomes one Record. Short rows leave the missing columns
// as empty strings.
func ParseRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("parse records: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	var records []Record
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse records: row %d: %w", row, err)
		}
		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = fields[i]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
