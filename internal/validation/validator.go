package validation

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/google/uuid"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Table is a parsed CSV upload. Each record keeps the source column order.
// Records hold trimmed headers and cells; Raw holds the same rows exactly as
// they appeared in the file.
type Table struct {
	Headers []string
	Records []models.OrderedRow
	Raw     []models.OrderedRow
}

// SchemaDiff compares uploaded columns against a model's input fields
type SchemaDiff struct {
	Missing []string `json:"missing"`
	Extra   []string `json:"extra"`
}

// OK reports whether the columns match exactly, ignoring order
func (d SchemaDiff) OK() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0
}

// Message renders the diff the way clients have always seen it
func (d SchemaDiff) Message() string {
	var parts []string
	if len(d.Missing) > 0 {
		parts = append(parts, "Missing columns: "+strings.Join(d.Missing, ", ")+".")
	}
	if len(d.Extra) > 0 {
		parts = append(parts, "Unexpected columns: "+strings.Join(d.Extra, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// ParseCSV reads a UTF-8 CSV with a header row. Headers and cells are trimmed,
// blank lines are skipped and every record must have one cell per header.
func ParseCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindClientInput, "Failed to read CSV file", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return nil, apperrors.ClientInput("CSV file must be UTF-8 encoded")
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	table := &Table{}
	var rawHeaders []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindClientInput, "Malformed CSV file", err)
		}
		if blankRecord(record) {
			continue
		}

		if table.Headers == nil {
			headers, err := parseHeaders(record)
			if err != nil {
				return nil, err
			}
			table.Headers = headers
			rawHeaders = record
			continue
		}

		if len(record) != len(table.Headers) {
			line, _ := reader.FieldPos(0)
			return nil, apperrors.ClientInput(fmt.Sprintf(
				"Malformed CSV file: line %d has %d fields, expected %d", line, len(record), len(table.Headers)))
		}

		values := make([]interface{}, len(record))
		raws := make([]interface{}, len(record))
		for i, cell := range record {
			values[i] = strings.TrimSpace(cell)
			raws[i] = cell
		}
		table.Records = append(table.Records, models.OrderedRow{Keys: table.Headers, Values: values})
		table.Raw = append(table.Raw, models.OrderedRow{Keys: rawHeaders, Values: raws})
	}

	return table, nil
}

func parseHeaders(record []string) ([]string, error) {
	headers := make([]string, len(record))
	seen := make(map[string]bool, len(record))
	for i, h := range record {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, apperrors.ClientInput(fmt.Sprintf("CSV header %d is empty", i+1))
		}
		if seen[h] {
			return nil, apperrors.ClientInput(fmt.Sprintf("Duplicate CSV column: %s", h))
		}
		seen[h] = true
		headers[i] = h
	}
	return headers, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// DiffSchema reports the expected fields absent from headers and the headers
// the model does not declare. Both lists keep their source order.
func DiffSchema(expected, headers []string) SchemaDiff {
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[h] = true
	}
	want := make(map[string]bool, len(expected))
	for _, f := range expected {
		want[f] = true
	}

	diff := SchemaDiff{Missing: []string{}, Extra: []string{}}
	for _, f := range expected {
		if !have[f] {
			diff.Missing = append(diff.Missing, f)
		}
	}
	for _, h := range headers {
		if !want[h] {
			diff.Extra = append(diff.Extra, h)
		}
	}
	return diff
}

// Reproject rewrites records so their keys follow fields exactly
func Reproject(records []models.OrderedRow, fields []string) ([]models.OrderedRow, error) {
	out := make([]models.OrderedRow, len(records))
	for i, rec := range records {
		values := make([]interface{}, len(fields))
		for j, f := range fields {
			v, ok := rec.Get(f)
			if !ok || v == nil {
				return nil, apperrors.ClientInput(fmt.Sprintf("Missing value for field %q in record %d", f, i+1))
			}
			values[j] = v
		}
		out[i] = models.OrderedRow{Keys: fields, Values: values}
	}
	return out, nil
}

// ParseBoolFlag accepts "true" or "false" in any letter case
func ParseBoolFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, apperrors.ClientInput("logTransform must be either 'true' or 'false'")
}

// CoerceNumeric builds a row in fields order from manual inputs. Values may be
// JSON numbers or numeric strings; the error names the first offending field.
func CoerceNumeric(fields []string, inputs map[string]interface{}) (models.OrderedRow, error) {
	var errs []ValidationError
	values := make([]interface{}, len(fields))

	for i, f := range fields {
		raw, ok := inputs[f]
		if !ok || raw == nil {
			errs = append(errs, ValidationError{Field: f, Message: "value is required"})
			continue
		}
		n, err := toFloat(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: f, Message: "value must be numeric", Value: raw})
			continue
		}
		values[i] = n
	}

	if len(errs) > 0 {
		first := errs[0]
		e := apperrors.WithDetails(apperrors.KindClientInput,
			fmt.Sprintf("Invalid input for field %q: %s", first.Field, first.Message), errs)
		return models.OrderedRow{}, e
	}
	return models.OrderedRow{Keys: fields, Values: values}, nil
}

func toFloat(v interface{}) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

// NormalizeFields trims model input field names and rejects empty or repeated ones
func NormalizeFields(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return nil, apperrors.ClientInput("inputFields must be a non-empty array")
	}
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, apperrors.ClientInput("inputFields must not contain empty names")
		}
		if seen[f] {
			return nil, apperrors.ClientInput(fmt.Sprintf("inputFields contains %q more than once", f))
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
