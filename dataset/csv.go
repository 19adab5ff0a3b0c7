package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Table is a CSV file kept as text: a header row followed by records of the
// same width. Cells may be numeric, categorical or empty.
type Table struct {
	Header  []string
	Records [][]string
}

// Rows returns the number of records.
func (t *Table) Rows() int { return len(t.Records) }

// Features returns the number of feature columns, the target excluded.
func (t *Table) Features() int { return len(t.Header) - 1 }

// Subset returns the records at idx, sharing the header.
func (t *Table) Subset(idx []int) *Table {
	out := &Table{Header: t.Header, Records: make([][]string, len(idx))}
	for k, i := range idx {
		out.Records[k] = t.Records[i]
	}
	return out
}

// Select reorders the columns to match columns. Every name must be present;
// extra columns are dropped.
func (t *Table) Select(columns []string) (*Table, error) {
	pos := make(map[string]int, len(t.Header))
	for j, name := range t.Header {
		pos[strings.TrimSpace(name)] = j
	}
	src := make([]int, len(columns))
	for k, name := range columns {
		j, ok := pos[name]
		if !ok {
			return nil, errors.NewValidationError(name, "column is missing from the input", t.Header)
		}
		src[k] = j
	}

	out := &Table{Header: append([]string(nil), columns...), Records: make([][]string, len(t.Records))}
	for i, rec := range t.Records {
		row := make([]string, len(src))
		for k, j := range src {
			row[k] = rec[j]
		}
		out.Records[i] = row
	}
	return out, nil
}

// SplitTarget separates the last column as a numeric target. Every target
// cell must hold a finite number.
func (t *Table) SplitTarget() (*Table, *mat.Dense, error) {
	if len(t.Header) < 2 {
		return nil, nil, errors.NewValidationError("columns",
			"table must have at least one feature column and a target column", len(t.Header))
	}
	if len(t.Records) == 0 {
		return nil, nil, errors.NewValidationError("rows", "table has no data rows", 0)
	}
	last := len(t.Header) - 1
	features := &Table{Header: t.Header[:last], Records: make([][]string, len(t.Records))}
	y := mat.NewDense(len(t.Records), 1, nil)
	for i, rec := range t.Records {
		v, err := parseNumber(rec[last])
		if err != nil {
			return nil, nil, errors.NewValidationError(t.Header[last],
				fmt.Sprintf("line %d: target must be numeric", i+2), rec[last])
		}
		y.Set(i, 0, v)
		features.Records[i] = rec[:last]
	}
	return features, y, nil
}

// Numeric converts every cell to float64. Empty or non-numeric cells are a
// ValidationError naming the column and line.
func (t *Table) Numeric() (*mat.Dense, error) {
	if len(t.Records) == 0 {
		return nil, errors.NewValidationError("rows", "table has no data rows", 0)
	}
	values := make([]float64, 0, len(t.Records)*len(t.Header))
	for i, rec := range t.Records {
		for j, field := range rec {
			v, err := parseNumber(field)
			if err != nil {
				return nil, errors.NewValidationError(t.Header[j],
					fmt.Sprintf("line %d: non-numeric value", i+2), field)
			}
			values = append(values, v)
		}
	}
	return mat.NewDense(len(t.Records), len(t.Header), values), nil
}

func parseNumber(field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Newf("non-finite value %q", field)
	}
	return v, nil
}

// ReadCSV reads a CSV file with a header row.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewPersistenceError("read csv", path, err)
	}
	defer f.Close()

	t, err := ParseCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return t, nil
}

// ParseCSV parses a header row followed by records. Every record must have
// as many fields as the header; cells are kept as text.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewValidationError("header", "csv input is empty", nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV header")
	}
	for j := range header {
		header[j] = strings.TrimSpace(header[j])
	}

	t := &Table{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.ErrFieldCount and quoting errors carry the line number
			return nil, errors.NewValidationError("record", err.Error(), len(t.Records)+2)
		}
		for j := range record {
			record[j] = strings.TrimSpace(record[j])
		}
		t.Records = append(t.Records, record)
	}
	if len(t.Records) == 0 {
		return nil, errors.NewValidationError("rows", "csv input has a header but no data rows", 0)
	}
	return t, nil
}

// WriteCSV writes t to path, creating parent directories.
func WriteCSV(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewPersistenceError("write csv", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewPersistenceError("write csv", path, err)
	}

	if err := FormatCSV(f, t); err != nil {
		f.Close()
		return errors.NewPersistenceError("write csv", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewPersistenceError("write csv", path, err)
	}
	return nil
}

// FormatCSV writes the header and records of t as CSV to w.
func FormatCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}
	for _, rec := range t.Records {
		if len(rec) != len(t.Header) {
			return errors.Newf("record has %d fields for %d columns", len(rec), len(t.Header))
		}
		if err := writer.Write(rec); err != nil {
			return errors.Wrap(err, "failed to write CSV record")
		}
	}
	writer.Flush()
	return errors.WithStack(writer.Error())
}

// LoadSplit reads a numeric CSV file whose last column is the target.
func LoadSplit(path string) (*Split, error) {
	t, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	m, err := t.Numeric()
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return FromMatrix(m)
}
