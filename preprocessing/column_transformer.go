package preprocessing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Column kinds inferred by ColumnTransformer.Fit.
const (
	ColumnNumeric     = "numeric"
	ColumnCategorical = "categorical"
)

// missingTokens are cell values treated as absent. "none" is a category
// value in survey data, not a missing marker.
var missingTokens = map[string]bool{"": true, "na": true, "n/a": true, "nan": true, "null": true}

// IsMissing reports whether a raw cell counts as a missing value.
func IsMissing(cell string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(cell))]
}

// ColumnTransformer turns raw text records into a numeric feature matrix.
// A column whose observed cells all parse as numbers is numeric: missing
// cells take the training median. Any other column is categorical: missing
// cells take the most frequent training value and the column is one-hot
// encoded, with categories unseen during Fit encoded as all zeros. The
// encoded matrix is then scaled with the configured Scaler.
type ColumnTransformer struct {
	ScalerKind string

	Columns    []string
	Kinds      []string
	Medians    []float64
	Categories [][]string
	Modes      []string
	Scaler     Scaler

	State *model.StateManager
}

// NewColumnTransformer returns an unfitted transformer that scales with a
// scaler of the given kind.
func NewColumnTransformer(scalerKind string) (*ColumnTransformer, error) {
	if _, err := New(scalerKind); err != nil {
		return nil, err
	}
	return &ColumnTransformer{ScalerKind: scalerKind, State: model.NewStateManager()}, nil
}

// Fit learns column kinds, imputation values, categories and the scaler
// from the training records.
func (c *ColumnTransformer) Fit(columns []string, records [][]string) error {
	if len(columns) == 0 {
		return errors.NewValidationError("columns", "at least one feature column is required", 0)
	}
	if len(records) == 0 {
		return errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := checkWidth("fit", len(columns), records); err != nil {
		return err
	}

	next := ColumnTransformer{
		ScalerKind: c.ScalerKind,
		Columns:    append([]string(nil), columns...),
		Kinds:      make([]string, len(columns)),
		Medians:    make([]float64, len(columns)),
		Categories: make([][]string, len(columns)),
		Modes:      make([]string, len(columns)),
		State:      model.NewStateManager(),
	}
	for j, name := range columns {
		if err := next.fitColumn(j, name, records); err != nil {
			return err
		}
	}

	encoded, err := next.encode(records)
	if err != nil {
		return err
	}
	scaler, err := New(c.ScalerKind)
	if err != nil {
		return err
	}
	if err := scaler.Fit(encoded); err != nil {
		return errors.Wrap(err, "fit scaler")
	}
	next.Scaler = scaler
	next.State.SetFitted(len(records), len(columns))

	*c = next
	return nil
}

func (c *ColumnTransformer) fitColumn(j int, name string, records [][]string) error {
	var numbers []float64
	counts := make(map[string]int)
	numeric := true
	for _, rec := range records {
		cell := strings.TrimSpace(rec[j])
		if IsMissing(cell) {
			continue
		}
		counts[cell]++
		if numeric {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				numeric = false
				continue
			}
			numbers = append(numbers, v)
		}
	}
	if len(counts) == 0 {
		return errors.NewValidationError(name, "column has no values to learn from", len(records))
	}

	if numeric {
		median, err := stats.Median(numbers)
		if err != nil {
			return errors.Wrapf(err, "median of %s", name)
		}
		c.Kinds[j], c.Medians[j] = ColumnNumeric, median
		return nil
	}

	cats := make([]string, 0, len(counts))
	for v := range counts {
		cats = append(cats, v)
	}
	sort.Strings(cats)
	// ties go to the first category in sorted order
	mode := cats[0]
	for _, v := range cats[1:] {
		if counts[v] > counts[mode] {
			mode = v
		}
	}
	c.Kinds[j], c.Categories[j], c.Modes[j] = ColumnCategorical, cats, mode
	return nil
}

// TransformRecords imputes, encodes and scales records. Each record must
// have one cell per fitted column.
func (c *ColumnTransformer) TransformRecords(records [][]string) (*mat.Dense, error) {
	if err := c.State.RequireFitted("ColumnTransformer", "TransformRecords"); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewValidationError("records", "at least one row is required", 0)
	}
	if err := checkWidth("transform", len(c.Columns), records); err != nil {
		return nil, err
	}
	encoded, err := c.encode(records)
	if err != nil {
		return nil, err
	}
	scaled, err := c.Scaler.Transform(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "scale features")
	}
	return mat.DenseCopyOf(scaled), nil
}

// FitTransformRecords fits on records and transforms them.
func (c *ColumnTransformer) FitTransformRecords(columns []string, records [][]string) (*mat.Dense, error) {
	if err := c.Fit(columns, records); err != nil {
		return nil, err
	}
	return c.TransformRecords(records)
}

// IsFitted reports whether Fit has completed.
func (c *ColumnTransformer) IsFitted() bool { return c.State != nil && c.State.IsFitted() }

// NFeaturesIn returns the raw column count seen during Fit.
func (c *ColumnTransformer) NFeaturesIn() int {
	if !c.IsFitted() {
		return 0
	}
	return len(c.Columns)
}

// NFeaturesOut returns the width of the encoded matrix.
func (c *ColumnTransformer) NFeaturesOut() int {
	n := 0
	for j, kind := range c.Kinds {
		if kind == ColumnCategorical {
			n += len(c.Categories[j])
		} else {
			n++
		}
	}
	return n
}

// FeatureNames names the encoded columns; one-hot columns are "column_value".
func (c *ColumnTransformer) FeatureNames() []string {
	names := make([]string, 0, c.NFeaturesOut())
	for j, name := range c.Columns {
		if c.Kinds[j] != ColumnCategorical {
			names = append(names, name)
			continue
		}
		for _, v := range c.Categories[j] {
			names = append(names, name+"_"+v)
		}
	}
	return names
}

// CountKinds returns the number of numeric and categorical columns.
func (c *ColumnTransformer) CountKinds() (numeric, categorical int) {
	for _, kind := range c.Kinds {
		if kind == ColumnCategorical {
			categorical++
		} else {
			numeric++
		}
	}
	return numeric, categorical
}

// encode applies imputation and one-hot encoding without scaling.
func (c *ColumnTransformer) encode(records [][]string) (*mat.Dense, error) {
	out := mat.NewDense(len(records), c.NFeaturesOut(), nil)
	for i, rec := range records {
		k := 0
		for j, raw := range rec {
			cell := strings.TrimSpace(raw)
			if c.Kinds[j] != ColumnCategorical {
				v := c.Medians[j]
				if !IsMissing(cell) {
					f, err := strconv.ParseFloat(cell, 64)
					if err != nil {
						return nil, errors.NewValidationError(c.Columns[j],
							fmt.Sprintf("row %d: non-numeric value in a numeric column", i), raw)
					}
					v = f
				}
				out.Set(i, k, v)
				k++
				continue
			}

			if IsMissing(cell) {
				cell = c.Modes[j]
			}
			cats := c.Categories[j]
			if pos := sort.SearchStrings(cats, cell); pos < len(cats) && cats[pos] == cell {
				out.Set(i, k+pos, 1)
			}
			k += len(cats)
		}
	}
	return out, nil
}

func checkWidth(phase string, want int, records [][]string) error {
	for _, rec := range records {
		if len(rec) != want {
			return errors.NewInputShapeError(phase, []int{len(records), want}, []int{len(records), len(rec)})
		}
	}
	return nil
}
