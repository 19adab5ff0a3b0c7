// Package dataset reads tabular CSV data, splits it into train and test
// sets and validates the shapes the engine relies on. Feature cells stay
// text until preprocessing; the target is always the last column and is
// numeric.
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Split is one dataset split: features X (n×p) and target Y (n×1).
type Split struct {
	X *mat.Dense
	Y *mat.Dense
}

// FromMatrix builds a Split from a matrix whose last column is the target.
func FromMatrix(m mat.Matrix) (*Split, error) {
	rows, cols := m.Dims()
	if rows < 1 {
		return nil, errors.NewValidationError("rows", "split must have at least one row", rows)
	}
	if cols < 2 {
		return nil, errors.NewValidationError("columns",
			"split must have at least one feature column and a target column", cols)
	}

	X := mat.NewDense(rows, cols-1, nil)
	// Copy fills only the overlapping region, dropping the target column.
	X.Copy(m)
	Y := mat.NewDense(rows, 1, mat.Col(nil, cols-1, m))
	return &Split{X: X, Y: Y}, nil
}

// Rows returns the number of samples.
func (s *Split) Rows() int {
	r, _ := s.X.Dims()
	return r
}

// Features returns the number of feature columns.
func (s *Split) Features() int {
	_, c := s.X.Dims()
	return c
}

// Matrix joins X and Y back into a single matrix with the target last.
func (s *Split) Matrix() *mat.Dense {
	out := mat.NewDense(s.Rows(), s.Features()+1, nil)
	out.Augment(s.X, s.Y)
	return out
}

// ValidatePair checks that train and test can be used together.
func ValidatePair(train, test *Split) error {
	if train == nil || test == nil {
		return errors.NewValidationError("split", "train and test splits are required", nil)
	}
	if train.Features() != test.Features() {
		return errors.NewValidationError("columns",
			fmt.Sprintf("train has %d feature columns but test has %d", train.Features(), test.Features()),
			test.Features())
	}
	if yr, _ := train.Y.Dims(); yr != train.Rows() {
		return errors.NewValidationError("rows", "train features and target differ in length", yr)
	}
	if yr, _ := test.Y.Dims(); yr != test.Rows() {
		return errors.NewValidationError("rows", "test features and target differ in length", yr)
	}
	return nil
}
