package tree

import (
	"gonum.org/v1/gonum/mat"
)

// Dataset is a column-major copy of a training matrix. Ensembles build it
// once and fit every tree on index samples of it.
type Dataset struct {
	Columns [][]float64
	Target  []float64
}

// NewDataset copies X (n×d) and y (n×1).
func NewDataset(X, y mat.Matrix) *Dataset {
	rows, cols := X.Dims()
	d := &Dataset{
		Columns: make([][]float64, cols),
		Target:  make([]float64, rows),
	}
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		for i := 0; i < rows; i++ {
			col[i] = X.At(i, j)
		}
		d.Columns[j] = col
	}
	for i := 0; i < rows; i++ {
		d.Target[i] = y.At(i, 0)
	}
	return d
}

// WithTarget returns a Dataset sharing the feature columns with a new target.
func (d *Dataset) WithTarget(target []float64) *Dataset {
	return &Dataset{Columns: d.Columns, Target: target}
}

// Rows returns the number of samples.
func (d *Dataset) Rows() int { return len(d.Target) }

// Features returns the number of feature columns.
func (d *Dataset) Features() int { return len(d.Columns) }

// AllIndices returns 0..n-1.
func (d *Dataset) AllIndices() []int {
	idx := make([]int, d.Rows())
	for i := range idx {
		idx[i] = i
	}
	return idx
}
