package linear_model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// rcond is the relative singular value cutoff used by the least squares fallback.
const rcond = 1e-12

// centered holds X and y shifted by their column means.
type centered struct {
	X     *mat.Dense
	y     *mat.Dense
	xMean []float64
	yMean float64
}

// center subtracts column means when fitIntercept is set, so that the
// intercept can be recovered as yMean - xMean·coef after solving.
func center(X, y mat.Matrix, fitIntercept bool) centered {
	rows, cols := X.Dims()
	c := centered{
		X:     mat.DenseCopyOf(X),
		y:     mat.DenseCopyOf(y),
		xMean: make([]float64, cols),
	}
	if !fitIntercept {
		return c
	}

	for j := 0; j < cols; j++ {
		var s float64
		for i := 0; i < rows; i++ {
			s += c.X.At(i, j)
		}
		c.xMean[j] = s / float64(rows)
	}
	for i := 0; i < rows; i++ {
		c.yMean += c.y.At(i, 0)
	}
	c.yMean /= float64(rows)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c.X.Set(i, j, c.X.At(i, j)-c.xMean[j])
		}
		c.y.Set(i, 0, c.y.At(i, 0)-c.yMean)
	}
	return c
}

// intercept returns yMean - xMean·coef.
func (c centered) intercept(coef []float64) float64 {
	b := c.yMean
	for j, w := range coef {
		b -= c.xMean[j] * w
	}
	return b
}

// leastSquares solves min ||Xw - y||. QR is tried first; rank deficient or
// underdetermined systems fall back to the minimum norm SVD solution.
func leastSquares(op string, X *mat.Dense, y *mat.Dense) ([]float64, int, error) {
	rows, cols := X.Dims()
	if rows >= cols {
		var qr mat.QR
		qr.Factorize(X)
		var r mat.Dense
		qr.RTo(&r)
		if fullRank(&r, cols) {
			w := mat.NewDense(cols, 1, nil)
			if err := qr.SolveTo(w, false, y); err == nil {
				return mat.Col(nil, 0, w), cols, nil
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, 0, errors.NewModelError(op, "least squares", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return make([]float64, cols), 0, nil
	}
	w := mat.NewDense(cols, 1, nil)
	svd.SolveTo(w, y, rank)
	return mat.Col(nil, 0, w), rank, nil
}

// fullRank reports whether the diagonal of R stays above the rcond cutoff.
func fullRank(r *mat.Dense, cols int) bool {
	var maxDiag float64
	for j := 0; j < cols; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(j, j)))
	}
	if maxDiag == 0 {
		return false
	}
	for j := 0; j < cols; j++ {
		if math.Abs(r.At(j, j)) <= 1e-10*maxDiag {
			return false
		}
	}
	return true
}

// predictLinear computes X·coef + intercept as an n×1 matrix.
func predictLinear(X mat.Matrix, coef []float64, intercept float64) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred := intercept
		for j := 0; j < cols; j++ {
			pred += X.At(i, j) * coef[j]
		}
		out.Set(i, 0, pred)
	}
	return out
}

func copySlice(s []float64) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
