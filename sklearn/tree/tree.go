// Package tree provides a CART decision tree regressor.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Split criteria.
const (
	CriterionSquaredError  = "squared_error"
	CriterionFriedmanMSE   = "friedman_mse"
	CriterionAbsoluteError = "absolute_error"
)

// Criteria lists the supported split criteria.
var Criteria = []string{CriterionSquaredError, CriterionFriedmanMSE, CriterionAbsoluteError}

// featureThreshold is the minimum gap between two feature values for a
// split to be placed between them.
const featureThreshold = 1e-7

// Node is one node of a fitted tree. Children are indices into Nodes;
// leaves have Left == Right == -1.
type Node struct {
	Left      int
	Right     int
	Feature   int
	Threshold float64
	Value     float64
	Impurity  float64
	NSamples  int
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool { return n.Left < 0 }

// DecisionTreeRegressor is a CART regression tree.
type DecisionTreeRegressor struct {
	// Hyperparameters
	Criterion       string
	MaxDepth        int     // 0 = unlimited
	MinSamplesSplit int     // >= 2
	MinSamplesLeaf  int     // >= 1
	MaxFeatures     float64 // 0 = all, (0,1] = fraction, >1 = count
	MaxFeaturesRule string  // "sqrt" or "log2", overrides MaxFeatures
	RandomState     int64

	// Learned structure
	Nodes []Node
	Depth int

	State *model.StateManager
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithCriterion sets the split criterion.
func WithCriterion(criterion string) Option {
	return func(t *DecisionTreeRegressor) { t.Criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number or fraction of features tried per split.
func WithMaxFeatures(f float64) Option {
	return func(t *DecisionTreeRegressor) { t.MaxFeatures = f }
}

// WithRandomState seeds the feature sampling.
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor creates a tree with scikit-learn defaults.
func NewDecisionTreeRegressor(options ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		Criterion:       CriterionSquaredError,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		State:           model.NewStateManager(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Fit builds the tree on all rows of X.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	if _, _, err := model.ValidateFit("DecisionTreeRegressor.Fit", X, y); err != nil {
		return err
	}
	d := NewDataset(X, y)
	return t.FitDataset(d, d.AllIndices())
}

// FitDataset builds the tree on the rows of d listed in sample. Indices may
// repeat, which is how bootstrap samples are expressed.
func (t *DecisionTreeRegressor) FitDataset(d *Dataset, sample []int) error {
	if err := t.validate(); err != nil {
		return err
	}
	if len(sample) == 0 || d.Features() == 0 {
		return errors.NewValueError("DecisionTreeRegressor.Fit", "empty training data")
	}

	b := &builder{
		tree:        t,
		data:        d,
		maxFeatures: t.resolveMaxFeatures(d.Features()),
		rng:         rand.New(rand.NewPCG(uint64(t.RandomState), 0x9e3779b97f4a7c15)),
	}
	idx := make([]int, len(sample))
	copy(idx, sample)
	b.build(idx, 0)

	t.Nodes = b.nodes
	t.Depth = b.depth
	t.State.SetFitted(len(sample), d.Features())
	return nil
}

// Predict は入力データに対する予測を行う
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.State.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := t.State.CheckFeatures("DecisionTreeRegressor.Predict", cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, t.predictRow(X, i))
	}
	return out, nil
}

// PredictDataset predicts the listed rows of a Dataset.
func (t *DecisionTreeRegressor) PredictDataset(d *Dataset, rows []int) []float64 {
	out := make([]float64, len(rows))
	for k, i := range rows {
		n := &t.Nodes[0]
		for !n.IsLeaf() {
			if d.Columns[n.Feature][i] <= n.Threshold {
				n = &t.Nodes[n.Left]
			} else {
				n = &t.Nodes[n.Right]
			}
		}
		out[k] = n.Value
	}
	return out
}

func (t *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	n := &t.Nodes[0]
	for !n.IsLeaf() {
		if X.At(i, n.Feature) <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n.Value
}

// LeafCount returns the number of leaves of the fitted tree.
func (t *DecisionTreeRegressor) LeafCount() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// IsFitted returns whether the model has been fitted.
func (t *DecisionTreeRegressor) IsFitted() bool { return t.State.IsFitted() }

// GetParams returns the model's hyperparameters.
func (t *DecisionTreeRegressor) GetParams() model.Params {
	return model.Params{
		"criterion":         t.Criterion,
		"max_depth":         model.OptionalInt(t.MaxDepth),
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_features":      maxFeaturesParam(t.MaxFeatures, t.MaxFeaturesRule),
		"random_state":      int(t.RandomState),
	}
}

// SetParams sets the model's hyperparameters.
func (t *DecisionTreeRegressor) SetParams(params model.Params) error {
	next := *t
	for name, v := range params {
		if err := next.setParam(name, v); err != nil {
			return err
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	*t = next
	return nil
}

func (t *DecisionTreeRegressor) setParam(name string, v interface{}) error {
	var err error
	switch name {
	case "criterion":
		t.Criterion, err = model.AsString(name, v)
	case "max_depth":
		t.MaxDepth, err = model.AsOptionalInt(name, v)
	case "min_samples_split":
		t.MinSamplesSplit, err = model.AsInt(name, v)
	case "min_samples_leaf":
		t.MinSamplesLeaf, err = model.AsInt(name, v)
	case "max_features":
		t.MaxFeatures, t.MaxFeaturesRule, err = parseMaxFeatures(v)
	case "random_state":
		var seed int
		seed, err = model.AsOptionalInt(name, v)
		t.RandomState = int64(seed)
	default:
		err = model.UnknownParam("DecisionTreeRegressor", name)
	}
	return err
}

// Clone はモデルの新しい未学習インスタンスを作成
func (t *DecisionTreeRegressor) Clone() model.Regressor {
	return t.cloneTree()
}

func (t *DecisionTreeRegressor) cloneTree() *DecisionTreeRegressor {
	c := *t
	c.Nodes = nil
	c.Depth = 0
	c.State = model.NewStateManager()
	return &c
}

// String returns the string representation of the model
func (t *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(criterion=%s, max_depth=%v, min_samples_split=%d, min_samples_leaf=%d)",
		t.Criterion, model.OptionalInt(t.MaxDepth), t.MinSamplesSplit, t.MinSamplesLeaf)
}

func (t *DecisionTreeRegressor) validate() error {
	op := "DecisionTreeRegressor.SetParams"
	switch t.Criterion {
	case CriterionSquaredError, CriterionFriedmanMSE, CriterionAbsoluteError:
	default:
		return errors.NewValueError(op, fmt.Sprintf("criterion must be one of %v, got %q", Criteria, t.Criterion))
	}
	if t.MaxDepth < 0 {
		return errors.NewValueError(op, fmt.Sprintf("max_depth must be positive, got %d", t.MaxDepth))
	}
	if t.MinSamplesSplit < 2 {
		return errors.NewValueError(op, fmt.Sprintf("min_samples_split must be >= 2, got %d", t.MinSamplesSplit))
	}
	if t.MinSamplesLeaf < 1 {
		return errors.NewValueError(op, fmt.Sprintf("min_samples_leaf must be >= 1, got %d", t.MinSamplesLeaf))
	}
	if t.MaxFeatures < 0 {
		return errors.NewValueError(op, fmt.Sprintf("max_features must be positive, got %g", t.MaxFeatures))
	}
	return nil
}

func (t *DecisionTreeRegressor) resolveMaxFeatures(n int) int {
	k := n
	switch {
	case t.MaxFeaturesRule == "sqrt":
		k = int(math.Sqrt(float64(n)))
	case t.MaxFeaturesRule == "log2":
		k = int(math.Log2(float64(n)))
	case t.MaxFeatures > 0 && t.MaxFeatures <= 1:
		k = int(t.MaxFeatures * float64(n))
	case t.MaxFeatures > 1:
		k = int(t.MaxFeatures)
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// parseMaxFeatures accepts nil, "sqrt", "log2" or a positive number.
func parseMaxFeatures(v interface{}) (float64, string, error) {
	switch x := v.(type) {
	case nil:
		return 0, "", nil
	case string:
		if x == "sqrt" || x == "log2" {
			return 0, x, nil
		}
		return 0, "", errors.NewValueError("SetParams", fmt.Sprintf("max_features must be \"sqrt\", \"log2\" or a number, got %q", x))
	}
	f, err := model.AsFloat("max_features", v)
	return f, "", err
}

func maxFeaturesParam(f float64, rule string) interface{} {
	if rule != "" {
		return rule
	}
	if f == 0 {
		return nil
	}
	return f
}

// builder grows one tree depth first.
type builder struct {
	tree        *DecisionTreeRegressor
	data        *Dataset
	maxFeatures int
	rng         *rand.Rand
	nodes       []Node
	depth       int
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

func (b *builder) build(idx []int, depth int) int {
	value, impurity := b.leafStats(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Left: -1, Right: -1, Feature: -1,
		Value: value, Impurity: impurity, NSamples: len(idx),
	})
	if depth > b.depth {
		b.depth = depth
	}

	t := b.tree
	n := len(idx)
	if (t.MaxDepth > 0 && depth >= t.MaxDepth) ||
		n < t.MinSamplesSplit ||
		n < 2*t.MinSamplesLeaf ||
		impurity <= 1e-12 {
		return id
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	col := b.data.Columns[best.feature]
	for _, i := range idx {
		if col[i] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	node := &b.nodes[id]
	node.Left, node.Right = l, r
	node.Feature, node.Threshold = best.feature, best.threshold
	return id
}

func (b *builder) leafStats(idx []int) (value, impurity float64) {
	y := b.data.Target
	n := float64(len(idx))
	if b.tree.Criterion == CriterionAbsoluteError {
		vals := make([]float64, len(idx))
		for k, i := range idx {
			vals[k] = y[i]
		}
		med := median(vals)
		var sad float64
		for _, v := range vals {
			sad += math.Abs(v - med)
		}
		return med, sad / n
	}

	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	mean := sum / n
	impurity = sumSq/n - mean*mean
	if impurity < 0 {
		impurity = 0
	}
	return mean, impurity
}

// candidateFeatures returns the features examined at one node.
func (b *builder) candidateFeatures() []int {
	nf := b.data.Features()
	if b.maxFeatures >= nf {
		all := make([]int, nf)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(nf)[:b.maxFeatures]
}

func (b *builder) bestSplit(idx []int) (split, bool) {
	best := split{score: math.Inf(-1)}
	found := false
	minLeaf := b.tree.MinSamplesLeaf
	n := len(idx)
	y := b.data.Target

	sorted := make([]int, n)
	for _, f := range b.candidateFeatures() {
		col := b.data.Columns[f]
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })

		if col[sorted[n-1]] <= col[sorted[0]]+featureThreshold {
			continue
		}

		scores := b.splitScores(sorted, y)
		for pos := minLeaf; pos <= n-minLeaf; pos++ {
			lo, hi := col[sorted[pos-1]], col[sorted[pos]]
			if hi <= lo+featureThreshold {
				continue
			}
			if s := scores(pos); s > best.score {
				threshold := lo/2 + hi/2
				if threshold == hi || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, score: s}
				found = true
			}
		}
	}
	return best, found
}

// splitScores returns a function scoring the split that puts the first pos
// samples of sorted on the left. Higher is better.
func (b *builder) splitScores(sorted []int, y []float64) func(pos int) float64 {
	n := len(sorted)
	switch b.tree.Criterion {
	case CriterionAbsoluteError:
		prefix := make([]float64, n+1)
		var m medianTracker
		for k := 0; k < n; k++ {
			m.add(y[sorted[k]])
			prefix[k+1] = m.sad()
		}
		suffix := make([]float64, n+1)
		var r medianTracker
		for k := n - 1; k >= 0; k-- {
			r.add(y[sorted[k]])
			suffix[k] = r.sad()
		}
		return func(pos int) float64 { return -(prefix[pos] + suffix[pos]) }

	default:
		cum := make([]float64, n+1)
		for k := 0; k < n; k++ {
			cum[k+1] = cum[k] + y[sorted[k]]
		}
		total := cum[n]
		friedman := b.tree.Criterion == CriterionFriedmanMSE
		return func(pos int) float64 {
			nl, nr := float64(pos), float64(n-pos)
			sl, sr := cum[pos], total-cum[pos]
			if friedman {
				diff := nr*sl - nl*sr
				return diff * diff / (nl * nr)
			}
			return sl*sl/nl + sr*sr/nr
		}
	}
}
