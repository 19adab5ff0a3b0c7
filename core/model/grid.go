package model

// Dimension is one searchable hyperparameter and its ordered candidate values.
type Dimension struct {
	Name   string
	Values []interface{}
}

// Grid is an ordered list of dimensions. The order defines the enumeration
// order of Combinations and therefore the search tie-break.
type Grid []Dimension

// Size returns the number of combinations, or 0 for an empty grid.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, d := range g {
		n *= len(d.Values)
	}
	return n
}

// Names returns the dimension names in grid order.
func (g Grid) Names() []string {
	names := make([]string, len(g))
	for i, d := range g {
		names[i] = d.Name
	}
	return names
}

// Combinations enumerates every parameter set of the grid. The first
// dimension varies slowest and the last fastest.
func (g Grid) Combinations() []Params {
	size := g.Size()
	if size == 0 {
		return nil
	}
	combos := make([]Params, size)
	for idx := range combos {
		p := make(Params, len(g))
		rem := idx
		for d := len(g) - 1; d >= 0; d-- {
			vals := g[d].Values
			p[g[d].Name] = vals[rem%len(vals)]
			rem /= len(vals)
		}
		combos[idx] = p
	}
	return combos
}
