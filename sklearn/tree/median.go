package tree

import (
	"container/heap"
	"sort"
)

// medianTracker maintains the running sum of absolute deviations from the
// median of a growing multiset in O(log n) per insertion.
type medianTracker struct {
	lower    maxHeap // values <= median
	upper    minHeap // values >= median
	sumLower float64
	sumUpper float64
}

func (m *medianTracker) add(v float64) {
	if m.lower.Len() == 0 || v <= m.lower.floats[0] {
		heap.Push(&m.lower, v)
		m.sumLower += v
	} else {
		heap.Push(&m.upper, v)
		m.sumUpper += v
	}
	// rebalance so that len(lower) is len(upper) or len(upper)+1
	if m.lower.Len() > m.upper.Len()+1 {
		v := heap.Pop(&m.lower).(float64)
		m.sumLower -= v
		heap.Push(&m.upper, v)
		m.sumUpper += v
	} else if m.upper.Len() > m.lower.Len() {
		v := heap.Pop(&m.upper).(float64)
		m.sumUpper -= v
		heap.Push(&m.lower, v)
		m.sumLower += v
	}
}

// sad returns Σ|v - median|.
func (m *medianTracker) sad() float64 {
	if m.lower.Len() == 0 {
		return 0
	}
	med := m.lower.floats[0]
	return med*float64(m.lower.Len()) - m.sumLower + m.sumUpper - med*float64(m.upper.Len())
}

type minHeap struct{ floats []float64 }

func (h minHeap) Len() int            { return len(h.floats) }
func (h minHeap) Less(i, j int) bool  { return h.floats[i] < h.floats[j] }
func (h minHeap) Swap(i, j int)       { h.floats[i], h.floats[j] = h.floats[j], h.floats[i] }
func (h *minHeap) Push(x interface{}) { h.floats = append(h.floats, x.(float64)) }
func (h *minHeap) Pop() interface{} {
	n := len(h.floats)
	v := h.floats[n-1]
	h.floats = h.floats[:n-1]
	return v
}

type maxHeap struct{ minHeap }

func (h maxHeap) Less(i, j int) bool { return h.floats[i] > h.floats[j] }

// median returns the median of values (the mean of the two middle values for
// even counts). values is not modified.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
