package buffer

// CircularEval is a fixed-size ring of recent posterior evaluations. The
// sampling kernel does not report the log-probability of the positions it
// keeps, but it evaluated every one of them moments ago - so a small ring
// of (point, value) pairs lets the checkpoint writer recover those values
// without re-running the model.
type CircularEval struct {
	points    [][]float64 // evaluated coordinate vectors, oldest overwritten first
	values    []float64   // log-probability per stored point
	pos       int         // next write position
	BufSize   int         // BufSize is the fixed number of evaluations kept
	Count     int         // Count is the number currently stored. Always <= BufSize
	TotalSeen int64       // TotalSeen is the total number of Add calls
}

// NewCircularEval creates a ring holding up to totalSize evaluations.
func NewCircularEval(totalSize int) *CircularEval {
	if totalSize < 1 {
		totalSize = 1
	}

	return &CircularEval{
		points:  make([][]float64, totalSize),
		values:  make([]float64, totalSize),
		pos:     0,
		BufSize: totalSize,
		Count:   0,
	}
}

// Add stores an evaluation, overwriting the oldest entry. The point is
// copied so callers may reuse their slice.
func (c *CircularEval) Add(point []float64, value float64) {
	c.TotalSeen++

	cp := c.points[c.pos]
	if cap(cp) < len(point) {
		cp = make([]float64, len(point))
	}
	cp = cp[:len(point)]
	copy(cp, point)

	c.points[c.pos] = cp
	c.values[c.pos] = value

	c.pos = (c.pos + 1) % c.BufSize

	c.Count++
	if c.Count > c.BufSize {
		c.Count = c.BufSize // max out
	}
}

// Lookup returns the stored value for a point, scanning newest to oldest.
// Points are compared exactly: the kernel hands back the very same floats
// it was given, so bitwise equality is the right test.
func (c *CircularEval) Lookup(point []float64) (float64, bool) {
	for i := 0; i < c.Count; i++ {
		idx := (c.pos - 1 - i + c.BufSize*2) % c.BufSize
		if equalPoint(c.points[idx], point) {
			return c.values[idx], true
		}
	}
	return 0, false
}

func equalPoint(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
