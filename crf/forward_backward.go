package crf

import "math"

// Potentials holds the exponentiated scores of one sequence of length T over
// L labels.
type Potentials struct {
	Node [][]float64 // [T+1][L]; row T is the end sentinel, all ones
	Edge [][]float64 // [L][L]; Edge[i][j] scores label i following label j
}

// NewPotentials allocates neutral potentials (all ones) for T positions and
// L labels.
func NewPotentials(T, L int) Potentials {
	return Potentials{
		Node: newMatrix(T+1, L, 1),
		Edge: newMatrix(L, L, 1),
	}
}

// Len returns the number of positions, excluding the sentinel row.
func (p Potentials) Len() int {
	return len(p.Node) - 1
}

// NumLabels returns the number of labels.
func (p Potentials) NumLabels() int {
	return len(p.Edge)
}

// ForwardBackwardResult holds the scaled forward and backward variables of
// one sequence. Rows run over positions 0..T, row T being the sentinel.
type ForwardBackwardResult struct {
	Alpha      [][]float64 // [T+1][L] forward variables, normalized per row
	Beta       [][]float64 // [T+1][L] backward variables, normalized per row
	AlphaScale []float64   // [T+1] forward normalizers
	BetaScale  []float64   // [T+1] backward normalizers
	Z          float64     // partition function after normalization (1)
	LogZ       float64     // true log partition function, Σ log AlphaScale

	pot Potentials
	// Suffix sums of log scales: logAlpha[t] = Σ_{k>=t} log AlphaScale[k].
	logAlpha []float64
	logBeta  []float64
}

// ForwardBackward runs the scaled forward-backward recursion.
func ForwardBackward(pot Potentials) ForwardBackwardResult {
	T := pot.Len()
	if T <= 0 {
		return ForwardBackwardResult{Z: 1}
	}
	L := pot.NumLabels()
	node, edge := pot.Node, pot.Edge

	// Forward pass
	alpha := newMatrix(T+1, L, 0)
	alphaScale := newVector(T+1, 1)

	var sum float64
	for y := range L {
		alpha[0][y] = node[0][y]
		sum += alpha[0][y]
	}
	alphaScale[0] = normalize(alpha[0], sum)

	for t := 1; t < T; t++ {
		sum = 0
		for i := range L {
			var s float64
			for j := range L {
				s += alpha[t-1][j] * edge[i][j]
			}
			alpha[t][i] = s * node[t][i]
			sum += alpha[t][i]
		}
		alphaScale[t] = normalize(alpha[t], sum)
	}

	// The sentinel collects all mass into the end state 0.
	for i := range L {
		alpha[T][0] += alpha[T-1][i]
	}
	alphaScale[T] = alpha[T][0]
	z := alpha[T][0]

	// Backward pass, seeded at the sentinel
	beta := newMatrix(T+1, L, 0)
	betaScale := newVector(T+1, 1)

	beta[T][0] = 1
	for i := range L {
		beta[T-1][i] = 1
	}
	betaScale[T-1] = normalize(beta[T-1], float64(L))

	for t := T - 1; t >= 1; t-- {
		sum = 0
		for i := range L {
			var s float64
			for j := range L {
				s += beta[t][j] * node[t][j] * edge[j][i]
			}
			beta[t-1][i] = s
			sum += s
		}
		betaScale[t-1] = normalize(beta[t-1], sum)
	}

	logAlpha := make([]float64, T+2)
	logBeta := make([]float64, T+2)
	for t := T; t >= 0; t-- {
		logAlpha[t] = logAlpha[t+1] + math.Log(alphaScale[t])
		logBeta[t] = logBeta[t+1] + math.Log(betaScale[t])
	}

	return ForwardBackwardResult{
		Alpha:      alpha,
		Beta:       beta,
		AlphaScale: alphaScale,
		BetaScale:  betaScale,
		Z:          z,
		LogZ:       logAlpha[0],
		pot:        pot,
		logAlpha:   logAlpha,
		logBeta:    logBeta,
	}
}

// LogZBackward returns the log partition function recovered from the
// backward pass. It equals LogZ up to rounding.
func (fb ForwardBackwardResult) LogZBackward() float64 {
	if len(fb.Beta) == 0 {
		return 0
	}
	var s float64
	for y, b := range fb.Beta[0] {
		s += fb.pot.Node[0][y] * b
	}
	return fb.logBeta[0] + math.Log(s)
}

// Marginals returns P(y_t = y | x) as a [T][L] matrix.
func (fb ForwardBackwardResult) Marginals() [][]float64 {
	T := fb.pot.Len()
	if T <= 0 {
		return nil
	}
	L := fb.pot.NumLabels()
	out := make([][]float64, T)
	for t := range T {
		out[t] = make([]float64, L)
		scale := math.Exp(fb.logBeta[t] - fb.logAlpha[t+1])
		for y := range L {
			out[t][y] = fb.Alpha[t][y] * fb.Beta[t][y] / fb.Z * scale
		}
	}
	return out
}

// EdgeMarginals returns P(y_t = i, y_{t-1} = j | x) as an [L][L] matrix for
// 1 <= t < T.
func (fb ForwardBackwardResult) EdgeMarginals(t int) [][]float64 {
	T := fb.pot.Len()
	if t < 1 || t >= T {
		return nil
	}
	L := fb.pot.NumLabels()
	node, edge := fb.pot.Node, fb.pot.Edge
	scale := math.Exp(fb.logBeta[t] - fb.logAlpha[t])
	out := newMatrix(L, L, 0)
	for i := range L {
		for j := range L {
			out[i][j] = fb.Alpha[t-1][j] * fb.Beta[t][i] * node[t][i] * edge[i][j] / fb.Z * scale
		}
	}
	return out
}

// Likelihood returns P(labels | x) by replaying the label path through the
// potentials, dividing by each forward normalizer in turn. Out-of-range
// labels yield 0.
func (fb ForwardBackwardResult) Likelihood(labels []int) float64 {
	T := fb.pot.Len()
	if T <= 0 || len(labels) != T {
		return 0
	}
	L := fb.pot.NumLabels()
	prob := 1.0
	prev := 0
	for t := 0; t <= T; t++ {
		if t < T {
			y := labels[t]
			if y < 0 || y >= L {
				return 0
			}
			trans := 1.0
			if t > 0 {
				trans = fb.pot.Edge[y][prev]
			}
			prob *= fb.pot.Node[t][y] * trans
			prev = y
		}
		prob /= fb.AlphaScale[t]
	}
	return prob / fb.Z
}

// normalize divides row by sum and returns the scale factor. A zero sum
// leaves the row untouched with scale 1.
func normalize(row []float64, sum float64) float64 {
	if sum == 0 {
		return 1
	}
	for i := range row {
		row[i] /= sum
	}
	return sum
}

func newMatrix(n, m int, val float64) [][]float64 {
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = newVector(m, val)
	}
	return mat
}

func newVector(n int, val float64) []float64 {
	v := make([]float64, n)
	if val != 0 {
		for i := range v {
			v[i] = val
		}
	}
	return v
}
