package crf

import "math"

// Viterbi finds the best label sequence using the Viterbi algorithm (log-domain).
// Ties resolve to the lowest label ID. It returns the T labels and the log
// score of the best path.
func Viterbi(pot Potentials) ([]int, float64) {
	T := pot.Len()
	L := pot.NumLabels()
	if T <= 0 || L == 0 {
		return nil, math.Inf(-1)
	}
	node := newMatrix(T, L, 0)
	for t := range T {
		for y := range L {
			node[t][y] = math.Log(pot.Node[t][y])
		}
	}
	edge := newMatrix(L, L, 0)
	for i := range L {
		for j := range L {
			edge[i][j] = math.Log(pot.Edge[i][j])
		}
	}
	return viterbi(node, edge)
}

// viterbi decodes log node scores [T][L] and log edge scores [L][L].
func viterbi(node, edge [][]float64) ([]int, float64) {
	T := len(node)
	L := len(edge)
	if T <= 0 || L == 0 {
		return nil, math.Inf(-1)
	}

	// delta[t][y] = best score ending at time t with label y
	delta := newMatrix(T, L, 0)
	// psi[t][y] = best previous label for backtracking
	psi := make([][]int, T)
	psi[0] = make([]int, L)
	copy(delta[0], node[0])

	for t := 1; t < T; t++ {
		psi[t] = make([]int, L)
		for i := range L {
			bestScore := math.Inf(-1)
			bestPrev := 0
			for j := range L {
				score := delta[t-1][j] + edge[i][j]
				if score > bestScore {
					bestScore = score
					bestPrev = j
				}
			}
			delta[t][i] = bestScore + node[t][i]
			psi[t][i] = bestPrev
		}
	}

	// The sentinel row has a single state; its best predecessor ends the path.
	bestScore := math.Inf(-1)
	bestLabel := 0
	for y := range L {
		if delta[T-1][y] > bestScore {
			bestScore = delta[T-1][y]
			bestLabel = y
		}
	}

	// Backtrack
	path := make([]int, T)
	path[T-1] = bestLabel
	for t := T - 2; t >= 0; t-- {
		path[t] = psi[t+1][path[t+1]]
	}

	return path, bestScore
}

// PathScore returns the log score of a label path under the potentials.
func PathScore(pot Potentials, labels []int) float64 {
	var score float64
	for t, y := range labels {
		score += math.Log(pot.Node[t][y])
		if t > 0 {
			score += math.Log(pot.Edge[y][labels[t-1]])
		}
	}
	return score
}
