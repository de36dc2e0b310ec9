package crf

import "math"

// KindCRF identifies the linear-chain model in persisted files.
const KindCRF = "crf"

// CRF is a first-order linear-chain CRF over a Parameters store.
//
// Decoding methods only read the store and are safe for concurrent use once
// training or loading has finished.
type CRF struct {
	params *Parameters
}

// New creates a CRF over params and builds its edge table.
func New(params *Parameters) *CRF {
	if params == nil {
		params = NewParameters()
	}
	params.BuildEdgeTable()
	return &CRF{params: params}
}

// Kind returns KindCRF.
func (c *CRF) Kind() string { return KindCRF }

// Params returns the underlying parameter store.
func (c *CRF) Params() *Parameters { return c.params }

// potentials computes node and edge potentials of a sequence. Only the
// label×label transition is modeled; transitions do not see the observation.
// Node rows are shifted by their maximum score before exponentiating;
// marginals, likelihoods and best paths are invariant to the shift.
func (c *CRF) potentials(seq Sequence) Potentials {
	node, edge := c.logPotentials(seq)
	pot := NewPotentials(seq.Len(), len(edge))
	for t := range seq.Len() {
		row := node[t]
		shift := math.Inf(-1)
		for _, s := range row {
			shift = math.Max(shift, s)
		}
		for y, s := range row {
			pot.Node[t][y] = math.Exp(s - shift)
		}
	}
	for i := range edge {
		for j := range edge[i] {
			pot.Edge[i][j] = math.Exp(edge[i][j])
		}
	}
	return pot
}

// logPotentials returns the unnormalized node scores [T][L] and edge scores
// [L][L] of a sequence in the log domain.
func (c *CRF) logPotentials(seq Sequence) (node, edge [][]float64) {
	p := c.params
	L := p.NumLabels()
	node = newMatrix(seq.Len(), L, 0)
	for t, obs := range seq.Observations {
		for _, f := range obs.Features {
			for _, e := range p.Index.Labels(f.ID) {
				if e.Label < L {
					node[t][e.Label] += p.Weights[e.Param] * f.Value
				}
			}
		}
	}

	edge = newMatrix(L, L, 0)
	for i := range L {
		for j := range L {
			if id := p.edgeParam(i, j); id >= 0 {
				edge[i][j] = p.Weights[id]
			}
		}
	}
	return node, edge
}

// Potentials returns the node and edge potentials of seq.
func (c *CRF) Potentials(seq Sequence) Potentials {
	return c.potentials(seq)
}

// Predict returns the best label ID sequence.
func (c *CRF) Predict(seq Sequence) []int {
	node, edge := c.logPotentials(seq)
	path, _ := viterbi(node, edge)
	return path
}

// PredictLabels returns the best label sequence as strings.
func (c *CRF) PredictLabels(seq Sequence) []string {
	return LabelTokens(c.params.Labels, c.Predict(seq))
}

// Marginals returns P(y_t = y | x) for each position as a [T][L] matrix.
func (c *CRF) Marginals(seq Sequence) [][]float64 {
	return ForwardBackward(c.potentials(seq)).Marginals()
}

// LogLikelihood returns log P(gold labels | x).
func (c *CRF) LogLikelihood(seq Sequence) float64 {
	fb := ForwardBackward(c.potentials(seq))
	return math.Log(fb.Likelihood(seq.Labels()))
}

// Tag decodes a sequence given as raw feature tokens per position. Tokens
// unknown to the store are ignored.
func (c *CRF) Tag(tokens [][]string) []string {
	return c.PredictLabels(c.params.Pack(tokens))
}

// Pack resolves raw feature tokens into an unlabeled sequence without
// mutating the store.
func (p *Parameters) Pack(tokens [][]string) Sequence {
	return p.PackValues(tokens, nil)
}

// PackValues is Pack with explicit feature values; values[t] may be nil or
// shorter than tokens[t], in which case missing values are 1.
func (p *Parameters) PackValues(tokens [][]string, values [][]float64) Sequence {
	seq := Sequence{ID: -1, Observations: make([]Observation, len(tokens))}
	for t, feats := range tokens {
		var vals []float64
		if t < len(values) {
			vals = values[t]
		}
		seq.Observations[t] = p.Observe("", feats, vals, false)
		seq.Observations[t].Label = -1
	}
	return seq
}

// LabelTokens maps label IDs back to their tokens. Unknown IDs map to "".
func LabelTokens(labels *Alphabet, ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i], _ = labels.Token(id)
	}
	return out
}
