package crf

import (
	"fmt"

	"github.com/google/uuid"
)

// TransitionPrefix marks the reserved feature tokens that carry transition
// parameters: the feature "@B" with label A is the weight of A following B.
const TransitionPrefix = "@"

// Parameters owns the alphabets, the feature index and the weight vector
// shared by training and decoding.
type Parameters struct {
	ID       uuid.UUID
	Labels   *Alphabet
	Features *Alphabet
	Index    *FeatureIndex
	Weights  []float64
	Counts   []float64 // empirical feature counts, parallel to Weights

	edges [][]int
}

// NewParameters creates an empty parameter store.
func NewParameters() *Parameters {
	return &Parameters{
		ID:       uuid.New(),
		Labels:   NewAlphabet(),
		Features: NewAlphabet(),
		Index:    NewFeatureIndex(),
	}
}

// Lookup returns the parameter ID of (labelID, featureID). With create set, an
// unseen pair is allocated a zero weight and value is added to its empirical
// count. Without create, unseen pairs return -1 and nothing is mutated.
func (p *Parameters) Lookup(labelID, featureID int, value float64, create bool) int {
	id := p.Index.Lookup(labelID, featureID, create)
	if id < 0 || !create {
		return id
	}
	switch {
	case id < len(p.Weights):
		p.Counts[id] += value
	case id == len(p.Weights):
		p.Weights = append(p.Weights, 0)
		p.Counts = append(p.Counts, value)
	}
	p.mustBeConsistent()
	return id
}

// Register resolves a label and its feature tokens to IDs, registering each
// (label, feature) pair. ids[0] is the label ID, ids[1:] the feature IDs;
// any of them is -1 when unseen in read-only mode. A nil values slice means
// every feature has value 1.
func (p *Parameters) Register(label string, features []string, values []float64, create bool) []int {
	ids := make([]int, len(features)+1)
	ids[0] = p.Labels.Lookup(label, create)
	for i, feat := range features {
		ids[i+1] = p.Features.Lookup(feat, create)
		p.Lookup(ids[0], ids[i+1], featureValue(values, i), create)
	}
	return ids
}

// RegisterTransition registers the edge parameter for label following prev.
func (p *Parameters) RegisterTransition(label, prev string, create bool) int {
	labelID := p.Labels.Lookup(label, create)
	featID := p.Features.Lookup(TransitionPrefix+prev, create)
	return p.Lookup(labelID, featID, 1, create)
}

// Observe registers a labeled position and packs it into an Observation,
// dropping features the store does not know.
func (p *Parameters) Observe(label string, features []string, values []float64, create bool) Observation {
	ids := p.Register(label, features, values, create)
	obs := Observation{Label: ids[0]}
	for i, id := range ids[1:] {
		if id >= 0 {
			obs.Features = append(obs.Features, Feature{ID: id, Value: featureValue(values, i)})
		}
	}
	return obs
}

// BuildEdgeTable derives the dense label×label transition table from the
// feature index. Cell [i][j] holds the parameter of label i following label
// j, or -1. It must run after training and after loading, before decoding.
func (p *Parameters) BuildEdgeTable() {
	n := p.Labels.Size()
	edges := make([][]int, n)
	for i := range edges {
		edges[i] = make([]int, n)
		for j := range edges[i] {
			edges[i][j] = -1
		}
	}
	for j, label := range p.Labels.Tokens() {
		featID := p.Features.Get(TransitionPrefix + label)
		for _, e := range p.Index.Labels(featID) {
			if e.Label < n {
				edges[e.Label][j] = e.Param
			}
		}
	}
	p.edges = edges
}

// EdgeTable returns the table built by BuildEdgeTable.
func (p *Parameters) EdgeTable() [][]int {
	return p.edges
}

// edgeParam returns the transition parameter of i following j, or -1.
func (p *Parameters) edgeParam(i, j int) int {
	if i >= len(p.edges) || j >= len(p.edges[i]) {
		return -1
	}
	return p.edges[i][j]
}

// ResetWeights zeroes the weight vector, keeping alphabets and index.
func (p *Parameters) ResetWeights() {
	clear(p.Weights)
}

// Reset empties the store.
func (p *Parameters) Reset() {
	p.Labels.Clear()
	p.Features.Clear()
	p.Index.Clear()
	p.Weights = nil
	p.Counts = nil
	p.edges = nil
}

// NumLabels returns the size of the label alphabet.
func (p *Parameters) NumLabels() int { return p.Labels.Size() }

// NumFeatures returns the size of the feature alphabet.
func (p *Parameters) NumFeatures() int { return p.Features.Size() }

// NumParams returns the number of allocated parameters.
func (p *Parameters) NumParams() int { return p.Index.Size() }

// Validate checks the invariant len(Weights) == Index.Size().
func (p *Parameters) Validate() error {
	if len(p.Weights) != p.Index.Size() || len(p.Counts) != len(p.Weights) {
		return fmt.Errorf("%w: %d weights, %d counts, %d indexed parameters",
			ErrInconsistent, len(p.Weights), len(p.Counts), p.Index.Size())
	}
	return nil
}

func (p *Parameters) mustBeConsistent() {
	if err := p.Validate(); err != nil {
		panic(err)
	}
}

func featureValue(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 1
}
