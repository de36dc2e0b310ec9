package crf

import "math/rand/v2"

// Feature is one active feature of an observation.
type Feature struct {
	ID    int
	Value float64
}

// Observation is one position of a sequence: its gold label (or -1 when
// unknown) and its active features.
type Observation struct {
	Label    int
	Features []Feature
}

// Sequence is an ordered list of observations, e.g. one sentence.
type Sequence struct {
	ID           int // provenance, -1 when unset
	Observations []Observation
}

// Len returns the number of positions.
func (s Sequence) Len() int {
	return len(s.Observations)
}

// Labels returns the gold label IDs.
func (s Sequence) Labels() []int {
	labels := make([]int, len(s.Observations))
	for t, obs := range s.Observations {
		labels[t] = obs.Label
	}
	return labels
}

// Corpus is a list of sequences sharing one Parameters store.
type Corpus struct {
	Sequences []Sequence
	positions int
}

// Append adds a sequence. Empty sequences are dropped.
func (c *Corpus) Append(seq Sequence) {
	if seq.Len() == 0 {
		return
	}
	c.Sequences = append(c.Sequences, seq)
	c.positions += seq.Len()
}

// Len returns the number of sequences.
func (c *Corpus) Len() int {
	return len(c.Sequences)
}

// Positions returns the total number of observations.
func (c *Corpus) Positions() int {
	return c.positions
}

// Shuffle permutes whole sequences; positions inside a sequence keep
// their order.
func (c *Corpus) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(c.Sequences), func(i, j int) {
		c.Sequences[i], c.Sequences[j] = c.Sequences[j], c.Sequences[i]
	})
}

// Subset returns a corpus holding the sequences at the given indices.
func (c *Corpus) Subset(indices []int) *Corpus {
	sub := &Corpus{}
	for _, i := range indices {
		sub.Append(c.Sequences[i])
	}
	return sub
}
