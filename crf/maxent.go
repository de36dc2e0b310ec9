package crf

import (
	"log/slog"
	"math"
	"math/rand/v2"
)

// KindMaxEnt identifies the flat classifier in persisted files.
const KindMaxEnt = "maxent"

// MaxEnt is a maximum entropy classifier that labels every position of a
// sequence independently. It shares the Parameters layout and the SGD-L1
// learner with CRF; transition parameters are ignored.
type MaxEnt struct {
	params *Parameters
}

// NewMaxEnt creates a MaxEnt classifier over params.
func NewMaxEnt(params *Parameters) *MaxEnt {
	if params == nil {
		params = NewParameters()
	}
	return &MaxEnt{params: params}
}

// Kind returns KindMaxEnt.
func (m *MaxEnt) Kind() string { return KindMaxEnt }

// Params returns the underlying parameter store.
func (m *MaxEnt) Params() *Parameters { return m.params }

// Probabilities returns P(y | obs) over all labels.
func (m *MaxEnt) Probabilities(obs Observation) []float64 {
	p := m.params
	L := p.NumLabels()
	prob := make([]float64, L)
	for _, f := range obs.Features {
		for _, e := range p.Index.Labels(f.ID) {
			if e.Label < L {
				prob[e.Label] += p.Weights[e.Param] * f.Value
			}
		}
	}
	maxScore := math.Inf(-1)
	for _, s := range prob {
		maxScore = math.Max(maxScore, s)
	}
	var sum float64
	for y := range prob {
		prob[y] = math.Exp(prob[y] - maxScore)
		sum += prob[y]
	}
	for y := range prob {
		prob[y] /= sum
	}
	return prob
}

// Classify returns the most probable label of one observation; ties go to
// the lowest label ID.
func (m *MaxEnt) Classify(obs Observation) int {
	best := 0
	bestProb := -1.0
	for y, pr := range m.Probabilities(obs) {
		if pr > bestProb {
			bestProb = pr
			best = y
		}
	}
	return best
}

// Predict classifies every position of seq.
func (m *MaxEnt) Predict(seq Sequence) []int {
	out := make([]int, seq.Len())
	for t, obs := range seq.Observations {
		out[t] = m.Classify(obs)
	}
	return out
}

// Train fits the classifier on every position of corpus.
func (m *MaxEnt) Train(corpus *Corpus, config TrainerConfig) (TrainResult, error) {
	p := m.params
	if p.NumLabels() == 0 {
		return TrainResult{}, ErrNoLabels
	}
	if corpus == nil || corpus.Positions() == 0 {
		return TrainResult{}, ErrEmptyCorpus
	}
	if err := p.Validate(); err != nil {
		return TrainResult{}, err
	}

	var positions []Observation
	for _, seq := range corpus.Sequences {
		positions = append(positions, seq.Observations...)
	}
	n := len(positions)

	p.ResetWeights()
	sgd := newSGDL1(p.Weights)
	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15))

	result := TrainResult{}
	prevObjective := 0.0
	for epoch := range config.MaxIterations {
		sgd.startEpoch(config, epoch, n)
		rng.Shuffle(n, func(i, j int) { positions[i], positions[j] = positions[j], positions[i] })

		objective := 0.0
		correct := 0
		for _, obs := range positions {
			prob := m.Probabilities(obs)
			if argmax(prob) == obs.Label {
				correct++
			}
			m.update(sgd, obs, prob)
			objective -= math.Log(prob[obs.Label])
		}
		objective += config.L1Prior * l1Norm(p.Weights)

		result.Iterations = epoch + 1
		slog.Debug("MaxEnt training iteration", "iteration", epoch+1, "objective", objective,
			"accuracy", float64(correct)/float64(n))
		if converged(objective, prevObjective, config.Eta) {
			result.Converged = true
			break
		}
		prevObjective = objective
	}

	objective := 0.0
	correct := 0
	for _, obs := range positions {
		prob := m.Probabilities(obs)
		if argmax(prob) == obs.Label {
			correct++
		}
		objective -= math.Log(prob[obs.Label])
	}
	objective += config.L1Prior * l1Norm(p.Weights)
	result.Objective = objective
	result.Accuracy = float64(correct) / float64(n)
	slog.Info("MaxEnt training finished", "iterations", result.Iterations, "objective", objective,
		"accuracy", result.Accuracy, "converged", result.Converged)
	return result, nil
}

func (m *MaxEnt) update(sgd *sgdL1, obs Observation, prob []float64) {
	for _, f := range obs.Features {
		for _, e := range m.params.Index.Labels(f.ID) {
			if e.Label >= len(prob) {
				continue
			}
			if e.Label == obs.Label {
				sgd.step(e.Param, 1-prob[e.Label])
			} else {
				sgd.step(e.Param, -prob[e.Label])
			}
		}
	}
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
