package crf

import (
	"log/slog"
	"math"
	"math/rand/v2"
)

// TrainResult summarizes a training run, measured by the final pass over the
// training set.
type TrainResult struct {
	Iterations int
	Objective  float64 // negative log-likelihood plus L1 penalty
	Accuracy   float64 // per-position accuracy of Viterbi decoding
	Converged  bool
}

// sgdL1 carries the state of one stochastic gradient descent run with
// cumulative-penalty L1 regularization.
type sgdL1 struct {
	weights []float64
	penalty []float64 // L1 penalty actually applied to each weight so far
	rate    float64   // learning rate of the current epoch
	budget  float64   // cumulative L1 penalty every weight could have received
}

func newSGDL1(weights []float64) *sgdL1 {
	return &sgdL1{
		weights: weights,
		penalty: make([]float64, len(weights)),
	}
}

// startEpoch sets the epoch learning rate and grows the penalty budget.
// The epoch/n division is integral, so the rate only decays once the epoch
// count reaches the number of training positions.
func (s *sgdL1) startEpoch(config TrainerConfig, epoch, n int) {
	s.rate = config.InitialLearningRate / (1 + float64(epoch/n))
	s.budget += s.rate * config.L1Prior / float64(n)
}

// step moves weight id by the scaled gradient, then clips it toward zero by
// its outstanding penalty without crossing zero.
func (s *sgdL1) step(id int, gradient float64) {
	w := s.weights
	w[id] += s.rate * gradient

	z := w[id]
	if z > 0 {
		w[id] = math.Max(0, w[id]-(s.budget+s.penalty[id]))
	} else if z < 0 {
		w[id] = math.Min(0, w[id]+(s.budget-s.penalty[id]))
	}
	s.penalty[id] += w[id] - z
}

func l1Norm(weights []float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += math.Abs(w)
	}
	return sum
}

// converged compares the objectives of consecutive epochs.
func converged(cur, prev, eta float64) bool {
	return math.Abs(cur-prev)/(math.Abs(cur)+math.Abs(prev)) < eta
}

// Train fits the CRF weights on corpus. Weights are reset first; the
// alphabets and feature index are kept. Sequences are visited in a shuffled
// order per epoch, seeded by config.Seed.
func (c *CRF) Train(corpus *Corpus, config TrainerConfig) (TrainResult, error) {
	p := c.params
	if p.NumLabels() == 0 {
		return TrainResult{}, ErrNoLabels
	}
	if corpus == nil || corpus.Positions() == 0 {
		return TrainResult{}, ErrEmptyCorpus
	}
	if err := p.Validate(); err != nil {
		return TrainResult{}, err
	}

	p.BuildEdgeTable()
	p.ResetWeights()
	sgd := newSGDL1(p.Weights)

	n := corpus.Positions()
	order := &Corpus{Sequences: append([]Sequence(nil), corpus.Sequences...), positions: n}
	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15))

	result := TrainResult{}
	prevObjective := 0.0
	for epoch := range config.MaxIterations {
		sgd.startEpoch(config, epoch, n)
		order.Shuffle(rng)

		objective := 0.0
		correct := 0
		for _, seq := range order.Sequences {
			pot := c.potentials(seq)
			fb := ForwardBackward(pot)
			path, _ := Viterbi(pot)
			correct += countCorrect(seq, path)

			c.update(sgd, seq, fb)
			objective += c.negLogLikelihood(seq, fb)
		}
		objective += config.L1Prior * l1Norm(p.Weights)

		result.Iterations = epoch + 1
		slog.Debug("CRF training iteration", "iteration", epoch+1, "objective", objective,
			"accuracy", float64(correct)/float64(n))
		if converged(objective, prevObjective, config.Eta) {
			result.Converged = true
			break
		}
		prevObjective = objective
	}

	// Final pass without updates
	objective := 0.0
	correct := 0
	for _, seq := range corpus.Sequences {
		pot := c.potentials(seq)
		fb := ForwardBackward(pot)
		path, _ := Viterbi(pot)
		correct += countCorrect(seq, path)
		objective += c.negLogLikelihood(seq, fb)
	}
	objective += config.L1Prior * l1Norm(p.Weights)
	result.Objective = objective
	result.Accuracy = float64(correct) / float64(n)
	slog.Info("CRF training finished", "iterations", result.Iterations, "objective", objective,
		"accuracy", result.Accuracy, "converged", result.Converged)

	p.BuildEdgeTable()
	return result, nil
}

// update applies the gradient step of one sequence to its node and edge
// parameters.
func (c *CRF) update(sgd *sgdL1, seq Sequence, fb ForwardBackwardResult) {
	p := c.params
	L := p.NumLabels()
	marginals := fb.Marginals()
	prev := 0
	for t, obs := range seq.Observations {
		y := obs.Label

		for _, f := range obs.Features {
			for _, e := range p.Index.Labels(f.ID) {
				if e.Label >= L {
					continue
				}
				if e.Label == y {
					sgd.step(e.Param, 1-marginals[t][e.Label])
				} else {
					sgd.step(e.Param, -marginals[t][e.Label])
				}
			}
		}

		if t > 0 {
			edgeProb := fb.EdgeMarginals(t)
			for j := range L {
				for i := range L {
					id := p.edgeParam(i, j)
					if id < 0 {
						continue
					}
					if i == y && j == prev {
						sgd.step(id, 1-edgeProb[i][j])
					} else {
						sgd.step(id, -edgeProb[i][j])
					}
				}
			}
		}
		prev = y
	}
}

// negLogLikelihood returns -log P(gold | x). An underflowed likelihood is
// reported and contributes nothing.
func (c *CRF) negLogLikelihood(seq Sequence, fb ForwardBackwardResult) float64 {
	lik := fb.Likelihood(seq.Labels())
	if !(lik > 0) || math.IsInf(lik, 0) {
		slog.Warn("Sequence likelihood underflow", "sequence", seq.ID, "likelihood", lik)
		return 0
	}
	return -math.Log(lik)
}

func countCorrect(seq Sequence, path []int) int {
	n := 0
	for t, y := range path {
		if t < seq.Len() && seq.Observations[t].Label == y {
			n++
		}
	}
	return n
}
