// Package crf implements a linear-chain Conditional Random Field trained with
// online gradient descent and lazy L1 regularization.
//
// Observations are sparse feature vectors resolved against a Parameters store,
// which owns the label and feature alphabets, the (feature, label) parameter
// index and the weight vector. The same store serves training (create-mode
// lookups grow it) and decoding (read-only lookups skip unseen features).
package crf

import (
	"encoding/json"
	"errors"
)

var (
	// ErrInconsistent reports a broken Parameters invariant: the weight vector
	// and the feature index disagree in size.
	ErrInconsistent = errors.New("crf: weight vector and feature index out of sync")
	// ErrModelType reports a persisted model whose type or version does not
	// match the model loading it.
	ErrModelType = errors.New("crf: model type mismatch")
	// ErrEmptyCorpus is returned when training on a corpus with no positions.
	ErrEmptyCorpus = errors.New("crf: empty corpus")
	// ErrNoLabels is returned when training with an empty label alphabet.
	ErrNoLabels = errors.New("crf: no labels")
)

// Alphabet maps between string tokens and dense integer IDs.
// IDs are assigned in insertion order starting at 0.
type Alphabet struct {
	toID  map[string]int
	toStr []string
}

// NewAlphabet creates an empty alphabet.
func NewAlphabet() *Alphabet {
	return &Alphabet{
		toID: make(map[string]int),
	}
}

// Lookup returns the ID for s. When grow is true an unseen token is added;
// otherwise unseen tokens yield -1.
func (a *Alphabet) Lookup(s string, grow bool) int {
	if id, ok := a.toID[s]; ok {
		return id
	}
	if !grow {
		return -1
	}
	id := len(a.toStr)
	a.toID[s] = id
	a.toStr = append(a.toStr, s)
	return id
}

// Add adds a string to the alphabet if not already present, returns its ID.
func (a *Alphabet) Add(s string) int {
	return a.Lookup(s, true)
}

// Get returns the ID for a string, or -1 if not found.
func (a *Alphabet) Get(s string) int {
	return a.Lookup(s, false)
}

// Token returns the token for id.
func (a *Alphabet) Token(id int) (string, bool) {
	if id < 0 || id >= len(a.toStr) {
		return "", false
	}
	return a.toStr[id], true
}

// Tokens returns the tokens in ID order. The slice must not be modified.
func (a *Alphabet) Tokens() []string {
	return a.toStr
}

// Size returns the number of entries.
func (a *Alphabet) Size() int {
	return len(a.toStr)
}

// Clear removes all entries.
func (a *Alphabet) Clear() {
	a.toID = make(map[string]int)
	a.toStr = nil
}

// MarshalJSON encodes the alphabet as its ordered token list.
func (a *Alphabet) MarshalJSON() ([]byte, error) {
	tokens := a.toStr
	if tokens == nil {
		tokens = []string{}
	}
	return json.Marshal(tokens)
}

// UnmarshalJSON rebuilds the alphabet from an ordered token list.
func (a *Alphabet) UnmarshalJSON(data []byte) error {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	a.Clear()
	for _, tok := range tokens {
		a.Add(tok)
	}
	return nil
}
