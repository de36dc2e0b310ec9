// Package openie trains linear-chain CRF sequence labelers and uses them to
// extract binary relation tuples from tagged text.
//
//	m, _ := openie.Train("train.txt", nil)
//	ex := openie.NewExtractor(m, openie.DefaultLabelRoles())
//	tuples, _ := ex.ExtractLine("Obama/NNP/B-NP was/VBD/B-VP born/VBN/I-VP in/IN/B-PP Hawaii/NNP/B-NP")
//	for _, t := range tuples {
//	    fmt.Println(t) // <Obama, was born in, Hawaii>
//	}
package openie

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/happyhackingspace/openie/crf"
	"github.com/happyhackingspace/openie/internal/features"
)

// LabelRoles names the labels with a fixed meaning for extraction.
type LabelRoles = features.Roles

// DefaultLabelRoles returns the ENT / NP / REL / O scheme.
func DefaultLabelRoles() LabelRoles {
	return features.DefaultRoles()
}

// Model wraps a trained sequence labeler.
type Model struct {
	m crf.Model
}

// ModelNames are the file names New looks for, in order.
var ModelNames = []string{"model.json.gz", "model.json"}

// New loads the model from the first of ModelNames found in the current
// directory or its parents, up to the module root (where go.mod lives).
func New() (*Model, error) {
	path, err := findModel(ModelNames)
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	return Load(path)
}

func findModel(names []string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		// Stop at module root
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no model file found (looked for %v)", names)
}

// NewModel wraps an existing crf.Model.
func NewModel(m crf.Model) *Model {
	return &Model{m: m}
}

// Load loads a model file of any kind. Files ending in ".gz" are
// gzip-compressed.
func Load(path string) (*Model, error) {
	data, err := crf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	kind, err := crf.Kind(data)
	if err != nil {
		return nil, fmt.Errorf("openie: %s: %w", path, err)
	}
	m, err := crf.NewModel(kind, nil)
	if err != nil {
		return nil, fmt.Errorf("openie: %s: %w", path, err)
	}
	if err := crf.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("openie: %s: %w", path, err)
	}
	return &Model{m: m}, nil
}

// Save writes the model to path.
func (m *Model) Save(path string) error {
	if m == nil || m.m == nil {
		return fmt.Errorf("openie: model not initialized")
	}
	if err := crf.Save(m.m, path); err != nil {
		return fmt.Errorf("openie: %w", err)
	}
	return nil
}

// Kind returns the model kind ("crf" or "maxent").
func (m *Model) Kind() string { return m.m.Kind() }

// Params returns the model's parameter store.
func (m *Model) Params() *crf.Parameters { return m.m.Params() }

// Labeler returns the underlying model.
func (m *Model) Labeler() crf.Model { return m.m }

// Labels returns the label alphabet in ID order.
func (m *Model) Labels() []string {
	return append([]string(nil), m.Params().Labels.Tokens()...)
}

// Tag labels a sequence given as feature tokens per position. Unknown
// tokens are ignored and the model is not modified.
func (m *Model) Tag(tokens [][]string) []string {
	return m.TagValues(tokens, nil)
}

// TagValues is Tag with explicit feature values.
func (m *Model) TagValues(tokens [][]string, values [][]float64) []string {
	p := m.Params()
	return crf.LabelTokens(p.Labels, m.m.Predict(p.PackValues(tokens, values)))
}

// Marginals returns per-position label probabilities. Linear-chain models
// report P(y_t | x); flat models report their per-position distribution.
func (m *Model) Marginals(tokens [][]string, values [][]float64) [][]float64 {
	seq := m.Params().PackValues(tokens, values)
	switch lm := m.m.(type) {
	case *crf.CRF:
		return lm.Marginals(seq)
	case *crf.MaxEnt:
		out := make([][]float64, seq.Len())
		for t, obs := range seq.Observations {
			out[t] = lm.Probabilities(obs)
		}
		return out
	}
	return nil
}
