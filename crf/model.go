package crf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// Model is a trainable sequence labeler over a Parameters store. CRF and
// MaxEnt implement it.
type Model interface {
	Kind() string
	Params() *Parameters
	Train(corpus *Corpus, config TrainerConfig) (TrainResult, error)
	Predict(seq Sequence) []int
}

// FormatVersion is the version of the persisted model layout.
const FormatVersion = 1

// envelope is the persisted form of a model.
type envelope struct {
	Version  int           `json:"version"`
	Type     string        `json:"type"`
	ID       uuid.UUID     `json:"id"`
	Labels   *Alphabet     `json:"labels"`
	Features *Alphabet     `json:"features"`
	Index    *FeatureIndex `json:"index"`
	Weights  []float64     `json:"weights"`
}

// Marshal serializes a model to JSON.
func Marshal(m Model) ([]byte, error) {
	p := m.Params()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Version:  FormatVersion,
		Type:     m.Kind(),
		ID:       p.ID,
		Labels:   p.Labels,
		Features: p.Features,
		Index:    p.Index,
		Weights:  p.Weights,
	})
}

// Unmarshal restores a model serialized by Marshal into m, replacing its
// parameters. The recorded type and version must match m.
func Unmarshal(data []byte, m Model) error {
	env := envelope{
		Labels:   NewAlphabet(),
		Features: NewAlphabet(),
		Index:    NewFeatureIndex(),
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	if env.Labels == nil || env.Features == nil || env.Index == nil {
		return fmt.Errorf("decode model: missing alphabets or index")
	}
	if env.Type != m.Kind() || env.Version != FormatVersion {
		return fmt.Errorf("%w: file holds %q v%d, want %q v%d",
			ErrModelType, env.Type, env.Version, m.Kind(), FormatVersion)
	}

	p := m.Params()
	p.ID = env.ID
	p.Labels = env.Labels
	p.Features = env.Features
	p.Index = env.Index
	p.Weights = env.Weights
	if p.Weights == nil {
		p.Weights = []float64{}
	}
	p.Counts = make([]float64, len(p.Weights))
	if err := p.Validate(); err != nil {
		return err
	}
	p.BuildEdgeTable()
	return nil
}

// Save writes a model to path. Paths ending in ".gz" are gzip-compressed.
func Save(m Model, path string) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if _, err := gz.Write(data); err != nil {
			_ = f.Close()
			return err
		}
		if err := gz.Close(); err != nil {
			_ = f.Close()
			return err
		}
	} else if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFile returns the serialized model stored at path, decompressing it
// when the path ends in ".gz".
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return io.ReadAll(r)
}

// Load reads a model saved by Save into m.
func Load(path string, m Model) error {
	data, err := ReadFile(path)
	if err != nil {
		return err
	}
	return Unmarshal(data, m)
}

// LoadCRF loads a linear-chain model from path.
func LoadCRF(path string) (*CRF, error) {
	m := New(NewParameters())
	if err := Load(path, m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewModel creates an empty model of the given kind.
func NewModel(kind string, params *Parameters) (Model, error) {
	switch kind {
	case KindCRF:
		return New(params), nil
	case KindMaxEnt:
		return NewMaxEnt(params), nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrModelType, kind)
}

// Kind reads the model type recorded in serialized data.
func Kind(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	return head.Type, nil
}
