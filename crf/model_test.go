package crf

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func trainedCRF(t *testing.T) (*CRF, *Corpus) {
	t.Helper()
	p := NewParameters()
	c := separableCorpus(p, 12)
	config := DefaultTrainerConfig()
	config.MaxIterations = 10
	model := New(p)
	if _, err := model.Train(c, config); err != nil {
		t.Fatal(err)
	}
	return model, c
}

func assertSameDecoding(t *testing.T, a, b *CRF, c *Corpus) {
	t.Helper()
	for _, seq := range c.Sequences {
		if !reflect.DeepEqual(a.Predict(seq), b.Predict(seq)) {
			t.Errorf("sequence %d: labels differ after round trip", seq.ID)
		}
		if !reflect.DeepEqual(a.Marginals(seq), b.Marginals(seq)) {
			t.Errorf("sequence %d: marginals differ after round trip", seq.ID)
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	model, c := trainedCRF(t)
	data, err := Marshal(model)
	if err != nil {
		t.Fatal(err)
	}
	if kind, err := Kind(data); err != nil || kind != KindCRF {
		t.Errorf("Kind = %q, %v", kind, err)
	}

	loaded := New(nil)
	if err := Unmarshal(data, loaded); err != nil {
		t.Fatal(err)
	}
	lp, mp := loaded.Params(), model.Params()
	if lp.ID != mp.ID {
		t.Errorf("ID = %v, want %v", lp.ID, mp.ID)
	}
	if !reflect.DeepEqual(lp.Labels.Tokens(), mp.Labels.Tokens()) ||
		!reflect.DeepEqual(lp.Features.Tokens(), mp.Features.Tokens()) {
		t.Error("alphabets differ after round trip")
	}
	if !reflect.DeepEqual(lp.Weights, mp.Weights) {
		t.Error("weights differ after round trip")
	}
	if !reflect.DeepEqual(lp.EdgeTable(), mp.EdgeTable()) {
		t.Errorf("edge table = %v, want %v", lp.EdgeTable(), mp.EdgeTable())
	}
	assertSameDecoding(t, model, loaded, c)
}

func TestSaveLoad(t *testing.T) {
	model, c := trainedCRF(t)
	dir := t.TempDir()
	for _, name := range []string{"model.json", "model.json.gz"} {
		path := filepath.Join(dir, name)
		if err := Save(model, path); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		loaded, err := LoadCRF(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		assertSameDecoding(t, model, loaded, c)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "model.json.gz"))
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		t.Error(".gz model is not gzip-framed")
	}
}

func TestUnmarshalTypeMismatch(t *testing.T) {
	model, _ := trainedCRF(t)
	data, err := Marshal(model)
	if err != nil {
		t.Fatal(err)
	}
	if err := Unmarshal(data, NewMaxEnt(nil)); !errors.Is(err, ErrModelType) {
		t.Errorf("CRF into MaxEnt: %v, want ErrModelType", err)
	}

	bumped := strings.Replace(string(data), `"version":1`, `"version":2`, 1)
	if err := Unmarshal([]byte(bumped), New(nil)); !errors.Is(err, ErrModelType) {
		t.Errorf("future version: %v, want ErrModelType", err)
	}
}

func TestUnmarshalInconsistent(t *testing.T) {
	data := `{"version":1,"type":"crf","labels":["A"],"features":["x"],"index":[[[0,0]]],"weights":[0.5,1]}`
	if err := Unmarshal([]byte(data), New(nil)); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Unmarshal = %v, want ErrInconsistent", err)
	}
	if err := Unmarshal([]byte(`{"version":1,"type":"crf","labels":null}`), New(nil)); err == nil {
		t.Error("expected error for missing alphabets")
	}
	if err := Unmarshal([]byte(`not json`), New(nil)); err == nil {
		t.Error("expected decode error")
	}
}

func TestMaxEntRoundTrip(t *testing.T) {
	p := NewParameters()
	c := separableCorpus(p, 8)
	config := DefaultTrainerConfig()
	config.MaxIterations = 5
	model := NewMaxEnt(p)
	if _, err := model.Train(c, config); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "maxent.gz")
	if err := Save(model, path); err != nil {
		t.Fatal(err)
	}
	loaded := NewMaxEnt(nil)
	if err := Load(path, loaded); err != nil {
		t.Fatal(err)
	}
	for _, seq := range c.Sequences {
		if !reflect.DeepEqual(model.Predict(seq), loaded.Predict(seq)) {
			t.Errorf("sequence %d: MaxEnt labels differ after round trip", seq.ID)
		}
	}
	if _, err := LoadCRF(path); !errors.Is(err, ErrModelType) {
		t.Errorf("LoadCRF on MaxEnt file: %v, want ErrModelType", err)
	}
}

func TestNewModel(t *testing.T) {
	for _, kind := range []string{KindCRF, KindMaxEnt} {
		m, err := NewModel(kind, nil)
		if err != nil || m.Kind() != kind {
			t.Errorf("NewModel(%q) = %v, %v", kind, m, err)
		}
	}
	if _, err := NewModel("hmm", nil); !errors.Is(err, ErrModelType) {
		t.Errorf("unknown kind: %v", err)
	}
}
