package corpus

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/happyhackingspace/openie/crf"
)

const sample = `# toy corpus
# source: https://news.example.co.uk/a
ENT p=ENT w=Paris
REL p=VBZ w=is
NP p=NP

O p=DT
ENT p=ENT
# source: http://other.org/b


B p=VB
lonely
C p=IN w=of
`

func TestRead(t *testing.T) {
	p := crf.NewParameters()
	c, err := Read(strings.NewReader(sample), p, Options{
		Create:         true,
		Transitions:    true,
		ReservedLabels: []string{"NP", "ENT"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 4 || c.Positions() != 7 {
		t.Fatalf("Len = %d, Positions = %d; want 4, 7", c.Len(), c.Positions())
	}
	for i, seq := range c.Sequences {
		if seq.ID != i {
			t.Errorf("sequence %d has ID %d", i, seq.ID)
		}
	}
	wantGroups := []string{"example", "example", "other", "other"}
	if !reflect.DeepEqual(c.Groups, wantGroups) {
		t.Errorf("Groups = %v, want %v", c.Groups, wantGroups)
	}

	if got := p.Labels.Tokens(); !reflect.DeepEqual(got[:3], []string{"NP", "ENT", "REL"}) {
		t.Errorf("labels = %v", got)
	}
	first := c.Sequences[0]
	if !reflect.DeepEqual(first.Labels(), []int{1, 2, 0}) {
		t.Errorf("labels of first sequence = %v", first.Labels())
	}
	if len(first.Observations[0].Features) != 2 {
		t.Errorf("features = %v", first.Observations[0].Features)
	}

	p.BuildEdgeTable()
	ent, rel, np := p.Labels.Get("ENT"), p.Labels.Get("REL"), p.Labels.Get("NP")
	edges := p.EdgeTable()
	if edges[rel][ent] < 0 || edges[np][rel] < 0 {
		t.Error("gold transitions not registered")
	}
	if edges[ent][np] >= 0 {
		t.Error("transition across a sentence boundary was registered")
	}
}

func TestReadReadOnly(t *testing.T) {
	p := crf.NewParameters()
	if _, err := Read(strings.NewReader("A x y\nB z\n"), p, Options{Create: true}); err != nil {
		t.Fatal(err)
	}
	params := p.NumParams()

	c, err := Read(strings.NewReader("A x unseen\nC z\n"), p, Options{ReservedLabels: []string{"Q"}})
	if err != nil {
		t.Fatal(err)
	}
	if p.NumParams() != params || p.NumLabels() != 2 || p.NumFeatures() != 3 {
		t.Error("read-only corpus grew the store")
	}
	obs := c.Sequences[0].Observations
	if len(obs[0].Features) != 1 || obs[1].Label != -1 {
		t.Errorf("observations = %+v", obs)
	}
	if c.Groups[0] != "" {
		t.Errorf("group = %q, want empty", c.Groups[0])
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.txt")
	if err := os.WriteFile(path, []byte("A x\nB y"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := ReadFile(path, crf.NewParameters(), Options{Create: true})
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 || c.Positions() != 2 {
		t.Errorf("Len = %d, Positions = %d", c.Len(), c.Positions())
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing"), crf.NewParameters(), Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSubsetAndGroups(t *testing.T) {
	p := crf.NewParameters()
	c, err := Read(strings.NewReader(sample), p, Options{Create: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.GroupIDs(); !reflect.DeepEqual(got, []int{0, 0, 1, 1}) {
		t.Errorf("GroupIDs = %v", got)
	}
	sub := c.Subset([]int{3, 0})
	if sub.Len() != 2 || !reflect.DeepEqual(sub.Groups, []string{"other", "example"}) {
		t.Errorf("Subset = %d sequences, groups %v", sub.Len(), sub.Groups)
	}

	ungrouped := &Corpus{Groups: []string{"", "a", "", "a"}}
	if got := ungrouped.GroupIDs(); !reflect.DeepEqual(got, []int{0, 1, 2, 1}) {
		t.Errorf("GroupIDs = %v", got)
	}
}

func TestGetDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://example.org/page", "example"},
		{"https://foo.example.co.uk/path", "example"},
		{"http://www.google.com", "google"},
		{"example.org", "example"},
		{"http://localhost:8080/path", "localhost"},
	}
	for _, tt := range tests {
		got := GetDomain(tt.url)
		if got != tt.want {
			t.Errorf("GetDomain(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestReadOptions(t *testing.T) {
	input := `# experiment
class crf
train_file=data/train.txt
maxiter	50
l1prior = 0.5
maxiter 10
empty
`
	opts, err := ReadOptions(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"class":      "crf",
		"train_file": "data/train.txt",
		"maxiter":    "50",
		"l1prior":    "0.5",
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("opts = %v, want %v", opts, want)
	}
}
