package openie

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/happyhackingspace/openie/crf"
)

const annotated = `# source: https://en.wikipedia.org/wiki/Obama
Obama/NNP/B-ENT was/VBD/REL born/VBN/REL in/IN/REL Hawaii/NNP/B-ENT ././O
Einstein/NNP/B-ENT was/VBD/REL born/VBN/REL in/IN/REL Ulm/NNP/B-ENT ././O
# source: https://news.example.com/tech
Google/NNP/B-ENT acquired/VBD/REL YouTube/NNP/B-ENT ././O
Curie/NNP/B-ENT was/VBZ/REL born/NN/REL in/IN/REL Warsaw/NNP/B-ENT
`

var testOptions = map[string]string{"l1prior": "0", "maxiter": "100"}

// writeCorpus featurizes the annotated sentences into dir and returns the
// corpus path.
func writeCorpus(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	n, err := Featurize(&b, strings.NewReader(annotated), DefaultLabelRoles())
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("Featurize wrote %d sentences, want 4", n)
	}
	path := filepath.Join(dir, "train.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func trainModel(t *testing.T) (*Model, string) {
	t.Helper()
	path := writeCorpus(t, t.TempDir())
	m, err := Train(path, &TrainConfig{Options: testOptions})
	if err != nil {
		t.Fatal(err)
	}
	return m, path
}

func TestFeaturize(t *testing.T) {
	var b strings.Builder
	if _, err := Featurize(&b, strings.NewReader(annotated), DefaultLabelRoles()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(b.String(), "\n")
	if lines[0] != "# source: https://en.wikipedia.org/wiki/Obama" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "ENT p=ENT regex=Aa") {
		t.Errorf("entity line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "REL p=VBD w=was") {
		t.Errorf("verb line = %q", lines[2])
	}
	// The window ends at the second entity.
	if lines[5] == "" || lines[6] != "" {
		t.Errorf("sentence boundary misplaced: %q / %q", lines[5], lines[6])
	}

	if _, err := Featurize(&b, strings.NewReader("bad"), DefaultLabelRoles()); err == nil {
		t.Error("expected error for a malformed token")
	}
}

func TestTrainAndExtract(t *testing.T) {
	m, _ := trainModel(t)
	if m.Kind() != crf.KindCRF {
		t.Errorf("Kind = %q", m.Kind())
	}
	if !reflect.DeepEqual(m.Labels(), []string{"ENT", "REL"}) {
		t.Errorf("Labels = %v", m.Labels())
	}

	ex := NewExtractor(m, DefaultLabelRoles())
	tuples, err := ex.ExtractLine("Curie/NNP/B-NP was/VBD/B-VP born/VBN/I-VP in/IN/B-PP Paris/NNP/B-NP ././O")
	if err != nil {
		t.Fatal(err)
	}
	want := []Tuple{{Arg1: "Curie", Rel: "was born in", Arg2: "Paris"}}
	if !reflect.DeepEqual(tuples, want) {
		t.Fatalf("ExtractLine = %+v, want %+v", tuples, want)
	}
	if got := tuples[0].String(); got != "<Curie, was born in, Paris>" {
		t.Errorf("String = %q", got)
	}

	if got, _ := ex.ExtractLine("Paris/NNP/B-NP of/IN/B-PP France/NNP/B-NP"); len(got) != 0 {
		t.Errorf("no verb between arguments: %+v", got)
	}
	if _, err := ex.ExtractLine("broken"); err == nil {
		t.Error("expected parse error")
	}
}

func TestExtractTagged(t *testing.T) {
	m, _ := trainModel(t)
	ex := NewExtractor(m, DefaultLabelRoles())
	in := "Google/NNP/B-NP acquired/VBD/B-VP YouTube/NNP/B-NP ././O\n\n# comment\n"
	got, err := ex.ExtractTagged(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("%d lines, want 3", len(got))
	}
	want := []Tuple{{Arg1: "Google", Rel: "acquired", Arg2: "YouTube"}}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("line 1 = %+v", got[0])
	}
	if got[1] != nil || got[2] != nil {
		t.Errorf("blank and comment lines should be empty: %+v", got[1:])
	}
}

func TestExtractTextAndHTML(t *testing.T) {
	m, _ := trainModel(t)
	ex := NewExtractor(m, DefaultLabelRoles())
	want := []Tuple{{Arg1: "Curie", Rel: "was born in", Arg2: "Warsaw"}}

	if got := ex.ExtractText("Curie was born in Warsaw. Nothing here."); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractText = %+v", got)
	}

	html := `<html><head><title>Curie</title></head><body><p>Curie was born in Warsaw.</p><script>var x;</script></body></html>`
	got, err := ex.ExtractHTML(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractHTML = %+v", got)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("Hello world! Is it? Yes. trailing")
	want := [][]string{{"Hello", "world", "!"}, {"Is", "it", "?"}, {"Yes", "."}, {"trailing"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences = %v", got)
	}
}

func TestSaveLoad(t *testing.T) {
	m, _ := trainModel(t)
	path := filepath.Join(t.TempDir(), "model.json.gz")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Kind() != m.Kind() || loaded.Params().ID != m.Params().ID {
		t.Errorf("loaded %s/%s, want %s/%s", loaded.Kind(), loaded.Params().ID, m.Kind(), m.Params().ID)
	}

	tokens := [][]string{{"p=ENT", "regex=Aa"}, {"p=VBD", "w=acquired"}, {"p=ENT", "regex=AaAa"}}
	if a, b := m.Tag(tokens), loaded.Tag(tokens); !reflect.DeepEqual(a, b) {
		t.Errorf("Tag differs after reload: %v vs %v", a, b)
	}
	if a, b := m.Marginals(tokens, nil), loaded.Marginals(tokens, nil); !reflect.DeepEqual(a, b) {
		t.Errorf("Marginals differ after reload")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing file")
	}
	var empty *Model
	if err := empty.Save(path); err == nil {
		t.Error("expected error saving a nil model")
	}
}

func TestTagAndMarginals(t *testing.T) {
	m, _ := trainModel(t)
	tokens := [][]string{{"p=ENT", "regex=Aa"}, {"p=VBD", "w=was"}, {"unknown"}}
	labels := m.Tag(tokens)
	if len(labels) != 3 || labels[0] != "ENT" || labels[1] != "REL" {
		t.Errorf("Tag = %v", labels)
	}
	before := m.Params().NumFeatures()
	for t2, row := range m.Marginals(tokens, [][]float64{{1, 1}}) {
		var sum float64
		for _, p := range row {
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d sums to %v", t2, sum)
		}
	}
	if m.Params().NumFeatures() != before {
		t.Error("decoding grew the feature alphabet")
	}
}

func TestTrainMaxEnt(t *testing.T) {
	path := writeCorpus(t, t.TempDir())
	m, err := Train(path, &TrainConfig{Kind: crf.KindMaxEnt, Options: testOptions})
	if err != nil {
		t.Fatal(err)
	}
	if m.Kind() != crf.KindMaxEnt {
		t.Errorf("Kind = %q", m.Kind())
	}
	res, err := m.Test(context.Background(), path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Accuracy() != 1 {
		t.Errorf("training accuracy = %v", res.Accuracy())
	}
	for _, row := range m.Marginals([][]string{{"p=ENT"}}, nil) {
		if len(row) != 2 {
			t.Errorf("probabilities = %v", row)
		}
	}
}

func TestTrainErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("# nothing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Train(empty, nil); err == nil {
		t.Error("expected error for an empty corpus")
	}
	if _, err := Train(filepath.Join(dir, "missing.txt"), nil); err == nil {
		t.Error("expected error for a missing corpus")
	}
	path := writeCorpus(t, dir)
	if _, err := Train(path, &TrainConfig{Kind: "svm"}); err == nil {
		t.Error("expected error for an unknown kind")
	}
	if _, err := Train(path, &TrainConfig{Options: map[string]string{"maxiter": "many"}}); err == nil {
		t.Error("expected error for a bad option")
	}
}

func TestModelTest(t *testing.T) {
	m, path := trainModel(t)
	res, err := m.Test(context.Background(), path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Eval.Total != 18 || res.SequenceTotal != 4 {
		t.Errorf("scored %d positions in %d sequences, want 18 in 4", res.Eval.Total, res.SequenceTotal)
	}
	if res.Accuracy() != 1 || res.SequenceAccuracy != 1 {
		t.Errorf("accuracy = %v / %v", res.Accuracy(), res.SequenceAccuracy)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Test(ctx, path, 1); err == nil {
		t.Error("expected error for a cancelled context")
	}
}

func TestEvaluate(t *testing.T) {
	path := writeCorpus(t, t.TempDir())
	res, err := Evaluate(context.Background(), path, &EvalConfig{
		TrainConfig: TrainConfig{Options: testOptions},
		Folds:       5,
		Workers:     2,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Two source domains cap the number of folds.
	if res.Folds != 2 {
		t.Errorf("Folds = %d, want 2", res.Folds)
	}
	if res.Eval.Total != 18 || res.SequenceTotal != 4 {
		t.Errorf("scored %d positions in %d sequences", res.Eval.Total, res.SequenceTotal)
	}
	if res.SequenceCorrect > res.SequenceTotal || res.Eval.Correct > res.Eval.Total {
		t.Errorf("inconsistent counts: %+v", res)
	}

	one := filepath.Join(t.TempDir(), "one.txt")
	if err := os.WriteFile(one, []byte("ENT p=ENT\nREL w=was\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Evaluate(context.Background(), one, nil); err == nil {
		t.Error("expected error for a single sequence")
	}

	// Every sentence from one source leaves no training fold.
	var b strings.Builder
	if _, err := Featurize(&b, strings.NewReader(strings.Replace(annotated, "# source: https://news.example.com/tech\n", "", 1)), DefaultLabelRoles()); err != nil {
		t.Fatal(err)
	}
	single := filepath.Join(t.TempDir(), "single.txt")
	if err := os.WriteFile(single, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Evaluate(context.Background(), single, &EvalConfig{
		TrainConfig: TrainConfig{Options: testOptions},
		Folds:       3,
	}); err == nil || !strings.Contains(err.Error(), "at least 2 sources") {
		t.Errorf("single source: err = %v", err)
	}
}

func TestGroupKFold(t *testing.T) {
	folds := groupKFold([]int{2, 0, 1, 0, 2}, 2)
	want := [][]int{{0, 1, 3, 4}, {2}}
	if !reflect.DeepEqual(folds, want) {
		t.Errorf("groupKFold = %v, want %v", folds, want)
	}
	if got := groupKFold([]int{0, 1}, 10); len(got) != 2 {
		t.Errorf("folds capped at %d, want 2", len(got))
	}
	set := makeTestSet(4, []int{1, 3})
	if !reflect.DeepEqual(set, []bool{false, true, false, true}) {
		t.Errorf("makeTestSet = %v", set)
	}
}

func TestRunExperiment(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpus(t, dir)
	modelPath := filepath.Join(dir, "exp.json.gz")
	opts := map[string]string{
		"class":      "crf",
		"train_file": path,
		"train":      "true",
		"model_file": modelPath,
		"test_file":  path,
		"test":       "true",
		"l1prior":    "0",
	}
	res, err := RunExperiment(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != crf.KindCRF || res.Train == nil || res.Test == nil {
		t.Fatalf("result = %+v", res)
	}
	if res.Test.Accuracy() != 1 {
		t.Errorf("accuracy = %v", res.Test.Accuracy())
	}
	if _, err := os.Stat(modelPath); err != nil {
		t.Errorf("model not saved: %v", err)
	}

	// The saved model was trained with the reserved labels first.
	loaded, err := Load(modelPath)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Labels(), []string{"ENT", "NP", "REL"}) {
		t.Errorf("labels = %v", loaded.Labels())
	}

	res, err = RunExperiment(context.Background(), map[string]string{
		"train_file": path, "train": "true", "l1prior": "0",
		"test_file": path, "test": "true",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != crf.KindMaxEnt || res.Test.Accuracy() != 1 {
		t.Errorf("maxent run = %s accuracy %v", res.Kind, res.Test.Accuracy())
	}

	if _, err := RunExperiment(context.Background(), map[string]string{"test_file": path}); err == nil {
		t.Error("expected error testing without a model")
	}
	if _, err := RunExperiment(context.Background(), map[string]string{"train": "maybe"}); err == nil {
		t.Error("expected error for a bad boolean")
	}
}

func TestFindModel(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "model.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	path, err := findModel(ModelNames)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "model.json" {
		t.Errorf("found %q", path)
	}
	if _, err := findModel([]string{"nope.json"}); err == nil {
		t.Error("expected error when no model exists")
	}
}
