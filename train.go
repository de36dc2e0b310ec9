package openie

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/happyhackingspace/openie/crf"
	"github.com/happyhackingspace/openie/internal/corpus"
)

// TrainConfig holds configuration for training.
type TrainConfig struct {
	Kind           string            // crf.KindCRF (default) or crf.KindMaxEnt
	Options        map[string]string // trainer options, see crf.ParseOptions
	ReservedLabels []string          // labels registered first, in order
}

func (c *TrainConfig) kind() string {
	if c == nil || c.Kind == "" {
		return crf.KindCRF
	}
	return c.Kind
}

func (c *TrainConfig) trainer() (crf.TrainerConfig, error) {
	if c == nil {
		return crf.DefaultTrainerConfig(), nil
	}
	return crf.ParseOptions(c.Options)
}

func (c *TrainConfig) readOptions() corpus.Options {
	opts := corpus.Options{Create: true}
	opts.Transitions = c.kind() == crf.KindCRF
	if c != nil {
		opts.ReservedLabels = c.ReservedLabels
	}
	return opts
}

// EvalConfig holds configuration for evaluation.
type EvalConfig struct {
	TrainConfig
	Folds   int // default 10
	Workers int // parallel decoders, default GOMAXPROCS
}

// EvalResult holds cross-validation evaluation results.
type EvalResult struct {
	Folds            int
	Eval             *crf.Evaluation
	SequenceCorrect  int
	SequenceTotal    int
	SequenceAccuracy float64
}

// Accuracy returns the per-position accuracy.
func (r *EvalResult) Accuracy() float64 {
	return r.Eval.Accuracy()
}

// Train trains a model on a column-format corpus file.
func Train(path string, config *TrainConfig) (*Model, error) {
	trainer, err := config.trainer()
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	m, err := crf.NewModel(config.kind(), crf.NewParameters())
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	data, err := corpus.ReadFile(path, m.Params(), config.readOptions())
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	if data.Len() == 0 {
		return nil, fmt.Errorf("openie: no sequences found in %s", path)
	}
	if _, err := m.Train(data.Corpus, trainer); err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	return &Model{m: m}, nil
}

// Test decodes a labeled corpus file with the model and scores it. The
// corpus is read without growing the model.
func (m *Model) Test(ctx context.Context, path string, workers int) (*EvalResult, error) {
	data, err := corpus.ReadFile(path, m.Params(), corpus.Options{})
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	result := &EvalResult{Eval: crf.NewEvaluation(m.Params().Labels)}
	if err := score(ctx, m.m, data.Sequences, workers, result); err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	result.finish()
	return result, nil
}

// Evaluate runs grouped k-fold cross-validation on a corpus file. Sequences
// sharing a source domain stay in the same fold.
func Evaluate(ctx context.Context, path string, config *EvalConfig) (*EvalResult, error) {
	if config == nil {
		config = &EvalConfig{}
	}
	nFolds := config.Folds
	if nFolds <= 0 {
		nFolds = 10
	}
	trainer, err := config.trainer()
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}

	m, err := crf.NewModel(config.kind(), crf.NewParameters())
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	data, err := corpus.ReadFile(path, m.Params(), config.readOptions())
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	if data.Len() < 2 {
		return nil, fmt.Errorf("openie: need at least 2 sequences for cross-validation, found %d in %s", data.Len(), path)
	}

	folds := groupKFold(data.GroupIDs(), nFolds)
	if len(folds) < 2 {
		return nil, fmt.Errorf("openie: need sequences from at least 2 sources for cross-validation, found %d in %s", len(folds), path)
	}
	result := &EvalResult{Folds: len(folds), Eval: crf.NewEvaluation(m.Params().Labels)}
	for i, testIdx := range folds {
		testSet := makeTestSet(data.Len(), testIdx)
		var trainIdx []int
		for j := range data.Len() {
			if !testSet[j] {
				trainIdx = append(trainIdx, j)
			}
		}

		// The store already holds every feature; weights of features seen
		// only in the held-out fold stay zero.
		if _, err := m.Train(data.Subset(trainIdx).Corpus, trainer); err != nil {
			return nil, fmt.Errorf("openie: fold %d: %w", i, err)
		}
		test := data.Subset(testIdx)
		if err := score(ctx, m, test.Sequences, config.Workers, result); err != nil {
			return nil, fmt.Errorf("openie: fold %d: %w", i, err)
		}
		slog.Info("Fold evaluated", "fold", i+1, "folds", len(folds),
			"train", len(trainIdx), "test", len(testIdx), "accuracy", result.Eval.Accuracy())
	}
	result.finish()
	return result, nil
}

func (r *EvalResult) finish() {
	if r.SequenceTotal > 0 {
		r.SequenceAccuracy = float64(r.SequenceCorrect) / float64(r.SequenceTotal)
	}
}

// score decodes sequences in parallel and adds them to result.
func score(ctx context.Context, m crf.Model, seqs []crf.Sequence, workers int, result *EvalResult) error {
	preds, err := predictAll(ctx, m, seqs, workers)
	if err != nil {
		return err
	}
	for i, seq := range seqs {
		gold := seq.Labels()
		result.Eval.Add(gold, preds[i])
		if slices.Equal(gold, preds[i]) {
			result.SequenceCorrect++
		}
		result.SequenceTotal++
	}
	return nil
}

// predictAll decodes every sequence with a bounded pool of workers.
func predictAll(ctx context.Context, m crf.Model, seqs []crf.Sequence, workers int) ([][]int, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	preds := make([][]int, len(seqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seq := range seqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			preds[i] = m.Predict(seq)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

// groupKFold assigns whole groups to folds round-robin in group order.
func groupKFold(groups []int, nFolds int) [][]int {
	uniqueGroups := make(map[int]bool)
	for _, g := range groups {
		uniqueGroups[g] = true
	}
	sortedGroups := make([]int, 0, len(uniqueGroups))
	for g := range uniqueGroups {
		sortedGroups = append(sortedGroups, g)
	}
	slices.Sort(sortedGroups)

	if nFolds > len(sortedGroups) {
		nFolds = len(sortedGroups)
	}

	groupToFold := make(map[int]int)
	for i, g := range sortedGroups {
		groupToFold[g] = i % nFolds
	}

	folds := make([][]int, nFolds)
	for i, g := range groups {
		fold := groupToFold[g]
		folds[fold] = append(folds[fold], i)
	}
	return folds
}

func makeTestSet(n int, testIdx []int) []bool {
	set := make([]bool, n)
	for _, i := range testIdx {
		set[i] = true
	}
	return set
}
