package openie

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/happyhackingspace/openie/crf"
	"github.com/happyhackingspace/openie/internal/corpus"
)

// DefaultReservedLabels are registered first when an experiment does not
// name its own, so that entity and phrase labels get the lowest IDs.
var DefaultReservedLabels = []string{"ENT", "NP"}

// ExperimentResult reports what an experiment run did.
type ExperimentResult struct {
	Kind  string
	Train *crf.TrainResult // nil when no training ran
	Test  *EvalResult      // nil when no test ran
}

// RunExperiment runs a train / save / load / test cycle described by a flat
// option set, as read by corpus.ReadOptionsFile:
//
//	class       crf or maxent (default maxent)
//	train_file  corpus read with a growing store
//	train       true to fit weights on train_file
//	model_file  where the model is saved after training and loaded before testing
//	test_file   corpus decoded and scored
//	test        true to score test_file
//	labels      comma-separated reserved labels (default ENT,NP)
//
// Trainer keys (maxiter, l1prior, ...) are passed to crf.ParseOptions.
func RunExperiment(ctx context.Context, opts map[string]string) (*ExperimentResult, error) {
	kind := strings.ToLower(opts["class"])
	if kind == "" {
		kind = crf.KindMaxEnt
	}
	flag := func(key string) (bool, error) {
		v, ok := opts[key]
		if !ok {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("openie: option %s: %w", key, err)
		}
		return b, nil
	}
	doTrain, err := flag("train")
	if err != nil {
		return nil, err
	}
	doTest, err := flag("test")
	if err != nil {
		return nil, err
	}
	trainer, err := crf.ParseOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	reserved := DefaultReservedLabels
	if v, ok := opts["labels"]; ok {
		reserved = splitList(v)
	}

	result := &ExperimentResult{Kind: kind}
	slog.Info("Experiment started", "class", kind)

	var model crf.Model
	if path, ok := opts["train_file"]; ok {
		model, err = crf.NewModel(kind, crf.NewParameters())
		if err != nil {
			return nil, fmt.Errorf("openie: %w", err)
		}
		data, err := corpus.ReadFile(path, model.Params(), corpus.Options{
			Create:         true,
			Transitions:    kind == crf.KindCRF,
			ReservedLabels: reserved,
		})
		if err != nil {
			return nil, fmt.Errorf("openie: %w", err)
		}
		if doTrain {
			tr, err := model.Train(data.Corpus, trainer)
			if err != nil {
				return nil, fmt.Errorf("openie: %w", err)
			}
			result.Train = &tr
		}
		if out, ok := opts["model_file"]; ok {
			if err := crf.Save(model, out); err != nil {
				return nil, fmt.Errorf("openie: %w", err)
			}
			slog.Info("Model saved", "path", out)
		}
	}

	if path, ok := opts["test_file"]; ok {
		if in, ok := opts["model_file"]; ok {
			model, err = crf.NewModel(kind, crf.NewParameters())
			if err != nil {
				return nil, fmt.Errorf("openie: %w", err)
			}
			if err := crf.Load(in, model); err != nil {
				return nil, fmt.Errorf("openie: %s: %w", in, err)
			}
		}
		if model == nil {
			return nil, fmt.Errorf("openie: test_file needs train_file or model_file")
		}
		if doTest {
			ev, err := (&Model{m: model}).Test(ctx, path, 0)
			if err != nil {
				return nil, err
			}
			result.Test = ev
			slog.Info("Experiment tested", "accuracy", ev.Accuracy(),
				"correct", ev.Eval.Correct, "total", ev.Eval.Total)
		}
	}
	return result, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
