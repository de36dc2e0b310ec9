package cli

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/happyhackingspace/openie"
	"github.com/happyhackingspace/openie/internal/corpus"
	"github.com/spf13/cobra"
)

// trainFlags are the flags shared by commands that train a model.
type trainFlags struct {
	data        string
	optionsFile string
	options     map[string]string
	kind        string
	labels      string
}

func (f *trainFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "train.txt", "Path to column-format training corpus")
	cmd.Flags().StringVar(&f.optionsFile, "options", "", "Trainer options file (key value per line)")
	cmd.Flags().StringToStringVarP(&f.options, "option", "o", nil, "Trainer option, e.g. -o l1prior=0.5 (overrides --options)")
	cmd.Flags().StringVar(&f.kind, "kind", "crf", "Model kind: crf or maxent")
	cmd.Flags().StringVar(&f.labels, "labels", "ENT,NP", "Comma-separated labels registered first")
}

// config merges the options file with -o flags.
func (f *trainFlags) config() (*openie.TrainConfig, error) {
	opts := map[string]string{}
	if f.optionsFile != "" {
		fileOpts, err := corpus.ReadOptionsFile(f.optionsFile)
		if err != nil {
			return nil, err
		}
		maps.Copy(opts, fileOpts)
	}
	maps.Copy(opts, f.options)

	var reserved []string
	for _, l := range strings.Split(f.labels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			reserved = append(reserved, l)
		}
	}
	return &openie.TrainConfig{Kind: f.kind, Options: opts, ReservedLabels: reserved}, nil
}

func (c *CLI) newTrainCommand() *cobra.Command {
	var flags trainFlags

	cmd := &cobra.Command{
		Use:   "train <modelfile>",
		Short: "Train a model on a column-format corpus",
		Args:  cobra.ExactArgs(1),
		Example: `  openie train model.json.gz --data train.txt
  openie train model.json --data train.txt -o l1prior=0.5 -o maxiter=50
  openie train model.json --data train.txt --kind maxent --options trainer.conf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			config, err := flags.config()
			if err != nil {
				return err
			}
			slog.Info("Training model", "kind", config.Kind, "data", flags.data, "output", modelPath)
			start := time.Now()
			m, err := openie.Train(flags.data, config)
			if err != nil {
				return err
			}
			slog.Debug("Training completed", "duration", time.Since(start))
			if err := m.Save(modelPath); err != nil {
				return err
			}
			p := m.Params()
			slog.Info("Model saved", "path", modelPath, "labels", p.NumLabels(),
				"features", p.NumFeatures(), "parameters", p.NumParams())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
