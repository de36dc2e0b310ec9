package cli

import (
	"fmt"

	"github.com/happyhackingspace/openie"
	"github.com/happyhackingspace/openie/internal/corpus"
	"github.com/spf13/cobra"
)

func (c *CLI) newExperimentCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run a train / save / test cycle described by a config file",
		Example: `  openie experiment --config experiment.conf

  # experiment.conf
  class       crf
  train_file  train.txt
  train       true
  model_file  model.json.gz
  test_file   test.txt
  test        true
  l1prior     0.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := corpus.ReadOptionsFile(configPath)
			if err != nil {
				return err
			}
			result, err := openie.RunExperiment(cmd.Context(), opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if result.Train != nil {
				if _, err := fmt.Fprintf(w, "Trained %s: %d iterations, objective %.4f, training accuracy %.1f%%\n",
					result.Kind, result.Train.Iterations, result.Train.Objective, result.Train.Accuracy*100); err != nil {
					return err
				}
			}
			if result.Test != nil {
				return printReport(w, result.Test)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Experiment config file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
