package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/happyhackingspace/openie"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var flags trainFlags
	var cvFolds, workers int

	cmd := &cobra.Command{
		Use:     "evaluate",
		Short:   "Evaluate model accuracy via grouped cross-validation",
		Example: `  openie evaluate --data train.txt --cv 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := flags.config()
			if err != nil {
				return err
			}
			slog.Info("Evaluating", "folds", cvFolds, "data", flags.data, "kind", config.Kind)
			start := time.Now()
			result, err := openie.Evaluate(cmd.Context(), flags.data, &openie.EvalConfig{
				TrainConfig: *config,
				Folds:       cvFolds,
				Workers:     workers,
			})
			if err != nil {
				return err
			}
			slog.Debug("Evaluation completed", "duration", time.Since(start))
			return printReport(cmd.OutOrStdout(), result)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&cvFolds, "cv", 10, "Number of cross-validation folds")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel decoders (default: number of CPUs)")
	return cmd
}

func (c *CLI) newTestCommand() *cobra.Command {
	var data string
	var workers int

	cmd := &cobra.Command{
		Use:     "test <modelfile>",
		Short:   "Score a model on a labeled column-format corpus",
		Args:    cobra.ExactArgs(1),
		Example: `  openie test model.json.gz --data test.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openie.Load(args[0])
			if err != nil {
				return err
			}
			result, err := m.Test(cmd.Context(), data, workers)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&data, "data", "test.txt", "Path to column-format test corpus")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel decoders (default: number of CPUs)")
	return cmd
}

// printReport writes accuracies and a per-label table.
func printReport(w io.Writer, result *openie.EvalResult) error {
	if result.Folds > 0 {
		if _, err := fmt.Fprintf(w, "Folds: %d\n", result.Folds); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Label accuracy: %.1f%% (%d/%d)\n",
		result.Accuracy()*100, result.Eval.Correct, result.Eval.Total); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sequence accuracy: %.1f%% (%d/%d)\n\n",
		result.SequenceAccuracy*100, result.SequenceCorrect, result.SequenceTotal); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"LABEL", "PRECISION", "RECALL", "F1", "SUPPORT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	for _, s := range result.Eval.Scores() {
		if s.Support == 0 {
			continue
		}
		table.Append([]string{
			s.Label,
			fmt.Sprintf("%.3f", s.Precision),
			fmt.Sprintf("%.3f", s.Recall),
			fmt.Sprintf("%.3f", s.F1),
			fmt.Sprint(s.Support),
		})
	}
	table.Render()
	return nil
}
