package cli

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/happyhackingspace/openie"
	"github.com/spf13/cobra"
)

func (c *CLI) newFeaturizeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "featurize [file]",
		Short: "Convert annotated word/POS/LABEL sentences into a training corpus",
		Args:  cobra.MaximumNArgs(1),
		Example: `  openie featurize annotated.txt -o train.txt
  cat annotated.txt | openie featurize > train.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && isTerminal(cmd.InOrStdin()) {
				return cmd.Help()
			}
			content, source, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				bw := bufio.NewWriter(f)
				defer func() { _ = bw.Flush() }()
				w = bw
			}

			n, err := openie.Featurize(w, strings.NewReader(content), openie.DefaultLabelRoles())
			if err != nil {
				return err
			}
			slog.Info("Corpus written", "source", source, "sentences", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output corpus file (default: stdout)")
	return cmd
}
