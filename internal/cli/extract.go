package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/happyhackingspace/openie"
	"github.com/spf13/cobra"
)

func (c *CLI) newExtractCommand() *cobra.Command {
	var modelPath string
	var html, text, asJSON bool

	cmd := &cobra.Command{
		Use:   "extract [url-or-file]",
		Short: "Extract relation tuples from tagged sentences, text or HTML",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # word/POS/CHUNK sentences, one per line
  openie extract sentences.txt --model model.json.gz

  # Pipe tagged sentences
  echo "Obama/NNP/B-NP was/VBD/B-VP born/VBN/I-VP in/IN/B-PP Hawaii/NNP/B-NP" | openie extract

  # Plain text and web pages are tagged heuristically
  openie extract notes.txt --text
  openie extract https://en.wikipedia.org/wiki/Barack_Obama

  # JSON output
  openie extract sentences.txt --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && isTerminal(cmd.InOrStdin()) {
				return cmd.Help()
			}
			content, source, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if isURL(source) {
				html = true
			}
			slog.Debug("Input read", "source", source, "bytes", len(content))

			m, err := loadModel(modelPath)
			if err != nil {
				return err
			}
			ex := openie.NewExtractor(m, openie.DefaultLabelRoles())

			start := time.Now()
			var tuples []openie.Tuple
			switch {
			case html:
				tuples, err = ex.ExtractHTML(strings.NewReader(content))
			case text:
				tuples = ex.ExtractText(content)
			default:
				var lines [][]openie.Tuple
				lines, err = ex.ExtractTagged(strings.NewReader(content))
				for _, l := range lines {
					tuples = append(tuples, l...)
				}
			}
			if err != nil {
				return err
			}
			slog.Debug("Extraction completed", "tuples", len(tuples), "duration", time.Since(start))
			return writeTuples(cmd.OutOrStdout(), tuples, asJSON)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to model file (default: auto-detect)")
	cmd.Flags().BoolVar(&html, "html", false, "Input is an HTML page")
	cmd.Flags().BoolVar(&text, "text", false, "Input is plain untagged text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tuples as JSON")
	cmd.MarkFlagsMutuallyExclusive("html", "text")
	return cmd
}

func writeTuples(w io.Writer, tuples []openie.Tuple, asJSON bool) error {
	if asJSON {
		if tuples == nil {
			tuples = []openie.Tuple{}
		}
		output, err := json.MarshalIndent(tuples, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(output))
		return err
	}
	if len(tuples) == 0 {
		_, err := fmt.Fprintln(w, "No tuples found.")
		return err
	}
	for _, t := range tuples {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
	}
	return nil
}
