package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) newTagCommand() *cobra.Command {
	var modelPath string
	var marginals bool

	cmd := &cobra.Command{
		Use:   "tag [file]",
		Short: "Label feature sequences (one position per line, blank line between sequences)",
		Args:  cobra.MaximumNArgs(1),
		Example: `  openie tag positions.txt --model model.json.gz
  printf 'p=ENT regex=Aa\np=VBD w=was\n' | openie tag --marginals`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && isTerminal(cmd.InOrStdin()) {
				return cmd.Help()
			}
			content, _, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			m, err := loadModel(modelPath)
			if err != nil {
				return err
			}

			labels := m.Labels()
			w := bufio.NewWriter(cmd.OutOrStdout())
			for i, seq := range readSequences(strings.NewReader(content)) {
				if i > 0 {
					_, _ = fmt.Fprintln(w)
				}
				tags := m.Tag(seq)
				var probs [][]float64
				if marginals {
					probs = m.Marginals(seq, nil)
				}
				for t, tag := range tags {
					_, _ = fmt.Fprint(w, tag)
					if marginals {
						for y, p := range probs[t] {
							_, _ = fmt.Fprintf(w, "\t%s:%.4f", labels[y], p)
						}
					}
					_, _ = fmt.Fprintln(w)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to model file (default: auto-detect)")
	cmd.Flags().BoolVar(&marginals, "marginals", false, "Print per-label probabilities")
	return cmd
}

// readSequences splits feature lines into sequences at blank lines. Lines
// starting with '#' are skipped.
func readSequences(r io.Reader) [][][]string {
	var (
		seqs [][][]string
		cur  [][]string
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if len(cur) > 0 {
				seqs = append(seqs, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, fields)
	}
	if len(cur) > 0 {
		seqs = append(seqs, cur)
	}
	return seqs
}
