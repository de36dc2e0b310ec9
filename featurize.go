package openie

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/happyhackingspace/openie/internal/features"
)

// Featurize converts gold-annotated sentences into column-format training
// data. Each input line holds word/POS/LABEL tokens where B-ENT/I-ENT mark
// the two arguments and relation words carry a relation label; lines of the
// form "# source: <url>" are copied through. Every sentence is cut to the
// span between its first two entities, as the extractor decodes it.
// It returns the number of sentences written.
func Featurize(w io.Writer, r io.Reader, roles LabelRoles) (int, error) {
	bw := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return n, err
			}
			continue
		}
		tokens, err := features.ParseTagged(line)
		if err != nil {
			return n, fmt.Errorf("openie: line %d: %w", lineNo, err)
		}
		nodes := features.Annotated(tokens, roles)
		nodes, feats := features.Window(nodes, features.Generate(nodes, roles), roles)
		if len(nodes) == 0 {
			continue
		}
		for i, node := range nodes {
			if _, err := fmt.Fprintln(bw, node.Label+" "+strings.Join(feats[i], " ")); err != nil {
				return n, err
			}
		}
		if _, err := fmt.Fprintln(bw); err != nil {
			return n, err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("openie: %w", err)
	}
	return n, bw.Flush()
}
