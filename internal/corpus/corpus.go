// Package corpus reads column-format training and test data into CRF
// sequences.
//
// Each line holds a label followed by its feature tokens, separated by
// whitespace. A line with fewer than two tokens (usually a blank line) ends
// the current sentence. Lines starting with '#' are comments; a comment of
// the form "# source: <url>" ends the current sentence and tags the following
// sentences with the domain of that URL, which grouped cross-validation uses to
// keep documents of one site in the same fold.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/happyhackingspace/openie/crf"
)

const sourcePrefix = "# source:"

// Options controls how a corpus is read into a parameter store.
type Options struct {
	// Create grows the store with unseen labels, features and parameters.
	// Test data is read with Create unset, so unseen tokens are dropped.
	Create bool
	// Transitions registers the edge parameter between consecutive gold
	// labels. Only honored together with Create.
	Transitions bool
	// ReservedLabels are registered first, in order, so that their IDs are
	// stable across corpora. Only honored together with Create.
	ReservedLabels []string
}

// Corpus is a CRF corpus plus the group of every sequence.
type Corpus struct {
	*crf.Corpus
	Groups []string // parallel to Sequences; "" when no source was given
}

// Read parses column-format data from r into p.
func Read(r io.Reader, p *crf.Parameters, opts Options) (*Corpus, error) {
	if opts.Create {
		for _, label := range opts.ReservedLabels {
			p.Labels.Add(label)
		}
	}

	c := &Corpus{Corpus: &crf.Corpus{}}
	group := ""
	var (
		seq       crf.Sequence
		prevLabel string
	)
	flush := func() {
		if seq.Len() > 0 {
			seq.ID = c.Len()
			c.Append(seq)
			c.Groups = append(c.Groups, group)
		}
		seq = crf.Sequence{}
		prevLabel = ""
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			if src, ok := strings.CutPrefix(line, sourcePrefix); ok {
				flush()
				group = GetDomain(strings.TrimSpace(src))
			}
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) < 2 {
			if len(tokens) == 1 {
				slog.Debug("Skipping line without features", "line", lineNo, "label", tokens[0])
			}
			flush()
			continue
		}

		label, feats := tokens[0], tokens[1:]
		obs := p.Observe(label, feats, nil, opts.Create)
		if opts.Create && opts.Transitions && prevLabel != "" {
			p.RegisterTransition(label, prevLabel, true)
		}
		seq.Observations = append(seq.Observations, obs)
		prevLabel = label
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus line %d: %w", lineNo, err)
	}
	flush()

	slog.Debug("Corpus loaded", "sequences", c.Len(), "positions", c.Positions(),
		"labels", p.NumLabels(), "features", p.NumFeatures(), "parameters", p.NumParams())
	return c, nil
}

// ReadFile reads a corpus file.
func ReadFile(path string, p *crf.Parameters, opts Options) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	c, err := Read(f, p, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Subset returns the sequences at the given indices with their groups.
func (c *Corpus) Subset(indices []int) *Corpus {
	sub := &Corpus{Corpus: c.Corpus.Subset(indices)}
	for _, i := range indices {
		sub.Groups = append(sub.Groups, c.Groups[i])
	}
	return sub
}

// GroupIDs returns a dense group number per sequence. Sequences without a
// source form singleton groups.
func (c *Corpus) GroupIDs() []int {
	ids := make([]int, len(c.Groups))
	known := make(map[string]int)
	next := 0
	for i, g := range c.Groups {
		if g == "" {
			ids[i] = next
			next++
			continue
		}
		id, ok := known[g]
		if !ok {
			id = next
			known[g] = id
			next++
		}
		ids[i] = id
	}
	return ids
}
