package openie

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/happyhackingspace/openie/internal/features"
	"github.com/happyhackingspace/openie/internal/htmlutil"
	"github.com/happyhackingspace/openie/internal/textutil"
)

// Token is one word/POS/CHUNK token of a tagged sentence.
type Token = features.Token

// ParseTagged splits a line of whitespace-separated word/POS/CHUNK tokens.
func ParseTagged(line string) ([]Token, error) {
	return features.ParseTagged(line)
}

// Tuple is an extracted binary relation.
type Tuple struct {
	Arg1 string `json:"arg1"`
	Rel  string `json:"rel"`
	Arg2 string `json:"arg2"`
}

// String returns the <arg1, rel, arg2> form.
func (t Tuple) String() string {
	return "<" + t.Arg1 + ", " + t.Rel + ", " + t.Arg2 + ">"
}

// Extractor reads relation tuples out of tagged sentences with a trained
// model.
type Extractor struct {
	model *Model
	roles LabelRoles
}

// NewExtractor creates an extractor. The roles name the labels the model
// was trained with.
func NewExtractor(m *Model, roles LabelRoles) *Extractor {
	return &Extractor{model: m, roles: roles}
}

// Extract returns the tuples of one tagged sentence. Every candidate pair of
// proper-noun arguments with a verb between them is decoded; pairs whose
// decoding has no relation words are dropped.
func (e *Extractor) Extract(tokens []Token) []Tuple {
	var tuples []Tuple
	for _, pair := range features.Candidates(tokens, e.roles) {
		nodes := features.Instance(tokens, pair.Arg1, pair.Arg2, e.roles)
		feats := features.Generate(nodes, e.roles)
		nodes, feats = features.Window(nodes, feats, e.roles)
		if len(nodes) == 0 {
			continue
		}
		labels := e.model.Tag(feats)
		if t, ok := e.render(nodes, labels); ok {
			tuples = append(tuples, t)
		}
	}
	return tuples
}

// render builds a tuple from decoded labels: the first two Entity positions
// are the arguments and runs of relation-labeled words, joined by " _ ",
// are the relation.
func (e *Extractor) render(nodes []features.Node, labels []string) (Tuple, bool) {
	var (
		t        Tuple
		rel      strings.Builder
		entities int
		runs     int
		inRun    bool
	)
	for k, label := range labels {
		word := strings.ReplaceAll(nodes[k].Word, "_", " ")
		switch {
		case label == e.roles.Entity:
			entities++
			switch entities {
			case 1:
				t.Arg1 = word
			case 2:
				t.Arg2 = word
			}
			inRun = false
		case e.roles.IsRelation(label):
			if inRun {
				rel.WriteString(" " + word)
			} else {
				if runs > 0 {
					rel.WriteString(" _ ")
				}
				rel.WriteString(word)
				runs++
			}
			inRun = true
		default:
			inRun = false
		}
	}
	t.Rel = rel.String()
	return t, runs > 0 && t.Arg1 != "" && t.Arg2 != ""
}

// ExtractLine parses a word/POS/CHUNK line and extracts its tuples.
func (e *Extractor) ExtractLine(line string) ([]Tuple, error) {
	tokens, err := ParseTagged(line)
	if err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	return e.Extract(tokens), nil
}

// ExtractTagged extracts the tuples of every word/POS/CHUNK line of r. Blank
// and "#" lines yield no tuples. The result holds one entry per line.
func (e *Extractor) ExtractTagged(r io.Reader) ([][]Tuple, error) {
	var out [][]Tuple
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			out = append(out, nil)
			continue
		}
		tuples, err := e.ExtractLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, tuples)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("openie: %w", err)
	}
	return out, nil
}

// ExtractText extracts tuples from plain untagged text. Words are tagged
// with features.GuessTags and sentences end at ".", "!" and "?".
func (e *Extractor) ExtractText(text string) []Tuple {
	var tuples []Tuple
	for _, sentence := range Sentences(text) {
		tuples = append(tuples, e.Extract(features.GuessTags(sentence))...)
	}
	return tuples
}

// ExtractHTML extracts tuples from the visible text blocks of an HTML page.
func (e *Extractor) ExtractHTML(r io.Reader) ([]Tuple, error) {
	doc, err := htmlutil.LoadHTML(r)
	if err != nil {
		return nil, fmt.Errorf("openie: parse html: %w", err)
	}
	var tuples []Tuple
	for _, block := range htmlutil.DocumentBlocks(doc) {
		tuples = append(tuples, e.ExtractText(block)...)
	}
	return tuples, nil
}

// Sentences splits text into word sentences ending at ".", "!" or "?".
func Sentences(text string) [][]string {
	var (
		out [][]string
		cur []string
	)
	for _, w := range textutil.Words(text) {
		cur = append(cur, w)
		if w == "." || w == "!" || w == "?" {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
