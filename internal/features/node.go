// Package features turns tagged sentences into the per-position feature
// tokens the relation extraction CRF is trained and decoded on.
package features

import (
	"fmt"
	"strings"
)

// Roles names the labels that carry a fixed meaning for feature generation
// and tuple rendering.
type Roles struct {
	Entity         string // relation argument
	Phrase         string // any other noun phrase
	RelationPrefix string // labels starting with it mark relation words
	Outside        string
}

// DefaultRoles returns the ENT / NP / REL / O scheme.
func DefaultRoles() Roles {
	return Roles{
		Entity:         "ENT",
		Phrase:         "NP",
		RelationPrefix: "REL",
		Outside:        "O",
	}
}

// IsRelation reports whether label marks a relation word.
func (r Roles) IsRelation(label string) bool {
	return r.RelationPrefix != "" && strings.Contains(label, r.RelationPrefix)
}

// Token is one word of a tagged sentence.
type Token struct {
	Word  string
	POS   string
	Chunk string // chunk tag (B-NP, I-NP, O, ...) or gold annotation
}

// String returns the word/POS/CHUNK form.
func (t Token) String() string {
	return t.Word + "/" + t.POS + "/" + t.Chunk
}

// ParseTagged splits a line of whitespace-separated word/POS/CHUNK tokens.
// The word may itself contain slashes; POS and chunk are the last two
// fields.
func ParseTagged(line string) ([]Token, error) {
	fields := strings.Fields(line)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		chunkAt := strings.LastIndexByte(f, '/')
		if chunkAt <= 0 {
			return nil, fmt.Errorf("token %q: want word/POS/CHUNK", f)
		}
		posAt := strings.LastIndexByte(f[:chunkAt], '/')
		if posAt <= 0 {
			return nil, fmt.Errorf("token %q: want word/POS/CHUNK", f)
		}
		tokens = append(tokens, Token{
			Word:  f[:posAt],
			POS:   f[posAt+1 : chunkAt],
			Chunk: f[chunkAt+1:],
		})
	}
	return tokens, nil
}

// Node is one position of a feature sequence: a word or a merged phrase.
type Node struct {
	Word  string // words of a phrase joined with "_"
	POS   string // tags of a phrase joined with "_"
	Label string

	w, p, shape string
}

func (n *Node) extend(tok Token) {
	n.Word += "_" + tok.Word
	n.POS += "_" + tok.POS
}

// GroupChunks builds nodes from tokens[start:end], merging B-NP/I-NP runs
// into single phrase nodes. Other tokens become Outside nodes. The range is
// clamped to the sentence.
func GroupChunks(tokens []Token, start, end int, roles Roles) []Node {
	start = max(start, 0)
	end = min(end, len(tokens))
	var (
		nodes    []Node
		phrase   *Node
		inPhrase bool
	)
	closePhrase := func() {
		if inPhrase {
			nodes = append(nodes, *phrase)
		}
		inPhrase = false
	}
	for i := start; i < end; i++ {
		tok := tokens[i]
		switch {
		case strings.HasSuffix(tok.Chunk, "B-NP"):
			closePhrase()
			phrase = &Node{Word: tok.Word, POS: tok.POS, Label: roles.Phrase}
			inPhrase = true
		case strings.HasSuffix(tok.Chunk, "I-NP"):
			if inPhrase {
				phrase.extend(tok)
			} else {
				phrase = &Node{Word: tok.Word, POS: tok.POS, Label: roles.Phrase}
				inPhrase = true
			}
		default:
			closePhrase()
			nodes = append(nodes, Node{Word: tok.Word, POS: tok.POS, Label: roles.Outside})
		}
	}
	closePhrase()
	return nodes
}

// Annotated builds nodes from a gold-annotated sentence whose chunk column
// holds labels: B-ENT/I-ENT runs become single Entity nodes, every other
// token keeps its label.
func Annotated(tokens []Token, roles Roles) []Node {
	var (
		nodes  []Node
		entity *Node
	)
	closeEntity := func() {
		if entity != nil {
			nodes = append(nodes, *entity)
		}
		entity = nil
	}
	for _, tok := range tokens {
		switch {
		case strings.HasSuffix(tok.Chunk, "B-"+roles.Entity):
			closeEntity()
			entity = &Node{Word: tok.Word, POS: tok.POS, Label: roles.Entity}
		case strings.HasSuffix(tok.Chunk, "I-"+roles.Entity):
			if entity == nil {
				entity = &Node{Word: tok.Word, POS: tok.POS, Label: roles.Entity}
			} else {
				entity.extend(tok)
			}
		default:
			closeEntity()
			nodes = append(nodes, Node{Word: tok.Word, POS: tok.POS, Label: tok.Chunk})
		}
	}
	closeEntity()
	return nodes
}
