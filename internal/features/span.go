package features

import "strings"

// MaxArgDistance is the largest number of nodes allowed between two
// arguments of a candidate pair.
const MaxArgDistance = 20

// Span is a chunk of a tagged sentence: tokens[Start:End] of type Type.
type Span struct {
	Start, End int
	Type       string
}

// node collapses the span into one node labeled Entity.
func (s Span) node(tokens []Token, roles Roles) Node {
	nodes := GroupChunks(tokens, s.Start, s.End, roles)
	if len(nodes) == 0 {
		return Node{Label: roles.Entity}
	}
	n := nodes[0]
	n.Label = roles.Entity
	return n
}

// Spans groups BIO chunk tags into typed spans. A tag that is neither "O"
// nor the continuation of the open chunk starts a new span.
func Spans(tokens []Token) []Span {
	var spans []Span
	open := false
	cur := Span{}
	for i, tok := range tokens {
		tag := tok.Chunk
		switch {
		case strings.HasPrefix(tag, "B-") || (tag != "I-"+cur.Type && tag != "O"):
			if open {
				cur.End = i
				spans = append(spans, cur)
			}
			cur = Span{Start: i, Type: strings.TrimPrefix(strings.TrimPrefix(tag, "B-"), "I-")}
			open = true
		case tag == "I-"+cur.Type:
		case open:
			cur.End = i
			spans = append(spans, cur)
			open = false
			cur = Span{}
		}
	}
	if open {
		cur.End = len(tokens)
		spans = append(spans, cur)
	}
	return spans
}

// Pair is a candidate pair of relation arguments.
type Pair struct {
	Arg1, Arg2 Span
}

// Candidates returns the argument pairs of a sentence worth decoding: both
// arguments are single proper-noun phrases, at most MaxArgDistance nodes
// apart, with a verb between them.
func Candidates(tokens []Token, roles Roles) []Pair {
	isProper := func(s Span) bool {
		nodes := GroupChunks(tokens, s.Start, s.End, roles)
		return len(nodes) > 0 && strings.Contains(nodes[0].POS, "NNP")
	}

	spans := Spans(tokens)
	var pairs []Pair
	for i, s1 := range spans {
		if s1.Type != "NP" {
			continue
		}
		if n := GroupChunks(tokens, s1.Start, s1.End, roles); len(n) != 1 || !strings.Contains(n[0].POS, "NNP") {
			continue
		}
		for _, s2 := range spans[i+1:] {
			if s2.Type != "NP" || !isProper(s2) {
				continue
			}
			between := GroupChunks(tokens, s1.End, s2.Start, roles)
			if len(between) > MaxArgDistance {
				break
			}
			hasVerb := false
			for _, n := range between {
				if strings.HasPrefix(n.POS, "VB") {
					hasVerb = true
					break
				}
			}
			if hasVerb {
				pairs = append(pairs, Pair{Arg1: s1, Arg2: s2})
			}
		}
	}
	return pairs
}
