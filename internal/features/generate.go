package features

import (
	"strconv"
	"strings"

	"github.com/happyhackingspace/openie/internal/textutil"
)

// Lexical returns the word-shape features of a word: its collapsed shape
// and flags for capitals, digits, punctuation and other characters.
func Lexical(word string) []string {
	shape := textutil.WordShape(word)
	feats := []string{"regex=" + shape}

	for _, c := range []struct {
		mark byte
		name string
	}{
		{'A', "Capital"},
		{'0', "Digit"},
		{'.', "Punc"},
	} {
		switch {
		case shape == string(c.mark):
			feats = append(feats, "lex:all"+c.name+"=true")
		case len(shape) > 0 && shape[0] == c.mark:
			feats = append(feats, "lex:begin"+c.name+"=true")
		case strings.IndexByte(shape, c.mark) >= 0:
			feats = append(feats, "lex:contain"+c.name+"=true")
		}
	}
	if strings.ContainsFunc(shape, isOther) {
		feats = append(feats, "lex:containOtherChar=true")
	}
	return feats
}

func isOther(r rune) bool {
	return r != 'A' && r != 'a' && r != '0' && r != '.'
}

// isContext reports whether a node gets window and verb-count features:
// verbs and prepositions, the candidates for relation words.
func isContext(n Node, roles Roles) bool {
	if n.Label == roles.Entity || n.Label == roles.Phrase {
		return false
	}
	return strings.HasPrefix(n.POS, "VB") || n.POS == "IN" || n.POS == "TO"
}

// Generate returns the feature tokens of every node.
//
// Every node gets its part of speech (phrases collapse to the Phrase or Entity
// role) and, for function words and verbs, its lower-cased word. Phrases get
// the shape features of their words. Verbs and prepositions additionally get
// a window of up to three neighbors on each side and counts of the verbs and
// phrases around them between the first two entities.
func Generate(nodes []Node, roles Roles) [][]string {
	nodes = append([]Node(nil), nodes...)
	out := make([][]string, len(nodes))

	for i := range nodes {
		cur := &nodes[i]
		p := cur.POS
		switch cur.Label {
		case roles.Entity:
			p = roles.Entity
		case roles.Phrase:
			p = roles.Phrase
		}
		feats := []string{"p=" + p}

		w := ""
		switch {
		case !strings.HasPrefix(p, "N") && !strings.HasPrefix(p, "VB") && !strings.HasPrefix(p, roles.Entity):
			w = cur.Word
		case strings.HasPrefix(cur.POS, "VB"):
			w = strings.ToLower(cur.Word)
		case cur.POS == "WDT":
			w = cur.Word
		}
		if w != "" {
			feats = append(feats, "w="+w)
		}

		if cur.Label == roles.Entity || cur.Label == roles.Phrase {
			for _, lex := range Lexical(cur.Word) {
				feats = append(feats, lex)
				if shape, ok := strings.CutPrefix(lex, "regex="); ok {
					cur.shape = shape
				}
			}
		}
		cur.w, cur.p = w, p
		out[i] = feats
	}

	for i := range nodes {
		if isContext(nodes[i], roles) {
			out[i] = append(out[i], window(nodes, i)...)
		}
	}

	counts(nodes, out, roles)
	return out
}

// window returns the neighbor features of position i.
func window(nodes []Node, i int) []string {
	cur := nodes[i]
	w, p := cur.w, cur.p
	var feats []string
	add := func(name string, parts ...string) {
		feats = append(feats, name+"="+strings.Join(parts, "&"))
	}

	if i > 0 {
		p1 := nodes[i-1]
		add("p-1", p1.p)
		add("p-1&p", p1.p, p)
		if w != "" {
			add("p-1&w", p1.p, w)
		}
		if p1.w != "" {
			add("w-1", p1.w)
			if w != "" {
				add("w-1&w", p1.w, w)
			}
			add("w-1&p", p1.w, p)
		}
		if p1.shape != "" {
			add("regex-1", p1.shape)
		}
		if i > 1 {
			p2 := nodes[i-2]
			add("p-2", p2.p)
			add("p-2&p-1", p2.p, p1.p)
			add("p-2&p-1&p", p2.p, p1.p, p)
			if w != "" {
				add("p-2&p-1&w", p2.p, p1.p, w)
			}
			if p2.w != "" {
				add("w-2", p2.w)
				add("w-2&p-1", p2.w, p1.p)
				add("w-2&p-1&p", p2.w, p1.p, p)
				if p1.w != "" {
					add("w-2&w-1", p2.w, p1.w)
				}
			}
			if p2.shape != "" {
				add("regex-2", p2.shape)
			}
			if i > 2 {
				p3 := nodes[i-3]
				add("p-3", p3.p)
				add("p-3&p-2", p3.p, p2.p)
				add("p-3&p-2&p-1", p3.p, p2.p, p1.p)
				if p3.w != "" {
					add("w-3", p3.w)
				}
				if p3.shape != "" {
					add("regex-3", p3.shape)
				}
			}
		}
	}

	if i < len(nodes)-1 {
		n1 := nodes[i+1]
		add("p+1", n1.p)
		add("p&p+1", p, n1.p)
		if w != "" {
			add("w&p+1", w, n1.p)
		}
		if n1.w != "" {
			add("w+1", n1.w)
			if w != "" {
				add("w&w+1", w, n1.w)
			}
			add("p&w+1", p, n1.w)
		}
		if n1.shape != "" {
			add("regex+1", n1.shape)
		}
		if i < len(nodes)-2 {
			n2 := nodes[i+2]
			add("p+2", n2.p)
			add("p+1&p+2", n1.p, n2.p)
			add("p&p+1&p+2", p, n1.p, n2.p)
			if w != "" {
				add("w&p+1&p+2", w, n1.p, n2.p)
			}
			if n2.w != "" {
				add("w+2", n2.w)
				add("p+1&w+2", n1.p, n2.w)
				if n1.w != "" {
					add("w+1&w+2", n1.w, n2.w)
				}
				if w != "" {
					add("w&p+1&w+2", w, n1.p, n2.w)
				}
			}
			if n2.shape != "" {
				add("regex+2", n2.shape)
			}
			if i < len(nodes)-3 {
				n3 := nodes[i+3]
				add("p+3", n3.p)
				add("p+2&p+3", n2.p, n3.p)
				add("p+1&p+2&p+3", n1.p, n2.p, n3.p)
				if n3.w != "" {
					add("w+3", n3.w)
				}
			}
		}
	}
	return feats
}

// counts appends verb and phrase counts relative to the span between the
// first and second entity, and the nearest verb of each preposition.
func counts(nodes []Node, out [][]string, roles Roles) {
	prevVerbs := make([]int, len(nodes))
	prevPhrases := make([]int, len(nodes))
	numVerb, numPhrase, nEnt := 0, 0, 0
	inVP := false
	for i, n := range nodes {
		if n.Label == roles.Entity {
			nEnt++
		}
		if nEnt == 1 {
			if strings.HasPrefix(n.POS, "VB") {
				if !inVP {
					numVerb++
				}
				inVP = true
			} else {
				inVP = false
			}
			if n.Label == roles.Phrase {
				numPhrase++
			}
		}
		prevVerbs[i], prevPhrases[i] = numVerb, numPhrase
	}

	nearestVerb := -1
	for i, n := range nodes {
		if !isContext(n, roles) {
			continue
		}
		isVerb := strings.HasPrefix(n.POS, "VB")
		if numVerb == 0 {
			out[i] = append(out[i], "noVerb")
		} else {
			before := prevVerbs[i]
			if isVerb {
				before--
			}
			out[i] = append(out[i],
				"nPrevV="+strconv.Itoa(before),
				"nNextV="+strconv.Itoa(numVerb-prevVerbs[i]))
		}
		if numPhrase == 0 {
			out[i] = append(out[i], "noNP")
		} else {
			out[i] = append(out[i],
				"nPrevNP="+strconv.Itoa(prevPhrases[i]),
				"nNextNP="+strconv.Itoa(numPhrase-prevPhrases[i]))
		}

		if isVerb {
			nearestVerb = i
			continue
		}
		if nearestVerb < 0 {
			out[i] = append(out[i], "nearestVerb=NONE")
		} else {
			out[i] = append(out[i],
				"nearestVerb="+nodes[nearestVerb].w,
				"nearestVerbPOS="+nodes[nearestVerb].p)
		}
		if prevPhrases[i] == numPhrase {
			out[i] = append(out[i], "isNearestPP=true")
		}
	}
}

// Window keeps the positions from the first entity through the second one,
// the span a relation can be read from.
func Window(nodes []Node, feats [][]string, roles Roles) ([]Node, [][]string) {
	first, last := -1, -1
	for i, n := range nodes {
		if n.Label != roles.Entity {
			continue
		}
		if first < 0 {
			first = i
		} else {
			last = i
			break
		}
	}
	if first < 0 {
		return nil, nil
	}
	if last < 0 {
		last = len(nodes) - 1
	}
	return nodes[first : last+1], feats[first : last+1]
}

// Instance builds the extraction instance of an argument pair: two context
// words left of arg1, arg1, the words between the arguments, arg2 and two
// context words right of arg2, with both arguments labeled Entity.
func Instance(tokens []Token, arg1, arg2 Span, roles Roles) []Node {
	var nodes []Node
	nodes = append(nodes, GroupChunks(tokens, arg1.Start-2, arg1.Start, roles)...)
	nodes = append(nodes, arg1.node(tokens, roles))
	nodes = append(nodes, GroupChunks(tokens, arg1.End, arg2.Start, roles)...)
	nodes = append(nodes, arg2.node(tokens, roles))
	nodes = append(nodes, GroupChunks(tokens, arg2.End, arg2.End+2, roles)...)
	return nodes
}
