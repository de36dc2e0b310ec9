package features

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	auxiliaries = map[string]bool{
		"am": true, "are": true, "is": true, "was": true, "were": true, "be": true,
		"been": true, "being": true, "have": true, "had": true, "has": true, "having": true,
	}
	prepositions = map[string]bool{
		"of": true, "in": true, "on": true, "at": true, "by": true, "for": true,
		"with": true, "from": true, "into": true, "about": true, "near": true, "after": true,
		"before": true, "during": true, "since": true, "under": true, "over": true,
	}
	determiners = map[string]bool{"a": true, "an": true, "the": true, "this": true, "that": true}
)

// GuessTags assigns rough part-of-speech and chunk tags to untagged words,
// for input such as HTML text that arrives without a tagger. Capitalized
// words form proper-noun chunks, auxiliaries and "-ed" words are verbs and a
// closed list of prepositions is recognized; everything else is a common
// noun outside any chunk.
func GuessTags(words []string) []Token {
	tokens := make([]Token, len(words))
	prevProper := false
	for i, w := range words {
		lower := strings.ToLower(w)
		first, _ := utf8.DecodeRuneInString(w)
		tok := Token{Word: w, POS: "NN", Chunk: "O"}
		switch {
		case w == "":
		case unicode.IsPunct(first):
			tok.POS = w
		case unicode.IsDigit(first):
			tok.POS = "CD"
		case auxiliaries[lower]:
			tok.POS, tok.Chunk = "VBZ", "B-VP"
		case lower == "to":
			tok.POS, tok.Chunk = "TO", "B-PP"
		case prepositions[lower]:
			tok.POS, tok.Chunk = "IN", "B-PP"
		case determiners[lower]:
			tok.POS = "DT"
		case unicode.IsUpper(first):
			tok.POS, tok.Chunk = "NNP", "B-NP"
			if prevProper {
				tok.Chunk = "I-NP"
			}
		case len(lower) > 3 && strings.HasSuffix(lower, "ed"):
			tok.POS, tok.Chunk = "VBD", "B-VP"
		}
		prevProper = tok.POS == "NNP"
		tokens[i] = tok
	}
	return tokens
}
