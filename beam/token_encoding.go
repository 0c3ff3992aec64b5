// Package beam implements CTC prefix-beam search constrained to the
// words a compiled grammar's current frontier accepts: at each acoustic
// frame, hypotheses are extended character-by-character, and a
// hypothesis may only cross a word boundary once its pending prefix is
// a complete word in the lexicon the grammar currently offers.
package beam

// TokenEncoding maps between acoustic-model output columns ("tokens")
// and the characters a grammar's lexicons are built from. Space and
// Blank are resolved by character lookup so callers can build an
// encoding from any column ordering.
type TokenEncoding struct {
	TokenToChar  map[int]byte
	CharToToken  map[byte]int
	Space        int
	Blank        int
	IgnoreTokens map[int]struct{}
}

// standardAlphabet is the character set a TokenEncoding is expected to
// cover: space, the lexicon alphabet, apostrophe, and "." as the CTC
// blank symbol.
const standardAlphabet = " abcdefghijklmnopqrstuvwxyz'."

// NewTokenEncoding builds a TokenEncoding from a column-index assignment
// charToToken (character -> acoustic-model output column). Characters
// outside standardAlphabet have their token ids recorded in
// IgnoreTokens and never proposed during decoding (e.g. an explicit
// unknown-token column).
func NewTokenEncoding(charToToken map[byte]int) *TokenEncoding {
	tokenToChar := make(map[int]byte, len(charToToken))
	for c, t := range charToToken {
		tokenToChar[t] = c
	}
	ignore := map[int]struct{}{}
	standard := map[byte]struct{}{}
	for i := 0; i < len(standardAlphabet); i++ {
		standard[standardAlphabet[i]] = struct{}{}
	}
	for c, t := range charToToken {
		if _, ok := standard[c]; !ok {
			ignore[t] = struct{}{}
		}
	}
	return &TokenEncoding{
		TokenToChar:  tokenToChar,
		CharToToken:  charToToken,
		Space:        charToToken[' '],
		Blank:        charToToken['.'],
		IgnoreTokens: ignore,
	}
}

// Encode converts a string into its token sequence.
func (e *TokenEncoding) Encode(s string) []int {
	out := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = e.CharToToken[s[i]]
	}
	return out
}

// Decode converts a token sequence into the string it spells.
func (e *TokenEncoding) Decode(tokens []int) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = e.TokenToChar[t]
	}
	return string(b)
}

// NTokens returns the number of distinct output columns the encoding
// covers.
func (e *TokenEncoding) NTokens() int { return len(e.TokenToChar) }

// GreedyDecode takes the argmax token at every frame, decodes it, and
// squashes consecutive repeats and blank symbols, the standard CTC
// greedy-decoding transform. Useful for diagnostics independent of the
// grammar-constrained search.
func (e *TokenEncoding) GreedyDecode(ctc [][]float64) string {
	tokens := make([]int, len(ctc))
	for i, frame := range ctc {
		best, bestP := 0, frame[0]
		for t, p := range frame {
			if p > bestP {
				best, bestP = t, p
			}
		}
		tokens[i] = best
	}
	raw := e.Decode(tokens)

	var out []byte
	var last byte
	hasLast := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if hasLast && c == last {
			continue
		}
		last, hasLast = c, true
		if c != '.' {
			out = append(out, c)
		}
	}
	return string(out)
}
