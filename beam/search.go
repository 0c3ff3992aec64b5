package beam

import (
	"math"

	"github.com/ricky0123/vocoder/lexicon"
	"github.com/ricky0123/vocoder/runtime"
	"github.com/ricky0123/vocoder/soft"
)

// completedSep separates encoded words within a tokenSeq's completed
// representation; token ids are always < 128 (the lexicon alphabet plus
// space and blank), so this byte value can never collide with one.
const completedSep = 0xFF

// tokenSeq is an encoded token sequence with byte-per-token packing,
// chosen (instead of []int) so it is comparable and usable as a map
// key.
type tokenSeq string

func encodeSeq(tokens []int) tokenSeq {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = byte(t)
	}
	return tokenSeq(b)
}

func (w tokenSeq) tokens() []int {
	out := make([]int, len(w))
	for i := 0; i < len(w); i++ {
		out[i] = int(w[i])
	}
	return out
}

// Hypothesis is one candidate decoding: a tuple of already-completed
// (space-terminated) words, plus an in-progress prefix.
type Hypothesis struct {
	prefix    tokenSeq
	completed tokenSeq
}

// EmptyHypothesis is the beam's starting point: no completed words, no
// pending prefix.
var EmptyHypothesis = Hypothesis{}

// transition moves the pending prefix into the completed-words tuple,
// clearing the prefix.
func (h Hypothesis) transition() Hypothesis {
	return Hypothesis{completed: h.completed + h.prefix + tokenSeq([]byte{completedSep})}
}

func (h Hypothesis) extendPrefix(token int) Hypothesis {
	return Hypothesis{prefix: h.prefix + tokenSeq([]byte{byte(token)}), completed: h.completed}
}

// CompletedWords decodes every completed word in the hypothesis, in
// order.
func (h Hypothesis) CompletedWords(enc *TokenEncoding) []string {
	var words []string
	cur := []byte{}
	for i := 0; i < len(h.completed); i++ {
		b := h.completed[i]
		if b == completedSep {
			words = append(words, enc.Decode(tokenSeq(cur).tokens()))
			cur = nil
			continue
		}
		cur = append(cur, b)
	}
	return words
}

func lastToken(enc *TokenEncoding, h Hypothesis) int {
	if len(h.prefix) > 0 {
		return int(h.prefix[len(h.prefix)-1])
	}
	return enc.Space
}

// HypothesisProbabilities tracks, in log space, the probability mass
// assigned to a hypothesis ending in a blank versus ending in a
// non-blank token.
type HypothesisProbabilities struct {
	Blank   float64
	NoBlank float64
}

// TotalProbability is the combined log-probability of the hypothesis
// regardless of whether its last emitted symbol was a blank.
func (p HypothesisProbabilities) TotalProbability() float64 {
	return logadd(p.NoBlank, p.Blank)
}

func initialProbabilities() HypothesisProbabilities {
	return HypothesisProbabilities{Blank: negativeInfinity, NoBlank: 0}
}

func newProbabilities() HypothesisProbabilities {
	return HypothesisProbabilities{Blank: negativeInfinity, NoBlank: negativeInfinity}
}

func (p *HypothesisProbabilities) proposeBlank(last HypothesisProbabilities, pr float64) {
	p.Blank = logadd(p.Blank, pr+last.Blank, pr+last.NoBlank)
}

func (p *HypothesisProbabilities) proposeLastTokenUnchanged(last HypothesisProbabilities, pr float64) {
	p.NoBlank = logadd(p.NoBlank, pr+last.NoBlank)
}

func (p *HypothesisProbabilities) proposeLastTokenExtended(last HypothesisProbabilities, pr float64) {
	p.NoBlank = logadd(p.NoBlank, pr+last.Blank)
}

func (p *HypothesisProbabilities) proposeNewChar(last HypothesisProbabilities, pr float64) {
	p.NoBlank = logadd(p.NoBlank, pr+last.Blank, pr+last.NoBlank)
}

// Options configures the beam search.
type Options struct {
	// BeamWidth caps how many hypotheses survive each frame's prune,
	// except the last frame (every surviving hypothesis is considered
	// there so a valid-but-narrowly-probable completion is not missed).
	BeamWidth int
	// NTokenProposals caps how many acoustic columns are considered per
	// frame; only the top N by probability are proposed as extensions.
	NTokenProposals int
}

// DefaultOptions is a reasonable starting point for realtime decoding.
func DefaultOptions() Options {
	return Options{BeamWidth: 8, NTokenProposals: 8}
}

// Result is the outcome of a Search: the words recognized, the
// log-probability of that hypothesis, and the grammar frontier it left
// behind (ready for a subsequent batch or Simplify/Executor.Eat call).
type Result struct {
	Words      []string
	LogProb    float64
	Leaves     runtime.PathLeaves
	Recognized bool
}

// Search runs CTC prefix-beam search over ctc (one []float64 of
// per-token log-probabilities per frame) starting from initialLeaves,
// constrained at every step to the word lexicons the grammar frontier
// currently offers. It returns the single highest-probability
// grammar-valid completion, or Result{Recognized: false} if the beam
// collapsed to nothing valid.
func Search(s *soft.Soft, lexicons *lexicon.Registry, initialLeaves runtime.PathLeaves, ctc [][]float64, enc *TokenEncoding, opts Options) Result {
	badOut := Result{Leaves: initialLeaves, LogProb: math.Inf(-1)}

	lexiconCache := map[tokenSeq]*lexicon.Union{}
	grammarStates := map[tokenSeq]runtime.PathLeaves{}

	leaves := initialLeaves
	lex := lexicons.GetUnion(runtime.GetPredicateTransitions(s, leaves)...)

	lexiconCache[""] = lex
	grammarStates[""] = leaves

	sortedBeam := []beamEntry{{EmptyHypothesis, initialProbabilities()}}

	stepGrammar := func(hyp Hypothesis) Hypothesis {
		next := hyp.transition()
		if _, ok := grammarStates[next.completed]; ok {
			return next
		}
		word := enc.Decode(hyp.prefix.tokens())
		advanced := runtime.TransitionFromWord(s, lexiconLookup(lexicons), grammarStates[hyp.completed], word)
		advanced = runtime.StepTree(s, advanced)
		grammarStates[next.completed] = advanced
		lexiconCache[next.completed] = lexicons.GetUnion(runtime.GetPredicateTransitions(s, advanced)...)
		return next
	}

	for i, frame := range ctc {
		topTokens := topNIndices(frame, opts.NTokenProposals)
		nextBeam := map[Hypothesis]*HypothesisProbabilities{}
		get := func(h Hypothesis) *HypothesisProbabilities {
			p, ok := nextBeam[h]
			if !ok {
				np := newProbabilities()
				p = &np
				nextBeam[h] = p
			}
			return p
		}

		for _, entry := range sortedBeam {
			hyp, probs := entry.hyp, entry.probs

			if _, ok := topTokens[enc.Blank]; ok {
				get(hyp).proposeBlank(probs, frame[enc.Blank])
			}

			lt := lastToken(enc, hyp)
			if _, ok := topTokens[lt]; ok {
				get(hyp).proposeLastTokenUnchanged(probs, frame[lt])
			}

			if _, ok := topTokens[enc.Space]; ok && prefixComplete(enc, lexiconCache, hyp) {
				next := stepGrammar(hyp)
				get(next).proposeNewChar(probs, frame[enc.Space])
			}

			lex := lexiconCache[hyp.completed]
			word := enc.Decode(hyp.prefix.tokens())
			for _, ext := range lex.Transitions(word) {
				token := enc.CharToToken[ext[0]]
				if _, ok := topTokens[token]; !ok {
					continue
				}
				next := hyp.extendPrefix(token)
				p := get(next)
				if token == lt {
					p.proposeLastTokenExtended(probs, frame[token])
				} else {
					p.proposeNewChar(probs, frame[token])
				}
			}
		}

		if len(nextBeam) == 0 {
			return badOut
		}

		sortedBeam = make([]beamEntry, 0, len(nextBeam))
		for h, p := range nextBeam {
			sortedBeam = append(sortedBeam, beamEntry{h, *p})
		}
		sortBeam(sortedBeam)

		if i != len(ctc)-1 && len(sortedBeam) > opts.BeamWidth {
			sortedBeam = sortedBeam[:opts.BeamWidth]
		}
	}

	for _, entry := range sortedBeam {
		hyp, probs := entry.hyp, entry.probs

		if !validPrediction(enc, lexiconCache, hyp) {
			continue
		}
		if prefixComplete(enc, lexiconCache, hyp) {
			hyp = stepGrammar(hyp)
		}

		finalLeaves := grammarStates[hyp.completed]
		finalLeaves = runtime.BatchSeparatorTransition(s, finalLeaves)
		finalLeaves = runtime.StepTree(s, finalLeaves)
		if len(finalLeaves) == 0 {
			continue
		}

		return Result{
			Words:      hyp.CompletedWords(enc),
			LogProb:    probs.TotalProbability(),
			Leaves:     finalLeaves,
			Recognized: true,
		}
	}

	return badOut
}

type beamEntry struct {
	hyp   Hypothesis
	probs HypothesisProbabilities
}

func sortBeam(entries []beamEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].probs.TotalProbability() > entries[j-1].probs.TotalProbability(); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func lexiconLookup(reg *lexicon.Registry) func(string) runtime.Lexicon {
	return func(name string) runtime.Lexicon {
		lex, ok := reg.Lexicon(name)
		if !ok {
			return nil
		}
		return lex
	}
}

func prefixComplete(enc *TokenEncoding, cache map[tokenSeq]*lexicon.Union, hyp Hypothesis) bool {
	lex := cache[hyp.completed]
	return lex.Contains(enc.Decode(hyp.prefix.tokens()))
}

func validPrediction(enc *TokenEncoding, cache map[tokenSeq]*lexicon.Union, hyp Hypothesis) bool {
	return prefixComplete(enc, cache, hyp) || len(hyp.prefix) == 0
}
