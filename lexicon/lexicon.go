// Package lexicon implements finite non-empty word sets over the alphabet
// [a-z'], optionally carrying a per-word attribute value, plus the
// registry that resolves the DSL's lexicon symbols (word sets, attributed
// word sets, references, and union/difference compounds) into concrete
// lexicons.
package lexicon

import (
	"sort"

	"github.com/ricky0123/vocoder/verr"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz'"

func validAlphabet(word string) bool {
	for _, r := range word {
		found := false
		for _, a := range alphabet {
			if r == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Lexicon is a finite non-empty set of non-empty words, each carrying an
// attribute value (default: the word itself).
type Lexicon struct {
	words       map[string]struct{}
	transitions map[string]map[byte]struct{}
	attributes  map[string]any
}

// New builds a Lexicon from a word list and an optional attribute map
// (word -> attribute value; words absent from the map default to
// themselves). It rejects the empty string and out-of-alphabet
// characters.
func New(words []string, attributes map[string]any) (*Lexicon, error) {
	if len(words) == 0 {
		return nil, verr.New(verr.ErrInvalidLexicon, "lexicon must not be empty")
	}

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			return nil, verr.New(verr.ErrInvalidLexicon, "lexicon cannot accept the empty string")
		}
		if !validAlphabet(w) {
			return nil, verr.New(verr.ErrInvalidLexicon, "lexicon cannot accept word '"+w+"'")
		}
		set[w] = struct{}{}
	}

	attrs := make(map[string]any, len(attributes))
	for w, v := range attributes {
		attrs[w] = v
	}

	return &Lexicon{
		words:       set,
		transitions: buildTransitions(set),
		attributes:  attrs,
	}, nil
}

// buildTransitions computes, for every prefix reachable from the empty
// string by following single-character extensions within the word set,
// the set of characters that extend it one more step.
func buildTransitions(words map[string]struct{}) map[string]map[byte]struct{} {
	transitions := map[string]map[byte]struct{}{"": {}}

	for word := range words {
		if _, ok := transitions[word]; ok {
			continue
		}
		transitions[word] = map[byte]struct{}{}

		for end := len(word) - 1; end >= 0; end-- {
			prefix := word[:end]
			extension := word[end]
			if s, ok := transitions[prefix]; ok {
				if _, already := s[extension]; already {
					break
				}
			}
			if transitions[prefix] == nil {
				transitions[prefix] = map[byte]struct{}{}
			}
			transitions[prefix][extension] = struct{}{}
		}
	}

	return transitions
}

// Contains reports whether word is a member of the lexicon.
func (l *Lexicon) Contains(word string) bool {
	_, ok := l.words[word]
	return ok
}

// Transitions returns, in sorted order, the single-character extensions
// of prefix that remain within the word set.
func (l *Lexicon) Transitions(prefix string) []string {
	next, ok := l.transitions[prefix]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(next))
	for b := range next {
		out = append(out, string(b))
	}
	sort.Strings(out)
	return out
}

// IsPrefix reports whether prefix is a prefix of some word in the
// lexicon (including the empty prefix and complete words themselves).
func (l *Lexicon) IsPrefix(prefix string) bool {
	_, ok := l.transitions[prefix]
	return ok
}

// Attribute returns the stored attribute for word, or word itself if no
// attribute was registered for it.
func (l *Lexicon) Attribute(word string) any {
	if v, ok := l.attributes[word]; ok {
		return v
	}
	return word
}

// Words returns the lexicon's wordset words are members, unordered.
func (l *Lexicon) Words() []string {
	out := make([]string, 0, len(l.words))
	for w := range l.words {
		out = append(out, w)
	}
	return out
}

// Union is a virtual union of lexicons supporting the same read-only
// operations as a single Lexicon, without copying word sets.
type Union struct {
	lexicons []*Lexicon
}

// NewUnion builds a Union over the given lexicons. Order matters: when
// two members accept the same word, the first one found wins.
func NewUnion(lexicons ...*Lexicon) *Union {
	return &Union{lexicons: lexicons}
}

// Contains reports whether word belongs to any member lexicon.
func (u *Union) Contains(word string) bool {
	for _, l := range u.lexicons {
		if l.Contains(word) {
			return true
		}
	}
	return false
}

// IsPrefix reports whether prefix is a prefix in any member lexicon.
// The empty prefix is a prefix of every union, including the empty
// union.
func (u *Union) IsPrefix(prefix string) bool {
	if prefix == "" {
		return true
	}
	for _, l := range u.lexicons {
		if l.IsPrefix(prefix) {
			return true
		}
	}
	return false
}

// Transitions returns the de-duplicated, sorted union of single-character
// extensions of prefix across all member lexicons that have prefix as a
// prefix.
func (u *Union) Transitions(prefix string) []string {
	set := map[string]struct{}{}
	for _, l := range u.lexicons {
		if !l.IsPrefix(prefix) {
			continue
		}
		for _, t := range l.Transitions(prefix) {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
