// Package moderation masks blacklisted words in message text before it is persisted.
package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Filter matches blacklisted words with an Aho-Corasick automaton.
// Matching ignores case, punctuation, spacing and common leet substitutions,
// and masking keeps the rune count of the text unchanged.
type Filter struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// NewFilter builds the automaton from a comma separated word list.
// It returns nil when the list holds no usable word.
func NewFilter(words string, mask rune) (*Filter, error) {
	var patterns [][]rune
	for _, word := range strings.Split(words, ",") {
		if p := normalizeRunes([]rune(strings.TrimSpace(word))); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{matcher: m, mask: mask}, nil
}

// Censor replaces every rune that took part in a match, noise included,
// with the mask rune.
func (f *Filter) Censor(text string) string {
	normalized, positions := normalize(text)
	if len(normalized) == 0 {
		return text
	}
	terms := f.matcher.MultiPatternSearch(normalized, false)
	if len(terms) == 0 {
		return text
	}

	runes := []rune(text)
	for _, term := range terms {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(positions) {
			continue
		}
		for i := positions[term.Pos]; i <= positions[end-1]; i++ {
			runes[i] = f.mask
		}
	}
	return string(runes)
}

// normalize returns the searchable runes of text and, for each of them,
// its index in the original rune slice.
func normalize(text string) ([]rune, []int) {
	runes := []rune(text)
	normalized := make([]rune, 0, len(runes))
	positions := make([]int, 0, len(runes))
	for i, r := range runes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(clean))
		positions = append(positions, i)
	}
	return normalized, positions
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps leet speak back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
