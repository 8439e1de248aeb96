// Package moderation masks censored words in message content before a
// message is persisted or fanned out, so history and live feeds always
// agree on what was said.
package moderation

import (
	"bufio"
	"os"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"chat-gateway/errors"
)

// Moderator matches censored words with an Aho-Corasick automaton built
// over folded runes, so "b4d-w0rd" still matches "badword".
type Moderator struct {
	machine *goahocorasick.Machine
	mask    rune
}

// Load reads a wordlist file (one word per line, '#' starts a comment)
// and builds a Moderator from it.
func Load(path string, mask rune) (*Moderator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return New(words, mask)
}

func New(words []string, mask rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		folded, _ := fold([]rune(word))
		if len(folded) == 0 {
			continue
		}
		patterns = append(patterns, folded)
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, mask: mask}, nil
}

// Sanitize replaces every rune of a matched word with the mask rune,
// spacing and punctuation preserved.
func (m *Moderator) Sanitize(content string) string {
	orig := []rune(content)
	folded, origIdx := fold(orig)
	if len(folded) == 0 {
		return content
	}

	hits := m.machine.MultiPatternSearch(folded, false)
	if len(hits) == 0 {
		return content
	}

	for _, hit := range hits {
		start := hit.Pos
		end := start + len(hit.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			orig[i] = m.mask
		}
	}
	return string(orig)
}

// fold lowercases, maps common character substitutions back to letters
// and drops separators; origIdx maps each folded position back to the
// original rune index.
func fold(in []rune) (folded []rune, origIdx []int) {
	folded = make([]rune, 0, len(in))
	origIdx = make([]int, 0, len(in))
	for i, r := range in {
		r = unfoldLeet(r)
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return folded, origIdx
}

func unfoldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
