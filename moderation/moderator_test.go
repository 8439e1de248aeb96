package moderation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-gateway/errors"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions
// (e.g., "he" inside "The").
func TestModerator_Sanitize(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := New(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
		},
		{
			name:     "Leet speak substitution",
			input:    "look at that b4dg3r",
			expected: "look at that ******",
		},
		{
			name:     "Uppercase and internal punctuation",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I love badger!",
			expected: "I love ******!",
		},
		{
			name:     "Nothing to censor",
			input:    "chat-gateway is amazing",
			expected: "chat-gateway is amazing",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, mod.Sanitize(tt.input), "test=%s", tt.name)
		})
	}
}

func TestModerator_EmptyDictionary(t *testing.T) {
	req := require.New(t)

	// Given only noise entries that fold to nothing
	_, err := New([]string{"...", ",,,", ""}, replacementChar)
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestModerator_LoadWordlist(t *testing.T) {
	req := require.New(t)

	// Given a wordlist file with comments and blank lines
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "# censored words\nbadger\n\n  snake  \n"
	req.NoError(os.WriteFile(path, []byte(content), 0o600))

	mod, err := Load(path, replacementChar)
	req.NoError(err)

	req.Equal("the ****** and the *****", mod.Sanitize("the badger and the snake"))
}
