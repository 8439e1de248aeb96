package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		input    string
		expected Query
	}{
		{
			name:     "Terms only",
			input:    "/find deployment checklist",
			expected: Query{Terms: "deployment checklist", Limit: 10},
		},
		{
			name:     "Explicit limit",
			input:    "/find outage --limit 5",
			expected: Query{Terms: "outage", Limit: 5},
		},
		{
			name:     "Limit before terms",
			input:    "/find --limit 3 outage report",
			expected: Query{Terms: "outage report", Limit: 3},
		},
		{
			name:     "Invalid limit keeps the default",
			input:    "/find outage --limit zero",
			expected: Query{Terms: "outage", Limit: 10},
		},
		{
			name:     "Negative limit keeps the default",
			input:    "/find outage --limit -2",
			expected: Query{Terms: "outage", Limit: 10},
		},
		{
			name:     "No terms",
			input:    "/find",
			expected: Query{Terms: "", Limit: 10},
		},
		{
			name:     "Extra whitespace",
			input:    "  /find   spaced   out  ",
			expected: Query{Terms: "spaced out", Limit: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, ParseCommand(tt.input), "test=%s", tt.name)
		})
	}
}
