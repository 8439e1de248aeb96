package search

import (
	"strconv"
	"strings"
)

const defaultLimit = 10

// Query is a parsed in-room /find command. The room is implied by where
// the command was issued, so only terms and pagination are parsed.
type Query struct {
	Terms string
	Limit int
}

// ParseCommand parses command-line style arguments out of a chat input.
// Example: /find deployment checklist --limit 5
func ParseCommand(input string) Query {
	query := Query{Limit: defaultLimit}

	parts := strings.Fields(input)
	var terms []string
	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if part == "--limit" && i+1 < len(parts) {
			if n, err := strconv.Atoi(parts[i+1]); err == nil && n > 0 {
				query.Limit = n
			}
			i++
			continue
		}
		// The command word itself is not a search term.
		if strings.HasPrefix(part, "/") {
			continue
		}
		terms = append(terms, part)
	}

	query.Terms = strings.Join(terms, " ")
	return query
}
