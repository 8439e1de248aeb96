package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalog_TrimsAndDeduplicates(t *testing.T) {
	req := require.New(t)

	catalog := NewCatalog([]string{" general ", "random", "general", "", "  "})

	req.Equal([]RoomName{"general", "random"}, catalog.Names())
	req.True(catalog.Has("general"))
	req.True(catalog.Has("random"))
	req.False(catalog.Has("unknown"))
	req.False(catalog.Has(NoRoom))
}

func TestCatalog_NamesIsACopy(t *testing.T) {
	req := require.New(t)

	catalog := NewCatalog([]string{"general"})
	names := catalog.Names()
	names[0] = "mutated"

	req.Equal([]RoomName{"general"}, catalog.Names())
}
