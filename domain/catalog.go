package domain

import "strings"

// Catalog is the fixed, externally supplied list of room names. The
// gateway never creates or deletes rooms; it only tracks membership
// against known names.
type Catalog struct {
	names []RoomName
	index map[RoomName]struct{}
}

// NewCatalog builds a catalog from raw names, trimming whitespace and
// dropping empties and duplicates while preserving order.
func NewCatalog(names []string) *Catalog {
	c := &Catalog{index: make(map[RoomName]struct{})}
	for _, raw := range names {
		name := RoomName(strings.TrimSpace(raw))
		if name == NoRoom {
			continue
		}
		if _, ok := c.index[name]; ok {
			continue
		}
		c.index[name] = struct{}{}
		c.names = append(c.names, name)
	}
	return c
}

func (c *Catalog) Has(name RoomName) bool {
	_, ok := c.index[name]
	return ok
}

// Names returns a copy of the catalog in declaration order.
func (c *Catalog) Names() []RoomName {
	out := make([]RoomName, len(c.names))
	copy(out, c.names)
	return out
}
