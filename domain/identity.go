package domain

// Identity is produced by the token verifier and borrowed by the
// session for its lifetime. Immutable once loaded.
type Identity struct {
	ID       string
	Username string
}
