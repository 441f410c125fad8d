package oceanpost

import (
	"strings"
	"unicode"
)

// ContentHash identifies an immutable blob in the content-addressed store.
// It is opaque to this module: each snapshot upload yields a new hash, and
// old hashes remain dereferenceable because the store never mutates in place.
type ContentHash string

// String returns the hash as a plain string.
func (h ContentHash) String() string {
	return string(h)
}

// IsZero returns true if the hash is empty (no snapshot recorded yet).
func (h ContentHash) IsZero() bool {
	return h == ""
}

// ShortString returns a shortened form for display in logs.
func (h ContentHash) ShortString() string {
	const n = 12
	if len(h) <= n {
		return string(h)
	}
	return string(h[:n]) + "…"
}

// Valid reports whether the hash is plausible as a store identifier.
// The store assigns hashes, so this only rejects values that could never
// have come from it: empty strings, whitespace, or path separators.
func (h ContentHash) Valid() bool {
	if h == "" {
		return false
	}
	for _, r := range h {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return !strings.ContainsAny(string(h), "/\\")
}
