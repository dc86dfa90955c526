// Package token issues the per-run protection token embedded on every
// page and in document metadata. Tokens are provenance markers only:
// they are written, never parsed back, and never drive any decision.
package token

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Prefix is the fixed token prefix.
const Prefix = "PROTECTED_"

// Token is an opaque per-run identifier of the form
// PROTECTED_<32 hex chars>.
type Token string

// New generates a fresh token from a cryptographically random UUID.
func New() Token {
	return Token(Prefix + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (t Token) String() string { return string(t) }

// PageMark returns the page-qualified form drawn in the page corner.
func (t Token) PageMark(page, total int) string {
	return string(t) + "_PAGE_" + strconv.Itoa(page) + "_OF_" + strconv.Itoa(total)
}

var pattern = regexp.MustCompile(`^PROTECTED_[A-Za-z0-9]{16,}$`)

// Valid reports whether s has token shape. Used only by tests and
// diagnostics; the engine never branches on token content.
func Valid(s string) bool { return pattern.MatchString(s) }
