// Package accesscode defines the canonical access code shape and the Code
// Store contract shared by the server, the HTTP client and the gate.
package accesscode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	// Alphabet excludes 0, 1, I and O.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	GroupSize      = 4
	GroupCount     = 3
	CanonicalLen   = GroupSize*GroupCount + GroupCount - 1
	meaningfulLen  = GroupSize * GroupCount
	groupSeparator = '-'

	// TTL is fixed for every code and never changes after issuance.
	TTL = time.Hour
)

var wellFormed = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Normalize upper-cases input, drops everything outside [A-Z0-9] and
// re-groups the first twelve characters as XXXX-XXXX-XXXX. A dash is only
// emitted when a further character follows it, so partial input such as
// "ABCD" stays "ABCD" while typing.
func Normalize(input string) string {
	upper := strings.ToUpper(input)

	cleaned := make([]byte, 0, meaningfulLen)
	for i := 0; i < len(upper) && len(cleaned) < meaningfulLen; i++ {
		c := upper[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			cleaned = append(cleaned, c)
		}
	}

	var b strings.Builder
	b.Grow(CanonicalLen)
	for i, c := range cleaned {
		if i > 0 && i%GroupSize == 0 {
			b.WriteByte(groupSeparator)
		}
		b.WriteByte(c)
	}
	return b.String()
}

// IsWellFormed reports whether code normalizes to the full canonical shape.
func IsWellFormed(code string) bool {
	n := Normalize(code)
	return len(n) == CanonicalLen && wellFormed.MatchString(n)
}

// Generate returns a new random code in canonical form.
func Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	raw := make([]byte, meaningfulLen)
	for i := range raw {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		raw[i] = Alphabet[n.Int64()]
	}
	return Normalize(string(raw)), nil
}
