package redemption

import (
	"crypto/rand"
	"strings"
)

// Alphabet excludes 0/O, 1/I/L to keep codes unambiguous when read out
// over the phone or typed from a receipt.
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	// CodeLength gives ~31^6 (~887M) combinations, plenty of headroom
	// against collisions at this platform's order volume.
	CodeLength = 6

	// MaxAttempts bounds the generate-and-insert retry loop when a
	// collision does happen. Past this the caller must fail hard, not
	// silently skip code issuance.
	MaxAttempts = 5
)

// Issuer generates candidate redemption codes. Uniqueness is enforced by
// the ledger's unique index on the code column; the ledger retries
// generation up to MaxAttempts on collision.
type Issuer struct {
	length int
}

func NewIssuer() *Issuer {
	return &Issuer{length: CodeLength}
}

// Generate returns a random candidate code from the constrained alphabet.
func (i *Issuer) Generate() string {
	b := make([]byte, i.length)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(b)
	for n := range b {
		b[n] = Alphabet[int(b[n])%len(Alphabet)]
	}
	return string(b)
}

// Normalize maps user-typed input to stored form: trimmed and uppercased.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
