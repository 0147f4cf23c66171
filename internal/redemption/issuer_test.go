package redemption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLengthAndAlphabet(t *testing.T) {
	issuer := NewIssuer()

	for i := 0; i < 200; i++ {
		code := issuer.Generate()
		assert.Len(t, code, CodeLength)
		for _, r := range code {
			assert.Contains(t, Alphabet, string(r))
		}
	}
}

func TestGenerateExcludesAmbiguousCharacters(t *testing.T) {
	for _, c := range "01OIL" {
		assert.NotContains(t, Alphabet, string(c))
	}
}

func TestGenerateVaries(t *testing.T) {
	issuer := NewIssuer()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[issuer.Generate()] = true
	}
	// 100 draws from ~887M combinations colliding down to a handful would
	// mean the randomness is broken.
	assert.Greater(t, len(seen), 90)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"x7k2p9", "X7K2P9"},
		{"  X7K2P9  ", "X7K2P9"},
		{"\tx7K2p9\n", "X7K2P9"},
		{"X7K2P9", "X7K2P9"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestNormalizeMatchesGeneratedForm(t *testing.T) {
	issuer := NewIssuer()
	code := issuer.Generate()
	assert.Equal(t, code, Normalize(strings.ToLower(code)))
}
