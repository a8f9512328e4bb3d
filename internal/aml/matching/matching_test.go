package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaroWinkler_KnownValues(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"martha", "marhta", 0.9611},
		{"dwayne", "duane", 0.84},
		{"dixon", "dicksonx", 0.8133},
		{"abc", "xyz", 0},
		{"same", "same", 1},
		{"", "anything", 0},
		{"anything", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaroWinkler(tt.a, tt.b), 0.0001)
		})
	}
}

func TestJaroWinkler_SingleCharacterWindow(t *testing.T) {
	// max(len)/2 - 1 is negative for one-character strings and must clamp to 0.
	assert.Equal(t, 0.0, JaroWinkler("a", "b"))
	assert.Equal(t, 1.0, JaroWinkler("a", "a"))
	assert.InDelta(t, 0.85, JaroWinkler("a", "ab"), 0.0001)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"John Test Sanctioned", "john test sanctioned"},
		{"  J.   Sanctioned ", "j sanctioned"},
		{"Mary-Jane O'Neil", "mary jane oneil"},
		{"José Álvarez", "jose alvarez"},
		{"Zoë\tMüller", "zoe muller"},
		{"D’Angelo", "dangelo"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("identical after normalization", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("JOHN TEST SANCTIONED", "john test sanctioned"))
		assert.Equal(t, 1.0, Similarity("Jose Alvarez", "José Álvarez"))
	})

	t.Run("close spelling clears the match threshold", func(t *testing.T) {
		assert.GreaterOrEqual(t, Similarity("Jon Test Sanctioned", "John Test Sanctioned"), 0.85)
	})

	t.Run("unrelated names stay low", func(t *testing.T) {
		assert.Less(t, Similarity("Alice Wong", "Boris Petrov"), 0.7)
	})
}

func TestTokenOverlap(t *testing.T) {
	assert.Equal(t, 1.0, TokenOverlap("Johnny Sanctioned", "John Test Sanctioned"))
	assert.Equal(t, 0.5, TokenOverlap("Sample Widget", "Sample Entity Corp"))
	assert.Equal(t, 1.0, TokenOverlap("john", "john smith"))
	assert.Equal(t, 0.5, TokenOverlap("john smith", "john"))
	assert.Equal(t, 0.0, TokenOverlap("", "john"))
}

func TestIsMultiToken(t *testing.T) {
	assert.True(t, IsMultiToken("J. Sanctioned"))
	assert.False(t, IsMultiToken("Sanctioned"))
	assert.False(t, IsMultiToken(" - "))
}
