package matching

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func nameGen(alphabet string) gopter.Gen {
	return gen.SliceOfN(8, gen.OneConstOf(toAny(alphabet)...)).
		SuchThat(func(v []rune) bool { return len(v) > 0 }).
		Map(func(v []rune) string {
			var b strings.Builder
			for _, r := range v {
				b.WriteRune(r)
			}
			return b.String()
		})
}

func toAny(alphabet string) []any {
	out := make([]any, 0, len(alphabet))
	for _, r := range alphabet {
		out = append(out, r)
	}
	return out
}

// TestSimilarityProperties verifies the invariants screening depends on.
// Property: identical names score exactly 1 and names sharing no letters
// score below 0.5; every score stays within [0, 1].
func TestSimilarityProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("identical names score 1", prop.ForAll(
		func(name string) bool {
			return Similarity(name, name) == 1.0
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.Property("disjoint names score below 0.5", prop.ForAll(
		func(a, b string) bool {
			return Similarity(a, b) < 0.5
		},
		nameGen("abcdefghijklm"),
		nameGen("nopqrstuvwxyz"),
	))

	properties.Property("scores are bounded", prop.ForAll(
		func(a, b string) bool {
			s := JaroWinkler(a, b)
			return s >= 0 && s <= 1
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
