package identity

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// scripted returns the queued values in order, then zeros.
type scripted struct{ vals []int }

func (s *scripted) Intn(n int) int {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v % n
}

func TestRandomStringUsesAlphabet(t *testing.T) {
	got := RandomString(&scripted{vals: []int{0, 1, 2, 3, 4}}, 5)
	require.Equal(t, "ABCDE", got)

	got = RandomString(&scripted{vals: []int{26, 35}}, 2)
	require.Equal(t, "09", got)
}

func TestNewTokenFormat(t *testing.T) {
	tok := NewToken(4242, NewRand(1))
	require.Regexp(t, regexp.MustCompile(`^4242_[A-Z0-9]{5}$`), tok)
}

func TestTokensDiffer(t *testing.T) {
	r := NewRand(7)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok := NewToken(1, r)
		require.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestRandomStringIsRoughlyUniform(t *testing.T) {
	r := NewRand(99)
	counts := map[rune]int{}
	const n = 36 * 2000
	for _, c := range RandomString(r, n) {
		counts[c]++
	}
	require.Len(t, counts, len(Alphabet))
	for c, k := range counts {
		require.InDelta(t, 2000, k, 300, "char %c", c)
	}
}
