// Package identity builds the per-process token that the lease compares
// against, and the random alphanumeric strings used as messages.
package identity

import (
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Alphabet is the character set for tokens and messages: A-Z then 0-9.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SuffixLength is the number of random characters after the pid.
const SuffixLength = 5

// Rand is the randomness a process needs. *rand.Rand satisfies it, and tests
// substitute scripted sources.
type Rand interface {
	Intn(n int) int
}

// lockedRand makes a *rand.Rand safe for the simulate harness, where loops
// may share one source.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewRand returns a goroutine-safe source seeded from seed, or from the clock
// and pid when seed is zero.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano() ^ int64(os.Getpid())<<32
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// RandomString draws n characters uniformly from Alphabet.
func RandomString(r Rand, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(Alphabet[r.Intn(len(Alphabet))])
	}
	return b.String()
}

// NewToken returns "<pid>_<5 random chars>". It is created once per process
// (or per simulated worker) and never changes.
func NewToken(pid int, r Rand) string {
	return strconv.Itoa(pid) + "_" + RandomString(r, SuffixLength)
}

// ProcessToken is NewToken for the running process.
func ProcessToken(r Rand) string {
	return NewToken(os.Getpid(), r)
}
