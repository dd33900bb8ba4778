package domain

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// NumberGenerator builds order numbers of the form <prefix><6 ms digits><3 digit suffix>.
// The suffix comes from a counter, so 1000 consecutive numbers from one
// generator never repeat. Cross-process collisions are caught by the unique
// index and retried.
type NumberGenerator struct {
	prefix  string
	counter atomic.Uint32
	now     func() time.Time
}

func NewNumberGenerator(prefix string) *NumberGenerator {
	g := &NumberGenerator{prefix: prefix, now: time.Now}
	g.counter.Store(rand.Uint32N(1000))
	return g
}

func (g *NumberGenerator) Next() string {
	ms := g.now().UnixMilli() % 1_000_000
	seq := (g.counter.Add(1) - 1) % 1000
	return fmt.Sprintf("%s%06d%03d", g.prefix, ms, seq)
}
