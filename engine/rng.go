package engine

import (
	"io"
	"math/rand"
	"unicode/utf8"
)

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every call, enabling save/restore.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Roll returns a random integer in [1, sides].
func (r *RNG) Roll(sides int) int {
	r.pos++
	return r.src.Intn(sides) + 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Position returns the number of RNG calls made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// RestoreRNG creates an RNG and replays position calls of Roll(sides).
// Intn may draw more than once per call, so replaying the same calls is the
// only way to land on the exact saved state. The result is exact when every
// roll before the save used the same sides.
func RestoreRNG(seed int64, position int64, sides int) *RNG {
	rng := NewRNG(seed)
	if sides < 1 {
		sides = 1
	}
	for i := int64(0); i < position; i++ {
		rng.Roll(sides)
	}
	return rng
}

// Chunker splits fragments into pseudo-random chunk sizes in [1, max],
// imitating text arriving over a network stream.
type Chunker struct {
	rng *RNG
	max int
}

// NewChunker returns a chunker drawing sizes from rng. A max below 1
// delivers fragments whole.
func NewChunker(rng *RNG, max int) *Chunker {
	return &Chunker{rng: rng, max: max}
}

// RNG returns the chunker's random source.
func (c *Chunker) RNG() *RNG { return c.rng }

// Restore rewinds the chunker's random source to a saved position.
func (c *Chunker) Restore(seed, position int64) {
	c.rng = RestoreRNG(seed, position, c.max)
}

// Split cuts s into consecutive non-empty chunks. Cuts land on rune
// boundaries, so a chunk may run a few bytes past max to finish a
// multi-byte character.
func (c *Chunker) Split(s string) []string {
	if c.max < 1 || c.max >= len(s) {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var out []string
	for len(s) > 0 {
		n := c.rng.Roll(c.max)
		if n > len(s) {
			n = len(s)
		}
		for n < len(s) && !utf8.RuneStart(s[n]) {
			n++
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}

// Reader returns a reader that yields s one chunk per Read call.
func (c *Chunker) Reader(s string) io.Reader {
	return &chunkReader{chunks: c.Split(s)}
}

type chunkReader struct {
	chunks []string
	cur    string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.cur == "" {
		if len(r.chunks) == 0 {
			return 0, io.EOF
		}
		r.cur, r.chunks = r.chunks[0], r.chunks[1:]
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}
