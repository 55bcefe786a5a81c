// Package testutil provides deterministic stand-ins for the engine's one
// nondeterministic input, the shared random source. A test that fixes
// the source fixes the whole chain.
package testutil

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// FixedSource is a random source that returns the same word on every draw.
//
// Feeding the maximum word pins the uniform stream at the top of [0, 1):
// Float64 keeps 53 bits of the word, so the draw is 1 - 2^-53, the largest
// acceptance threshold a source can produce. That forces rejection of any
// materially negative acceptance ratio. The zero word pins the stream at
// 0, whose log-threshold accepts any finite ratio.
//
// Not safe for concurrent use; inference is single-threaded by contract.
type FixedSource struct {
	word uint64
}

// NewFixedSource creates a source that always returns word.
func NewFixedSource(word uint64) *FixedSource {
	return &FixedSource{word: word}
}

// Uint64 implements rand.Source.
func (s *FixedSource) Uint64() uint64 { return s.word }

// Seed implements rand.Source. Reseeding a fixed source has no effect.
func (s *FixedSource) Seed(uint64) {}

// ScriptedSource replays a fixed script of words and panics when the
// script is exhausted.
//
// The panic makes unexpected consumption visible: a test that scripts no
// words proves the code under test never drew one.
//
// Not safe for concurrent use; inference is single-threaded by contract.
type ScriptedSource struct {
	words []uint64
	next  int
}

// NewScriptedSource creates a source that returns the given words in order.
// The slice is copied.
func NewScriptedSource(words ...uint64) *ScriptedSource {
	return &ScriptedSource{words: append([]uint64(nil), words...)}
}

// Uint64 implements rand.Source. Panics once the script runs out.
func (s *ScriptedSource) Uint64() uint64 {
	if s.next >= len(s.words) {
		panic(fmt.Sprintf("scripted source exhausted after %d draws", len(s.words)))
	}
	w := s.words[s.next]
	s.next++
	return w
}

// Seed implements rand.Source. Reseeding does not rewind the script.
func (s *ScriptedSource) Seed(uint64) {}

// Remaining returns the number of unplayed words.
func (s *ScriptedSource) Remaining() int { return len(s.words) - s.next }

// Rand returns a generator over a PCG source with the given seed, the same
// construction the command line uses for reproducible runs.
func Rand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
