package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestFixedSource_ReturnsSameWord(t *testing.T) {
	src := NewFixedSource(42)

	assert.Equal(t, uint64(42), src.Uint64())
	assert.Equal(t, uint64(42), src.Uint64())
	assert.Equal(t, uint64(42), src.Uint64())

	// Reseeding has no effect
	src.Seed(7)
	assert.Equal(t, uint64(42), src.Uint64())
}

func TestFixedSource_MaxWordPinsUniformNearOne(t *testing.T) {
	rng := rand.New(NewFixedSource(math.MaxUint64))

	u := rng.Float64()
	assert.Less(t, u, 1.0)
	assert.Greater(t, u, 0.9999999)

	// Every draw lands on the same threshold
	assert.Equal(t, u, rng.Float64())
}

func TestFixedSource_ZeroWordPinsUniformAtZero(t *testing.T) {
	rng := rand.New(NewFixedSource(0))

	assert.Equal(t, 0.0, rng.Float64())
	assert.True(t, math.IsInf(math.Log(rng.Float64()), -1))
}

func TestScriptedSource_PlaysWordsInOrder(t *testing.T) {
	src := NewScriptedSource(3, 1, 4)

	assert.Equal(t, 3, src.Remaining())
	assert.Equal(t, uint64(3), src.Uint64())
	assert.Equal(t, uint64(1), src.Uint64())
	assert.Equal(t, uint64(4), src.Uint64())
	assert.Equal(t, 0, src.Remaining())
}

func TestScriptedSource_PanicsWhenExhausted(t *testing.T) {
	src := NewScriptedSource(9)
	src.Uint64()

	assert.PanicsWithValue(t, "scripted source exhausted after 1 draws", func() {
		src.Uint64()
	})
}

func TestScriptedSource_EmptyScriptPanicsOnFirstDraw(t *testing.T) {
	src := NewScriptedSource()

	assert.Panics(t, func() { src.Uint64() })
}

func TestScriptedSource_CopiesScript(t *testing.T) {
	words := []uint64{1, 2}
	src := NewScriptedSource(words...)
	words[0] = 99

	assert.Equal(t, uint64(1), src.Uint64())
}

func TestRand_SameSeedSameStream(t *testing.T) {
	a := Rand(1234)
	b := Rand(1234)

	for i := 0; i < 50; i++ {
		require.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestRand_DifferentSeedsDiverge(t *testing.T) {
	a := Rand(1)
	b := Rand(2)

	same := true
	for i := 0; i < 10; i++ {
		if a.Uint64() != b.Uint64() {
			same = false
		}
	}
	assert.False(t, same)
}
