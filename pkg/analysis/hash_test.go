package analysis

import (
	"encoding/hex"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duynguyendang/relpat/pkg/kg"
)

func TestTripleSetHashPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for range 20 {
		triples := randomTriples(rng, 50, 30, 5)
		want := TripleSetHash(triples)

		shuffled := slices.Clone(triples)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, TripleSetHash(shuffled))
	}
}

func TestTripleSetHashDistinguishesSets(t *testing.T) {
	a := TripleSetHash(exampleTriples)
	b := TripleSetHash(exampleTriples[:2])
	assert.NotEqual(t, a, b)

	// The hash covers the multiset; duplicates change it.
	dup := TripleSetHash(append(slices.Clone(exampleTriples), exampleTriples[0]))
	assert.NotEqual(t, a, dup)

	// "[1, 10, 2]" must not collide with "[11, 0, 2]".
	assert.NotEqual(t,
		TripleSetHash([]kg.Triple{kg.NewTriple(1, 10, 2)}),
		TripleSetHash([]kg.Triple{kg.NewTriple(11, 0, 2)}))
}

func TestCacheKey(t *testing.T) {
	key := CacheKey(exampleTriples)
	assert.Len(t, key, CacheKeyLength)
	sum := TripleSetHash(exampleTriples)
	assert.Equal(t, hex.EncodeToString(sum[:])[:CacheKeyLength], key)

	// Empty input still has a well-defined key (SHA-512 of the empty string).
	assert.Equal(t, "cf83e1357eefb8bd", CacheKey(nil))
}
