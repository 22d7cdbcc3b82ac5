package analysis

import (
	"crypto/sha512"
	"encoding/hex"
	"slices"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// CacheKeyLength is the number of hex characters of the triple set hash used as cache key.
const CacheKeyLength = 16

// TripleSetHash returns the SHA-512 digest of the concatenated, sorted canonical
// string forms of triples. It is invariant under any permutation of the input.
func TripleSetHash(triples []kg.Triple) [sha512.Size]byte {
	strs := make([]string, len(triples))
	size := 0
	for i, t := range triples {
		strs[i] = t.String()
		size += len(strs[i])
	}
	slices.Sort(strs)

	h := sha512.New()
	buf := make([]byte, 0, min(size, 1<<20))
	for _, s := range strs {
		if len(buf)+len(s) > cap(buf) {
			h.Write(buf)
			buf = buf[:0]
		}
		buf = append(buf, s...)
	}
	h.Write(buf)

	var sum [sha512.Size]byte
	h.Sum(sum[:0])
	return sum
}

// CacheKey returns the first CacheKeyLength hex characters of TripleSetHash.
func CacheKey(triples []kg.Triple) string {
	sum := TripleSetHash(triples)
	return hex.EncodeToString(sum[:])[:CacheKeyLength]
}
