package rag

import "iter"

// DefaultChunkSize is the embedding unit size in runes.
const DefaultChunkSize = 1000

// Chunks splits text into consecutive substrings of size runes; the last
// chunk may be shorter. The sequence is lazy and can be ranged over more
// than once. Empty input yields no chunks.
//
// Splitting counts runes, not bytes, so multi-byte characters are never
// cut in half and concatenating all chunks reproduces the input exactly.
func Chunks(text string, size int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if size <= 0 || text == "" {
			return
		}
		start := 0
		count := 0
		for i := range text {
			if count == size {
				if !yield(text[start:i]) {
					return
				}
				start = i
				count = 0
			}
			count++
		}
		yield(text[start:])
	}
}

// ChunkCount returns the number of chunks Chunks would yield.
func ChunkCount(text string, size int) int {
	n := 0
	for range Chunks(text, size) {
		n++
	}
	return n
}
