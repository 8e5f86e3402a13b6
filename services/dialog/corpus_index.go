// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dialog

import (
	"math/rand"
	"sort"
	"time"
)

// DefaultBucketCap bounds the number of pairs kept per word. Longer, less
// specific questions are deprioritized by the length sort and dropped first
// when a word is extremely common.
const DefaultBucketCap = 1000

// IndexOption is a functional option for configuring BuildCorpusIndex.
type IndexOption func(*indexOptions)

type indexOptions struct {
	bucketCap int
	seed      int64
	seeded    bool
}

// WithBucketCap overrides the per-word bucket cap. Values < 1 are ignored.
func WithBucketCap(n int) IndexOption {
	return func(o *indexOptions) {
		if n >= 1 {
			o.bucketCap = n
		}
	}
}

// WithShuffleSeed fixes the seed of the word-order shuffle so tests can
// reproduce a specific iteration order. Production builds seed from the
// clock.
func WithShuffleSeed(seed int64) IndexOption {
	return func(o *indexOptions) {
		o.seed = seed
		o.seeded = true
	}
}

// CorpusIndex is an inverted index from normalized word to the corpus pairs
// whose question contains that word.
//
// # Description
//
// Buckets are sorted by question length ascending and truncated to the
// bucket cap, so the shortest (most specific) questions survive. The
// iteration order of words is shuffled once at build time to avoid prefix
// bias in any logic that walks the whole index; per-word lookup is
// unaffected.
//
// # Thread Safety
//
// CorpusIndex is immutable after construction via BuildCorpusIndex. Safe
// for concurrent use without additional synchronization. Callers must not
// mutate returned slices.
type CorpusIndex struct {
	// buckets maps each word to its capped, length-sorted pair list.
	buckets map[string][]Pair

	// words holds the shuffled iteration order over bucket keys.
	words []string

	// pairCount is the number of distinct pairs that survived dedup.
	pairCount int
}

// IndexStats contains statistics about a built corpus index.
type IndexStats struct {
	// Words is the number of distinct indexed words.
	Words int

	// Pairs is the number of distinct corpus pairs behind the index.
	Pairs int

	// LargestBucket is the size of the biggest word bucket after capping.
	LargestBucket int
}

// BuildCorpusIndex constructs the inverted index from corpus pairs.
//
// # Description
//
// Build steps, in order:
//
//  1. Deduplicate by normalized question, first occurrence wins.
//  2. Split each surviving question into its word set.
//  3. Append the pair to every word's bucket.
//  4. Sort each bucket by question length ascending (stable, so input
//     order breaks length ties) and truncate to the bucket cap.
//  5. Shuffle the iteration order of words with a seedable source.
//
// Build is the only non-deterministic step's home: given WithShuffleSeed,
// the whole construction is reproducible.
//
// # Inputs
//
//   - pairs: Corpus pairs with normalized questions, as produced by
//     ParseCorpus. An empty slice yields a valid empty index.
//
// # Outputs
//
//   - *CorpusIndex: The constructed index. Never nil.
//
// # Thread Safety
//
// The returned index is immutable and safe for concurrent use.
func BuildCorpusIndex(pairs []Pair, opts ...IndexOption) *CorpusIndex {
	options := indexOptions{bucketCap: DefaultBucketCap}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.seeded {
		options.seed = time.Now().UnixNano()
	}

	buckets := make(map[string][]Pair)
	seen := make(map[string]struct{}, len(pairs))
	kept := 0

	for _, pair := range pairs {
		if _, dup := seen[pair.Question]; dup {
			continue
		}
		seen[pair.Question] = struct{}{}
		kept++

		for _, word := range splitWords(pair.Question) {
			buckets[word] = append(buckets[word], pair)
		}
	}

	words := make([]string, 0, len(buckets))
	for word, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			return len(bucket[i].Question) < len(bucket[j].Question)
		})
		if len(bucket) > options.bucketCap {
			bucket = bucket[:options.bucketCap]
		}
		buckets[word] = bucket
		words = append(words, word)
	}

	// Shuffling map keys from a sorted baseline keeps the result a pure
	// function of the seed; ranging over the map would not be.
	sort.Strings(words)
	rng := rand.New(rand.NewSource(options.seed))
	rng.Shuffle(len(words), func(i, j int) {
		words[i], words[j] = words[j], words[i]
	})

	return &CorpusIndex{
		buckets:   buckets,
		words:     words,
		pairCount: kept,
	}
}

// Lookup returns the bucket for a single word, or nil when the word is not
// indexed. The returned slice is shared and must not be mutated.
func (idx *CorpusIndex) Lookup(word string) []Pair {
	return idx.buckets[word]
}

// Words returns the shuffled word iteration order. The returned slice is
// shared and must not be mutated.
func (idx *CorpusIndex) Words() []string {
	return idx.words
}

// IsEmpty reports whether the index contains no pairs, e.g. when the corpus
// file was missing and the engine runs on configured intents alone.
func (idx *CorpusIndex) IsEmpty() bool {
	return len(idx.buckets) == 0
}

// Stats returns statistics about the index.
func (idx *CorpusIndex) Stats() IndexStats {
	largest := 0
	for _, bucket := range idx.buckets {
		if len(bucket) > largest {
			largest = len(bucket)
		}
	}
	return IndexStats{
		Words:         len(idx.words),
		Pairs:         idx.pairCount,
		LargestBucket: largest,
	}
}
