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
	"context"
	"time"
	"unicode/utf8"
)

// MatchThreshold is the cutoff for both matcher filters: candidates with a
// length ratio or a normalized edit-distance ratio at or above it are
// rejected.
const MatchThreshold = 0.5

// Matcher retrieves the corpus answer whose question is closest to the
// user's text by normalized Levenshtein distance.
//
// Thread Safety: Safe for concurrent use; the underlying index is immutable.
type Matcher struct {
	index *CorpusIndex
}

// NewMatcher creates a matcher over a built corpus index.
func NewMatcher(index *CorpusIndex) *Matcher {
	return &Matcher{index: index}
}

// Match returns the best corpus answer for the text, or ok=false when no
// candidate survives the filters.
//
// # Description
//
// The text is normalized and split into words. Candidates are the union of
// the index buckets for those words; a pair reachable through two words is
// enumerated (and scored) twice. Two filters apply per candidate, cheap
// first:
//
//  1. length ratio |len(text)-len(question)| / len(question) must be
//     below MatchThreshold;
//  2. normalized edit distance levenshtein(text, question) / len(question)
//     must be below MatchThreshold.
//
// The smallest surviving ratio wins; ties keep whichever candidate was
// enumerated first, which — the input word order being user-controlled and
// the index order randomized at build — callers must not rely on.
//
// # Inputs
//
//   - ctx: Carries the tracing span. Not used for cancellation; a single
//     match is bounded CPU work.
//   - text: Raw user text.
//
// # Outputs
//
//   - string: The answer of the closest question, valid only when ok.
//   - bool: False when no candidate survived both filters; the caller must
//     supply a generic failure reply.
//
// # Thread Safety
//
// Safe for concurrent use.
func (m *Matcher) Match(ctx context.Context, text string) (string, bool) {
	_, span := startSpan(ctx, "Matcher.Match")
	defer span.End()
	start := time.Now()

	normalized := Normalize(text)
	words := splitWords(normalized)

	bestRatio := MatchThreshold
	bestAnswer := ""
	found := false
	candidates := 0
	scored := 0

	// Lengths and distances are measured in runes, not bytes, so Cyrillic
	// and Latin questions are filtered on the same scale.
	runes := []rune(normalized)
	for _, word := range words {
		for _, pair := range m.index.Lookup(word) {
			candidates++

			qlen := utf8.RuneCountInString(pair.Question)
			if qlen == 0 {
				continue
			}
			lengthRatio := float64(absInt(len(runes)-qlen)) / float64(qlen)
			if lengthRatio >= MatchThreshold {
				continue
			}

			scored++
			ratio := float64(levenshtein(runes, []rune(pair.Question))) / float64(qlen)
			if ratio < bestRatio {
				bestRatio = ratio
				bestAnswer = pair.Answer
				found = true
			}
		}
	}

	setMatchSpanResult(span, candidates, scored, found)
	recordMatch(time.Since(start), found)

	return bestAnswer, found
}

// levenshtein computes the classic unit-cost edit distance (insert, delete,
// substitute) over rune sequences using two rows instead of a full matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// absInt returns the absolute value of x.
func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
