// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dialog implements the Domovenok response-selection engine:
// intent classification over a small configured example set, fallback
// retrieval against a large unlabeled question/answer corpus, per-user
// response rotation, and probabilistic promotional asides.
//
// The package is organized leaves-first: Normalize is used by every other
// component; CorpusIndex and Matcher implement fallback retrieval;
// Classifier maps text to intent labels; Selector picks concrete replies;
// Engine wires the control flow together.
package dialog

import "strings"

// Normalize canonicalizes raw user text into the comparable form every
// other component operates on.
//
// Description:
//
//	Lowercases the input, keeps only characters from the fixed allowed
//	alphabet (Latin letters, Cyrillic letters including ё, digits, hyphen,
//	space), drops everything else, and trims surrounding whitespace.
//
// Outputs:
//
//	string - The normalized text. An empty string is valid output for
//	         empty or all-garbage input, not an error.
//
// Thread Safety: Safe for concurrent use (pure function).
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}

// allowedRune reports whether r belongs to the normalizer's alphabet.
func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'а' && r <= 'я':
		return true
	case r == 'ё':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == ' ':
		return true
	}
	return false
}

// splitWords returns the unique words of an already-normalized phrase and
// the order in which each word first appears. Duplicates within a phrase
// collapse.
func splitWords(normalized string) []string {
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}
