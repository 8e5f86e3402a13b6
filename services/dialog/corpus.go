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
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// corpusMarkerLen is the fixed prefix every corpus line carries
// ("- " style dialogue markers) that is stripped during parsing.
const corpusMarkerLen = 2

// Pair is one (question, answer) example mined from the unlabeled dialogue
// corpus. The question is stored normalized; the answer is returned to users
// verbatim. Pairs are immutable after load and owned by the CorpusIndex.
type Pair struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// ParseCorpus reads the raw dialogue corpus and returns deduplicated pairs.
//
// Description:
//
//	The corpus is a text stream of blank-line-separated blocks. A usable
//	block is exactly two lines: a question then its answer, each prefixed by
//	a 2-character marker that is stripped. Questions are normalized; blocks
//	whose normalized question is empty or already seen are discarded
//	(first occurrence wins).
//
// Inputs:
//
//	r - The corpus source. Read fully into memory; corpora of a few hundred
//	    thousand pairs are the expected scale.
//
// Outputs:
//
//	[]Pair - Surviving pairs in input order.
//	error - Non-nil only on read failure. A corpus with no usable blocks
//	        yields an empty slice, not an error.
//
// Thread Safety: Safe for concurrent use (no shared state).
func ParseCorpus(r io.Reader) ([]Pair, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ParseCorpus: reading corpus: %w", err)
	}

	blocks := strings.Split(string(content), "\n\n")
	pairs := make([]Pair, 0, len(blocks))
	seen := make(map[string]struct{}, len(blocks))

	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		if len(lines) != 2 {
			continue
		}

		question := Normalize(stripMarker(lines[0]))
		answer := stripMarker(lines[1])
		if question == "" {
			continue
		}
		if _, dup := seen[question]; dup {
			continue
		}

		seen[question] = struct{}{}
		pairs = append(pairs, Pair{Question: question, Answer: answer})
	}

	slog.Info("corpus parsed",
		slog.Int("blocks", len(blocks)),
		slog.Int("pairs", len(pairs)),
	)

	return pairs, nil
}

// stripMarker drops the fixed 2-character line marker. The marker is
// counted in runes, so a non-ASCII marker is not split mid-character.
// Short lines collapse to the empty string instead of panicking on
// malformed input.
func stripMarker(line string) string {
	runes := []rune(line)
	if len(runes) <= corpusMarkerLen {
		return ""
	}
	return string(runes[corpusMarkerLen:])
}
