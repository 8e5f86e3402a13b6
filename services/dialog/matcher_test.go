// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dialog

import (
	"context"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"привет", "", 6},
		{"", "привет", 6},
		{"привет", "привет", 0},
		{"привет", "превет", 1},
		{"кот", "кто", 2},
		{"диван", "диваны", 1},
		{"sitting", "kitten", 3},
	}
	for _, tt := range tests {
		if got := levenshtein([]rune(tt.a), []rune(tt.b)); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func testMatcher(t *testing.T, pairs []Pair) *Matcher {
	t.Helper()
	return NewMatcher(BuildCorpusIndex(pairs, WithShuffleSeed(1)))
}

func TestMatcher_ExactQuestion(t *testing.T) {
	m := testMatcher(t, []Pair{
		{Question: "есть ли диваны", Answer: "Да, в наличии"},
		{Question: "привет", Answer: "Здравствуйте"},
	})

	answer, ok := m.Match(context.Background(), "Есть ли диваны?")
	if !ok {
		t.Fatal("expected a match for the exact corpus question")
	}
	if answer != "Да, в наличии" {
		t.Errorf("answer = %q", answer)
	}
}

func TestMatcher_NearQuestion(t *testing.T) {
	m := testMatcher(t, []Pair{
		{Question: "есть ли диваны", Answer: "Да, в наличии"},
	})

	// One edit away from the corpus question.
	answer, ok := m.Match(context.Background(), "есть ли диван")
	if !ok {
		t.Fatal("expected a match one edit away")
	}
	if answer != "Да, в наличии" {
		t.Errorf("answer = %q", answer)
	}
}

func TestMatcher_RejectsByLengthRatio(t *testing.T) {
	m := testMatcher(t, []Pair{
		{Question: "добрый день", Answer: "И вам"},
	})

	// Shares the word but is far too long relative to the question.
	if _, ok := m.Match(context.Background(), "добрый вечер всем друзьям сегодня"); ok {
		t.Error("expected the length filter to reject the candidate")
	}
}

func TestMatcher_RejectsByEditDistance(t *testing.T) {
	m := testMatcher(t, []Pair{
		{Question: "привет друг", Answer: "Привет"},
	})

	// Comparable length, shares "привет", but the tail is unrelated.
	if _, ok := m.Match(context.Background(), "привет авывавы"); ok {
		t.Error("expected the edit-distance filter to reject the candidate")
	}
}

func TestMatcher_PicksClosest(t *testing.T) {
	m := testMatcher(t, []Pair{
		{Question: "диваны в наличии", Answer: "далекий"},
		{Question: "есть ли диваны", Answer: "близкий"},
	})

	answer, ok := m.Match(context.Background(), "есть ли диваны")
	if !ok {
		t.Fatal("expected a match")
	}
	if answer != "близкий" {
		t.Errorf("expected the zero-distance candidate to win, got %q", answer)
	}
}

func TestMatcher_NoIndexedWords(t *testing.T) {
	m := testMatcher(t, []Pair{
		{Question: "привет", Answer: "Здравствуйте"},
	})

	if _, ok := m.Match(context.Background(), "шкафы недорого"); ok {
		t.Error("expected a miss when no input word is indexed")
	}
	if _, ok := m.Match(context.Background(), ""); ok {
		t.Error("expected a miss for empty input")
	}
}

func TestMatcher_EmptyIndex(t *testing.T) {
	m := testMatcher(t, nil)
	if _, ok := m.Match(context.Background(), "привет"); ok {
		t.Error("expected a miss on an empty index")
	}
}
