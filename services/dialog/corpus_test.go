// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dialog

import (
	"strings"
	"testing"
)

func TestParseCorpus_Basic(t *testing.T) {
	raw := "- Есть ли диваны?\n- Да, в наличии\n\n- Привет!\n- Здравствуйте"

	pairs, err := ParseCorpus(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseCorpus: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Question != "есть ли диваны" {
		t.Errorf("question not normalized: %q", pairs[0].Question)
	}
	if pairs[0].Answer != "Да, в наличии" {
		t.Errorf("answer mangled: %q", pairs[0].Answer)
	}
	if pairs[1].Question != "привет" {
		t.Errorf("second question = %q", pairs[1].Question)
	}
}

func TestParseCorpus_SkipsMalformedBlocks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"single line block", "- Только вопрос без ответа", 0},
		{"three line block", "- Вопрос\n- Ответ\n- Лишняя строка", 0},
		{"empty input", "", 0},
		{"question normalizes to empty", "- ?!...\n- Ответ", 0},
		{"good among bad", "- Оторванная строка\n\n- Привет\n- Здравствуйте", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := ParseCorpus(strings.NewReader(tt.raw))
			if err != nil {
				t.Fatalf("ParseCorpus: %v", err)
			}
			if len(pairs) != tt.want {
				t.Errorf("expected %d pairs, got %d", tt.want, len(pairs))
			}
		})
	}
}

func TestParseCorpus_DedupFirstWins(t *testing.T) {
	raw := "- Привет\n- Первый ответ\n\n- ПРИВЕТ!\n- Второй ответ"

	pairs, err := ParseCorpus(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseCorpus: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected dedup to 1 pair, got %d", len(pairs))
	}
	if pairs[0].Answer != "Первый ответ" {
		t.Errorf("dedup should keep the first occurrence, got answer %q", pairs[0].Answer)
	}
}

func TestStripMarker(t *testing.T) {
	if got := stripMarker("- Привет"); got != "Привет" {
		t.Errorf("stripMarker = %q", got)
	}
	if got := stripMarker("-"); got != "" {
		t.Errorf("short line should collapse to empty, got %q", got)
	}
	if got := stripMarker(""); got != "" {
		t.Errorf("empty line should stay empty, got %q", got)
	}
	// The marker is two characters, not two bytes.
	if got := stripMarker("— Привет"); got != "Привет" {
		t.Errorf("non-ASCII marker should strip cleanly, got %q", got)
	}
	if got := stripMarker("—п"); got != "" {
		t.Errorf("two-rune line should collapse to empty, got %q", got)
	}
}
