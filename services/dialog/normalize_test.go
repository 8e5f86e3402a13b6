// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dialog

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"lowercase passthrough", "привет", "привет"},
		{"uppercase cyrillic", "ПРИВЕТ", "привет"},
		{"uppercase latin", "HELLO", "hello"},
		{"yo kept", "всё Ёлки", "всё ёлки"},
		{"digits and hyphen kept", "диван-кровать за 5000", "диван-кровать за 5000"},
		{"punctuation dropped", "есть ли диваны?!", "есть ли диваны"},
		{"emoji dropped", "привет 👋", "привет"},
		{"surrounding space trimmed", "  привет  ", "привет"},
		{"all garbage", "?!...()", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Привет, МИР!", "диван-кровать 2000", "Ёжик в тумане?", "hello WORLD"}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "диваны", []string{"диваны"}},
		{"order preserved", "есть ли диваны", []string{"есть", "ли", "диваны"}},
		{"duplicates collapse", "да да нет да", []string{"да", "нет"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitWords(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitWords(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
