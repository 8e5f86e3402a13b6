// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dialog

import (
	"errors"
	"reflect"
	"testing"
)

// trainingFixture is a small two-intent training set shared by the
// classifier tests.
func trainingFixture() (examples, labels []string) {
	examples = []string{
		"привет",
		"добрый день",
		"здравствуйте",
		"есть ли диваны",
		"покажите диваны",
		"сколько стоит диван",
	}
	labels = []string{
		"hello", "hello", "hello",
		"sofas", "sofas", "sofas",
	}
	return examples, labels
}

func TestTrigramClassifier_FitPredict(t *testing.T) {
	c := NewTrigramClassifier()
	examples, labels := trainingFixture()
	if err := c.Fit(examples, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	tests := []struct {
		text string
		want string
	}{
		{"привет", "hello"},
		{"приветик", "hello"},
		{"есть ли диваны", "sofas"},
		{"диваны есть", "sofas"},
	}
	for _, tt := range tests {
		got, err := c.Predict(tt.text)
		if err != nil {
			t.Fatalf("Predict(%q): %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Predict(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestStemClassifier_FitPredict(t *testing.T) {
	c := NewStemClassifier()
	examples, labels := trainingFixture()
	if err := c.Fit(examples, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Inflected forms stem to the same root as the training words.
	got, err := c.Predict("диванов")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != "sofas" {
		t.Errorf("Predict(диванов) = %q, want sofas", got)
	}
}

func TestClassifier_FitValidation(t *testing.T) {
	tests := []struct {
		name     string
		examples []string
		labels   []string
	}{
		{
			name:     "length mismatch",
			examples: []string{"a", "b"},
			labels:   []string{"x"},
		},
		{
			name:     "single class",
			examples: []string{"a", "b", "c", "d", "e"},
			labels:   []string{"x", "x", "x", "x", "x"},
		},
		{
			name:     "too few examples",
			examples: []string{"привет", "пока", "ау", "эй"},
			labels:   []string{"hello", "bye", "hello", "bye"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTrigramClassifier()
			err := c.Fit(tt.examples, tt.labels)
			if err == nil {
				t.Fatal("expected a training error")
			}
			if !errors.Is(err, ErrTraining) {
				t.Errorf("error should wrap ErrTraining, got %v", err)
			}
		})
	}
}

func TestClassifier_PredictBeforeFit(t *testing.T) {
	c := NewTrigramClassifier()
	if _, err := c.Predict("привет"); err == nil {
		t.Error("expected an error predicting before fit")
	}
}

func TestClassifier_PredictNoFeatures(t *testing.T) {
	c := NewTrigramClassifier()
	examples, labels := trainingFixture()
	if err := c.Fit(examples, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := c.Predict("?!..."); err == nil {
		t.Error("expected an error for unfeaturizable input")
	}
}

func TestCharTrigrams(t *testing.T) {
	got := charTrigrams("ау")
	// Padded to " ау ", giving two trigrams.
	want := []string{" ау", "ау "}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("charTrigrams(ау) = %v, want %v", got, want)
	}

	if grams := charTrigrams("?!"); grams != nil {
		t.Errorf("unfeaturizable input should give no trigrams, got %v", grams)
	}
}
