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
	"math"
	"sort"
	"strings"

	"github.com/kljensen/snowball"
)

// Minimum viable training set. Below either bound the fit fails fatally at
// startup.
const (
	// MinTrainingLabels is the least number of distinct labels Fit accepts.
	MinTrainingLabels = 2

	// MinTrainingExamples is the least total number of examples Fit accepts.
	MinTrainingExamples = 5
)

// Classifier maps free text to an intent label.
//
// # Description
//
// Any text-classification algorithm satisfies the engine's needs through
// this interface; the engine does not depend on a particular model family.
// Fit is called exactly once at startup; Predict must be safe for
// unsynchronized concurrent calls after Fit returns. Predict returns some
// label for every input it can featurize — no confidence threshold — and
// the caller decides whether the label is a configured intent. Any fit or
// predict failure is an explicit error, treated by the caller as "no
// intent", never silently swallowed.
type Classifier interface {
	Fit(examples []string, labels []string) error
	Predict(text string) (string, error)
}

// =============================================================================
// Shared TF-IDF nearest-centroid model
// =============================================================================

// tokenizer turns raw text into the feature tokens of a concrete classifier.
type tokenizer func(text string) []string

// centroidModel is a TF-IDF nearest-centroid text classifier over an
// arbitrary tokenization.
//
// IDF uses Lucene-style smoothing, log((N+1)/(df+1)) + 1, so rare tokens
// dominate and no token divides by zero. Each training document becomes an
// L2-normalized TF-IDF vector; a label's centroid is the normalized mean of
// its documents. Prediction is cosine similarity against every centroid.
//
// Thread Safety: Immutable after fit; safe for concurrent predict.
type centroidModel struct {
	tokens    tokenizer
	idf       map[string]float64
	centroids map[string]map[string]float64
	labels    []string
}

func (m *centroidModel) fit(examples, labels []string) error {
	if len(examples) != len(labels) {
		return fmt.Errorf("%w: %d examples for %d labels", ErrTraining, len(examples), len(labels))
	}

	distinct := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		distinct[label] = struct{}{}
	}
	if len(distinct) < MinTrainingLabels {
		return fmt.Errorf("%w: need at least %d classes, got %d", ErrTraining, MinTrainingLabels, len(distinct))
	}
	if len(examples) < MinTrainingExamples {
		return fmt.Errorf("%w: need at least %d examples, got %d", ErrTraining, MinTrainingExamples, len(examples))
	}

	// Document frequency over per-document unique tokens.
	docs := make([]map[string]int, len(examples))
	df := make(map[string]int)
	for i, example := range examples {
		tf := make(map[string]int)
		for _, tok := range m.tokens(example) {
			tf[tok]++
		}
		docs[i] = tf
		for tok := range tf {
			df[tok]++
		}
	}

	n := len(docs)
	m.idf = make(map[string]float64, len(df))
	for tok, freq := range df {
		m.idf[tok] = math.Log(float64(n+1)/float64(freq+1)) + 1.0
	}

	// Accumulate normalized document vectors into per-label centroids.
	sums := make(map[string]map[string]float64, len(distinct))
	for i, tf := range docs {
		vec := m.vectorize(tf)
		if vec == nil {
			continue
		}
		label := labels[i]
		sum, ok := sums[label]
		if !ok {
			sum = make(map[string]float64)
			sums[label] = sum
		}
		for tok, w := range vec {
			sum[tok] += w
		}
	}
	if len(sums) < MinTrainingLabels {
		return fmt.Errorf("%w: fewer than %d classes had featurizable examples", ErrTraining, MinTrainingLabels)
	}

	m.centroids = make(map[string]map[string]float64, len(sums))
	m.labels = m.labels[:0]
	for label, sum := range sums {
		normalizeVec(sum)
		m.centroids[label] = sum
		m.labels = append(m.labels, label)
	}
	// Sorted label order makes score ties deterministic.
	sort.Strings(m.labels)

	return nil
}

func (m *centroidModel) predict(text string) (string, error) {
	if m.centroids == nil {
		return "", fmt.Errorf("%w: predict before fit", ErrTraining)
	}

	tf := make(map[string]int)
	for _, tok := range m.tokens(text) {
		tf[tok]++
	}
	vec := m.vectorize(tf)
	if vec == nil {
		return "", fmt.Errorf("dialog: no classifiable features in %q", text)
	}

	best := ""
	bestScore := math.Inf(-1)
	for _, label := range m.labels {
		score := dot(vec, m.centroids[label])
		if score > bestScore {
			bestScore = score
			best = label
		}
	}
	return best, nil
}

// vectorize converts raw term frequencies into an L2-normalized TF-IDF
// vector. Tokens unseen at fit time score idf 1 (maximally common) instead
// of being dropped, matching the smoothing above. Returns nil for an empty
// document.
func (m *centroidModel) vectorize(tf map[string]int) map[string]float64 {
	if len(tf) == 0 {
		return nil
	}
	vec := make(map[string]float64, len(tf))
	for tok, count := range tf {
		idf, known := m.idf[tok]
		if !known {
			idf = 1.0
		}
		vec[tok] = float64(count) * idf
	}
	normalizeVec(vec)
	return vec
}

func normalizeVec(vec map[string]float64) {
	var sum float64
	for _, w := range vec {
		sum += w * w
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for tok := range vec {
		vec[tok] /= norm
	}
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for tok, w := range a {
		sum += w * b[tok]
	}
	return sum
}

// =============================================================================
// Character-trigram classifier
// =============================================================================

// TrigramClassifier classifies on TF-IDF weighted character trigrams of the
// normalized text. Trigrams are robust to the inflection-heavy morphology of
// Russian without any language resources.
type TrigramClassifier struct {
	model centroidModel
}

// NewTrigramClassifier creates an untrained trigram classifier.
func NewTrigramClassifier() *TrigramClassifier {
	c := &TrigramClassifier{}
	c.model.tokens = charTrigrams
	return c
}

// Fit trains the classifier. Implements Classifier.
func (c *TrigramClassifier) Fit(examples, labels []string) error {
	return c.model.fit(examples, labels)
}

// Predict returns the best label for the text. Implements Classifier.
func (c *TrigramClassifier) Predict(text string) (string, error) {
	return c.model.predict(text)
}

// charTrigrams tokenizes normalized text into overlapping character
// trigrams. The text is padded with one space on each side so one- and
// two-letter words still produce features.
func charTrigrams(text string) []string {
	padded := []rune(" " + Normalize(text) + " ")
	if len(padded) < 3 {
		return nil
	}
	grams := make([]string, 0, len(padded)-2)
	for i := 0; i+3 <= len(padded); i++ {
		grams = append(grams, string(padded[i:i+3]))
	}
	return grams
}

// =============================================================================
// Stemmed-unigram classifier
// =============================================================================

// StemClassifier classifies on TF-IDF weighted Snowball-stemmed word
// unigrams. An alternative to TrigramClassifier for configs with longer,
// full-sentence examples; selectable via the engine configuration.
type StemClassifier struct {
	model centroidModel

	// language is the Snowball stemmer language, "russian" by default.
	language string
}

// NewStemClassifier creates an untrained stemmed-unigram classifier.
func NewStemClassifier() *StemClassifier {
	c := &StemClassifier{language: "russian"}
	c.model.tokens = c.stemTokens
	return c
}

// Fit trains the classifier. Implements Classifier.
func (c *StemClassifier) Fit(examples, labels []string) error {
	return c.model.fit(examples, labels)
}

// Predict returns the best label for the text. Implements Classifier.
func (c *StemClassifier) Predict(text string) (string, error) {
	return c.model.predict(text)
}

// stemTokens stems every word of the normalized text. Words the stemmer
// rejects (digits, hyphens, foreign scripts) are kept verbatim so they
// still contribute as exact-match features.
func (c *StemClassifier) stemTokens(text string) []string {
	words := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		stemmed, err := snowball.Stem(word, c.language, false)
		if err != nil || stemmed == "" {
			tokens = append(tokens, word)
			continue
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}
