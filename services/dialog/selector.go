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
	"math/rand"
	"sync"
	"time"
)

// DefaultAdProbability is the chance of appending a promotional aside to a
// reply for an ad-eligible intent.
const DefaultAdProbability = 0.2

// SelectionStrategy names how the selector picks among the responses still
// available in the current rotation cycle.
type SelectionStrategy string

const (
	// StrategyRandom picks uniformly at random from the available set.
	StrategyRandom SelectionStrategy = "random"

	// StrategySimilarity prefers the available response sharing the most
	// words with the recognized text, falling back to uniform random when
	// no response overlaps or no text was supplied.
	StrategySimilarity SelectionStrategy = "similarity"
)

// rotationRecord tracks one rotation cycle over a resolved response set.
// Invariant: used ⊆ all; when used == all it resets before the next pick,
// so no response repeats until every sibling has been shown once.
type rotationRecord struct {
	all  []string
	used map[string]struct{}
	last string
}

// SelectorConfig carries the selector's static configuration.
type SelectorConfig struct {
	// Strategy is the pick strategy; empty means StrategyRandom.
	Strategy SelectionStrategy

	// AdProbability is the ad-injection chance. 0 disables promotional
	// asides; values outside [0, 1] fall back to DefaultAdProbability.
	AdProbability float64

	// AdIntents lists the intents eligible for promotional asides.
	AdIntents []string

	// AdResponses is the global promotional response pool.
	AdResponses []string
}

// SelectorOption is a functional option for configuring NewSelector.
type SelectorOption func(*Selector)

// WithSelectorSeed fixes the selector's random source for tests.
func WithSelectorSeed(seed int64) SelectorOption {
	return func(s *Selector) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// Selector chooses concrete reply strings for resolved intents, rotating
// through each response set without early repeats and occasionally
// appending a promotional aside.
//
// Thread Safety: Safe for concurrent use. The random source is guarded by
// the selector mutex; rotation state is guarded by the owning session's
// mutex.
type Selector struct {
	mu  sync.Mutex // guards rng, which is not concurrency-safe
	rng *rand.Rand

	strategy      SelectionStrategy
	adProbability float64
	adIntents     map[string]struct{}
	adResponses   []string
}

// NewSelector creates a selector from static configuration.
func NewSelector(cfg SelectorConfig, opts ...SelectorOption) *Selector {
	s := &Selector{
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		strategy:      cfg.Strategy,
		adProbability: cfg.AdProbability,
		adIntents:     make(map[string]struct{}, len(cfg.AdIntents)),
		adResponses:   cfg.AdResponses,
	}
	if s.strategy == "" {
		s.strategy = StrategyRandom
	}
	if s.adProbability < 0 || s.adProbability > 1 {
		s.adProbability = DefaultAdProbability
	}
	for _, intent := range cfg.AdIntents {
		s.adIntents[intent] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select resolves the topic bucket and picks the next response for the
// intent within the user's session.
//
// # Description
//
// Topic resolution: the session's current topic if the intent configures
// it, else the "any" bucket, else ErrConfig — a misconfigured intent is
// reported, not silently defaulted. Rotation is scoped per user and per
// resolved (intent, topic) bucket: available = all − used; when available
// is empty the cycle resets, making every response eligible again only
// after all of its siblings have been shown.
//
// # Inputs
//
//   - sess: The user's session. Rotation state mutates under its lock.
//   - intent: The resolved intent label.
//   - responsesByTopic: The intent's configured topic → responses map.
//   - recognized: The recognized user text, used only by
//     StrategySimilarity; may be empty.
//
// # Outputs
//
//   - string: The chosen response.
//   - error: ErrConfig when neither the user's topic nor "any" is
//     configured, or the resolved bucket is empty.
//
// # Thread Safety
//
// Safe for concurrent use.
func (s *Selector) Select(sess *Session, intent string, responsesByTopic map[string][]string, recognized string) (string, error) {
	topic := sess.Topic()
	responses, ok := responsesByTopic[topic]
	if !ok {
		topic = DefaultTopic
		responses, ok = responsesByTopic[DefaultTopic]
	}
	if !ok || len(responses) == 0 {
		return "", fmt.Errorf("%w: intent %q has no responses for topic %q and no %q fallback",
			ErrConfig, intent, sess.Topic(), DefaultTopic)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	key := intent + "/" + topic
	rec, ok := sess.rotations[key]
	if !ok {
		rec = &rotationRecord{
			all:  responses,
			used: make(map[string]struct{}, len(responses)),
		}
		sess.rotations[key] = rec
	}

	available := make([]string, 0, len(rec.all))
	for _, r := range rec.all {
		if _, taken := rec.used[r]; !taken {
			available = append(available, r)
		}
	}
	if len(available) == 0 {
		rec.used = make(map[string]struct{}, len(rec.all))
		available = append(available, rec.all...)
	}

	choice := s.choose(available, recognized)
	rec.used[choice] = struct{}{}
	rec.last = choice

	return choice, nil
}

// MaybeAd rolls the ad-injection dice for an intent.
//
// Independent of rotation: with probability AdProbability, an ad-eligible
// intent gets one extra response drawn uniformly from the ad pool. No
// anti-repeat applies to ads.
func (s *Selector) MaybeAd(intent string) (string, bool) {
	if _, eligible := s.adIntents[intent]; !eligible || len(s.adResponses) == 0 {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() >= s.adProbability {
		return "", false
	}
	ad := s.adResponses[s.rng.Intn(len(s.adResponses))]
	recordAdInjection()
	return ad, true
}

// choose applies the configured strategy to the available responses.
func (s *Selector) choose(available []string, recognized string) string {
	if len(available) == 1 {
		return available[0]
	}

	if s.strategy == StrategySimilarity && recognized != "" {
		if best, ok := mostSimilar(available, recognized); ok {
			return best
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return available[s.rng.Intn(len(available))]
}

// mostSimilar returns the single response with the highest word overlap
// against the recognized text. ok is false when no response overlaps at all
// or the maximum is shared, in which case the caller falls back to random.
func mostSimilar(available []string, recognized string) (string, bool) {
	words := make(map[string]struct{})
	for _, w := range splitWords(Normalize(recognized)) {
		words[w] = struct{}{}
	}
	if len(words) == 0 {
		return "", false
	}

	best := ""
	bestOverlap := 0
	tied := false
	for _, response := range available {
		overlap := 0
		for _, w := range splitWords(Normalize(response)) {
			if _, ok := words[w]; ok {
				overlap++
			}
		}
		switch {
		case overlap > bestOverlap:
			best = response
			bestOverlap = overlap
			tied = false
		case overlap == bestOverlap && overlap > 0:
			tied = true
		}
	}

	if bestOverlap == 0 || tied {
		return "", false
	}
	return best, true
}

// GenericFailure picks a random reply from the failure pool. Returns
// FallbackFailureReply when the pool is empty so the user never sees an
// empty response.
func (s *Selector) GenericFailure(pool []string) string {
	if len(pool) == 0 {
		return FallbackFailureReply
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.rng.Intn(len(pool))]
}

// FallbackFailureReply is the hardcoded last-resort reply used only when
// the configured failure pool is empty.
const FallbackFailureReply = "Извините, я вас не понял. Попробуйте переформулировать."
