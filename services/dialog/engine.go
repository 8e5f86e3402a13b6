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
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DomovenokAI/domovenok/services/dialog/config"
	"github.com/DomovenokAI/domovenok/services/speech"
)

// =============================================================================
// Request / Reply Types
// =============================================================================

// corpusTrainingCap bounds how many corpus questions are fed into classifier
// training when train_on_corpus is enabled. The corpus dwarfs the configured
// examples; uncapped it would drown them.
const corpusTrainingCap = 10_000

// Request is one inbound user message. Exactly one of Text or Audio should
// be set; when both are set, Audio wins and Text is ignored.
type Request struct {
	UserID string
	Text   string
	Audio  []byte
}

// Reply is one outbound bot message. A single request can produce several
// replies: the answer itself, optionally followed by a promotional aside.
type Reply struct {
	Text string

	// Promo marks promotional asides so the transport can render them
	// differently (e.g. never voiced).
	Promo bool
}

// =============================================================================
// Engine
// =============================================================================

// Engine is the response-selection engine: it turns a user message into one
// or more reply texts.
//
// Description:
//
//	The engine resolves a message in three stages. First the intent
//	classifier assigns one of the configured labels and the selector picks
//	a rotated response from that intent's topic bucket. If classification
//	or selection cannot produce an answer, the corpus matcher looks for a
//	near-verbatim question in the dialogue corpus. If that also misses,
//	a generic failure reply is drawn from the configured pool.
//
//	Train must complete successfully before Respond is usable; Respond on
//	an untrained engine returns ErrTraining.
//
// Thread Safety: Engine is safe for concurrent use after Train returns.
type Engine struct {
	cfg        *config.Config
	corpus     []Pair
	classifier Classifier
	matcher    *Matcher
	index      *CorpusIndex
	selector   *Selector
	sessions   *SessionStore
	recognizer speech.Recognizer
	seed       *int64
	trained    atomic.Bool
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithRecognizer attaches a speech recognizer for voice requests. Without
// one, voice requests answer with the voice failure reply.
func WithRecognizer(r speech.Recognizer) EngineOption {
	return func(e *Engine) { e.recognizer = r }
}

// WithClassifier overrides the configured classifier implementation.
func WithClassifier(c Classifier) EngineOption {
	return func(e *Engine) { e.classifier = c }
}

// WithEngineSeed makes index shuffling and response selection deterministic.
// Test hook.
func WithEngineSeed(seed int64) EngineOption {
	return func(e *Engine) { e.seed = &seed }
}

// NewEngine assembles an engine from a validated configuration and a parsed
// dialogue corpus. The corpus may be empty; the matcher stage then never
// produces an answer.
func NewEngine(cfg *config.Config, corpus []Pair, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configuration", ErrConfig)
	}

	capacity := cfg.Engine.SessionCapacity
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}

	e := &Engine{
		cfg:      cfg,
		corpus:   corpus,
		sessions: NewSessionStore(capacity),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.classifier == nil {
		switch cfg.Engine.Classifier {
		case "stem":
			e.classifier = NewStemClassifier()
		default:
			e.classifier = NewTrigramClassifier()
		}
	}

	// Unset keeps the default; an explicit 0 switches ads off entirely.
	adProbability := DefaultAdProbability
	if p := cfg.Engine.AdProbability; p != nil {
		adProbability = *p
	}
	selCfg := SelectorConfig{
		Strategy:      SelectionStrategy(cfg.Engine.SelectionStrategy),
		AdProbability: adProbability,
		AdIntents:     cfg.AdIntents,
		AdResponses:   cfg.AdResponses,
	}
	if e.seed != nil {
		e.selector = NewSelector(selCfg, WithSelectorSeed(*e.seed))
	} else {
		e.selector = NewSelector(selCfg)
	}

	return e, nil
}

// Train fits the classifier and builds the corpus index. It must be called
// once before Respond; calling Respond first returns ErrTraining.
//
// Description:
//
//	Classifier training and index construction are independent and run
//	concurrently. Training examples come from the configured intents;
//	when train_on_corpus is set, corpus questions are added as extra
//	examples labeled by their first word, capped at 10000.
//
// Inputs:
//   - ctx: Context for cancellation.
//
// Outputs:
//   - error: Non-nil (wrapping ErrTraining) if the training data is
//     insufficient or the classifier rejects it.
func (e *Engine) Train(ctx context.Context) error {
	start := time.Now()

	examples, labels := e.trainingData()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.classifier.Fit(examples, labels); err != nil {
			return fmt.Errorf("fitting classifier: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var idxOpts []IndexOption
		if e.seed != nil {
			idxOpts = append(idxOpts, WithShuffleSeed(*e.seed))
		}
		e.index = BuildCorpusIndex(e.corpus, idxOpts...)
		e.matcher = NewMatcher(e.index)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	e.trained.Store(true)
	stats := e.index.Stats()
	slog.Info("Engine trained",
		slog.Int("intents", len(e.cfg.Intents)),
		slog.Int("training_examples", len(examples)),
		slog.Int("corpus_words", stats.Words),
		slog.Int("corpus_pairs", stats.Pairs),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// trainingData flattens the configured intents into parallel example/label
// slices, optionally appending corpus pseudo-examples.
func (e *Engine) trainingData() (examples, labels []string) {
	for label, intent := range e.cfg.Intents {
		for _, example := range intent.Examples {
			examples = append(examples, example)
			labels = append(labels, label)
		}
	}

	if e.cfg.Engine.TrainOnCorpus {
		added := 0
		for _, pair := range e.corpus {
			if added >= corpusTrainingCap {
				break
			}
			words := splitWords(pair.Question)
			if len(words) == 0 {
				continue
			}
			examples = append(examples, pair.Question)
			labels = append(labels, words[0])
			added++
		}
		slog.Info("Added corpus pseudo-examples to training set", slog.Int("count", added))
	}

	return examples, labels
}

// Ready reports whether Train has completed. The HTTP layer gates traffic
// on this.
func (e *Engine) Ready() bool {
	return e.trained.Load()
}

// Sessions exposes the session store for transport-level session commands
// (topic steering, voice toggling).
func (e *Engine) Sessions() *SessionStore {
	return e.sessions
}

// Respond resolves one user message into replies.
//
// Description:
//
//	Voice requests are transcribed first; a failed or empty transcription
//	answers with the fixed voice failure reply rather than an error. Text
//	then flows through classifier → selector, falling back to the corpus
//	matcher and finally the generic failure pool. Internal faults at any
//	stage degrade to the next stage instead of surfacing to the user; the
//	only error Respond returns is ErrTraining on an untrained engine.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - req: The inbound message. UserID must be non-empty.
//
// Outputs:
//   - []Reply: One reply, or two when a promotional aside is injected.
//   - error: ErrTraining before Train, ErrConfig on a missing user ID.
//
// Thread Safety: This method is safe for concurrent use.
func (e *Engine) Respond(ctx context.Context, req Request) ([]Reply, error) {
	if !e.trained.Load() {
		return nil, fmt.Errorf("%w: engine not trained", ErrTraining)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: empty user ID", ErrConfig)
	}

	start := time.Now()
	ctx, span := startSpan(ctx, "dialog.respond")
	defer span.End()

	sess := e.sessions.Acquire(req.UserID)

	text := req.Text
	if len(req.Audio) > 0 {
		transcript, err := e.transcribe(ctx, req.Audio)
		if err != nil || transcript == "" {
			if err != nil {
				slog.Warn("Voice recognition failed",
					slog.String("user_id", req.UserID),
					slog.String("error", err.Error()),
				)
				recordInternalError("recognition")
			}
			recordRespond(time.Since(start), "voice_failure")
			return []Reply{{Text: VoiceFailureReply}}, nil
		}
		text = transcript
	}

	reply, intent, outcome := e.resolve(ctx, sess, text)
	replies := []Reply{{Text: reply}}

	if outcome == "intent" {
		if ad, ok := e.selector.MaybeAd(intent); ok {
			replies = append(replies, Reply{Text: ad, Promo: true})
		}
	}

	recordRespond(time.Since(start), outcome)
	slog.Debug("Resolved request",
		slog.String("user_id", req.UserID),
		slog.String("outcome", outcome),
		slog.Int("replies", len(replies)),
	)
	return replies, nil
}

// resolve runs the classify, select, match, failure cascade and reports
// which stage produced the reply.
func (e *Engine) resolve(ctx context.Context, sess *Session, text string) (reply, intent, outcome string) {
	normalized := Normalize(text)
	if normalized != "" {
		if intent, err := e.classifier.Predict(normalized); err == nil {
			if spec, ok := e.cfg.Intents[intent]; ok {
				answer, err := e.selector.Select(sess, intent, spec.Responses, normalized)
				if err == nil {
					return answer, intent, "intent"
				}
				if !errors.Is(err, ErrConfig) {
					recordInternalError("selection")
				}
				slog.Warn("Selection failed, falling back to corpus",
					slog.String("intent", intent),
					slog.String("error", err.Error()),
				)
			} else {
				slog.Warn("Classifier predicted unconfigured intent",
					slog.String("intent", intent),
				)
				recordInternalError("classification")
			}
		} else {
			slog.Error("Prediction failed, falling back to corpus",
				slog.String("error", err.Error()),
			)
			recordInternalError("prediction")
		}

		if answer, ok := e.matcher.Match(ctx, text); ok {
			return answer, "", "corpus"
		}
	}

	return e.selector.GenericFailure(e.cfg.Failure), "", "failure"
}

// transcribe hands audio to the recognizer, if one is attached.
func (e *Engine) transcribe(ctx context.Context, audio []byte) (string, error) {
	if e.recognizer == nil {
		return "", fmt.Errorf("%w: no recognizer attached", ErrRecognition)
	}
	transcript, err := e.recognizer.Recognize(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRecognition, err.Error())
	}
	return transcript, nil
}
