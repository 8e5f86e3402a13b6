// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the static bot configuration: the
// intent catalog, promotional pools, failure pool, and engine tuning.
// Configuration is loaded once at startup and immutable thereafter.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxYAMLFileSize bounds config files to protect the parser from
// accidentally pointed-at large files.
const MaxYAMLFileSize = 4 << 20 // 4 MiB

// DefaultTopic is the response bucket every intent must carry.
const DefaultTopic = "any"

//go:embed bot_config.yaml
var defaultBotConfigYAML []byte

// Intent is one configured category of user request.
type Intent struct {
	// Examples are the training phrases for the classifier. At least 2
	// are recommended; fewer logs a warning but does not fail the load.
	Examples []string `yaml:"examples" validate:"required,min=1,dive,required"`

	// Responses maps topic → candidate replies. The "any" bucket is
	// mandatory; other topics are optional session-steered variants.
	Responses map[string][]string `yaml:"responses" validate:"required,min=1"`
}

// Engine carries tunables of the response-selection engine.
type Engine struct {
	// Classifier selects the classifier implementation: "trigram"
	// (default) or "stem".
	Classifier string `yaml:"classifier" validate:"omitempty,oneof=trigram stem"`

	// SelectionStrategy selects the response pick strategy: "random"
	// (default) or "similarity".
	SelectionStrategy string `yaml:"selection_strategy" validate:"omitempty,oneof=random similarity"`

	// SessionCapacity bounds the LRU session store. 0 means the engine
	// default.
	SessionCapacity int `yaml:"session_capacity" validate:"gte=0"`

	// AdProbability overrides the promotional-aside chance. Unset means
	// the engine default; an explicit 0 disables promotional asides.
	AdProbability *float64 `yaml:"ad_probability" validate:"omitempty,gte=0,lte=1"`

	// TrainOnCorpus additionally feeds corpus questions, labeled by their
	// indexing word, into classifier training. Off by default: the
	// pseudo-labels are noisy background signal, not ground truth.
	TrainOnCorpus bool `yaml:"train_on_corpus"`
}

// Config is the full static bot configuration.
type Config struct {
	// Intents is the catalog of configured intents, keyed by label.
	Intents map[string]Intent `yaml:"intents" validate:"required,min=2,dive"`

	// AdIntents lists the intent labels eligible for promotional asides.
	AdIntents []string `yaml:"ad_intents"`

	// AdResponses is the global promotional response pool.
	AdResponses []string `yaml:"ad_responses"`

	// Failure is the generic failure reply pool. Never empty after a
	// successful load.
	Failure []string `yaml:"failure" validate:"required,min=1,dive,required"`

	// Engine carries engine tunables.
	Engine Engine `yaml:"engine"`
}

// Default returns the embedded default configuration.
//
// The embedded YAML ships with the binary and is validated at load, so an
// error here means the build itself is broken.
func Default() (*Config, error) {
	return Parse(defaultBotConfigYAML)
}

// LoadFile reads and validates a configuration file. An empty path falls
// back to the embedded default.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals and validates configuration YAML.
//
// # Description
//
// Structural validation runs through go-playground/validator struct tags;
// cross-field rules (mandatory "any" bucket, ad intents referencing real
// intents) are checked by hand. Intents with fewer than 2 examples load
// with a warning — the classifier can still fit, just poorly.
//
// # Outputs
//
//   - *Config: The validated configuration. Never nil on success.
//   - error: Non-nil if parsing or any validation fails.
func Parse(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("Parse: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("Parse: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("Parse: parsing YAML: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("Parse: validation: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("Parse: validation: %w", err)
	}

	slog.Info("bot config loaded",
		slog.Int("intents", len(cfg.Intents)),
		slog.Int("ad_intents", len(cfg.AdIntents)),
		slog.Int("failure_replies", len(cfg.Failure)),
	)

	return &cfg, nil
}

// validateConfig checks the cross-field rules the struct tags cannot.
func validateConfig(cfg *Config) error {
	for label, intent := range cfg.Intents {
		anyBucket, ok := intent.Responses[DefaultTopic]
		if !ok {
			return fmt.Errorf("intent %q: missing mandatory %q response bucket", label, DefaultTopic)
		}
		if len(anyBucket) == 0 {
			return fmt.Errorf("intent %q: %q response bucket is empty", label, DefaultTopic)
		}
		for topic, responses := range intent.Responses {
			if len(responses) == 0 {
				return fmt.Errorf("intent %q: topic %q has no responses", label, topic)
			}
		}
		if len(intent.Examples) < 2 {
			slog.Warn("intent has fewer than 2 examples",
				slog.String("intent", label),
				slog.Int("examples", len(intent.Examples)),
			)
		}
	}

	for _, label := range cfg.AdIntents {
		if _, ok := cfg.Intents[label]; !ok {
			return fmt.Errorf("ad_intents references unknown intent %q", label)
		}
	}
	if len(cfg.AdIntents) > 0 && len(cfg.AdResponses) == 0 {
		return fmt.Errorf("ad_intents configured but ad_responses pool is empty")
	}

	return nil
}
