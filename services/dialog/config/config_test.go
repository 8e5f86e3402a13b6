// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

const validYAML = `
intents:
  hello:
    examples: ["привет", "добрый день"]
    responses:
      any: ["Здравствуйте!"]
  sofas:
    examples: ["есть ли диваны", "покажите диваны"]
    responses:
      any: ["Диваны в наличии."]
      showroom: ["Приходите в шоурум."]
ad_intents: [sofas]
ad_responses: ["Скидка 10%!"]
failure: ["Не понял."]
engine:
  classifier: trigram
  selection_strategy: random
  session_capacity: 100
  ad_probability: 0.2
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Len(t, cfg.Intents, 2)
	assert.Equal(t, []string{"Здравствуйте!"}, cfg.Intents["hello"].Responses[DefaultTopic])
	assert.Equal(t, []string{"sofas"}, cfg.AdIntents)
	assert.Equal(t, "trigram", cfg.Engine.Classifier)
	assert.Equal(t, 100, cfg.Engine.SessionCapacity)
	require.NotNil(t, cfg.Engine.AdProbability)
	assert.InDelta(t, 0.2, *cfg.Engine.AdProbability, 1e-9)
	assert.False(t, cfg.Engine.TrainOnCorpus)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"not yaml", "{{{{"},
		{
			name: "single intent",
			yaml: `
intents:
  hello:
    examples: ["привет"]
    responses: {any: ["Здравствуйте!"]}
failure: ["Не понял."]
`,
		},
		{
			name: "missing any bucket",
			yaml: `
intents:
  hello:
    examples: ["привет"]
    responses: {showroom: ["Здравствуйте!"]}
  bye:
    examples: ["пока"]
    responses: {any: ["До свидания!"]}
failure: ["Не понял."]
`,
		},
		{
			name: "empty topic bucket",
			yaml: `
intents:
  hello:
    examples: ["привет"]
    responses: {any: ["Здравствуйте!"], showroom: []}
  bye:
    examples: ["пока"]
    responses: {any: ["До свидания!"]}
failure: ["Не понял."]
`,
		},
		{
			name: "unknown ad intent",
			yaml: `
intents:
  hello:
    examples: ["привет"]
    responses: {any: ["Здравствуйте!"]}
  bye:
    examples: ["пока"]
    responses: {any: ["До свидания!"]}
ad_intents: [promo]
ad_responses: ["Скидка!"]
failure: ["Не понял."]
`,
		},
		{
			name: "ad intents without pool",
			yaml: `
intents:
  hello:
    examples: ["привет"]
    responses: {any: ["Здравствуйте!"]}
  bye:
    examples: ["пока"]
    responses: {any: ["До свидания!"]}
ad_intents: [hello]
failure: ["Не понял."]
`,
		},
		{
			name: "no failure pool",
			yaml: `
intents:
  hello:
    examples: ["привет"]
    responses: {any: ["Здравствуйте!"]}
  bye:
    examples: ["пока"]
    responses: {any: ["До свидания!"]}
`,
		},
		{
			name: "bad classifier name",
			yaml: `
intents:
  hello:
    examples: ["привет"]
    responses: {any: ["Здравствуйте!"]}
  bye:
    examples: ["пока"]
    responses: {any: ["До свидания!"]}
failure: ["Не понял."]
engine:
  classifier: bayes
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err, "the embedded default config must always validate")

	assert.GreaterOrEqual(t, len(cfg.Intents), 2)
	assert.NotEmpty(t, cfg.Failure)
	for label, intent := range cfg.Intents {
		assert.NotEmpty(t, intent.Responses[DefaultTopic], "intent %q needs an %q bucket", label, DefaultTopic)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.yaml")
	require.NoError(t, writeFile(path, validYAML))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Intents, 2)

	// Empty path falls back to the embedded default.
	cfg, err = LoadFile("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Intents)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
