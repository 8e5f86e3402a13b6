// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// =============================================================================
// Wire Types
// =============================================================================

const (
	defaultRecognizeURL  = "https://stt.api.cloud.yandex.net/speech/v1/stt:recognize"
	defaultSynthesizeURL = "https://tts.api.cloud.yandex.net/speech/v1/tts:utterance:synthesize"

	// maxAudioBytes bounds audio payloads in both directions. One minute of
	// 48kHz Opus voice comfortably fits; anything larger is not a chat message.
	maxAudioBytes = 4 << 20
)

type recognizeResponse struct {
	Result string `json:"result"`
	Error  string `json:"error_message,omitempty"`
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"lang,omitempty"`
	Format   string `json:"format,omitempty"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// HTTPClient implements Recognizer and Synthesizer against a cloud speech
// service using raw net/http.
//
// Description:
//
//	Posts raw audio bytes to the recognition endpoint and JSON to the
//	synthesis endpoint. No third-party SDKs are used. The service is
//	expected to speak the common STT/TTS REST shape: recognition answers
//	with a JSON body carrying the transcript, synthesis answers with raw
//	audio bytes.
//
// Thread Safety: HTTPClient is safe for concurrent use.
type HTTPClient struct {
	httpClient    *http.Client
	apiKey        string
	voice         string
	recognizeURL  string
	synthesizeURL string
}

// NewHTTPClientWithConfig creates an HTTPClient with explicit configuration.
//
// Description:
//
//	Creates an HTTPClient without reading environment variables. Useful
//	for testing with mock servers or when configuration comes from a
//	source other than environment variables.
//
// Inputs:
//   - apiKey: Bearer credential for the speech service.
//   - voice: Synthesis voice name (empty means service default).
//   - recognizeURL: Endpoint for speech-to-text requests.
//   - synthesizeURL: Endpoint for text-to-speech requests.
//
// Outputs:
//   - *HTTPClient: The configured client.
func NewHTTPClientWithConfig(apiKey, voice, recognizeURL, synthesizeURL string) *HTTPClient {
	return &HTTPClient{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		apiKey:        apiKey,
		voice:         voice,
		recognizeURL:  recognizeURL,
		synthesizeURL: synthesizeURL,
	}
}

// NewHTTPClient creates an HTTPClient from environment variables.
//
// Description:
//
//	Reads SPEECH_API_KEY, SPEECH_VOICE, SPEECH_STT_URL and SPEECH_TTS_URL
//	from the environment. The URLs default to the Yandex SpeechKit v1
//	endpoints when unset.
//
// Outputs:
//   - *HTTPClient: The configured client.
//   - error: Non-nil if SPEECH_API_KEY is missing.
func NewHTTPClient() (*HTTPClient, error) {
	apiKey := os.Getenv("SPEECH_API_KEY")
	if apiKey == "" {
		slog.Warn("Speech API key is empty. Voice messages will not be processed.")
		return nil, fmt.Errorf("speech: API key is missing (SPEECH_API_KEY)")
	}
	recognizeURL := os.Getenv("SPEECH_STT_URL")
	if recognizeURL == "" {
		recognizeURL = defaultRecognizeURL
	}
	synthesizeURL := os.Getenv("SPEECH_TTS_URL")
	if synthesizeURL == "" {
		synthesizeURL = defaultSynthesizeURL
	}
	voice := os.Getenv("SPEECH_VOICE")
	slog.Info("Initializing speech client",
		slog.String("stt_url", recognizeURL),
		slog.String("tts_url", synthesizeURL),
	)
	return &HTTPClient{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		apiKey:        apiKey,
		voice:         voice,
		recognizeURL:  recognizeURL,
		synthesizeURL: synthesizeURL,
	}, nil
}

// Recognize implements the Recognizer interface.
//
// Description:
//
//	Posts the audio bytes to the recognition endpoint and returns the
//	transcript. An empty transcript with a nil error means the service
//	could not make out any speech in the audio.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - audio: Raw audio bytes (Opus/OGG as sent by messengers).
//
// Outputs:
//   - string: The recognized text, possibly empty.
//   - error: Non-nil if the request fails or the payload is oversized.
//
// Thread Safety: This method is safe for concurrent use.
func (c *HTTPClient) Recognize(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("speech: empty audio payload")
	}
	if len(audio) > maxAudioBytes {
		return "", fmt.Errorf("speech: audio payload too large (%d bytes)", len(audio))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.recognizeURL, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("speech: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("Authorization", "Api-Key "+c.apiKey)

	slog.Debug("Sending recognition request", slog.Int("audio_bytes", len(audio)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("speech: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return "", fmt.Errorf("speech: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("speech: recognition returned status %d", resp.StatusCode)
	}

	var apiResp recognizeResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("speech: parsing recognition response: %w", err)
	}
	if apiResp.Error != "" {
		return "", fmt.Errorf("speech: recognition error: %s", apiResp.Error)
	}

	slog.Debug("Received recognition response", slog.Int("transcript_len", len(apiResp.Result)))
	return apiResp.Result, nil
}

// Synthesize implements the Synthesizer interface.
//
// Description:
//
//	Posts the reply text to the synthesis endpoint and returns the audio
//	bytes verbatim.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - text: The reply text to voice.
//
// Outputs:
//   - []byte: The synthesized audio.
//   - error: Non-nil if the request fails or the response is empty.
//
// Thread Safety: This method is safe for concurrent use.
func (c *HTTPClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("speech: empty synthesis text")
	}

	reqBody, err := json.Marshal(synthesizeRequest{
		Text:     text,
		Voice:    c.voice,
		Language: "ru-RU",
		Format:   "oggopus",
	})
	if err != nil {
		return nil, fmt.Errorf("speech: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.synthesizeURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("speech: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Api-Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("speech: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("speech: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech: synthesis returned status %d", resp.StatusCode)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech: synthesis returned empty audio")
	}
	if len(audio) > maxAudioBytes {
		return nil, fmt.Errorf("speech: synthesized audio too large")
	}

	slog.Debug("Received synthesis response", slog.Int("audio_bytes", len(audio)))
	return audio, nil
}
