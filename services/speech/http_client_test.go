// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package speech

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecognize(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.Bytes()
		w.Write([]byte(`{"result": "привет"}`))
	}))
	defer server.Close()

	c := NewHTTPClientWithConfig("key", "", server.URL, "")
	text, err := c.Recognize(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "привет" {
		t.Errorf("transcript = %q", text)
	}
	if gotAuth != "Api-Key key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if !bytes.Equal(gotBody, []byte{1, 2, 3}) {
		t.Errorf("audio body = %v", gotBody)
	}
}

func TestRecognize_EmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result": ""}`))
	}))
	defer server.Close()

	c := NewHTTPClientWithConfig("key", "", server.URL, "")
	text, err := c.Recognize(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("empty transcript is not an error: %v", err)
	}
	if text != "" {
		t.Errorf("transcript = %q, want empty", text)
	}
}

func TestRecognize_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewHTTPClientWithConfig("key", "", server.URL, "")

	if _, err := c.Recognize(context.Background(), nil); err == nil {
		t.Error("empty audio should error")
	}
	if _, err := c.Recognize(context.Background(), []byte{1}); err == nil {
		t.Error("non-200 status should error")
	}
	if _, err := c.Recognize(context.Background(), make([]byte, maxAudioBytes+1)); err == nil {
		t.Error("oversized audio should error")
	}
}

func TestRecognize_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result": "", "error_message": "audio too short"}`))
	}))
	defer server.Close()

	c := NewHTTPClientWithConfig("key", "", server.URL, "")
	if _, err := c.Recognize(context.Background(), []byte{1}); err == nil {
		t.Error("service error payload should surface as an error")
	}
}

func TestSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte("OggS...audio"))
	}))
	defer server.Close()

	c := NewHTTPClientWithConfig("key", "oksana", "", server.URL)
	audio, err := c.Synthesize(context.Background(), "Здравствуйте")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(audio, []byte("OggS...audio")) {
		t.Errorf("audio = %q", audio)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// 200 with empty body
	}))
	defer empty.Close()

	c := NewHTTPClientWithConfig("key", "", "", empty.URL)
	if _, err := c.Synthesize(context.Background(), ""); err == nil {
		t.Error("empty text should error")
	}
	if _, err := c.Synthesize(context.Background(), "привет"); err == nil {
		t.Error("empty audio response should error")
	}
}
