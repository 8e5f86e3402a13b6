// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chatapi

import (
	"encoding/base64"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DomovenokAI/domovenok/services/dialog"
	"github.com/DomovenokAI/domovenok/services/speech"
)

// maxVoiceBodyBytes bounds inbound voice uploads.
const maxVoiceBodyBytes = 4 << 20

// Handlers holds the HTTP handlers for the chat API.
//
// Thread Safety: Handlers is safe for concurrent use.
type Handlers struct {
	engine *dialog.Engine
	synth  speech.Synthesizer

	// coin decides whether a voice-enabled reply goes out as audio or as
	// text. Voiced replies are expensive to synthesize; mixing media keeps
	// the chat lively without doubling the synthesis bill.
	coinMu sync.Mutex
	coin   *rand.Rand
}

// HandlersOption configures Handlers at construction.
type HandlersOption func(*Handlers)

// WithSynthesizer attaches a text-to-speech backend. Without one, voice
// requests are answered in text.
func WithSynthesizer(s speech.Synthesizer) HandlersOption {
	return func(h *Handlers) { h.synth = s }
}

// WithVoiceSeed makes the voice/text medium choice deterministic. Test hook.
func WithVoiceSeed(seed int64) HandlersOption {
	return func(h *Handlers) { h.coin = rand.New(rand.NewSource(seed)) }
}

// NewHandlers creates the chat API handlers around a trained (or training)
// engine.
func NewHandlers(engine *dialog.Engine, opts ...HandlersOption) *Handlers {
	h := &Handlers{
		engine: engine,
		coin:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// getOrCreateRequestID returns the inbound X-Request-ID header, minting a
// fresh UUID when the client sent none.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleRespond handles POST /v1/chat/respond.
//
// Description:
//
//	Resolves a text message into replies. The first reply is the answer;
//	a second promo-flagged reply may follow.
//
// Response:
//
//	200 OK: RespondResponse
//	400 Bad Request: Malformed body
//	503 Service Unavailable: Engine not trained yet
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleRespond(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRespond")

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "user_id and text are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	replies, err := h.engine.Respond(c.Request.Context(), dialog.Request{
		UserID: req.UserID,
		Text:   req.Text,
	})
	if err != nil {
		logger.Error("Respond failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "engine is not ready",
			Code:  "NOT_READY",
		})
		return
	}

	c.JSON(http.StatusOK, RespondResponse{Replies: toPayloads(replies)})
}

// HandleVoice handles POST /v1/chat/voice.
//
// Description:
//
//	Accepts raw audio bytes (application/octet-stream) with the user bound
//	via the user_id query parameter. The audio is transcribed and resolved
//	like a text message. When the session has voice replies enabled and a
//	synthesizer is attached, the answer may be rendered as audio; the
//	medium is chosen at random per reply. Promotional asides are always
//	text.
//
// Response:
//
//	200 OK: RespondResponse
//	400 Bad Request: Missing user_id or empty body
//	503 Service Unavailable: Engine not trained yet
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleVoice(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleVoice")

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "user_id parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	audio, err := io.ReadAll(io.LimitReader(c.Request.Body, maxVoiceBodyBytes+1))
	if err != nil || len(audio) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "audio body is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if len(audio) > maxVoiceBodyBytes {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "audio body too large",
			Code:  "PAYLOAD_TOO_LARGE",
		})
		return
	}

	replies, err := h.engine.Respond(c.Request.Context(), dialog.Request{
		UserID: userID,
		Audio:  audio,
	})
	if err != nil {
		logger.Error("Respond failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "engine is not ready",
			Code:  "NOT_READY",
		})
		return
	}

	payloads := toPayloads(replies)
	sess := h.engine.Sessions().Acquire(userID)
	if sess.VoiceEnabled() && h.synth != nil {
		for i := range payloads {
			if payloads[i].Promo || !h.flipVoiceCoin() {
				continue
			}
			audio, err := h.synth.Synthesize(c.Request.Context(), payloads[i].Text)
			if err != nil {
				logger.Warn("Synthesis failed, replying in text", slog.String("error", err.Error()))
				continue
			}
			payloads[i].AudioBase64 = base64.StdEncoding.EncodeToString(audio)
		}
	}

	c.JSON(http.StatusOK, RespondResponse{Replies: payloads})
}

// HandleSetTopic handles POST /v1/chat/session/topic.
func (h *Handlers) HandleSetTopic(c *gin.Context) {
	var req SessionTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "user_id and topic are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sess := h.engine.Sessions().Acquire(req.UserID)
	sess.SetTopic(req.Topic)
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// HandleSetVoice handles POST /v1/chat/session/voice.
func (h *Handlers) HandleSetVoice(c *gin.Context) {
	var req SessionVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "user_id and enabled are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sess := h.engine.Sessions().Acquire(req.UserID)
	sess.SetVoiceEnabled(*req.Enabled)
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// HandleHealth handles GET /v1/chat/health. Always 200 while the process
// is up.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/chat/ready. 503 until Train completes.
func (h *Handlers) HandleReady(c *gin.Context) {
	if !h.engine.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "training"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handlers) flipVoiceCoin() bool {
	h.coinMu.Lock()
	defer h.coinMu.Unlock()
	return h.coin.Intn(2) == 0
}

func toPayloads(replies []dialog.Reply) []ReplyPayload {
	payloads := make([]ReplyPayload, 0, len(replies))
	for _, r := range replies {
		payloads = append(payloads, ReplyPayload{Text: r.Text, Promo: r.Promo})
	}
	return payloads
}

func sessionResponse(sess *dialog.Session) SessionResponse {
	return SessionResponse{
		UserID:       sess.UserID(),
		Topic:        sess.Topic(),
		VoiceEnabled: sess.VoiceEnabled(),
	}
}
