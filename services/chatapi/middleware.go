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
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/DomovenokAI/domovenok/services/dialog"
)

// =============================================================================
// Readiness Guard
// =============================================================================

// ReadyGuardMiddleware returns 503 Service Unavailable for chat endpoints
// until engine training has completed.
//
// Description:
//
//	Without this guard, requests arriving during startup would hit an
//	untrained classifier and fail. Health and readiness endpoints use
//	different routes and are not affected.
//
// Behavior:
//
//   - Returns 503 with Retry-After header while training is in progress
//   - Creates an OTel span for rejected requests with trace context from headers
//   - Passes through once the engine reports ready
//
// Thread Safety: This middleware is safe for concurrent use.
func ReadyGuardMiddleware(engine *dialog.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine.Ready() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		_, span := otel.Tracer("domovenok.chatapi").Start(ctx, "ready_guard.reject",
			oteltrace.WithAttributes(
				attribute.String("path", c.Request.URL.Path),
				attribute.String("method", c.Request.Method),
				attribute.Int("http.status_code", http.StatusServiceUnavailable),
			),
		)
		defer span.End()
		span.SetStatus(codes.Error, "service unavailable during training")

		slog.Warn("Chat request rejected: engine training in progress",
			slog.String("path", c.Request.URL.Path),
			slog.String("method", c.Request.Method),
		)

		c.Header("Retry-After", "10")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "engine training in progress",
			Code:  "SERVICE_TRAINING",
		})
		c.Abort()
	}
}

// =============================================================================
// Per-User Rate Limiting
// =============================================================================

// userLimiterCap bounds the per-user limiter map. Beyond it the map is reset
// wholesale; losing limiter state for quiet users is harmless.
const userLimiterCap = 50_000

// UserRateLimiter hands out one token-bucket limiter per user ID.
//
// Thread Safety: UserRateLimiter is safe for concurrent use.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewUserRateLimiter creates a limiter registry. rps is the sustained
// per-user request rate; burst is the bucket size.
func NewUserRateLimiter(rps float64, burst int) *UserRateLimiter {
	return &UserRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *UserRateLimiter) limiterFor(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[userID]; ok {
		return lim
	}
	if len(l.limiters) >= userLimiterCap {
		l.limiters = make(map[string]*rate.Limiter)
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.limiters[userID] = lim
	return lim
}

// Allow reports whether a request from userID may proceed now.
func (l *UserRateLimiter) Allow(userID string) bool {
	return l.limiterFor(userID).Allow()
}

// maxIdentityPeekBytes bounds how much of a JSON body the rate limiter
// reads to find the user ID. Chat bodies are small; anything larger is
// identified from its prefix or falls into the anonymous bucket.
const maxIdentityPeekBytes = 16 << 10

// requestUserID extracts the caller's user ID from the user_id query
// parameter, the X-User-ID header, or the user_id field of a JSON body,
// in that order. A peeked body is restored so handler binding still sees
// the full payload.
func requestUserID(c *gin.Context) string {
	if id := c.Query("user_id"); id != "" {
		return id
	}
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	if c.Request.Body == nil || c.ContentType() != "application/json" {
		return ""
	}
	peek, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdentityPeekBytes))
	if err != nil {
		c.Request.Body = io.NopCloser(bytes.NewReader(peek))
		return ""
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(peek), c.Request.Body))

	var probe struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(peek, &probe); err != nil {
		return ""
	}
	return probe.UserID
}

// RateLimitMiddleware rejects over-limit users with 429 Too Many Requests.
//
// Description:
//
//	The user ID comes from the user_id query parameter, the X-User-ID
//	header, or the user_id field of a JSON body (the respond and session
//	endpoints carry it there). Users without an identifiable ID share the
//	empty-string bucket.
//
// Thread Safety: This middleware is safe for concurrent use.
func RateLimitMiddleware(limiter *UserRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := requestUserID(c)
		if !limiter.Allow(userID) {
			slog.Warn("Chat request rate-limited", slog.String("user_id", userID))
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests",
				Code:  "RATE_LIMITED",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
