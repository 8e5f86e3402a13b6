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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all chat routes with the router.
//
// Description:
//
//	Registers all /v1/chat/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied;
//	readiness and rate-limit guards are applied here to the chat endpoints
//	only, so health probes stay unguarded.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//	limiter - Per-user rate limiter. May be nil to disable limiting.
//
// Endpoints:
//
//	POST /v1/chat/respond - Resolve a text message
//	POST /v1/chat/voice - Resolve a voice message
//	GET  /v1/chat/socket - WebSocket chat
//	POST /v1/chat/session/topic - Steer the session topic
//	POST /v1/chat/session/voice - Toggle voice replies
//	GET  /v1/chat/health - Health check
//	GET  /v1/chat/ready - Readiness check
//
// Example:
//
//	engine, _ := dialog.NewEngine(cfg, pairs)
//	handlers := chatapi.NewHandlers(engine)
//
//	v1 := router.Group("/v1")
//	chatapi.RegisterRoutes(v1, handlers, chatapi.NewUserRateLimiter(5, 10))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, limiter *UserRateLimiter) {
	chat := rg.Group("/chat")
	{
		// Health checks stay outside the guards.
		chat.GET("/health", handlers.HandleHealth)
		chat.GET("/ready", handlers.HandleReady)

		guarded := chat.Group("", ReadyGuardMiddleware(handlers.engine))
		if limiter != nil {
			guarded.Use(RateLimitMiddleware(limiter))
		}
		{
			guarded.POST("/respond", handlers.HandleRespond)
			guarded.POST("/voice", handlers.HandleVoice)
			guarded.GET("/socket", handlers.HandleSocket)

			session := guarded.Group("/session")
			{
				session.POST("/topic", handlers.HandleSetTopic)
				session.POST("/voice", handlers.HandleSetVoice)
			}
		}
	}
}
