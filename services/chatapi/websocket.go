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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DomovenokAI/domovenok/services/dialog"
)

// =============================================================================
// WebSocket Chat
// =============================================================================

const (
	// socketWriteTimeout bounds a single reply write.
	socketWriteTimeout = 10 * time.Second

	// socketMaxMessageBytes bounds one inbound text frame. Chat messages
	// are short; anything larger is abuse.
	socketMaxMessageBytes = 16 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The chat widget is embedded on storefront pages served from other
	// origins; auth happens at the gateway, not here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSocket handles GET /v1/chat/socket.
//
// Description:
//
//	Upgrades the connection to a WebSocket and runs a read loop: each
//	inbound JSON frame {"text": ...} is resolved through the engine and
//	answered with a {"replies": [...]} frame. The user is bound once at
//	upgrade time via the user_id query parameter.
//
// Thread Safety: This method is safe for concurrent use. Each connection
// runs its own loop; writes are sequential within a connection.
func (h *Handlers) HandleSocket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "user_id parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	connID := uuid.NewString()
	logger := slog.With("conn_id", connID, "user_id", userID)
	logger.Info("Chat socket opened")

	defer func() {
		conn.Close()
		logger.Info("Chat socket closed")
	}()

	conn.SetReadLimit(socketMaxMessageBytes)

	for {
		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Chat socket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if msg.Text == "" {
			continue
		}

		replies, err := h.engine.Respond(c.Request.Context(), dialog.Request{
			UserID: userID,
			Text:   msg.Text,
		})
		if err != nil {
			logger.Error("Respond failed on socket", slog.String("error", err.Error()))
			replies = []dialog.Reply{{Text: dialog.FallbackFailureReply}}
		}

		conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		if err := conn.WriteJSON(socketReply{Replies: toPayloads(replies)}); err != nil {
			logger.Warn("Chat socket write failed", slog.String("error", err.Error()))
			return
		}
	}
}
