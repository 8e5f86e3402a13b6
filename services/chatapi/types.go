// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chatapi exposes the dialog engine over HTTP and WebSocket.
package chatapi

// =============================================================================
// Wire Types
// =============================================================================

// RespondRequest is the body of POST /v1/chat/respond.
type RespondRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// ReplyPayload is one bot reply on the wire.
type ReplyPayload struct {
	Text string `json:"text"`

	// Promo marks promotional asides.
	Promo bool `json:"promo,omitempty"`

	// AudioBase64 carries synthesized voice audio when the reply is
	// rendered as voice. Empty for text replies.
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// RespondResponse is the body of a successful respond call.
type RespondResponse struct {
	Replies []ReplyPayload `json:"replies"`
}

// SessionTopicRequest is the body of POST /v1/chat/session/topic.
type SessionTopicRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Topic  string `json:"topic" binding:"required"`
}

// SessionVoiceRequest is the body of POST /v1/chat/session/voice.
type SessionVoiceRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

// SessionResponse echoes the session state after a mutation.
type SessionResponse struct {
	UserID       string `json:"user_id"`
	Topic        string `json:"topic"`
	VoiceEnabled bool   `json:"voice_enabled"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// socketMessage is one inbound WebSocket frame. The user is bound at upgrade
// time via the user_id query parameter, so frames carry only the text.
type socketMessage struct {
	Text string `json:"text"`
}

// socketReply is one outbound WebSocket frame.
type socketReply struct {
	Replies []ReplyPayload `json:"replies"`
}
