// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestSocket(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/socket?user_id=" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandleSocket_RespondRoundTrip(t *testing.T) {
	router, _ := setupTestRouter(t, true)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialTestSocket(t, srv, "sock-user")

	if err := conn.WriteJSON(socketMessage{Text: "привет"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply socketReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if len(reply.Replies) == 0 {
		t.Fatal("expected at least one reply")
	}
	if got := reply.Replies[0].Text; got != "Здравствуйте!" {
		t.Errorf("reply = %q, want %q", got, "Здравствуйте!")
	}
}

func TestHandleSocket_SessionState(t *testing.T) {
	router, engine := setupTestRouter(t, true)
	srv := httptest.NewServer(router)
	defer srv.Close()

	// Steer the topic over HTTP, then chat over the socket as the same user.
	w := postJSON(t, router, "/v1/chat/session/topic", SessionTopicRequest{
		UserID: "sock-topic-user",
		Topic:  "showroom",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set topic status = %d, want 200", w.Code)
	}

	conn := dialTestSocket(t, srv, "sock-topic-user")

	if err := conn.WriteJSON(socketMessage{Text: "покажите диваны"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply socketReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if len(reply.Replies) == 0 {
		t.Fatal("expected at least one reply")
	}
	if got := reply.Replies[0].Text; got != "Приходите в шоурум." {
		t.Errorf("reply = %q, want %q", got, "Приходите в шоурум.")
	}

	sess := engine.Sessions().Acquire("sock-topic-user")
	if got := sess.Topic(); got != "showroom" {
		t.Errorf("session topic = %q, want %q", got, "showroom")
	}
}

func TestHandleSocket_MissingUser(t *testing.T) {
	router, _ := setupTestRouter(t, true)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/socket"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatal("dial without user_id should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 handshake response, got %+v", resp)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
}
