// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dialog

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// DefaultSessionCapacity bounds the session store when no capacity is
// configured. Sessions beyond it are evicted least-recently-active first.
const DefaultSessionCapacity = 10_000

// DefaultTopic is the topic every new session starts in and the required
// fallback bucket of every intent's response map.
const DefaultTopic = "any"

// Session is the per-user conversational state: current topic, response
// rotation history, and the voice-reply preference.
//
// Thread Safety: All exported methods are safe for concurrent use. Two
// racing messages from the same user serialize on the session mutex, so
// rotation updates are never lost.
type Session struct {
	mu sync.Mutex

	userID       string
	topic        string
	voiceEnabled bool
	rotations    map[string]*rotationRecord
	lastActive   time.Time
}

// UserID returns the owning user's identifier.
func (s *Session) UserID() string {
	return s.userID
}

// Topic returns the session's current topic.
func (s *Session) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

// SetTopic assigns the session's topic. Not mutated by the current message
// flow; kept for keyboard/menu extensions that steer the conversation.
func (s *Session) SetTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topic = topic
}

// VoiceEnabled reports whether the user accepts voice replies. Defaults to
// true for new sessions.
func (s *Session) VoiceEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceEnabled
}

// SetVoiceEnabled toggles voice replies for the user.
func (s *Session) SetVoiceEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceEnabled = enabled
}

// SessionStore is a bounded LRU store of user sessions.
//
// # Description
//
// Sessions are created lazily on first contact and never explicitly
// destroyed; the bound is the only thing standing between the store and
// process-lifetime growth, so eviction is by last activity, oldest first.
// Rotation history lives inside the session and is evicted with it — an
// evicted user who returns simply starts a fresh rotation cycle.
//
// # Thread Safety
//
// Safe for concurrent use. The store mutex covers lookup and eviction;
// per-session mutation is covered by the session's own mutex.
type SessionStore struct {
	mu       sync.Mutex
	capacity int
	byUser   map[string]*list.Element
	order    *list.List // front = most recently active
}

// NewSessionStore creates a session store. Capacity values < 1 fall back to
// DefaultSessionCapacity.
func NewSessionStore(capacity int) *SessionStore {
	if capacity < 1 {
		capacity = DefaultSessionCapacity
	}
	return &SessionStore{
		capacity: capacity,
		byUser:   make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Acquire returns the user's session, creating it on first contact, and
// marks it most recently active. May evict the least recently active
// session to stay within capacity.
func (st *SessionStore) Acquire(userID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if elem, ok := st.byUser[userID]; ok {
		st.order.MoveToFront(elem)
		sess := elem.Value.(*Session)
		sess.mu.Lock()
		sess.lastActive = time.Now()
		sess.mu.Unlock()
		return sess
	}

	slog.Info("new session created", slog.String("user_id", userID))
	sess := &Session{
		userID:       userID,
		topic:        DefaultTopic,
		voiceEnabled: true,
		rotations:    make(map[string]*rotationRecord),
		lastActive:   time.Now(),
	}
	st.byUser[userID] = st.order.PushFront(sess)

	for st.order.Len() > st.capacity {
		oldest := st.order.Back()
		evicted := oldest.Value.(*Session)
		st.order.Remove(oldest)
		delete(st.byUser, evicted.userID)
		slog.Debug("session evicted", slog.String("user_id", evicted.userID))
	}

	return sess
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.order.Len()
}
