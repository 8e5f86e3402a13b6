// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dialog

import (
	"fmt"
	"sync"
	"testing"
)

func TestSessionDefaults(t *testing.T) {
	store := NewSessionStore(10)
	sess := store.Acquire("u1")

	if sess.UserID() != "u1" {
		t.Errorf("UserID = %q", sess.UserID())
	}
	if sess.Topic() != DefaultTopic {
		t.Errorf("new session topic = %q, want %q", sess.Topic(), DefaultTopic)
	}
	if !sess.VoiceEnabled() {
		t.Error("voice should default to enabled")
	}
}

func TestSessionStore_SameUserSameSession(t *testing.T) {
	store := NewSessionStore(10)
	a := store.Acquire("u1")
	a.SetTopic("showroom")

	b := store.Acquire("u1")
	if a != b {
		t.Fatal("Acquire should return the same session instance")
	}
	if b.Topic() != "showroom" {
		t.Errorf("session state lost across Acquire calls")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestSessionStore_EvictsLeastRecentlyActive(t *testing.T) {
	store := NewSessionStore(3)

	for i := 1; i <= 3; i++ {
		store.Acquire(fmt.Sprintf("u%d", i))
	}
	// Touch u1 so u2 becomes the eviction candidate.
	u1 := store.Acquire("u1")
	u1.SetTopic("showroom")

	store.Acquire("u4")
	if store.Len() != 3 {
		t.Fatalf("Len = %d, want 3", store.Len())
	}

	// u1 survived with its state; u2 was evicted and comes back fresh.
	if got := store.Acquire("u1").Topic(); got != "showroom" {
		t.Errorf("recently active session lost state: topic = %q", got)
	}
	// Acquiring u2 again recreates it (and evicts u3, the current oldest).
	if got := store.Acquire("u2").Topic(); got != DefaultTopic {
		t.Errorf("evicted session should come back fresh, topic = %q", got)
	}
}

func TestSessionStore_ConcurrentAcquire(t *testing.T) {
	store := NewSessionStore(100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := store.Acquire(fmt.Sprintf("u%d", i%10))
			sess.SetVoiceEnabled(i%2 == 0)
			_ = sess.VoiceEnabled()
		}(i)
	}
	wg.Wait()

	if store.Len() != 10 {
		t.Errorf("Len = %d, want 10", store.Len())
	}
}
