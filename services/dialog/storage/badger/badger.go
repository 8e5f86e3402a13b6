// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps an embedded BadgerDB instance behind a small
// transaction-helper API so callers never touch raw DB handles.
package badger

import (
	"context"
	"fmt"
	"log/slog"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// Config controls how the DB is opened.
type Config struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// InMemory runs BadgerDB without disk persistence. Test hook.
	InMemory bool
}

// DefaultConfig returns a Config with sane defaults. Path must still be set
// by the caller unless InMemory is used.
func DefaultConfig() Config {
	return Config{}
}

// InMemoryConfig returns a Config for a non-persistent instance. Test hook.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DB is an opened BadgerDB instance.
//
// Thread Safety: DB is safe for concurrent use. BadgerDB transactions are
// per-goroutine.
type DB struct {
	db *dgbadger.DB
}

// OpenDB opens (or creates) a BadgerDB instance at cfg.Path.
//
// Description:
//
//	Badger's own logger is silenced; lifecycle events are reported through
//	slog by the caller. The caller owns the returned DB and must Close it
//	on shutdown.
//
// Outputs:
//   - *DB: The opened instance.
//   - error: Non-nil if the directory cannot be opened or is locked.
func OpenDB(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger: empty path")
	}
	opts := dgbadger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: opening %q: %w", cfg.Path, err)
	}
	slog.Debug("BadgerDB opened", slog.String("path", cfg.Path), slog.Bool("in_memory", cfg.InMemory))
	return &DB{db: db}, nil
}

// WithTxn runs fn inside a read-write transaction.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// Close releases the DB. Safe to call once.
func (d *DB) Close() error {
	return d.db.Close()
}
