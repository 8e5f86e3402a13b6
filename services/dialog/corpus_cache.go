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

// =============================================================================
// CorpusCacheStore — Parsed-Corpus Persistence
// =============================================================================
//
// Parsing and deduplicating a multi-megabyte dialogue corpus takes a visible
// slice of startup time and changes only when the corpus file changes. This
// store persists the parsed pair list in BadgerDB between service restarts.
//
// Storage layout:
//
//	dialog/corpus/v1/{corpusDigest}  →  gob-encoded []Pair
//	                                    TTL: 30 days
//
// The digest is SHA256 of the raw corpus bytes, so editing the corpus file
// automatically invalidates the cached entry — no explicit invalidation API
// is needed.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	badgerstore "github.com/DomovenokAI/domovenok/services/dialog/storage/badger"
)

// corpusCacheDefaultTTL is the default lifetime of a cached corpus entry.
// The digest key already handles invalidation; the TTL only bounds how long
// entries for deleted corpus files linger.
const corpusCacheDefaultTTL = 30 * 24 * time.Hour

// corpusCacheKeyPrefix is prepended to the corpus digest to form the BadgerDB
// key. Versioned (v1) to allow future format changes without collision.
const corpusCacheKeyPrefix = "dialog/corpus/v1/"

// errCorpusCacheMiss distinguishes "key not found" from a storage error.
var errCorpusCacheMiss = errors.New("cache miss")

// CorpusCacheStore persists parsed corpus pairs across service restarts.
//
// # Description
//
// The store is keyed by corpus digest — SHA256 of the raw corpus bytes. Both
// methods are nil-safe at the call site: callers check for a nil store and
// simply re-parse, which is the correct behavior for tests and deployments
// without a cache directory configured.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type CorpusCacheStore interface {
	// LoadPairs retrieves the cached parsed pairs for the given digest.
	//
	// Returns (nil, nil) on cache miss (key absent or TTL expired).
	// Returns (nil, error) on storage failure.
	LoadPairs(ctx context.Context, digest string) ([]Pair, error)

	// SavePairs persists parsed pairs under the given digest. A non-nil
	// error is non-fatal to the caller: the pairs are already in memory and
	// will simply be re-parsed on the next restart.
	SavePairs(ctx context.Context, digest string, pairs []Pair) error
}

// BadgerCorpusCacheStore implements CorpusCacheStore backed by a BadgerDB
// instance opened by the caller. The store does not own the DB.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerCorpusCacheStore struct {
	db     *badgerstore.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerCorpusCacheStore creates a BadgerCorpusCacheStore.
//
// # Inputs
//
//   - db: Opened BadgerDB wrapper. Must not be nil.
//   - ttl: Lifetime for each cached entry. Pass 0 for the default (30 days).
//   - logger: Logger for hit/miss diagnostics. May be nil.
func NewBadgerCorpusCacheStore(db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) *BadgerCorpusCacheStore {
	if db == nil {
		panic("NewBadgerCorpusCacheStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = corpusCacheDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerCorpusCacheStore{db: db, ttl: ttl, logger: logger}
}

// LoadPairs retrieves cached parsed pairs for the given corpus digest.
func (s *BadgerCorpusCacheStore) LoadPairs(ctx context.Context, digest string) ([]Pair, error) {
	key := corpusCacheKey(digest)

	var raw []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCorpusCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errCorpusCacheMiss) {
		s.logger.Debug("corpus cache: miss", slog.String("digest", shortDigest(digest)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("corpus cache load: %w", err)
	}

	var pairs []Pair
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("corpus cache decode: %w", err)
	}

	s.logger.Debug("corpus cache: hit",
		slog.String("digest", shortDigest(digest)),
		slog.Int("pairs", len(pairs)),
	)
	return pairs, nil
}

// SavePairs persists parsed pairs with the configured TTL.
func (s *BadgerCorpusCacheStore) SavePairs(ctx context.Context, digest string, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pairs); err != nil {
		return fmt.Errorf("corpus cache encode: %w", err)
	}

	key := corpusCacheKey(digest)
	err := s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, buf.Bytes()).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("corpus cache save: %w", err)
	}

	s.logger.Debug("corpus cache: saved",
		slog.String("digest", shortDigest(digest)),
		slog.Int("pairs", len(pairs)),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// CorpusDigest computes the cache key digest for raw corpus bytes.
func CorpusDigest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// LoadCorpus parses raw corpus bytes, going through the cache store when one
// is provided.
//
// # Description
//
// Cache failures in either direction are logged and swallowed: the corpus is
// always available by re-parsing, so the cache can only ever speed things up,
// never fail the load.
func LoadCorpus(ctx context.Context, raw []byte, store CorpusCacheStore) ([]Pair, error) {
	digest := CorpusDigest(raw)

	if store != nil {
		pairs, err := store.LoadPairs(ctx, digest)
		if err != nil {
			slog.Warn("Corpus cache load failed, re-parsing", slog.String("error", err.Error()))
			recordInternalError("corpus_cache")
		} else if pairs != nil {
			return pairs, nil
		}
	}

	pairs, err := ParseCorpus(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	if store != nil {
		if err := store.SavePairs(ctx, digest, pairs); err != nil {
			slog.Warn("Corpus cache save failed", slog.String("error", err.Error()))
			recordInternalError("corpus_cache")
		}
	}
	return pairs, nil
}

func corpusCacheKey(digest string) []byte {
	return []byte(corpusCacheKeyPrefix + digest)
}

func shortDigest(d string) string {
	if len(d) > 8 {
		return d[:8] + "..."
	}
	return d
}
