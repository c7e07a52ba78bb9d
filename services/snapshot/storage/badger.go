// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// checkpointKeyPrefix namespaces checkpoint records inside the Badger
// keyspace so the database can be shared with other record types later.
const checkpointKeyPrefix = "checkpoint/"

// BadgerConfig configures a BadgerBackend.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Required unless
	// InMemory is true. Created if it doesn't exist.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful
	// for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. If nil,
	// BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerBackend stores checkpoint records in an embedded BadgerDB
// instance under the "checkpoint/" key prefix.
//
// Thread Safety: Safe for concurrent use; BadgerDB transactions provide
// isolation per operation.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens a BadgerDB instance and wraps it as a Backend.
//
// Description:
//
//	Opens the database at cfg.Path (created if absent), or in memory
//	when cfg.InMemory is true. The caller must Close() the backend to
//	release the database.
//
// Inputs:
//
//	cfg - Database configuration. Path is required unless InMemory.
//
// Outputs:
//
//	*BadgerBackend - The opened backend.
//	error - Non-nil if the path is invalid or the database cannot open.
func NewBadgerBackend(cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

// Close releases the underlying database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func badgerKey(id string) []byte {
	return []byte(checkpointKeyPrefix + id)
}

// Save persists the record in a read-write transaction.
func (b *BadgerBackend) Save(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(id), data)
	})
	if err != nil {
		return fmt.Errorf("save record %s: %w", id, err)
	}
	return nil
}

// Load returns the record, or nil if the id does not exist.
func (b *BadgerBackend) Load(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load record %s: %v", ErrRecordCorrupt, id, err)
	}
	return out, nil
}

// Delete removes the record. Returns true if a record existed.
func (b *BadgerBackend) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	existed := false
	err := b.db.Update(func(txn *badger.Txn) error {
		key := badgerKey(id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		existed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("delete record %s: %w", id, err)
	}
	return existed, nil
}

// ListIDs iterates the checkpoint key prefix and strips it.
func (b *BadgerBackend) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(checkpointKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return ids, nil
}

// Exists reports whether a record exists for the id.
func (b *BadgerBackend) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check record %s: %w", id, err)
	}
	return true, nil
}

// Clear removes every checkpoint record via prefix drop.
func (b *BadgerBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.DropPrefix([]byte(checkpointKeyPrefix)); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

var _ Backend = (*BadgerBackend)(nil)
