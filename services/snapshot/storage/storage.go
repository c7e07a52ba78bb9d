// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage provides key→blob persistence backends for checkpoint
// records.
//
// A Backend stores one opaque serialized record per checkpoint id. The
// checkpoint store owns (de)serialization; backends never inspect the
// record contents. Three implementations are provided:
//
//   - Memory: volatile in-process map, records copied on save and load
//   - Filesystem: one file per checkpoint, optional gzip filter
//   - Badger: embedded key-value store (BadgerDB)
//
// # Missing vs. corrupt
//
// Load returns (nil, nil) when a record genuinely does not exist. When a
// record exists but cannot be read back (truncated gzip stream, I/O
// failure), Load returns an error wrapping ErrRecordCorrupt so callers
// that care can distinguish the two; callers that don't can treat both
// as missing.
package storage

import (
	"context"
	"errors"
)

// Sentinel errors for storage backends.
var (
	// ErrRecordCorrupt indicates a record exists but could not be read
	// back intact. Retrying will not help.
	ErrRecordCorrupt = errors.New("storage record corrupt")

	// ErrBackendClosed indicates the backend has been closed.
	ErrBackendClosed = errors.New("storage backend closed")
)

// Backend is the key→blob persistence contract for checkpoint records.
//
// All methods must be safe for concurrent use. Writes are whole-record
// replace: Save on an existing id overwrites the previous record.
type Backend interface {
	// Save persists the record under the given id, replacing any
	// existing record.
	Save(ctx context.Context, id string, data []byte) error

	// Load returns the record for the id.
	//
	// Outputs:
	//   []byte - The record, or nil if the id does not exist.
	//   error - Non-nil on read failure; wraps ErrRecordCorrupt when a
	//           record exists but is unreadable.
	Load(ctx context.Context, id string) ([]byte, error)

	// Delete removes the record. Returns true if a record existed.
	Delete(ctx context.Context, id string) (bool, error)

	// ListIDs returns the ids of all stored records, in no particular
	// order.
	ListIDs(ctx context.Context) ([]string, error)

	// Exists reports whether a record exists for the id.
	Exists(ctx context.Context, id string) (bool, error)

	// Clear removes every stored record.
	Clear(ctx context.Context) error
}
