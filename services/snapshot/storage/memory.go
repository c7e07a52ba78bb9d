// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"context"
	"sync"
)

// MemoryBackend is a volatile in-process Backend.
//
// Records are copied on both save and load so stored data is never
// aliased with caller-held slices.
//
// Thread Safety: Safe for concurrent use.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string][]byte),
	}
}

// Save stores a copy of the record under the id.
func (b *MemoryBackend) Save(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	b.mu.Lock()
	b.records[id] = cp
	b.mu.Unlock()
	return nil
}

// Load returns a copy of the record, or nil if the id does not exist.
func (b *MemoryBackend) Load(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	data, ok := b.records[id]
	b.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Delete removes the record. Returns true if a record existed.
func (b *MemoryBackend) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.records[id]; !ok {
		return false, nil
	}
	delete(b.records, id)
	return true, nil
}

// ListIDs returns the ids of all stored records.
func (b *MemoryBackend) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.records))
	for id := range b.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// Exists reports whether a record exists for the id.
func (b *MemoryBackend) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.RLock()
	_, ok := b.records[id]
	b.mu.RUnlock()
	return ok, nil
}

// Clear removes every stored record.
func (b *MemoryBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.records = make(map[string][]byte)
	b.mu.Unlock()
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
