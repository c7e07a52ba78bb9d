// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// File naming for checkpoint records.
const (
	checkpointFilePrefix = "checkpoint-"
	checkpointFileSuffix = ".json"
	gzipSuffix           = ".gz"
)

// FilesystemConfig configures a FilesystemBackend.
type FilesystemConfig struct {
	// BaseDir is the directory holding one file per checkpoint.
	// Created lazily on first save or list.
	BaseDir string

	// Compress enables a gzip filter on stored records. File names gain
	// a .gz suffix.
	Compress bool

	// CompressionLevel is the gzip level (1-9). Default: 6.
	CompressionLevel int
}

// FilesystemBackend stores one file per checkpoint, named
// "checkpoint-<id>.json" (or ".json.gz" with compression enabled).
//
// Writes are atomic via temp file + rename. The base directory is the
// backend's only shared resource and is assumed exclusive to one
// logical store.
//
// Thread Safety: Safe for concurrent use; each record maps to its own
// file and writes are atomic.
type FilesystemBackend struct {
	cfg FilesystemConfig
}

// NewFilesystemBackend creates a filesystem backend rooted at
// cfg.BaseDir. The directory is not created until first use.
func NewFilesystemBackend(cfg FilesystemConfig) (*FilesystemBackend, error) {
	if cfg.BaseDir == "" {
		return nil, errors.New("base dir must not be empty")
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = 6
	}
	if cfg.CompressionLevel < 1 || cfg.CompressionLevel > 9 {
		return nil, fmt.Errorf("compression level must be 1-9, got %d", cfg.CompressionLevel)
	}
	return &FilesystemBackend{cfg: cfg}, nil
}

// ensureDir lazily creates the base directory. MkdirAll is idempotent.
func (b *FilesystemBackend) ensureDir() error {
	if err := os.MkdirAll(b.cfg.BaseDir, 0750); err != nil {
		return fmt.Errorf("create base dir %s: %w", b.cfg.BaseDir, err)
	}
	return nil
}

// fileName returns the record file name for an id under the current
// compression setting.
func (b *FilesystemBackend) fileName(id string) string {
	name := checkpointFilePrefix + id + checkpointFileSuffix
	if b.cfg.Compress {
		name += gzipSuffix
	}
	return name
}

// Save writes the record atomically (temp file + rename), creating the
// base directory if needed.
func (b *FilesystemBackend) Save(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.ensureDir(); err != nil {
		return err
	}

	payload := data
	if b.cfg.Compress {
		var buf bytes.Buffer
		gz, err := gzip.NewWriterLevel(&buf, b.cfg.CompressionLevel)
		if err != nil {
			return fmt.Errorf("create gzip writer: %w", err)
		}
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("compress record: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("finish compression: %w", err)
		}
		payload = buf.Bytes()
	}

	path := filepath.Join(b.cfg.BaseDir, b.fileName(id))
	tempFile, err := os.CreateTemp(b.cfg.BaseDir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(payload); err != nil {
		tempFile.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("sync record: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename record: %w", err)
	}

	success = true
	return nil
}

// Load reads the record for the id.
//
// Records written under the opposite compression setting are still
// found, so toggling Compress does not orphan existing data. A record
// that exists but cannot be read back returns an error wrapping
// ErrRecordCorrupt.
func (b *FilesystemBackend) Load(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, compressed, ok := b.locate(id)
	if !ok {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrRecordCorrupt, path, err)
	}

	if !compressed {
		return data, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open gzip stream for %s: %v", ErrRecordCorrupt, id, err)
	}
	defer gz.Close()

	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress %s: %v", ErrRecordCorrupt, id, err)
	}
	return out, nil
}

// locate finds the on-disk file for an id, preferring the name the
// current compression setting would write.
func (b *FilesystemBackend) locate(id string) (path string, compressed bool, ok bool) {
	plain := filepath.Join(b.cfg.BaseDir, checkpointFilePrefix+id+checkpointFileSuffix)
	gzipped := plain + gzipSuffix

	first, second := plain, gzipped
	firstCompressed, secondCompressed := false, true
	if b.cfg.Compress {
		first, second = gzipped, plain
		firstCompressed, secondCompressed = true, false
	}

	if _, err := os.Stat(first); err == nil {
		return first, firstCompressed, true
	}
	if _, err := os.Stat(second); err == nil {
		return second, secondCompressed, true
	}
	return "", false, false
}

// Delete removes the record file. Returns true if a file existed.
func (b *FilesystemBackend) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, _, ok := b.locate(id)
	if !ok {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("remove record: %w", err)
	}
	return true, nil
}

// ListIDs derives ids by pattern-matching record file names and
// stripping the naming convention.
func (b *FilesystemBackend) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.ensureDir(); err != nil {
		return nil, err
	}

	pattern := filepath.Join(b.cfg.BaseDir, checkpointFilePrefix+"*"+checkpointFileSuffix+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		name = strings.TrimSuffix(name, gzipSuffix)
		if !strings.HasSuffix(name, checkpointFileSuffix) {
			continue
		}
		name = strings.TrimSuffix(name, checkpointFileSuffix)
		id := strings.TrimPrefix(name, checkpointFilePrefix)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Exists reports whether a record file exists for the id.
func (b *FilesystemBackend) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, _, ok := b.locate(id)
	return ok, nil
}

// Clear removes every record file, leaving the directory in place.
func (b *FilesystemBackend) Clear(ctx context.Context) error {
	ids, err := b.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := b.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

var _ Backend = (*FilesystemBackend)(nil)
