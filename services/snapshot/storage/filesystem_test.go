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
	"os"
	"path/filepath"
	"testing"
)

func newFSBackend(t *testing.T, compress bool) *FilesystemBackend {
	t.Helper()
	b, err := NewFilesystemBackend(FilesystemConfig{
		BaseDir:  t.TempDir(),
		Compress: compress,
	})
	if err != nil {
		t.Fatalf("NewFilesystemBackend() error = %v", err)
	}
	return b
}

func TestFilesystemBackend_SaveLoadRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			b := newFSBackend(t, compress)
			ctx := context.Background()

			want := []byte(`{"id":"cp-1","version":"1.0.0"}`)
			if err := b.Save(ctx, "cp-1", want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := b.Load(ctx, "cp-1")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("Load() = %q, want %q", got, want)
			}
		})
	}
}

func TestFilesystemBackend_LoadMissingReturnsNilNil(t *testing.T) {
	b := newFSBackend(t, false)

	got, err := b.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("Load() = %v, want nil for missing record", got)
	}
}

func TestFilesystemBackend_CorruptGzipRecord(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFilesystemBackend(FilesystemConfig{BaseDir: dir, Compress: true})
	if err != nil {
		t.Fatalf("NewFilesystemBackend() error = %v", err)
	}

	// A .gz file that is not a gzip stream.
	path := filepath.Join(dir, "checkpoint-cp-1.json.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0640); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err = b.Load(context.Background(), "cp-1")
	if !errors.Is(err, ErrRecordCorrupt) {
		t.Errorf("Load() error = %v, want ErrRecordCorrupt", err)
	}
}

func TestFilesystemBackend_CompressionToggleFindsOldRecords(t *testing.T) {
	dir := t.TempDir()
	plain, err := NewFilesystemBackend(FilesystemConfig{BaseDir: dir})
	if err != nil {
		t.Fatalf("NewFilesystemBackend() error = %v", err)
	}
	ctx := context.Background()

	want := []byte("payload")
	if err := plain.Save(ctx, "cp-1", want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	gzipped, err := NewFilesystemBackend(FilesystemConfig{BaseDir: dir, Compress: true})
	if err != nil {
		t.Fatalf("NewFilesystemBackend() error = %v", err)
	}
	got, err := gzipped.Load(ctx, "cp-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Load() after compression toggle = %q, want %q", got, want)
	}
}

func TestFilesystemBackend_ListDeleteClear(t *testing.T) {
	b := newFSBackend(t, true)
	ctx := context.Background()

	for _, id := range []string{"cp-1", "cp-2"} {
		if err := b.Save(ctx, id, []byte(id)); err != nil {
			t.Fatalf("Save(%q) error = %v", id, err)
		}
	}

	ids, err := b.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ListIDs() = %v, want 2 ids", ids)
	}

	existed, err := b.Delete(ctx, "cp-1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !existed {
		t.Error("Delete() existed = false, want true")
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	ids, err = b.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs() after Clear error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ListIDs() after Clear = %v, want empty", ids)
	}
}

func TestNewFilesystemBackend_Validation(t *testing.T) {
	if _, err := NewFilesystemBackend(FilesystemConfig{}); err == nil {
		t.Error("NewFilesystemBackend() with empty base dir: want error")
	}
	if _, err := NewFilesystemBackend(FilesystemConfig{BaseDir: t.TempDir(), CompressionLevel: 42}); err == nil {
		t.Error("NewFilesystemBackend() with level 42: want error")
	}
}
