// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/driftline/ctxvault/services/snapshot/storage"
)

// testClock returns a deterministic clock that advances one second per
// call, so creation timestamps are strictly ordered.
func testClock() func() time.Time {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, cfg StoreConfig, opts ...StoreOption) *Store {
	t.Helper()
	opts = append([]StoreOption{WithClock(testClock()), WithLogger(discardLogger())}, opts...)
	s, err := NewStore(cfg, opts...)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func testDocument(paths ...string) *CodebaseContext {
	doc := &CodebaseContext{
		Summary: HierarchicalSummary{
			Executive: "Payment service overview",
			Technical: "The service routes payment events through a worker pool.",
		},
		Patterns: PatternCatalog{
			ArchitecturalPatterns: []string{"worker-pool"},
		},
		Metadata: ContextMetadata{
			CreatedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
			Topic:     "payments",
		},
	}
	for _, p := range paths {
		doc.KeyComponents = append(doc.KeyComponents, Component{
			Path:        p,
			Description: "component at " + p,
			Importance:  75,
			Complexity:  40,
		})
	}
	return doc
}

func TestStore_CreateRestoreRoundTrip(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()
	doc := testDocument("svc/router.go", "svc/pool.go")

	cp, err := s.Create(ctx, doc, CreateOptions{Label: "baseline"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if cp.ID == "" {
		t.Error("Create() returned empty id")
	}
	if len(cp.ContentHash) != 64 {
		t.Errorf("ContentHash = %q, want 64 hex chars", cp.ContentHash)
	}

	restored, err := s.Restore(ctx, cp.ID)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	want, _ := json.Marshal(doc)
	got, _ := json.Marshal(restored)
	if !bytes.Equal(got, want) {
		t.Errorf("restored context differs from original:\n got %s\nwant %s", got, want)
	}
}

func TestStore_CreateSizeMetrics(t *testing.T) {
	cfg := DefaultStoreConfig()
	cfg.Compression.Enabled = true
	s := newTestStore(t, cfg)

	doc := testDocument("a.go", "b.go")
	cp, err := s.Create(context.Background(), doc, CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	serialized, _ := json.Marshal(doc)
	if cp.SizeMetrics.RawBytes != len(serialized) {
		t.Errorf("RawBytes = %d, want %d", cp.SizeMetrics.RawBytes, len(serialized))
	}
	if cp.SizeMetrics.TokenCount != len(serialized)/4 {
		t.Errorf("TokenCount = %d, want %d", cp.SizeMetrics.TokenCount, len(serialized)/4)
	}
	if cp.SizeMetrics.ComponentCount != 2 {
		t.Errorf("ComponentCount = %d, want 2", cp.SizeMetrics.ComponentCount)
	}
	if cp.SizeMetrics.PatternCount != 1 {
		t.Errorf("PatternCount = %d, want 1", cp.SizeMetrics.PatternCount)
	}
	if cp.SizeMetrics.CompressedBytes <= 0 {
		t.Errorf("CompressedBytes = %d, want > 0 with compression enabled", cp.SizeMetrics.CompressedBytes)
	}
}

func TestStore_CreateNilContext(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())

	_, err := s.Create(context.Background(), nil, CreateOptions{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Create(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestStore_VersionAssignment(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	first, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.Version != "1.0.0" {
		t.Errorf("first version = %s, want 1.0.0", first.Version)
	}
	if first.Description != "" {
		t.Errorf("parentless checkpoint description = %q, want empty", first.Description)
	}

	second, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if second.Version != "1.1.0" {
		t.Errorf("second parentless version = %s, want 1.1.0", second.Version)
	}

	child, err := s.Create(ctx, testDocument("a.go", "b.go"), CreateOptions{ParentID: first.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if child.Version != "1.0.1" {
		t.Errorf("child version = %s, want 1.0.1", child.Version)
	}
	if !strings.HasPrefix(child.Description, "Changes from parent:") {
		t.Errorf("child description = %q, want diff summary", child.Description)
	}

	// A dangling parent id falls back to the store counter but stays
	// recorded.
	orphan, err := s.Create(ctx, testDocument("c.go"), CreateOptions{ParentID: "no-such-id"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if orphan.Version != "1.2.0" {
		t.Errorf("orphan version = %s, want 1.2.0", orphan.Version)
	}
	if orphan.ParentID != "no-such-id" {
		t.Errorf("orphan parent id = %q, want recorded as given", orphan.ParentID)
	}
}

func TestStore_RestoreMissing(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())

	_, err := s.Restore(context.Background(), "no-such-id")
	if !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("Restore() error = %v, want ErrCheckpointNotFound", err)
	}
}

func TestStore_CorruptRecordTreatedAsMissing(t *testing.T) {
	backend := storage.NewMemoryBackend()
	cfg := DefaultStoreConfig()
	cfg.Backend = BackendCustom
	s := newTestStore(t, cfg, WithBackend(backend))
	ctx := context.Background()

	if err := backend.Save(ctx, "bad", []byte("{not json")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	good, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := s.Restore(ctx, "bad"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("Restore(corrupt) error = %v, want ErrCheckpointNotFound", err)
	}

	// Listing skips the corrupt record instead of failing.
	summaries, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != good.ID {
		t.Errorf("List() = %+v, want only the healthy checkpoint", summaries)
	}
}

func TestStore_Diff(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	a, err := s.Create(ctx, testDocument("a.go", "b.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	b, err := s.Create(ctx, testDocument("b.go", "c.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	diff, err := s.Diff(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if diff.Stats.AddedCount != 1 || diff.Stats.RemovedCount != 1 {
		t.Errorf("Stats = %+v, want 1 added 1 removed", diff.Stats)
	}
	if diff.Stats.ModifiedCount != 0 || len(diff.Modified) != 0 {
		t.Errorf("Modified = %v, want always empty", diff.Modified)
	}
	if diff.FromVersion != a.Version || diff.ToVersion != b.Version {
		t.Errorf("versions = %s->%s, want %s->%s", diff.FromVersion, diff.ToVersion, a.Version, b.Version)
	}

	if _, err := s.Diff(ctx, a.ID, "no-such-id"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("Diff() with missing id error = %v, want ErrCheckpointNotFound", err)
	}
}

func TestStore_ListFilters(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	mk := func(label string, tags ...string) *Checkpoint {
		cp, err := s.Create(ctx, testDocument("a.go"), CreateOptions{Label: label, Tags: tags})
		if err != nil {
			t.Fatalf("Create(%q) error = %v", label, err)
		}
		return cp
	}
	release := mk("release-v1", "stable", "prod")
	mk("nightly-build", "ci")
	hotfix := mk("release-hotfix", "prod")

	got, err := s.List(ctx, ListOptions{Label: "release"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(label=release) = %d results, want 2", len(got))
	}

	got, err = s.List(ctx, ListOptions{LabelRegex: `^release-v\d+$`})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != release.ID {
		t.Errorf("List(regex) = %+v, want only %s", got, release.ID)
	}

	if _, err := s.List(ctx, ListOptions{LabelRegex: "("}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("List(invalid regex) error = %v, want ErrInvalidInput", err)
	}

	// Tag filtering is any-of.
	got, err = s.List(ctx, ListOptions{Tags: []string{"prod", "nonexistent"}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(tags=prod) = %d results, want 2", len(got))
	}

	cutoff := hotfix.CreatedAt
	got, err = s.List(ctx, ListOptions{CreatedAfter: &cutoff})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != hotfix.ID {
		t.Errorf("List(createdAfter) = %+v, want only %s", got, hotfix.ID)
	}
}

func TestStore_ListSortAndPagination(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		cp, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, cp.ID)
	}

	// Default sort: newest first.
	got, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 || got[0].ID != ids[2] || got[2].ID != ids[0] {
		t.Errorf("List() default order = %v, want newest first", summaryIDs(got))
	}

	// Version ascending: 1.0.0, 1.1.0, 1.2.0 in creation order.
	got, err = s.List(ctx, ListOptions{SortBy: SortByVersion, SortOrder: SortAscending})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got[0].Version != "1.0.0" || got[2].Version != "1.2.0" {
		t.Errorf("List(version asc) versions = %v", summaryVersions(got))
	}

	got, err = s.List(ctx, ListOptions{SortBy: SortByCreated, SortOrder: SortAscending, Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != ids[1] {
		t.Errorf("List(offset=1 limit=1) = %v, want [%s]", summaryIDs(got), ids[1])
	}

	got, err = s.List(ctx, ListOptions{Offset: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List(offset beyond results) = %v, want empty", summaryIDs(got))
	}
}

func summaryIDs(items []CheckpointSummary) []string {
	ids := make([]string, len(items))
	for i, s := range items {
		ids[i] = s.ID
	}
	return ids
}

func summaryVersions(items []CheckpointSummary) []string {
	versions := make([]string, len(items))
	for i, s := range items {
		versions[i] = s.Version
	}
	return versions
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	var cps []*Checkpoint
	for i := 0; i < 3; i++ {
		cp, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		cps = append(cps, cp)
	}

	// Strictly-older-than semantics: the checkpoint at the cutoff
	// survives.
	cutoff := cps[2].CreatedAt
	deleted, err := s.Prune(ctx, &cutoff)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted = %d, want 2", deleted)
	}
	remaining, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != cps[2].ID {
		t.Errorf("remaining = %v, want only %s", summaryIDs(remaining), cps[2].ID)
	}

	// nil cutoff deletes everything.
	deleted, err = s.Prune(ctx, nil)
	if err != nil {
		t.Fatalf("Prune(nil) error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune(nil) deleted = %d, want 1", deleted)
	}
}

func TestStore_EvictionFIFO(t *testing.T) {
	cfg := DefaultStoreConfig()
	cfg.MaxCheckpoints = 2
	cfg.AutoPrune = true
	s := newTestStore(t, cfg)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		cp, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, cp.ID)
	}

	remaining, err := s.List(ctx, ListOptions{SortBy: SortByCreated, SortOrder: SortAscending})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d checkpoints, want 2", len(remaining))
	}
	if remaining[0].ID != ids[1] || remaining[1].ID != ids[2] {
		t.Errorf("remaining = %v, want oldest evicted (%s gone)", summaryIDs(remaining), ids[0])
	}
}

func TestStore_NoEvictionWithoutAutoPrune(t *testing.T) {
	cfg := DefaultStoreConfig()
	cfg.MaxCheckpoints = 1
	s := newTestStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, testDocument("a.go"), CreateOptions{}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	remaining, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 3 {
		t.Errorf("remaining = %d checkpoints, want 3 with auto prune off", len(remaining))
	}
}

func TestStore_LineageAndChildren(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	root, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	child, err := s.Create(ctx, testDocument("a.go", "b.go"), CreateOptions{ParentID: root.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	grandchild, err := s.Create(ctx, testDocument("a.go", "b.go", "c.go"), CreateOptions{ParentID: child.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	sibling, err := s.Create(ctx, testDocument("a.go", "d.go"), CreateOptions{ParentID: root.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	chain, err := s.Lineage(ctx, grandchild.ID)
	if err != nil {
		t.Fatalf("Lineage() error = %v", err)
	}
	wantChain := []string{root.ID, child.ID, grandchild.ID}
	if len(chain) != len(wantChain) {
		t.Fatalf("Lineage() = %v, want %v", summaryIDs(chain), wantChain)
	}
	for i, want := range wantChain {
		if chain[i].ID != want {
			t.Errorf("Lineage()[%d] = %s, want %s (oldest first)", i, chain[i].ID, want)
		}
	}

	if _, err := s.Lineage(ctx, "no-such-id"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("Lineage(missing) error = %v, want ErrCheckpointNotFound", err)
	}

	kids, err := s.Children(ctx, root.ID)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(kids) != 2 || kids[0].ID != child.ID || kids[1].ID != sibling.ID {
		t.Errorf("Children() = %v, want [%s %s] in creation order", summaryIDs(kids), child.ID, sibling.ID)
	}

	// Direct children only.
	kids, err = s.Children(ctx, child.ID)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(kids) != 1 || kids[0].ID != grandchild.ID {
		t.Errorf("Children(child) = %v, want [%s]", summaryIDs(kids), grandchild.ID)
	}
}

func TestStore_LineageStopsAtDanglingParent(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	orphan, err := s.Create(ctx, testDocument("a.go"), CreateOptions{ParentID: "long-gone"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	chain, err := s.Lineage(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("Lineage() error = %v", err)
	}
	if len(chain) != 1 || chain[0].ID != orphan.ID {
		t.Errorf("Lineage() = %v, want walk to stop at dangling parent", summaryIDs(chain))
	}
}

func TestStore_UpdateTags(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	cp, err := s.Create(ctx, testDocument("a.go"), CreateOptions{Tags: []string{"old"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := s.UpdateTags(ctx, cp.ID, []string{"new", "verified"})
	if err != nil {
		t.Fatalf("UpdateTags() error = %v", err)
	}
	if len(updated.Tags) != 2 || updated.Tags[0] != "new" {
		t.Errorf("UpdateTags() tags = %v, want [new verified]", updated.Tags)
	}

	// The replacement is persisted and everything else is untouched.
	reloaded, err := s.GetCheckpoint(ctx, cp.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint() error = %v", err)
	}
	if len(reloaded.Tags) != 2 || reloaded.Tags[1] != "verified" {
		t.Errorf("reloaded tags = %v, want [new verified]", reloaded.Tags)
	}
	if reloaded.Version != cp.Version || reloaded.ContentHash != cp.ContentHash {
		t.Error("UpdateTags() changed immutable fields")
	}

	if _, err := s.UpdateTags(ctx, "no-such-id", nil); !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("UpdateTags(missing) error = %v, want ErrCheckpointNotFound", err)
	}
}

func TestStore_DeleteAndGetVersion(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	cp, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	version, err := s.GetVersion(ctx, cp.ID)
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}
	if version != cp.Version {
		t.Errorf("GetVersion() = %s, want %s", version, cp.Version)
	}

	existed, err := s.Delete(ctx, cp.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !existed {
		t.Error("Delete() existed = false, want true")
	}
	if _, err := s.GetVersion(ctx, cp.ID); !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("GetVersion(deleted) error = %v, want ErrCheckpointNotFound", err)
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t, DefaultStoreConfig())
	ctx := context.Background()

	first, err := s.Create(ctx, testDocument("a.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := s.Create(ctx, testDocument("a.go", "b.go"), CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.CheckpointCount != 2 {
		t.Errorf("CheckpointCount = %d, want 2", stats.CheckpointCount)
	}
	wantBytes := int64(first.SizeMetrics.RawBytes + second.SizeMetrics.RawBytes)
	if stats.TotalRawBytes != wantBytes {
		t.Errorf("TotalRawBytes = %d, want %d", stats.TotalRawBytes, wantBytes)
	}
	if !stats.OldestCreatedAt.Equal(first.CreatedAt) || !stats.NewestCreatedAt.Equal(second.CreatedAt) {
		t.Errorf("time range = %v..%v, want %v..%v",
			stats.OldestCreatedAt, stats.NewestCreatedAt, first.CreatedAt, second.CreatedAt)
	}
}

func TestNewStore_CustomBackendRequired(t *testing.T) {
	cfg := DefaultStoreConfig()
	cfg.Backend = BackendCustom

	if _, err := NewStore(cfg); !errors.Is(err, ErrBackendRequired) {
		t.Errorf("NewStore(custom, no backend) error = %v, want ErrBackendRequired", err)
	}
}

func TestNewStore_InvalidConfig(t *testing.T) {
	cfg := StoreConfig{Backend: "carrier-pigeon"}
	if _, err := NewStore(cfg); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("NewStore(unknown backend) error = %v, want ErrInvalidInput", err)
	}

	cfg = StoreConfig{Backend: BackendFilesystem}
	if _, err := NewStore(cfg); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("NewStore(filesystem, no base path) error = %v, want ErrInvalidInput", err)
	}
}

func TestStore_FilesystemBackendRoundTrip(t *testing.T) {
	cfg := DefaultStoreConfig()
	cfg.Backend = BackendFilesystem
	cfg.BasePath = t.TempDir()
	cfg.Compression.Enabled = true
	s := newTestStore(t, cfg)
	ctx := context.Background()

	doc := testDocument("a.go")
	cp, err := s.Create(ctx, doc, CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	restored, err := s.Restore(ctx, cp.ID)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	want, _ := json.Marshal(doc)
	got, _ := json.Marshal(restored)
	if !bytes.Equal(got, want) {
		t.Error("filesystem round trip altered the context")
	}
}
