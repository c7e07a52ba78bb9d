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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftline/ctxvault/pkg/logging"
	"github.com/driftline/ctxvault/services/snapshot/storage"
)

// charsPerToken is the approximation ratio for token estimates.
const charsPerToken = 4

var storeTracer = otel.Tracer("ctxvault.snapshot")

// loggerWithTrace returns a logger with trace context attached so log
// lines correlate with spans.
func loggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// CreateOptions configures checkpoint creation.
type CreateOptions struct {
	// ParentID links the new checkpoint to an existing one. Resolution
	// is best-effort: a parent that no longer exists is recorded as
	// given but versioning falls back to the store counter.
	ParentID string

	// Label is an optional human-readable name.
	Label string

	// Tags are free-form labels; the one field mutable after creation.
	Tags []string
}

// Sort fields accepted by ListOptions.
type SortField string

const (
	SortByCreated SortField = "createdAt"
	SortByVersion SortField = "version"
	SortBySize    SortField = "size"
)

// Sort orders accepted by ListOptions.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ListOptions filters, sorts, and paginates checkpoint listings.
type ListOptions struct {
	// Label filters by substring match on the checkpoint label.
	Label string

	// LabelRegex filters by regular expression on the label. An
	// invalid pattern fails the List call with ErrInvalidInput.
	LabelRegex string

	// Tags matches checkpoints whose tag set has a non-empty
	// intersection with this list.
	Tags []string

	// CreatedAfter keeps checkpoints created at or after this time.
	CreatedAfter *time.Time

	// CreatedBefore keeps checkpoints created at or before this time.
	CreatedBefore *time.Time

	// SortBy selects the sort key. Default: SortByCreated.
	SortBy SortField

	// SortOrder selects the direction. Default: SortDescending.
	SortOrder SortOrder

	// Offset skips the first N results after sorting.
	Offset int

	// Limit caps the number of results. 0 = unlimited.
	Limit int
}

// StoreOption customizes Store construction.
type StoreOption func(*Store)

// WithBackend supplies a caller-provided storage backend. Required when
// the config backend kind is "custom"; ignored otherwise.
func WithBackend(b storage.Backend) StoreOption {
	return func(s *Store) { s.customBackend = b }
}

// WithLogger sets the store's logger. Default: the package logging
// stack (stderr, service attribute).
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the store's time source. Intended for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

// Store owns checkpoint versioning, lineage, diffing, listing, and
// pruning on top of a storage.Backend.
//
// Thread Safety: Safe for concurrent use. The store holds an internal
// mutex across each logical operation, so multi-step operations
// (create + eviction scan, tag update) never interleave.
type Store struct {
	cfg           StoreConfig
	backend       storage.Backend
	customBackend storage.Backend
	ownsBackend   bool
	logger        *slog.Logger
	now           func() time.Time

	// mu serializes all logical operations.
	mu sync.Mutex

	// versionCounter is the fallback version counter, seeded at 1.0.0
	// and bumped on the minor component after each parentless create.
	// Guarded by mu. Not persisted across restarts.
	versionCounter semver
}

// NewStore creates a checkpoint store from the given configuration.
//
// Description:
//
//	Validates the configuration and constructs the storage backend:
//	memory, filesystem (one file per checkpoint under BasePath), badger
//	(embedded database under BasePath), or a caller-supplied backend
//	for the "custom" kind. Backends constructed here are closed by
//	Close(); a custom backend remains caller-owned.
//
// Inputs:
//
//	cfg - Store configuration. See StoreConfig.
//	opts - Optional customizations (WithBackend, WithLogger, WithClock).
//
// Outputs:
//
//	*Store - The ready store.
//	error - Non-nil if the config is invalid or the backend cannot open.
func NewStore(cfg StoreConfig, opts ...StoreOption) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Compression.Level == 0 {
		cfg.Compression.Level = 6
	}

	counter, err := parseSemver(initialVersion)
	if err != nil {
		return nil, err
	}
	s := &Store{
		cfg:            cfg,
		logger:         logging.Default().Slog(),
		now:            time.Now,
		versionCounter: counter,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch cfg.Backend {
	case BackendMemory:
		s.backend = storage.NewMemoryBackend()
	case BackendFilesystem:
		fs, err := storage.NewFilesystemBackend(storage.FilesystemConfig{
			BaseDir:          cfg.BasePath,
			Compress:         cfg.Compression.Enabled,
			CompressionLevel: cfg.Compression.Level,
		})
		if err != nil {
			return nil, fmt.Errorf("filesystem backend: %w", err)
		}
		s.backend = fs
	case BackendBadger:
		bb, err := storage.NewBadgerBackend(storage.BadgerConfig{
			Path:       cfg.BasePath,
			SyncWrites: true,
			Logger:     nil,
		})
		if err != nil {
			return nil, fmt.Errorf("badger backend: %w", err)
		}
		s.backend = bb
		s.ownsBackend = true
	case BackendCustom:
		if s.customBackend == nil {
			return nil, ErrBackendRequired
		}
		s.backend = s.customBackend
	default:
		return nil, fmt.Errorf("%w: unknown backend kind %q", ErrInvalidInput, cfg.Backend)
	}

	return s, nil
}

// Close releases backends owned by the store. Custom backends are left
// to their owners.
func (s *Store) Close() error {
	if !s.ownsBackend {
		return nil
	}
	if closer, ok := s.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Create
// -----------------------------------------------------------------------------

// Create persists a new versioned checkpoint wrapping the given context.
//
// Description:
//
//	Generates a fresh unique id, derives size metrics from the
//	serialized context, and assigns a version: the parent's version
//	with the patch component incremented when ParentID resolves,
//	otherwise the store's fallback counter (which then bumps its minor
//	component). When the parent resolves, a human-readable description
//	summarizing the diff against it is stored. After persisting, the
//	max-checkpoint eviction policy runs if configured.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	doc - The context payload to snapshot. Must not be nil. Treated as
//	      immutable once wrapped.
//	opts - Parent link, label, and tags.
//
// Outputs:
//
//	*Checkpoint - The persisted checkpoint. Never nil on success.
//	error - Non-nil if serialization or persistence fails.
func (s *Store) Create(ctx context.Context, doc *CodebaseContext, opts CreateOptions) (*Checkpoint, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: context must not be nil", ErrInvalidInput)
	}

	ctx, span := storeTracer.Start(ctx, "snapshot.store.create",
		trace.WithAttributes(
			attribute.String("checkpoint.parent_id", opts.ParentID),
			attribute.Int("context.component_count", len(doc.KeyComponents)),
		),
	)
	defer span.End()
	start := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	contextData, err := json.Marshal(doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		checkpointOperationsTotal.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("serialize context: %w", err)
	}

	metrics := SizeMetrics{
		RawBytes:       len(contextData),
		TokenCount:     len(contextData) / charsPerToken,
		ComponentCount: len(doc.KeyComponents),
		PatternCount:   len(doc.Patterns.ArchitecturalPatterns),
	}
	if s.cfg.Compression.Enabled {
		compressed, err := gzipSize(contextData, s.cfg.Compression.Level)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			checkpointOperationsTotal.WithLabelValues("create", "error").Inc()
			return nil, fmt.Errorf("measure compressed size: %w", err)
		}
		metrics.CompressedBytes = compressed
	}

	version, description := s.assignVersion(ctx, doc, opts.ParentID)

	hash := sha256.Sum256(contextData)
	cp := &Checkpoint{
		ID:          uuid.NewString(),
		Version:     version,
		ParentID:    opts.ParentID,
		Label:       opts.Label,
		Context:     *doc,
		SizeMetrics: metrics,
		ContentHash: hex.EncodeToString(hash[:]),
		CreatedAt:   s.now().UTC(),
		Description: description,
		Tags:        append([]string(nil), opts.Tags...),
	}

	if err := s.saveLocked(ctx, cp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		checkpointOperationsTotal.WithLabelValues("create", "error").Inc()
		return nil, err
	}

	if err := s.evictLocked(ctx); err != nil {
		// The checkpoint is already persisted; eviction failure is
		// surfaced in logs rather than failing the create.
		loggerWithTrace(ctx, s.logger).Warn("eviction scan failed",
			slog.String("error", err.Error()))
	}

	span.SetAttributes(
		attribute.String("checkpoint.id", cp.ID),
		attribute.String("checkpoint.version", cp.Version),
	)
	checkpointOperationsTotal.WithLabelValues("create", "ok").Inc()
	checkpointOperationDuration.WithLabelValues("create").Observe(s.now().Sub(start).Seconds())
	checkpointSizeBytes.Observe(float64(metrics.RawBytes))

	loggerWithTrace(ctx, s.logger).Info("checkpoint created",
		slog.String("checkpoint_id", cp.ID),
		slog.String("version", cp.Version),
		slog.Int("raw_bytes", metrics.RawBytes),
	)
	return cp, nil
}

// assignVersion resolves the version for a new checkpoint and, when a
// parent resolves, the diff description against it.
//
// Caller must hold s.mu.
func (s *Store) assignVersion(ctx context.Context, doc *CodebaseContext, parentID string) (string, string) {
	if parentID != "" {
		parent, err := s.loadLocked(ctx, parentID)
		if err == nil && parent != nil {
			if parentVersion, perr := parseSemver(parent.Version); perr == nil {
				added, removed := diffContexts(&parent.Context, doc)
				stats := diffStats(added, removed, nil)
				return parentVersion.bumpPatch().String(), describeDiff(stats)
			}
		}
		loggerWithTrace(ctx, s.logger).Warn("parent checkpoint did not resolve, using fallback version",
			slog.String("parent_id", parentID))
	}

	version := s.versionCounter
	s.versionCounter = s.versionCounter.bumpMinor()
	return version.String(), ""
}

// gzipSize returns the gzip-compressed length of data at the given
// level.
func gzipSize(data []byte, level int) (int, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return 0, err
	}
	if _, err := gz.Write(data); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

// -----------------------------------------------------------------------------
// Read operations
// -----------------------------------------------------------------------------

// Restore returns the context payload of a checkpoint.
//
// Outputs:
//
//	*CodebaseContext - A fresh copy owned by the caller.
//	error - ErrCheckpointNotFound if the id does not resolve.
func (s *Store) Restore(ctx context.Context, id string) (*CodebaseContext, error) {
	ctx, span := storeTracer.Start(ctx, "snapshot.store.restore",
		trace.WithAttributes(attribute.String("checkpoint.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.loadLocked(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		checkpointOperationsTotal.WithLabelValues("restore", "error").Inc()
		return nil, err
	}
	if cp == nil {
		span.SetStatus(codes.Error, ErrCheckpointNotFound.Error())
		checkpointOperationsTotal.WithLabelValues("restore", "not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}

	checkpointOperationsTotal.WithLabelValues("restore", "ok").Inc()
	doc := cp.Context
	return &doc, nil
}

// GetCheckpoint returns the full checkpoint record.
func (s *Store) GetCheckpoint(ctx context.Context, id string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.loadLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}
	return cp, nil
}

// GetVersion returns a checkpoint's semantic version string.
func (s *Store) GetVersion(ctx context.Context, id string) (string, error) {
	cp, err := s.GetCheckpoint(ctx, id)
	if err != nil {
		return "", err
	}
	return cp.Version, nil
}

// Diff computes the structural difference between two checkpoints.
//
// Description:
//
//	The comparison is presence-based and not content-aware: components
//	by path, architectural patterns by name, insights by description
//	text. Modified is always empty. See ContextDiff.
//
// Outputs:
//
//	*ContextDiff - The diff, oriented from idA to idB.
//	error - ErrCheckpointNotFound if either id does not resolve.
func (s *Store) Diff(ctx context.Context, idA, idB string) (*ContextDiff, error) {
	ctx, span := storeTracer.Start(ctx, "snapshot.store.diff",
		trace.WithAttributes(
			attribute.String("checkpoint.from_id", idA),
			attribute.String("checkpoint.to_id", idB),
		),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	from, err := s.loadLocked(ctx, idA)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if from == nil {
		span.SetStatus(codes.Error, ErrCheckpointNotFound.Error())
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, idA)
	}
	to, err := s.loadLocked(ctx, idB)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if to == nil {
		span.SetStatus(codes.Error, ErrCheckpointNotFound.Error())
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, idB)
	}

	added, removed := diffContexts(&from.Context, &to.Context)
	modified := []DiffEntry{}
	diff := &ContextDiff{
		FromCheckpointID: from.ID,
		ToCheckpointID:   to.ID,
		FromVersion:      from.Version,
		ToVersion:        to.Version,
		Added:            added,
		Removed:          removed,
		Modified:         modified,
		Stats:            diffStats(added, removed, modified),
		ComputedAt:       s.now().UTC(),
	}
	checkpointOperationsTotal.WithLabelValues("diff", "ok").Inc()
	return diff, nil
}

// List returns checkpoint summaries matching the options, sorted and
// paginated.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]CheckpointSummary, error) {
	ctx, span := storeTracer.Start(ctx, "snapshot.store.list")
	defer span.End()

	var labelRe *regexp.Regexp
	if opts.LabelRegex != "" {
		re, err := regexp.Compile(opts.LabelRegex)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%w: label regex: %v", ErrInvalidInput, err)
		}
		labelRe = re
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAllLocked(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	filtered := make([]CheckpointSummary, 0, len(all))
	for _, cp := range all {
		if opts.Label != "" && !strings.Contains(cp.Label, opts.Label) {
			continue
		}
		if labelRe != nil && !labelRe.MatchString(cp.Label) {
			continue
		}
		if len(opts.Tags) > 0 && !tagsIntersect(cp.Tags, opts.Tags) {
			continue
		}
		if opts.CreatedAfter != nil && cp.CreatedAt.Before(*opts.CreatedAfter) {
			continue
		}
		if opts.CreatedBefore != nil && cp.CreatedAt.After(*opts.CreatedBefore) {
			continue
		}
		filtered = append(filtered, cp.Summary())
	}

	sortSummaries(filtered, opts.SortBy, opts.SortOrder)

	// Pagination.
	if opts.Offset > 0 {
		if opts.Offset >= len(filtered) {
			return []CheckpointSummary{}, nil
		}
		filtered = filtered[opts.Offset:]
	}
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	span.SetAttributes(attribute.Int("checkpoint.result_count", len(filtered)))
	return filtered, nil
}

// tagsIntersect reports whether the two tag lists share any element.
func tagsIntersect(have, want []string) bool {
	set := stringSet(have)
	for _, t := range want {
		if set[t] {
			return true
		}
	}
	return false
}

// sortSummaries orders summaries by the requested field. Version sort
// compares the three dot-separated components numerically, not
// lexically.
func sortSummaries(items []CheckpointSummary, field SortField, order SortOrder) {
	if field == "" {
		field = SortByCreated
	}
	if order == "" {
		order = SortDescending
	}

	less := func(a, b CheckpointSummary) bool {
		switch field {
		case SortByVersion:
			return compareVersionStrings(a.Version, b.Version) < 0
		case SortBySize:
			return a.SizeMetrics.RawBytes < b.SizeMetrics.RawBytes
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if order == SortDescending {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

// Lineage walks parent pointers from id back to its root ancestor and
// returns summaries ordered oldest→newest (root first).
//
// The walk stops at a checkpoint with no parent or a parent that fails
// to resolve. Cycles, which should not occur, terminate the walk.
func (s *Store) Lineage(ctx context.Context, id string) ([]CheckpointSummary, error) {
	ctx, span := storeTracer.Start(ctx, "snapshot.store.lineage",
		trace.WithAttributes(attribute.String("checkpoint.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.loadLocked(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if cp == nil {
		span.SetStatus(codes.Error, ErrCheckpointNotFound.Error())
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}

	chain := []CheckpointSummary{cp.Summary()}
	visited := map[string]bool{cp.ID: true}
	for cp.ParentID != "" && !visited[cp.ParentID] {
		visited[cp.ParentID] = true
		parent, err := s.loadLocked(ctx, cp.ParentID)
		if err != nil || parent == nil {
			break
		}
		chain = append(chain, parent.Summary())
		cp = parent
	}

	// Walk order is newest→oldest; callers get root ancestor first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Children returns summaries of every checkpoint whose parent is id,
// via a linear scan of the store.
func (s *Store) Children(ctx context.Context, id string) ([]CheckpointSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAllLocked(ctx)
	if err != nil {
		return nil, err
	}

	children := []CheckpointSummary{}
	for _, cp := range all {
		if cp.ParentID == id {
			children = append(children, cp.Summary())
		}
	}
	sortSummaries(children, SortByCreated, SortAscending)
	return children, nil
}

// Stats returns aggregate counts across all stored checkpoints.
func (s *Store) Stats(ctx context.Context) (*StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAllLocked(ctx)
	if err != nil {
		return nil, err
	}

	stats := &StoreStats{CheckpointCount: len(all)}
	for _, cp := range all {
		stats.TotalRawBytes += int64(cp.SizeMetrics.RawBytes)
		stats.TotalTokens += int64(cp.SizeMetrics.TokenCount)
		if stats.OldestCreatedAt.IsZero() || cp.CreatedAt.Before(stats.OldestCreatedAt) {
			stats.OldestCreatedAt = cp.CreatedAt
		}
		if cp.CreatedAt.After(stats.NewestCreatedAt) {
			stats.NewestCreatedAt = cp.CreatedAt
		}
	}
	return stats, nil
}

// -----------------------------------------------------------------------------
// Mutating operations
// -----------------------------------------------------------------------------

// UpdateTags replaces a checkpoint's tags, the one mutable field.
//
// The write path is an explicit delete+save so the backend contract
// stays whole-record replace.
func (s *Store) UpdateTags(ctx context.Context, id string, tags []string) (*Checkpoint, error) {
	ctx, span := storeTracer.Start(ctx, "snapshot.store.update_tags",
		trace.WithAttributes(attribute.String("checkpoint.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.loadLocked(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if cp == nil {
		span.SetStatus(codes.Error, ErrCheckpointNotFound.Error())
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}

	cp.Tags = append([]string(nil), tags...)
	if _, err := s.backend.Delete(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("replace checkpoint %s: %w", id, err)
	}
	if err := s.saveLocked(ctx, cp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	checkpointOperationsTotal.WithLabelValues("update_tags", "ok").Inc()
	return cp, nil
}

// Delete removes a checkpoint by id. Returns true if it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed, err := s.backend.Delete(ctx, id)
	if err != nil {
		checkpointOperationsTotal.WithLabelValues("delete", "error").Inc()
		return false, fmt.Errorf("delete checkpoint %s: %w", id, err)
	}
	checkpointOperationsTotal.WithLabelValues("delete", "ok").Inc()
	return existed, nil
}

// Prune deletes checkpoints older than the cutoff.
//
// Inputs:
//
//	olderThan - Cutoff time. Checkpoints created strictly before it are
//	            deleted. nil deletes every checkpoint.
//
// Outputs:
//
//	int - Number of checkpoints deleted.
func (s *Store) Prune(ctx context.Context, olderThan *time.Time) (int, error) {
	ctx, span := storeTracer.Start(ctx, "snapshot.store.prune")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAllLocked(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	deleted := 0
	for _, cp := range all {
		if olderThan != nil && !cp.CreatedAt.Before(*olderThan) {
			continue
		}
		ok, err := s.backend.Delete(ctx, cp.ID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return deleted, fmt.Errorf("prune checkpoint %s: %w", cp.ID, err)
		}
		if ok {
			deleted++
		}
	}

	span.SetAttributes(attribute.Int("checkpoint.deleted_count", deleted))
	loggerWithTrace(ctx, s.logger).Info("checkpoints pruned", slog.Int("deleted", deleted))
	return deleted, nil
}

// evictLocked applies the max-checkpoint eviction policy: FIFO by
// creation time, active only when MaxCheckpoints > 0 and AutoPrune is
// set. Access never refreshes a checkpoint's eviction priority.
//
// Caller must hold s.mu.
func (s *Store) evictLocked(ctx context.Context) error {
	if s.cfg.MaxCheckpoints <= 0 || !s.cfg.AutoPrune {
		return nil
	}

	all, err := s.loadAllLocked(ctx)
	if err != nil {
		return err
	}
	excess := len(all) - s.cfg.MaxCheckpoints
	if excess <= 0 {
		return nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	for _, cp := range all[:excess] {
		if _, err := s.backend.Delete(ctx, cp.ID); err != nil {
			return fmt.Errorf("evict checkpoint %s: %w", cp.ID, err)
		}
		checkpointsEvictedTotal.Inc()
		loggerWithTrace(ctx, s.logger).Debug("checkpoint evicted",
			slog.String("checkpoint_id", cp.ID),
			slog.Time("created_at", cp.CreatedAt),
		)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Backend helpers
// -----------------------------------------------------------------------------

// saveLocked serializes and persists a checkpoint. Caller must hold
// s.mu.
func (s *Store) saveLocked(ctx context.Context, cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("serialize checkpoint: %w", err)
	}
	if err := s.backend.Save(ctx, cp.ID, data); err != nil {
		return fmt.Errorf("persist checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

// loadLocked fetches and deserializes a checkpoint.
//
// Returns (nil, nil) when the record is absent. A record that exists
// but fails to load or parse is logged, counted, and reported as
// absent: the documented contract conflates corruption with absence,
// though backends signal the difference internally via
// storage.ErrRecordCorrupt.
//
// Caller must hold s.mu.
func (s *Store) loadLocked(ctx context.Context, id string) (*Checkpoint, error) {
	data, err := s.backend.Load(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrRecordCorrupt) {
			corruptRecordsTotal.Inc()
			loggerWithTrace(ctx, s.logger).Warn("corrupt checkpoint record treated as missing",
				slog.String("checkpoint_id", id),
				slog.String("error", err.Error()),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		corruptRecordsTotal.Inc()
		loggerWithTrace(ctx, s.logger).Warn("unparseable checkpoint record treated as missing",
			slog.String("checkpoint_id", id),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return &cp, nil
}

// loadAllLocked loads every stored checkpoint, skipping records that
// have gone missing between list and load. Caller must hold s.mu.
func (s *Store) loadAllLocked(ctx context.Context) ([]*Checkpoint, error) {
	ids, err := s.backend.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	all := make([]*Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := s.loadLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		if cp != nil {
			all = append(all, cp)
		}
	}
	return all, nil
}
