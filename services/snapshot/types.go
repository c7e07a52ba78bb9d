// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package snapshot provides the versioned checkpoint store for
// codebase-analysis context documents.
//
// A Store persists immutable, semantically-versioned snapshots of a
// CodebaseContext, computes structural diffs between snapshots, and
// tracks parent/child lineage. The context payload itself is produced
// by an external analysis process and treated as an opaque structured
// document here.
//
// Design principles:
//   - A checkpoint's context and size metrics never change once
//     persisted (tags are the one mutable field)
//   - Version ordering is consistent along any parent→child edge
//   - The store owns exclusive access to its backend for the duration
//     of each logical operation
package snapshot

import (
	"time"
)

// ContextFormatVersion is the current context document format version.
const ContextFormatVersion = "1.0.0"

// Impact levels used by insights and circular dependencies.
const (
	ImpactCritical = "critical"
	ImpactHigh     = "high"
	ImpactMedium   = "medium"
	ImpactLow      = "low"
)

// CodebaseContext is the analysis payload wrapped by a checkpoint.
//
// The store treats it as an immutable value once persisted; only its
// shape matters here, never its meaning.
type CodebaseContext struct {
	Summary         HierarchicalSummary `json:"summary"`
	KeyComponents   []Component         `json:"key_components,omitempty"`
	Patterns        PatternCatalog      `json:"patterns"`
	DependencyGraph DependencyGraph     `json:"dependency_graph"`
	DataFlow        DataFlowMap         `json:"data_flow"`
	Insights        []Insight           `json:"insights,omitempty"`
	Metadata        ContextMetadata     `json:"metadata"`
}

// HierarchicalSummary holds the three-level summary text of a context.
type HierarchicalSummary struct {
	// Executive is the shortest, highest-level summary.
	Executive string `json:"executive,omitempty"`

	// Detailed expands the executive summary for human readers.
	Detailed string `json:"detailed,omitempty"`

	// Technical is the full technical narrative, typically the largest
	// text block in the document.
	Technical string `json:"technical,omitempty"`
}

// Component is one key component of the analyzed codebase.
type Component struct {
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`

	// Importance is a 0-100 relevance score assigned by the analyzer.
	Importance int `json:"importance"`

	// Complexity is a 0-100 score; higher means harder to understand.
	Complexity int `json:"complexity"`

	Dependencies []string `json:"dependencies,omitempty"`
}

// PatternCatalog groups the pattern findings of the analyzer.
type PatternCatalog struct {
	DesignPatterns        []DesignPattern `json:"design_patterns,omitempty"`
	ArchitecturalPatterns []string        `json:"architectural_patterns,omitempty"`
	Conventions           []Convention    `json:"conventions,omitempty"`
	Frequency             map[string]int  `json:"frequency,omitempty"`
}

// DesignPattern is a detected design pattern instance.
type DesignPattern struct {
	Type string `json:"type"`
	Name string `json:"name"`

	// Confidence is the detector's confidence in the finding (0.0-1.0).
	Confidence float64 `json:"confidence"`

	Examples []string `json:"examples,omitempty"`
}

// Convention is a detected coding convention.
type Convention struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Consistency is how uniformly the convention is followed (0-100).
	Consistency int `json:"consistency"`
}

// DependencyGraph captures the module dependency structure.
type DependencyGraph struct {
	Nodes                []string             `json:"nodes,omitempty"`
	Edges                []DependencyEdge     `json:"edges,omitempty"`
	CircularDependencies []CircularDependency `json:"circular_dependencies,omitempty"`
	Stats                DependencyStats      `json:"stats"`
}

// DependencyEdge is a directed dependency between two nodes.
type DependencyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CircularDependency is a dependency cycle with a severity rating.
type CircularDependency struct {
	Cycle    []string `json:"cycle"`
	Severity string   `json:"severity"`
}

// DependencyStats holds aggregate graph counts.
type DependencyStats struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
	MaxDepth  int `json:"max_depth,omitempty"`
}

// DataFlowMap describes how data moves through the codebase.
type DataFlowMap struct {
	Overview string     `json:"overview,omitempty"`
	Flows    []DataFlow `json:"flows,omitempty"`
}

// DataFlow is one named flow of data.
type DataFlow struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Critical marks flows that must survive aggressive compression.
	Critical bool `json:"critical,omitempty"`
}

// Insight is a single analyzer finding.
type Insight struct {
	Type        string `json:"type"`
	Description string `json:"description"`

	// Impact is one of critical, high, medium, low.
	Impact string `json:"impact"`

	Recommendation string `json:"recommendation,omitempty"`
}

// ContextMetadata carries bookkeeping for a context document.
type ContextMetadata struct {
	// Version is the context document format version. Defaults to
	// ContextFormatVersion when empty.
	Version string `json:"version,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Topic      string    `json:"topic,omitempty"`
	Files      []string  `json:"files,omitempty"`
	FocusAreas []string  `json:"focus_areas,omitempty"`
}

// FormatVersion returns the document's format version, defaulting to
// ContextFormatVersion.
func (c *CodebaseContext) FormatVersion() string {
	if c.Metadata.Version != "" {
		return c.Metadata.Version
	}
	return ContextFormatVersion
}

// Checkpoint is an immutable, versioned, persisted wrapper around one
// context snapshot.
//
// Invariants:
//   - ID is globally unique, assigned at creation, never reused
//   - Context and SizeMetrics never change once persisted
//   - Tags are the one mutable field (see Store.UpdateTags)
//   - Version ordering is consistent along any parent→child edge
type Checkpoint struct {
	ID          string          `json:"id"`
	Version     string          `json:"version"`
	ParentID    string          `json:"parent_id,omitempty"`
	Label       string          `json:"label,omitempty"`
	Context     CodebaseContext `json:"context"`
	SizeMetrics SizeMetrics     `json:"size_metrics"`

	// ContentHash is the sha256 hex digest of the serialized context.
	ContentHash string `json:"content_hash,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// SizeMetrics are derived size measurements for a checkpoint's context.
// Never hand-set; computed at creation time.
type SizeMetrics struct {
	// RawBytes is the serialized context length.
	RawBytes int `json:"raw_bytes"`

	// CompressedBytes is the gzip-compressed length, when store
	// compression is enabled.
	CompressedBytes int `json:"compressed_bytes,omitempty"`

	// TokenCount is a rough LLM token estimate (serialized length / 4).
	TokenCount int `json:"token_count"`

	ComponentCount int `json:"component_count"`
	PatternCount   int `json:"pattern_count"`
}

// Summary returns the listing view of the checkpoint.
func (c *Checkpoint) Summary() CheckpointSummary {
	return CheckpointSummary{
		ID:          c.ID,
		Version:     c.Version,
		ParentID:    c.ParentID,
		Label:       c.Label,
		CreatedAt:   c.CreatedAt,
		Description: c.Description,
		Tags:        append([]string(nil), c.Tags...),
		SizeMetrics: c.SizeMetrics,
	}
}

// CheckpointSummary is the lightweight listing view of a checkpoint,
// suitable for direct transmission to a caller.
type CheckpointSummary struct {
	ID          string      `json:"id"`
	Version     string      `json:"version"`
	ParentID    string      `json:"parent_id,omitempty"`
	Label       string      `json:"label,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Description string      `json:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	SizeMetrics SizeMetrics `json:"size_metrics"`
}

// Change types used in diff entries.
const (
	ChangeAdded    = "added"
	ChangeRemoved  = "removed"
	ChangeModified = "modified"
)

// DiffEntry is one structural change between two contexts.
type DiffEntry struct {
	// Path identifies the changed element: a component path, a
	// "pattern:<name>" entry, or an "insight:<description>" entry.
	Path string `json:"path"`

	ChangeType string `json:"change_type"`
}

// DiffStats are the aggregate counts for a diff.
type DiffStats struct {
	AddedCount    int `json:"added_count"`
	RemovedCount  int `json:"removed_count"`
	ModifiedCount int `json:"modified_count"`
	TotalChanges  int `json:"total_changes"`
}

// ContextDiff is the structural difference between two checkpoints.
// It is a pure function of the two payloads and has no persisted
// identity.
//
// The comparison is presence-based: components are compared by path,
// architectural patterns by name, insights by description text.
// Modified is always empty under the current algorithm.
type ContextDiff struct {
	FromCheckpointID string      `json:"from_checkpoint_id"`
	ToCheckpointID   string      `json:"to_checkpoint_id"`
	FromVersion      string      `json:"from_version"`
	ToVersion        string      `json:"to_version"`
	Added            []DiffEntry `json:"added"`
	Removed          []DiffEntry `json:"removed"`
	Modified         []DiffEntry `json:"modified"`
	Stats            DiffStats   `json:"stats"`
	ComputedAt       time.Time   `json:"computed_at"`
}

// StoreStats holds aggregate counts across all stored checkpoints.
type StoreStats struct {
	CheckpointCount int       `json:"checkpoint_count"`
	TotalRawBytes   int64     `json:"total_raw_bytes"`
	TotalTokens     int64     `json:"total_tokens"`
	OldestCreatedAt time.Time `json:"oldest_created_at,omitzero"`
	NewestCreatedAt time.Time `json:"newest_created_at,omitzero"`
}
