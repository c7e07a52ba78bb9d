// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compress reduces codebase context documents for constrained
// LLM context windows.
//
// A Compressor maps a numeric aggressiveness level (1-10) onto five
// strategy tiers, each applying the previous tier's reductions plus its
// own. Compression is lossy by design above the lightest tier; the
// caller chooses how much fidelity to trade for size.
package compress

import (
	"time"
)

// Compression level bounds.
const (
	MinLevel = 1
	MaxLevel = 10
)

// EncodingJSON is the payload encoding for compressed contexts. The
// only encoding currently produced or accepted.
const EncodingJSON = "json"

// Strategy names the five compression tiers.
type Strategy string

const (
	// StrategyLight (levels 1-2) trims whitespace only.
	StrategyLight Strategy = "light"

	// StrategyModerate (levels 3-4) adds deduplication and caps pattern
	// examples.
	StrategyModerate Strategy = "moderate"

	// StrategyMedium (levels 5-6) caps component count and description
	// length and keeps only critical data flows.
	StrategyMedium Strategy = "medium"

	// StrategyHeavy (levels 7-8) keeps only high-importance components,
	// high-confidence patterns, and severe insights.
	StrategyHeavy Strategy = "heavy"

	// StrategyMaximum (levels 9-10) rebuilds a minimal document from
	// the original, keeping only the most essential content.
	StrategyMaximum Strategy = "maximum"
)

// ContextType classifies a context element for priority decisions.
type ContextType string

const (
	TypeCorePatterns          ContextType = "core-patterns"
	TypeArchitectureDecisions ContextType = "architecture-decisions"
	TypeImplementationDetails ContextType = "implementation-details"
	TypeFileSummaries         ContextType = "file-summaries"
	TypeDependencyInfo        ContextType = "dependency-info"
	TypeHistoricalContext     ContextType = "historical-context"
)

// Priority describes how a context type is treated under pressure.
type Priority struct {
	// BasePriority is the retention priority (0-100). Types at 80 or
	// above are preserved by default during pruning.
	BasePriority int

	// TTL is how long elements of this type stay relevant. Zero means
	// no expiry.
	TTL time.Duration

	// Compressibility is how aggressively the type tolerates
	// compression (0.0 = never compress, 1.0 = fully compressible).
	Compressibility float64
}

// defaultPriorityMatrix assigns retention behavior per context type.
var defaultPriorityMatrix = map[ContextType]Priority{
	TypeCorePatterns:          {BasePriority: 95, TTL: 0, Compressibility: 0.2},
	TypeArchitectureDecisions: {BasePriority: 90, TTL: 0, Compressibility: 0.3},
	TypeImplementationDetails: {BasePriority: 60, TTL: 30 * 24 * time.Hour, Compressibility: 0.7},
	TypeFileSummaries:         {BasePriority: 50, TTL: 14 * 24 * time.Hour, Compressibility: 0.8},
	TypeDependencyInfo:        {BasePriority: 70, TTL: 7 * 24 * time.Hour, Compressibility: 0.5},
	TypeHistoricalContext:     {BasePriority: 30, TTL: 3 * 24 * time.Hour, Compressibility: 0.9},
}

// CompressedContext is the serialized envelope produced by Compress.
type CompressedContext struct {
	// OriginalVersion is the format version of the source document.
	OriginalVersion string `json:"original_version"`

	// CompressionLevel is the level the payload was produced at.
	CompressionLevel int `json:"compression_level"`

	// Encoding names the payload encoding. Always EncodingJSON.
	Encoding string `json:"encoding"`

	// Data is the serialized compressed document.
	Data []byte `json:"data"`

	// ContentHash is the sha256 hex digest of the ORIGINAL serialized
	// document, so round trips can be checked against the source.
	ContentHash string `json:"content_hash"`

	OriginalSize   int `json:"original_size"`
	CompressedSize int `json:"compressed_size"`

	// CompressionRatio is compressed size over original size; lower is
	// better.
	CompressionRatio float64 `json:"compression_ratio"`
}

// PruneOptions controls relevance-based pruning.
type PruneOptions struct {
	// RelevanceThreshold is the 0-100 cutoff. Components scoring below
	// it are removed unless preserved.
	RelevanceThreshold int

	// Aggressiveness (1-10, default 5) scales how hard patterns,
	// conventions, and insights are filtered. Values outside the range
	// are clamped.
	Aggressiveness int

	// PreserveTypes lists context types exempt from pruning. nil falls
	// back to the types whose base priority is 80 or above; an empty
	// non-nil slice preserves nothing.
	PreserveTypes []ContextType

	// PreservePaths exempts components whose path contains any of these
	// substrings.
	PreservePaths []string
}

// PrunedItem records one element removed by pruning.
type PrunedItem struct {
	Path           string  `json:"path"`
	Type           string  `json:"type"`
	Reason         string  `json:"reason"`
	RelevanceScore float64 `json:"relevance_score"`
}

// PruneResult reports what pruning removed.
type PruneResult struct {
	RemovedComponents  int          `json:"removed_components"`
	RemovedPatterns    int          `json:"removed_patterns"`
	RemovedConventions int          `json:"removed_conventions"`
	RemovedInsights    int          `json:"removed_insights"`
	Items              []PrunedItem `json:"items,omitempty"`
}

// DedupResult reports what semantic deduplication removed.
type DedupResult struct {
	RemovedComponents int `json:"removed_components"`
	RemovedPatterns   int `json:"removed_patterns"`
	RemovedInsights   int `json:"removed_insights"`
}

// CompressionStats reports the outcome of a measured compression run.
type CompressionStats struct {
	Strategy         Strategy `json:"strategy"`
	CompressionLevel int      `json:"compression_level"`
	OriginalSize     int      `json:"original_size"`
	CompressedSize   int      `json:"compressed_size"`
	CompressionRatio float64  `json:"compression_ratio"`
	SavedBytes       int      `json:"saved_bytes"`

	// TokensBefore and TokensAfter approximate the LLM token cost of
	// the document before and after compression.
	TokensBefore int `json:"tokens_before"`
	TokensAfter  int `json:"tokens_after"`

	// Elapsed is the wall-clock duration of the compression run.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// strategyForLevel maps a numeric level onto its tier.
func strategyForLevel(level int) Strategy {
	switch {
	case level <= 2:
		return StrategyLight
	case level <= 4:
		return StrategyModerate
	case level <= 6:
		return StrategyMedium
	case level <= 8:
		return StrategyHeavy
	default:
		return StrategyMaximum
	}
}

// defaultPreserveTypes returns the types preserved when PruneOptions
// leaves PreserveTypes nil.
func defaultPreserveTypes() []ContextType {
	types := make([]ContextType, 0, 2)
	for t, p := range defaultPriorityMatrix {
		if p.BasePriority >= 80 {
			types = append(types, t)
		}
	}
	return types
}
