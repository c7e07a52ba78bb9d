// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compress

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/driftline/ctxvault/pkg/logging"
	"github.com/driftline/ctxvault/services/snapshot"
)

// charsPerToken is the approximation ratio for token estimates.
const charsPerToken = 4

// Per-tier caps. Each tier applies the previous tier's reductions plus
// its own.
const (
	moderateMaxExamples = 2

	mediumMaxComponents = 20
	mediumMaxDescLen    = 200
	mediumMaxFlows      = 10

	heavyMinImportance  = 70
	heavyMaxComponents  = 10
	heavyMinConfidence  = 0.7
	heavyMaxPatterns    = 5
	heavyMaxInsights    = 5
	heavyMaxTechnical   = 500
	heavyMaxConventions = 3
	heavyMaxFlows       = 3

	maxMinImportance   = 90
	maxMaxComponents   = 5
	maxMaxDetailed     = 200
	maxMaxTechnical    = 100
	maxMaxDescLen      = 50
	maxMaxDependencies = 3
	maxMinConfidence   = 0.9
	maxMaxPatterns     = 3
	maxMaxArchPatterns = 3
	maxMaxOverview     = 100
	maxMaxInsights     = 3
)

var tracer = otel.Tracer("ctxvault.compress")

// Option customizes Compressor construction.
type Option func(*Compressor)

// WithClassifier replaces the default path classifier.
func WithClassifier(fn ClassifierFunc) Option {
	return func(c *Compressor) {
		if fn != nil {
			c.classify = fn
		}
	}
}

// WithLogger sets the compressor's logger. Default: the package
// logging stack (stderr, service attribute).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compressor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Compressor reduces context documents by tiered, lossy
// transformation.
//
// Thread Safety: Safe for concurrent use. All state is read-only after
// construction and every operation works on caller-owned or freshly
// copied documents.
type Compressor struct {
	matrix   map[ContextType]Priority
	classify ClassifierFunc
	logger   *slog.Logger
}

// New creates a Compressor with the default priority matrix and path
// classifier.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		matrix:   defaultPriorityMatrix,
		classify: DefaultClassifier,
		logger:   logging.Default().Slog(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress produces a compressed envelope of the document at the given
// level.
//
// Description:
//
//	Levels map onto five cumulative tiers: light (1-2) trims
//	whitespace, moderate (3-4) adds deduplication and example caps,
//	medium (5-6) caps component count and keeps only critical flows,
//	heavy (7-8) keeps only high-importance and high-confidence content,
//	maximum (9-10) rebuilds a minimal document. The input document is
//	never mutated; all tiers operate on a deep copy. The envelope
//	records the sha256 of the original serialized document so callers
//	can tie a compressed payload back to its source.
//
// Inputs:
//
//	ctx - Context for tracing.
//	doc - Document to compress. Must not be nil. Not mutated.
//	level - Compression level, 1 (lightest) to 10 (most aggressive).
//
// Outputs:
//
//	*CompressedContext - The envelope. Never nil on success.
//	error - ErrInvalidLevel for an out-of-range level, ErrInvalidInput
//	        for a nil document.
func (c *Compressor) Compress(ctx context.Context, doc *snapshot.CodebaseContext, level int) (*CompressedContext, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLevel, level)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document must not be nil", ErrInvalidInput)
	}

	strategy := strategyForLevel(level)
	ctx, span := tracer.Start(ctx, "compress.compress")
	span.SetAttributes(
		attribute.Int("compress.level", level),
		attribute.String("compress.strategy", string(strategy)),
	)
	defer span.End()

	original, err := json.Marshal(doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		compressionOperationsTotal.WithLabelValues(string(strategy), "error").Inc()
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	hash := sha256.Sum256(original)

	work, err := deepCopy(doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		compressionOperationsTotal.WithLabelValues(string(strategy), "error").Inc()
		return nil, err
	}

	switch strategy {
	case StrategyLight:
		c.applyLight(work)
	case StrategyModerate:
		c.applyLight(work)
		c.applyModerate(work)
	case StrategyMedium:
		c.applyLight(work)
		c.applyModerate(work)
		c.applyMedium(work)
	case StrategyHeavy:
		c.applyLight(work)
		c.applyModerate(work)
		c.applyMedium(work)
		c.applyHeavy(work)
	case StrategyMaximum:
		work = buildMaximum(doc)
	}

	data, err := json.Marshal(work)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		compressionOperationsTotal.WithLabelValues(string(strategy), "error").Inc()
		return nil, fmt.Errorf("serialize compressed document: %w", err)
	}

	ratio := 1.0
	if len(original) > 0 {
		ratio = float64(len(data)) / float64(len(original))
	}

	compressionOperationsTotal.WithLabelValues(string(strategy), "ok").Inc()
	compressionRatio.WithLabelValues(string(strategy)).Observe(ratio)
	span.SetAttributes(
		attribute.Int("compress.original_size", len(original)),
		attribute.Int("compress.compressed_size", len(data)),
	)
	c.logger.Debug("context compressed",
		slog.String("strategy", string(strategy)),
		slog.Int("level", level),
		slog.Int("original_size", len(original)),
		slog.Int("compressed_size", len(data)),
	)

	return &CompressedContext{
		OriginalVersion:  doc.FormatVersion(),
		CompressionLevel: level,
		Encoding:         EncodingJSON,
		Data:             data,
		ContentHash:      hex.EncodeToString(hash[:]),
		OriginalSize:     len(original),
		CompressedSize:   len(data),
		CompressionRatio: ratio,
	}, nil
}

// Decompress decodes a compressed envelope back into a document.
//
// Compression above the lightest tier is lossy; the result is the
// compressed document, not the original.
func (c *Compressor) Decompress(cc *CompressedContext) (*snapshot.CodebaseContext, error) {
	if cc == nil {
		return nil, fmt.Errorf("%w: compressed context must not be nil", ErrInvalidInput)
	}
	if cc.Encoding != EncodingJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, cc.Encoding)
	}

	var doc snapshot.CodebaseContext
	if err := json.Unmarshal(cc.Data, &doc); err != nil {
		return nil, fmt.Errorf("decode compressed document: %w", err)
	}
	return &doc, nil
}

// Stats runs one measured compression of the document at the given
// level.
//
// Description:
//
//	Invokes Compress and reports the elapsed wall-clock time, original
//	and compressed sizes with their ratio, token estimates before and
//	after, and the strategy tier the level maps to. The compressed
//	envelope itself is discarded; callers wanting both run Compress.
//
// Outputs:
//
//	*CompressionStats - The measurements. Never nil on success.
//	error - Same failure modes as Compress.
func (c *Compressor) Stats(ctx context.Context, doc *snapshot.CodebaseContext, level int) (*CompressionStats, error) {
	start := time.Now()
	cc, err := c.Compress(ctx, doc, level)
	if err != nil {
		return nil, err
	}
	return &CompressionStats{
		Strategy:         strategyForLevel(cc.CompressionLevel),
		CompressionLevel: cc.CompressionLevel,
		OriginalSize:     cc.OriginalSize,
		CompressedSize:   cc.CompressedSize,
		CompressionRatio: cc.CompressionRatio,
		SavedBytes:       cc.OriginalSize - cc.CompressedSize,
		TokensBefore:     cc.OriginalSize / charsPerToken,
		TokensAfter:      cc.CompressedSize / charsPerToken,
		Elapsed:          time.Since(start),
	}, nil
}

// -----------------------------------------------------------------------------
// Tier transforms
// -----------------------------------------------------------------------------

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// applyLight trims trailing whitespace and collapses runs of blank
// lines in the technical summary.
func (c *Compressor) applyLight(doc *snapshot.CodebaseContext) {
	doc.Summary.Technical = tidyText(doc.Summary.Technical)
}

func tidyText(s string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	joined := strings.Join(lines, "\n")
	return blankRunRe.ReplaceAllString(joined, "\n\n")
}

// applyModerate deduplicates and caps pattern examples.
func (c *Compressor) applyModerate(doc *snapshot.CodebaseContext) {
	c.SemanticDeduplicate(doc)
	for i := range doc.Patterns.DesignPatterns {
		if len(doc.Patterns.DesignPatterns[i].Examples) > moderateMaxExamples {
			doc.Patterns.DesignPatterns[i].Examples =
				doc.Patterns.DesignPatterns[i].Examples[:moderateMaxExamples]
		}
	}
}

// applyMedium caps component count and description length and keeps
// only critical data flows.
func (c *Compressor) applyMedium(doc *snapshot.CodebaseContext) {
	if len(doc.KeyComponents) > mediumMaxComponents {
		doc.KeyComponents = doc.KeyComponents[:mediumMaxComponents]
	}
	for i := range doc.KeyComponents {
		doc.KeyComponents[i].Description = truncate(doc.KeyComponents[i].Description, mediumMaxDescLen)
	}

	flows := doc.DataFlow.Flows[:0]
	for _, f := range doc.DataFlow.Flows {
		if f.Critical {
			flows = append(flows, f)
		}
		if len(flows) == mediumMaxFlows {
			break
		}
	}
	doc.DataFlow.Flows = flows
}

// applyHeavy keeps only high-importance components, high-confidence
// patterns, and severe insights.
func (c *Compressor) applyHeavy(doc *snapshot.CodebaseContext) {
	doc.KeyComponents = topComponents(doc.KeyComponents, heavyMinImportance, heavyMaxComponents)
	doc.Patterns.DesignPatterns = topPatterns(doc.Patterns.DesignPatterns, heavyMinConfidence, heavyMaxPatterns)

	insights := doc.Insights[:0]
	for _, ins := range doc.Insights {
		if ins.Impact == snapshot.ImpactCritical || ins.Impact == snapshot.ImpactHigh {
			insights = append(insights, ins)
		}
		if len(insights) == heavyMaxInsights {
			break
		}
	}
	doc.Insights = insights

	doc.Summary.Technical = truncate(doc.Summary.Technical, heavyMaxTechnical)
	if len(doc.Patterns.Conventions) > heavyMaxConventions {
		doc.Patterns.Conventions = doc.Patterns.Conventions[:heavyMaxConventions]
	}
	if len(doc.DataFlow.Flows) > heavyMaxFlows {
		doc.DataFlow.Flows = doc.DataFlow.Flows[:heavyMaxFlows]
	}
}

// buildMaximum rebuilds a minimal document directly from the original
// rather than chaining the lower tiers.
func buildMaximum(doc *snapshot.CodebaseContext) *snapshot.CodebaseContext {
	out := &snapshot.CodebaseContext{
		Summary: snapshot.HierarchicalSummary{
			Executive: doc.Summary.Executive,
			Detailed:  truncate(doc.Summary.Detailed, maxMaxDetailed),
			Technical: truncate(doc.Summary.Technical, maxMaxTechnical),
		},
		Metadata: doc.Metadata,
	}

	for _, comp := range topComponents(doc.KeyComponents, maxMinImportance, maxMaxComponents) {
		deps := comp.Dependencies
		if len(deps) > maxMaxDependencies {
			deps = deps[:maxMaxDependencies]
		}
		out.KeyComponents = append(out.KeyComponents, snapshot.Component{
			Path:         comp.Path,
			Description:  truncate(comp.Description, maxMaxDescLen),
			Importance:   comp.Importance,
			Complexity:   comp.Complexity,
			Dependencies: append([]string(nil), deps...),
		})
	}

	out.Patterns.DesignPatterns = topPatterns(doc.Patterns.DesignPatterns, maxMinConfidence, maxMaxPatterns)
	arch := doc.Patterns.ArchitecturalPatterns
	if len(arch) > maxMaxArchPatterns {
		arch = arch[:maxMaxArchPatterns]
	}
	out.Patterns.ArchitecturalPatterns = append([]string(nil), arch...)

	// Graph nodes, edges, and pattern frequency carry the least value
	// per byte. Only critical cycles and the aggregate stats survive.
	for _, cd := range doc.DependencyGraph.CircularDependencies {
		if cd.Severity == snapshot.ImpactCritical {
			out.DependencyGraph.CircularDependencies =
				append(out.DependencyGraph.CircularDependencies, cd)
		}
	}
	out.DependencyGraph.Stats = doc.DependencyGraph.Stats

	out.DataFlow.Overview = truncate(doc.DataFlow.Overview, maxMaxOverview)

	for _, ins := range doc.Insights {
		if ins.Impact != snapshot.ImpactCritical {
			continue
		}
		out.Insights = append(out.Insights, ins)
		if len(out.Insights) == maxMaxInsights {
			break
		}
	}

	return out
}

// topComponents keeps components at or above the importance floor,
// ordered by descending importance, capped at limit.
func topComponents(components []snapshot.Component, minImportance, limit int) []snapshot.Component {
	kept := make([]snapshot.Component, 0, limit)
	for _, c := range components {
		if c.Importance >= minImportance {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Importance > kept[j].Importance
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// topPatterns keeps patterns at or above the confidence floor, ordered
// by descending confidence, capped at limit.
func topPatterns(patterns []snapshot.DesignPattern, minConfidence float64, limit int) []snapshot.DesignPattern {
	kept := make([]snapshot.DesignPattern, 0, limit)
	for _, p := range patterns {
		if p.Confidence >= minConfidence {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// deepCopy clones a document through a JSON round trip so tier
// transforms never alias the caller's slices.
func deepCopy(doc *snapshot.CodebaseContext) (*snapshot.CodebaseContext, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	var out snapshot.CodebaseContext
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	return &out, nil
}
