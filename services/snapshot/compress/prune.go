// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compress

import (
	"strings"

	"github.com/driftline/ctxvault/services/snapshot"
)

const defaultAggressiveness = 5

// reasonLowRelevance is the removal reason recorded on pruned items.
const reasonLowRelevance = "low-relevance"

// Prune removes low-relevance content from the document in place.
//
// Description:
//
//	Components are scored as (importance + (100 - complexity)) / 2 and
//	removed when the score falls below the threshold, unless the
//	component's context type is in PreserveTypes or its path matches a
//	PreservePaths substring. Design patterns, conventions, and insights
//	are filtered by aggressiveness: higher aggressiveness lowers the
//	confidence, consistency, and impact bars.
//
// Inputs:
//
//	doc - Document to prune. Mutated in place. Must not be nil.
//	opts - Threshold, aggressiveness, and preservation rules.
//
// Outputs:
//
//	PruneResult - What was removed, with per-component items.
func (c *Compressor) Prune(doc *snapshot.CodebaseContext, opts PruneOptions) PruneResult {
	agg := opts.Aggressiveness
	if agg == 0 {
		agg = defaultAggressiveness
	}
	if agg < 1 {
		agg = 1
	}
	if agg > 10 {
		agg = 10
	}

	preserveTypes := opts.PreserveTypes
	if preserveTypes == nil {
		preserveTypes = defaultPreserveTypes()
	}
	preserved := make(map[ContextType]bool, len(preserveTypes))
	for _, t := range preserveTypes {
		preserved[t] = true
	}

	var result PruneResult

	components := doc.KeyComponents[:0]
	for _, comp := range doc.KeyComponents {
		score := relevanceScore(comp)
		if score >= float64(opts.RelevanceThreshold) ||
			preserved[c.classify(comp.Path)] ||
			pathPreserved(comp.Path, opts.PreservePaths) {
			components = append(components, comp)
			continue
		}
		result.RemovedComponents++
		result.Items = append(result.Items, PrunedItem{
			Path:           comp.Path,
			Type:           string(c.classify(comp.Path)),
			Reason:         reasonLowRelevance,
			RelevanceScore: score,
		})
	}
	doc.KeyComponents = components

	// Aggressiveness 1 keeps patterns at confidence >= 0.9; 10 keeps
	// everything at 0.0 and above.
	minConfidence := float64(10-agg) / 10
	patterns := doc.Patterns.DesignPatterns[:0]
	for _, p := range doc.Patterns.DesignPatterns {
		if p.Confidence >= minConfidence {
			patterns = append(patterns, p)
			continue
		}
		result.RemovedPatterns++
	}
	doc.Patterns.DesignPatterns = patterns

	minConsistency := (10 - agg) * 10
	conventions := doc.Patterns.Conventions[:0]
	for _, conv := range doc.Patterns.Conventions {
		if conv.Consistency >= minConsistency {
			conventions = append(conventions, conv)
			continue
		}
		result.RemovedConventions++
	}
	doc.Patterns.Conventions = conventions

	minImpact := 4 - agg/3
	if minImpact < 1 {
		minImpact = 1
	}
	insights := doc.Insights[:0]
	for _, ins := range doc.Insights {
		if impactScore(ins.Impact) >= minImpact {
			insights = append(insights, ins)
			continue
		}
		result.RemovedInsights++
	}
	doc.Insights = insights

	return result
}

// relevanceScore blends importance and simplicity into one 0-100 score.
// A highly important but very complex component scores the same as a
// moderately important simple one.
func relevanceScore(c snapshot.Component) float64 {
	return (float64(c.Importance) + float64(100-c.Complexity)) / 2
}

func pathPreserved(path string, preservePaths []string) bool {
	for _, p := range preservePaths {
		if p != "" && strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// impactScore orders impact levels numerically. Unknown levels rank
// lowest.
func impactScore(impact string) int {
	switch impact {
	case snapshot.ImpactCritical:
		return 4
	case snapshot.ImpactHigh:
		return 3
	case snapshot.ImpactMedium:
		return 2
	case snapshot.ImpactLow:
		return 1
	default:
		return 0
	}
}
