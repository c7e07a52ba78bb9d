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

// Fingerprint truncation lengths. Descriptions only contribute a
// prefix so near-identical entries with trailing variations still
// collide.
const (
	componentDescFingerprint = 50
	insightDescFingerprint   = 100
)

// SemanticDeduplicate removes near-duplicate components, design
// patterns, and insights from the document in place.
//
// Description:
//
//	Elements are fingerprinted and the first occurrence of each
//	fingerprint wins. Components collide on lowercased path plus the
//	first 50 characters of the lowercased description; design patterns
//	on type and name; insights on type, impact, and the first 100
//	characters of the description. Deduplication is idempotent.
//
// Inputs:
//
//	doc - Document to deduplicate. Mutated in place. Must not be nil.
//
// Outputs:
//
//	DedupResult - Counts of removed elements.
func (c *Compressor) SemanticDeduplicate(doc *snapshot.CodebaseContext) DedupResult {
	var result DedupResult

	seen := make(map[string]bool, len(doc.KeyComponents))
	components := doc.KeyComponents[:0]
	for _, comp := range doc.KeyComponents {
		fp := componentFingerprint(comp)
		if seen[fp] {
			result.RemovedComponents++
			continue
		}
		seen[fp] = true
		components = append(components, comp)
	}
	doc.KeyComponents = components

	seen = make(map[string]bool, len(doc.Patterns.DesignPatterns))
	patterns := doc.Patterns.DesignPatterns[:0]
	for _, p := range doc.Patterns.DesignPatterns {
		fp := p.Type + ":" + p.Name
		if seen[fp] {
			result.RemovedPatterns++
			continue
		}
		seen[fp] = true
		patterns = append(patterns, p)
	}
	doc.Patterns.DesignPatterns = patterns

	seen = make(map[string]bool, len(doc.Insights))
	insights := doc.Insights[:0]
	for _, ins := range doc.Insights {
		fp := insightFingerprint(ins)
		if seen[fp] {
			result.RemovedInsights++
			continue
		}
		seen[fp] = true
		insights = append(insights, ins)
	}
	doc.Insights = insights

	return result
}

func componentFingerprint(c snapshot.Component) string {
	return strings.ToLower(c.Path) + "|" +
		truncate(strings.ToLower(c.Description), componentDescFingerprint)
}

func insightFingerprint(i snapshot.Insight) string {
	return i.Type + "|" + i.Impact + "|" +
		truncate(i.Description, insightDescFingerprint)
}

// truncate clips a string to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
