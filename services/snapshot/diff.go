// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"fmt"
)

// insightPathLimit caps the description text embedded in an insight
// diff path.
const insightPathLimit = 50

// diffContexts computes the structural, presence-based difference from
// one context to another.
//
// Description:
//
//	Components are compared by path only: a path present in "to" but
//	not "from" is added, present in "from" but not "to" is removed. No
//	modification detection is performed even when a shared path's other
//	fields differ. Architectural patterns are compared as a name set
//	with a "pattern:" path prefix; insights by full description text
//	with an "insight:" prefix truncated to 50 characters.
//
// Outputs:
//
//	added, removed - Diff entries in the order the elements appear in
//	the respective documents. Never nil.
func diffContexts(from, to *CodebaseContext) (added, removed []DiffEntry) {
	added = []DiffEntry{}
	removed = []DiffEntry{}

	// Components by path.
	fromPaths := make(map[string]bool, len(from.KeyComponents))
	for _, c := range from.KeyComponents {
		fromPaths[c.Path] = true
	}
	toPaths := make(map[string]bool, len(to.KeyComponents))
	for _, c := range to.KeyComponents {
		toPaths[c.Path] = true
	}
	for _, c := range to.KeyComponents {
		if !fromPaths[c.Path] {
			added = append(added, DiffEntry{Path: c.Path, ChangeType: ChangeAdded})
		}
	}
	for _, c := range from.KeyComponents {
		if !toPaths[c.Path] {
			removed = append(removed, DiffEntry{Path: c.Path, ChangeType: ChangeRemoved})
		}
	}

	// Architectural patterns by name.
	fromPatterns := stringSet(from.Patterns.ArchitecturalPatterns)
	toPatterns := stringSet(to.Patterns.ArchitecturalPatterns)
	for _, p := range to.Patterns.ArchitecturalPatterns {
		if !fromPatterns[p] {
			added = append(added, DiffEntry{Path: "pattern:" + p, ChangeType: ChangeAdded})
		}
	}
	for _, p := range from.Patterns.ArchitecturalPatterns {
		if !toPatterns[p] {
			removed = append(removed, DiffEntry{Path: "pattern:" + p, ChangeType: ChangeRemoved})
		}
	}

	// Insights by full description text.
	fromInsights := make(map[string]bool, len(from.Insights))
	for _, i := range from.Insights {
		fromInsights[i.Description] = true
	}
	toInsights := make(map[string]bool, len(to.Insights))
	for _, i := range to.Insights {
		toInsights[i.Description] = true
	}
	for _, i := range to.Insights {
		if !fromInsights[i.Description] {
			added = append(added, DiffEntry{Path: insightPath(i.Description), ChangeType: ChangeAdded})
		}
	}
	for _, i := range from.Insights {
		if !toInsights[i.Description] {
			removed = append(removed, DiffEntry{Path: insightPath(i.Description), ChangeType: ChangeRemoved})
		}
	}

	return added, removed
}

func insightPath(description string) string {
	return "insight:" + truncate(description, insightPathLimit)
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

// truncate clips a string to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// diffStats derives the aggregate counts for a diff.
func diffStats(added, removed, modified []DiffEntry) DiffStats {
	return DiffStats{
		AddedCount:    len(added),
		RemovedCount:  len(removed),
		ModifiedCount: len(modified),
		TotalChanges:  len(added) + len(removed) + len(modified),
	}
}

// describeDiff renders the human-readable change summary stored on a
// checkpoint created with a resolvable parent.
func describeDiff(stats DiffStats) string {
	return fmt.Sprintf("Changes from parent: %d added, %d removed, %d modified (%d total)",
		stats.AddedCount, stats.RemovedCount, stats.ModifiedCount, stats.TotalChanges)
}
