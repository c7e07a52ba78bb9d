// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compress

import (
	"path/filepath"
	"strings"
)

// ClassifierFunc maps a component path to its context type. Plug in a
// custom one with WithClassifier.
type ClassifierFunc func(path string) ContextType

// DefaultClassifier is the built-in path heuristic.
//
// Description:
//
//	Checks path markers in priority order: configuration files become
//	core-patterns, architecture and readme documents become
//	architecture-decisions, lockfiles and manifests become
//	dependency-info, changelog and VCS paths become historical-context,
//	index files and type declarations become file-summaries. Everything
//	else is implementation-details.
func DefaultClassifier(path string) ContextType {
	lower := strings.ToLower(path)
	base := filepath.Base(lower)

	switch {
	case isConfigPath(lower, base):
		return TypeCorePatterns
	case strings.Contains(lower, "architecture") ||
		strings.Contains(lower, "adr") ||
		strings.HasPrefix(base, "readme"):
		return TypeArchitectureDecisions
	case isDependencyManifest(base):
		return TypeDependencyInfo
	case strings.Contains(lower, "changelog") ||
		strings.Contains(lower, "history") ||
		strings.Contains(lower, ".git/"):
		return TypeHistoricalContext
	case strings.HasPrefix(base, "index.") ||
		strings.Contains(base, "types.") ||
		strings.Contains(base, ".d.ts"):
		return TypeFileSummaries
	default:
		return TypeImplementationDetails
	}
}

func isConfigPath(lower, base string) bool {
	if strings.Contains(lower, "config") || strings.Contains(lower, "settings") {
		return true
	}
	switch filepath.Ext(base) {
	case ".yaml", ".yml", ".toml", ".ini", ".env":
		return true
	}
	return false
}

func isDependencyManifest(base string) bool {
	switch base {
	case "go.mod", "go.sum", "package.json", "package-lock.json",
		"yarn.lock", "pnpm-lock.yaml", "cargo.toml", "cargo.lock",
		"requirements.txt", "poetry.lock", "gemfile.lock":
		return true
	}
	return false
}
