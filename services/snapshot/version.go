// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// initialVersion seeds the store's fallback version counter.
const initialVersion = "1.0.0"

// semver is a three-component semantic version. Pre-release and build
// suffixes are not used by checkpoint versioning.
type semver struct {
	major int
	minor int
	patch int
}

// parseSemver parses a "major.minor.patch" string.
func parseSemver(s string) (semver, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return semver{}, fmt.Errorf("%w: want major.minor.patch, got %q", ErrInvalidVersion, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return semver{}, fmt.Errorf("%w: component %q in %q", ErrInvalidVersion, p, s)
		}
		nums[i] = n
	}
	return semver{major: nums[0], minor: nums[1], patch: nums[2]}, nil
}

// String renders the version as "major.minor.patch".
func (v semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// bumpPatch returns the version with the patch component incremented.
func (v semver) bumpPatch() semver {
	return semver{major: v.major, minor: v.minor, patch: v.patch + 1}
}

// bumpMinor returns the version with the minor component incremented
// and the patch reset.
func (v semver) bumpMinor() semver {
	return semver{major: v.major, minor: v.minor + 1}
}

// compare returns -1, 0, or 1 comparing components numerically in
// major, minor, patch order.
func (v semver) compare(o semver) int {
	if v.major != o.major {
		return sign(v.major - o.major)
	}
	if v.minor != o.minor {
		return sign(v.minor - o.minor)
	}
	return sign(v.patch - o.patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// compareVersionStrings orders two version strings numerically.
// Unparseable versions sort before valid ones so sorting never fails.
func compareVersionStrings(a, b string) int {
	va, errA := parseSemver(a)
	vb, errB := parseSemver(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	default:
		return va.compare(vb)
	}
}
