// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import "errors"

// Sentinel errors for the snapshot service.
var (
	// ErrCheckpointNotFound indicates a referenced checkpoint id does
	// not resolve via the backend. Callers should treat this as
	// ambiguous between "never created" and "corrupted on disk";
	// retrying will not help in the corruption case.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrInvalidInput indicates a caller-supplied argument is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidVersion indicates a checkpoint carries a version string
	// that is not a three-component semantic version.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrBackendRequired indicates the "custom" backend kind was
	// configured without supplying a Backend via WithBackend.
	ErrBackendRequired = errors.New("custom backend requires WithBackend")
)
