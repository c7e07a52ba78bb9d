// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compress

import "errors"

var (
	// ErrInvalidLevel means the compression level is outside 1-10.
	ErrInvalidLevel = errors.New("compression level must be between 1 and 10")

	// ErrUnsupportedEncoding means a compressed context declares an
	// encoding this package cannot decode.
	ErrUnsupportedEncoding = errors.New("unsupported compressed context encoding")

	// ErrInvalidInput means a required argument is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
)
