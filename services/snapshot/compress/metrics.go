// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compressionOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxvault_compression_operations_total",
		Help: "Total compression operations by strategy and status",
	}, []string{"strategy", "status"})

	compressionRatio = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxvault_compression_ratio",
		Help:    "Compressed size over original size per operation",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 0.9, 1},
	}, []string{"strategy"})
)
