// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkpointOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxvault_checkpoint_operations_total",
		Help: "Total checkpoint store operations by operation and status",
	}, []string{"operation", "status"})

	checkpointOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxvault_checkpoint_operation_duration_seconds",
		Help:    "Checkpoint store operation latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})

	checkpointSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ctxvault_checkpoint_size_bytes",
		Help:    "Serialized context size of created checkpoints",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})

	checkpointsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctxvault_checkpoints_evicted_total",
		Help: "Total checkpoints removed by the max-checkpoint eviction policy",
	})

	corruptRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctxvault_corrupt_records_total",
		Help: "Total records that existed but failed to load or parse",
	})
)
