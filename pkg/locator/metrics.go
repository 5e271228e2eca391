// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package locator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	skipMalformed  = "malformed"
	skipDuplicate  = "duplicate"
	skipCycle      = "cycle"
	skipMissingRoot = "missing_root"
)

var (
	archivesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bundles_archives_discovered_total",
			Help: "Total number of archives accepted by discovery",
		},
	)
	archivesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundles_archives_skipped_total",
			Help: "Total number of archives or roots skipped during discovery, by reason",
		},
		[]string{"reason"},
	)
	locateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bundles_locate_duration_seconds",
			Help:    "Duration of bundle discovery in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)
)
