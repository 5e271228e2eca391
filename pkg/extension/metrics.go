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

package extension

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeNotFound = "not_found"
	outcomeFailed   = "failed"
)

var (
	registryBundles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bundles_registry_bundles",
			Help: "Number of bundles indexed by the extension registry, system bundle included",
		},
	)
	instanceCreations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundles_instance_creations_total",
			Help: "Total number of provider instance creations, by outcome",
		},
		[]string{"outcome"},
	)
	instanceCreateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bundles_instance_create_duration_seconds",
			Help:    "Duration of provider construction in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
