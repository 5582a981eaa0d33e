// LAKE - Lightweight Authenticated Key Exchange core
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of LAKE.
//
// LAKE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// LAKE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with LAKE. If not, see <https://www.gnu.org/licenses/>.

// Metrics for oscore.SecurityContext lifecycle: contexts minted fresh off
// a completed handshake, contexts restored via resumestore, and their
// eventual expiry or explicit close.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsCreated tracks security contexts established, by origin.
	SessionsCreated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of OSCORE security contexts established",
		},
		[]string{"origin"}, // handshake, resumed
	)

	// SessionsActive tracks currently live security contexts.
	SessionsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of currently active OSCORE security contexts",
		},
	)

	// SessionsExpired tracks contexts that aged out unresumed.
	SessionsExpired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "expired_total",
			Help:      "Total number of OSCORE security contexts that expired",
		},
	)

	// SessionsClosed tracks contexts zeroized via an explicit close.
	SessionsClosed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "closed_total",
			Help:      "Total number of OSCORE security contexts closed and zeroized",
		},
	)

	// SessionDuration tracks how long a security context lived between
	// creation and close/expiry.
	SessionDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "duration_seconds",
			Help:      "OSCORE security context lifetime in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12), // 1s to ~48.5 days
		},
		[]string{"origin"},
	)

	// SessionMessageSize tracks per-context message sizes by direction.
	SessionMessageSize = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "message_size_bytes",
			Help:      "Size of messages processed within an OSCORE session",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
		},
		[]string{"direction"}, // encrypted, decrypted
	)
)
