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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OscoreEncrypt tracks oscore.Encrypt calls.
	OscoreEncrypt = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oscore",
			Name:      "encrypt_total",
			Help:      "Total number of OSCORE protect (encrypt) operations",
		},
		[]string{"result"}, // success, aead_error, seq_exhausted
	)

	// OscoreDecrypt tracks oscore.Decrypt calls.
	OscoreDecrypt = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oscore",
			Name:      "decrypt_total",
			Help:      "Total number of OSCORE unprotect (decrypt) operations",
		},
		[]string{"result"}, // success, aead_auth_failed, malformed
	)

	// OscoreReplayRejected tracks CheckAndAcceptReplay rejections by cause.
	OscoreReplayRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oscore",
			Name:      "replay_rejected_total",
			Help:      "Total number of OSCORE sequence numbers rejected as replayed",
		},
		[]string{"reason"}, // duplicate, stale_window
	)

	// OscoreMessageProcessingDuration tracks protect/unprotect latency.
	OscoreMessageProcessingDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oscore",
			Name:      "message_processing_duration_seconds",
			Help:      "OSCORE protect/unprotect duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~205ms
		},
		[]string{"direction"}, // encrypt, decrypt
	)

	// OscoreMessageSize tracks ciphertext sizes passing through a context.
	OscoreMessageSize = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oscore",
			Name:      "message_size_bytes",
			Help:      "Size of OSCORE-protected message bodies in bytes",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10), // 16B to 4MB, CoAP-sized
		},
		[]string{"direction"}, // inbound, outbound
	)
)
