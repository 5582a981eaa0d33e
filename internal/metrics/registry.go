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

// Package metrics exposes Prometheus counters, gauges and histograms for
// handshake lifecycle, OSCORE protect/unprotect outcomes and replay
// rejections. All metrics in this package share one namespace and one
// registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// namespace prefixes every metric name: lake_<subsystem>_<name>.
const namespace = "lake"

// Registry is the Prometheus registry every metric in this package is
// registered against. Handler and StartServer serve it; a process
// embedding lake alongside its own metrics can instead register
// Registry's collectors with its own registry.
var Registry = prometheus.NewRegistry()
