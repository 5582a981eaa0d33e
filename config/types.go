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

// Package config loads and validates the settings an edhoc-client,
// edhoc-server or oscore-bench process needs: which cipher suites an
// EDHOC session may negotiate, how wide an OSCORE replay window to keep,
// where (if anywhere) to persist resumable sessions, and the ambient
// logging/metrics knobs every process carries regardless of role.
package config

import "time"

// Config is the root configuration document, loaded from YAML or JSON and
// overridable by environment variables.
type Config struct {
	Environment string             `yaml:"environment" json:"environment"`
	Edhoc       EdhocConfig        `yaml:"edhoc" json:"edhoc"`
	Oscore      OscoreConfig       `yaml:"oscore" json:"oscore"`
	Resume      ResumeStoreConfig  `yaml:"resume" json:"resume"`
	Transport   TransportConfig    `yaml:"transport" json:"transport"`
	Logging     LoggingConfig      `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig      `yaml:"metrics" json:"metrics"`
}

// EdhocConfig governs handshake negotiation.
type EdhocConfig struct {
	// Role is "initiator" or "responder"; cmd/edhoc-bench-style tools that
	// play both sides in one process may leave it blank.
	Role string `yaml:"role" json:"role"`
	// SupportedSuites is this party's cipher suite allow-list, most
	// preferred first. A responder rejects any SUITES_I entry
	// absent from this list.
	SupportedSuites []int `yaml:"supported_suites" json:"supported_suites"`
	// Method selects the authentication method (0-3, ): which
	// side signs and which MACs.
	Method int `yaml:"method" json:"method"`
	// CredentialCacheSize bounds the credential.Resolver's in-memory cache.
	CredentialCacheSize int `yaml:"credential_cache_size" json:"credential_cache_size"`
	// CredentialCacheTTL bounds how long a resolved credential is trusted
	// before CRED_x is re-fetched.
	CredentialCacheTTL time.Duration `yaml:"credential_cache_ttl" json:"credential_cache_ttl"`
}

// OscoreConfig governs the security context derived at the end of a
// handshake.
type OscoreConfig struct {
	// ReplayWindowSize is the number of trailing sequence numbers a
	// recipient context tracks for duplicate rejection.
	ReplayWindowSize int `yaml:"replay_window_size" json:"replay_window_size"`
	// SessionTimeout bounds how long a security context may go without
	// traffic before a caller should consider it stale and re-handshake.
	SessionTimeout time.Duration `yaml:"session_timeout" json:"session_timeout"`
}

// ResumeStoreConfig governs the optional session-resume hook.
type ResumeStoreConfig struct {
	// Enabled turns on ticket issuance/redemption; when false, every
	// session starts from a full EDHOC handshake.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// PostgresDSN is the connection string jwtresume.Store dials for its
	// resume_sessions table.
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
	// TicketIssuer is the JWT "iss" claim stamped on issued tickets.
	TicketIssuer string `yaml:"ticket_issuer" json:"ticket_issuer"`
	// TicketSigningKeyEnv names the environment variable holding the HMAC
	// key used to sign/verify tickets; the key itself is never read from
	// a config file.
	TicketSigningKeyEnv string `yaml:"ticket_signing_key_env" json:"ticket_signing_key_env"`
	// TicketTTL is how long an issued ticket (and its underlying snapshot)
	// remains redeemable.
	TicketTTL time.Duration `yaml:"ticket_ttl" json:"ticket_ttl"`
}

// TransportConfig governs the demo websocket transport.
type TransportConfig struct {
	// Listen is the address edhoc-server binds to.
	Listen string `yaml:"listen" json:"listen"`
	// PeerURL is the address edhoc-client dials.
	PeerURL string `yaml:"peer_url" json:"peer_url"`
}

// LoggingConfig governs internal/logger's output.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`       // debug, info, warn, error
	Format   string `yaml:"format" json:"format"`      // json, pretty
	Output   string `yaml:"output" json:"output"`      // stdout, stderr, file path
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig governs internal/metrics's HTTP exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}
