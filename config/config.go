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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	// Try to parse as YAML first
	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Try JSON if YAML fails
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file. Format is chosen by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults fills in zero-valued fields with sane defaults.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Edhoc.SupportedSuites == nil {
		cfg.Edhoc.SupportedSuites = []int{2, 6} // P-256/ES256/AES-CCM-8, X25519/Ed25519/ChaCha20-Poly1305/SHA-512
	}
	if cfg.Edhoc.CredentialCacheSize == 0 {
		cfg.Edhoc.CredentialCacheSize = 128
	}
	if cfg.Edhoc.CredentialCacheTTL == 0 {
		cfg.Edhoc.CredentialCacheTTL = 5 * time.Minute
	}

	if cfg.Oscore.ReplayWindowSize == 0 {
		cfg.Oscore.ReplayWindowSize = 32
	}
	if cfg.Oscore.SessionTimeout == 0 {
		cfg.Oscore.SessionTimeout = 24 * time.Hour
	}

	if cfg.Resume.Enabled {
		if cfg.Resume.TicketIssuer == "" {
			cfg.Resume.TicketIssuer = "lake"
		}
		if cfg.Resume.TicketSigningKeyEnv == "" {
			cfg.Resume.TicketSigningKeyEnv = "LAKE_RESUME_SIGNING_KEY"
		}
		if cfg.Resume.TicketTTL == 0 {
			cfg.Resume.TicketTTL = cfg.Oscore.SessionTimeout
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// ValidationIssue describes one configuration problem. Level "error"
// fails Load; "warning" is surfaced but not fatal.
type ValidationIssue struct {
	Field   string
	Message string
	Level   string // error, warning
}

// ValidateConfiguration checks cfg for problems a misconfigured deployment
// would otherwise only discover at handshake time.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if len(cfg.Edhoc.SupportedSuites) == 0 {
		issues = append(issues, ValidationIssue{
			Field: "edhoc.supported_suites", Level: "error",
			Message: "at least one cipher suite must be allow-listed",
		})
	}
	for _, s := range cfg.Edhoc.SupportedSuites {
		if s < 0 || s > 6 {
			issues = append(issues, ValidationIssue{
				Field: "edhoc.supported_suites", Level: "error",
				Message: fmt.Sprintf("suite %d is outside the defined 0-6 range", s),
			})
		}
	}
	if cfg.Edhoc.Method < 0 || cfg.Edhoc.Method > 3 {
		issues = append(issues, ValidationIssue{
			Field: "edhoc.method", Level: "error",
			Message: fmt.Sprintf("method %d is outside the defined 0-3 range", cfg.Edhoc.Method),
		})
	}

	if cfg.Oscore.ReplayWindowSize <= 0 {
		issues = append(issues, ValidationIssue{
			Field: "oscore.replay_window_size", Level: "error",
			Message: "replay window size must be positive",
		})
	}

	if cfg.Resume.Enabled {
		if cfg.Resume.PostgresDSN == "" {
			issues = append(issues, ValidationIssue{
				Field: "resume.postgres_dsn", Level: "error",
				Message: "resume store is enabled but no postgres DSN is configured",
			})
		}
		if os.Getenv(cfg.Resume.TicketSigningKeyEnv) == "" {
			issues = append(issues, ValidationIssue{
				Field: "resume.ticket_signing_key_env", Level: "warning",
				Message: fmt.Sprintf("env var %s is unset; ticket signing will fail at runtime", cfg.Resume.TicketSigningKeyEnv),
			})
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, ValidationIssue{
			Field: "logging.level", Level: "warning",
			Message: fmt.Sprintf("unrecognized logging level %q", cfg.Logging.Level),
		})
	}

	return issues
}
