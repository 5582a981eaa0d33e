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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "no placeholder",
			input:    "postgres://localhost/lake",
			expected: "postgres://localhost/lake",
		},
		{
			name:     "simple substitution",
			input:    "${LAKE_TEST_DSN}",
			envVars:  map[string]string{"LAKE_TEST_DSN": "postgres://db/lake"},
			expected: "postgres://db/lake",
		},
		{
			name:     "default used when unset",
			input:    "${LAKE_TEST_MISSING:fallback}",
			expected: "fallback",
		},
		{
			name:     "env var wins over default",
			input:    "${LAKE_TEST_DSN:fallback}",
			envVars:  map[string]string{"LAKE_TEST_DSN": "postgres://db/lake"},
			expected: "postgres://db/lake",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.expected, SubstituteEnvVars(tt.input))
		})
	}
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("LAKE_TEST_DSN", "postgres://db/lake")

	cfg := &Config{}
	cfg.Resume.PostgresDSN = "${LAKE_TEST_DSN}"
	cfg.Logging.Level = "${LAKE_TEST_LEVEL:info}"

	SubstituteEnvVarsInConfig(cfg)

	assert.Equal(t, "postgres://db/lake", cfg.Resume.PostgresDSN)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestGetEnvironment(t *testing.T) {
	t.Run("DefaultsToDevelopment", func(t *testing.T) {
		t.Setenv("LAKE_ENV", "")
		t.Setenv("ENVIRONMENT", "")
		assert.Equal(t, "development", GetEnvironment())
	})

	t.Run("LakeEnvWins", func(t *testing.T) {
		t.Setenv("LAKE_ENV", "Production")
		assert.Equal(t, "production", GetEnvironment())
	})

	t.Run("FallsBackToEnvironment", func(t *testing.T) {
		t.Setenv("LAKE_ENV", "")
		t.Setenv("ENVIRONMENT", "Staging")
		assert.Equal(t, "staging", GetEnvironment())
	})
}

func TestIsProductionIsDevelopment(t *testing.T) {
	t.Setenv("LAKE_ENV", "production")
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())

	t.Setenv("LAKE_ENV", "local")
	assert.False(t, IsProduction())
	assert.True(t, IsDevelopment())
}
