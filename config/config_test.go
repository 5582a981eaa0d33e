package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `environment: "staging"
edhoc:
  role: "initiator"
  supported_suites: [2, 6]
  method: 3
oscore:
  replay_window_size: 64
  session_timeout: 1h
resume:
  enabled: true
  postgres_dsn: "postgres://localhost/lake"
logging:
  level: "debug"
  format: "json"
  output: "stdout"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "initiator", cfg.Edhoc.Role)
	assert.Equal(t, []int{2, 6}, cfg.Edhoc.SupportedSuites)
	assert.Equal(t, 3, cfg.Edhoc.Method)
	assert.Equal(t, 64, cfg.Oscore.ReplayWindowSize)
	assert.True(t, cfg.Resume.Enabled)
	assert.Equal(t, "postgres://localhost/lake", cfg.Resume.PostgresDSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "cfg.yaml")
	jsonPath := filepath.Join(tmpDir, "cfg.json")

	cfg := &Config{Environment: "production"}
	cfg.Edhoc.SupportedSuites = []int{6}
	cfg.Edhoc.Method = 0
	cfg.Oscore.ReplayWindowSize = 32

	require.NoError(t, SaveToFile(cfg, yamlPath))
	require.NoError(t, SaveToFile(cfg, jsonPath))

	reloadedYAML, err := LoadFromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Edhoc.SupportedSuites, reloadedYAML.Edhoc.SupportedSuites)

	reloadedJSON, err := LoadFromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Edhoc.SupportedSuites, reloadedJSON.Edhoc.SupportedSuites)
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, []int{2, 6}, cfg.Edhoc.SupportedSuites)
	assert.Equal(t, 32, cfg.Oscore.ReplayWindowSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestSetDefaults_ResumeEnabled(t *testing.T) {
	cfg := &Config{}
	cfg.Resume.Enabled = true
	setDefaults(cfg)

	assert.Equal(t, "lake", cfg.Resume.TicketIssuer)
	assert.Equal(t, "LAKE_RESUME_SIGNING_KEY", cfg.Resume.TicketSigningKeyEnv)
	assert.Equal(t, cfg.Oscore.SessionTimeout, cfg.Resume.TicketTTL)
}

func TestValidateConfiguration(t *testing.T) {
	t.Run("ValidDefaults", func(t *testing.T) {
		cfg := &Config{}
		setDefaults(cfg)
		issues := ValidateConfiguration(cfg)
		for _, iss := range issues {
			assert.NotEqual(t, "error", iss.Level, iss.Message)
		}
	})

	t.Run("EmptySuiteList", func(t *testing.T) {
		cfg := &Config{}
		setDefaults(cfg)
		cfg.Edhoc.SupportedSuites = nil
		issues := ValidateConfiguration(cfg)
		require.NotEmpty(t, issues)
		assert.Equal(t, "edhoc.supported_suites", issues[0].Field)
		assert.Equal(t, "error", issues[0].Level)
	})

	t.Run("SuiteOutOfRange", func(t *testing.T) {
		cfg := &Config{}
		setDefaults(cfg)
		cfg.Edhoc.SupportedSuites = []int{99}
		issues := ValidateConfiguration(cfg)
		require.NotEmpty(t, issues)
	})

	t.Run("ResumeEnabledWithoutDSN", func(t *testing.T) {
		cfg := &Config{}
		setDefaults(cfg)
		cfg.Resume.Enabled = true
		issues := ValidateConfiguration(cfg)
		found := false
		for _, iss := range issues {
			if iss.Field == "resume.postgres_dsn" && iss.Level == "error" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("ZeroReplayWindow", func(t *testing.T) {
		cfg := &Config{}
		setDefaults(cfg)
		cfg.Oscore.ReplayWindowSize = 0
		issues := ValidateConfiguration(cfg)
		found := false
		for _, iss := range issues {
			if iss.Field == "oscore.replay_window_size" {
				found = true
			}
		}
		assert.True(t, found)
	})
}
