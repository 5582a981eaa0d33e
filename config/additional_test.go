package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigTypes(t *testing.T) {
	t.Run("EdhocConfig", func(t *testing.T) {
		cfg := EdhocConfig{
			Role:                "responder",
			SupportedSuites:     []int{2, 6},
			Method:              3,
			CredentialCacheSize: 64,
			CredentialCacheTTL:  time.Minute,
		}

		assert.Equal(t, "responder", cfg.Role)
		assert.Equal(t, []int{2, 6}, cfg.SupportedSuites)
		assert.Equal(t, 3, cfg.Method)
		assert.Equal(t, 64, cfg.CredentialCacheSize)
		assert.Equal(t, time.Minute, cfg.CredentialCacheTTL)
	})

	t.Run("OscoreConfig", func(t *testing.T) {
		cfg := OscoreConfig{ReplayWindowSize: 64, SessionTimeout: time.Hour}
		assert.Equal(t, 64, cfg.ReplayWindowSize)
		assert.Equal(t, time.Hour, cfg.SessionTimeout)
	})

	t.Run("ResumeStoreConfig", func(t *testing.T) {
		cfg := ResumeStoreConfig{
			Enabled:             true,
			PostgresDSN:         "postgres://localhost/lake",
			TicketIssuer:        "lake",
			TicketSigningKeyEnv: "LAKE_RESUME_SIGNING_KEY",
			TicketTTL:           24 * time.Hour,
		}
		assert.True(t, cfg.Enabled)
		assert.Equal(t, "postgres://localhost/lake", cfg.PostgresDSN)
		assert.Equal(t, "lake", cfg.TicketIssuer)
	})

	t.Run("TransportConfig", func(t *testing.T) {
		cfg := TransportConfig{Listen: ":5683", PeerURL: "ws://peer:5683"}
		assert.Equal(t, ":5683", cfg.Listen)
		assert.Equal(t, "ws://peer:5683", cfg.PeerURL)
	})

	t.Run("MetricsConfig", func(t *testing.T) {
		cfg := MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"}
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "/metrics", cfg.Path)
	})
}

func TestConfig_JSONTagsRoundTripViaSaveLoad(t *testing.T) {
	dir := t.TempDir()
	jsonPath := dir + "/cfg.json"

	cfg := &Config{Environment: "production"}
	cfg.Edhoc.SupportedSuites = []int{6}
	cfg.Oscore.ReplayWindowSize = 16
	cfg.Resume.Enabled = true
	cfg.Resume.PostgresDSN = "postgres://localhost/lake"
	cfg.Transport.Listen = ":5683"
	cfg.Metrics.Port = 9091

	assert.NoError(t, SaveToFile(cfg, jsonPath))

	reloaded, err := LoadFromFile(jsonPath)
	assert.NoError(t, err)
	assert.Equal(t, cfg.Edhoc.SupportedSuites, reloaded.Edhoc.SupportedSuites)
	assert.Equal(t, cfg.Oscore.ReplayWindowSize, reloaded.Oscore.ReplayWindowSize)
	assert.True(t, reloaded.Resume.Enabled)
	assert.Equal(t, cfg.Resume.PostgresDSN, reloaded.Resume.PostgresDSN)
	assert.Equal(t, cfg.Transport.Listen, reloaded.Transport.Listen)
	assert.Equal(t, cfg.Metrics.Port, reloaded.Metrics.Port)
}
