package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, "booking-assistant-queue", cfg.TaskQueue)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, "flyo:payment:", cfg.StorePrefix)
	assert.Equal(t, 5*time.Second, cfg.ResumeTimeout)
	assert.Equal(t, time.Second, cfg.ViewSwitchDelay)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_port: "9090"
store_backend: redis
resume_timeout: 2s
payment_api_base_url: https://staging.example.com
`), 0o600))

	t.Setenv("API_PORT", "7070")
	t.Setenv("CHECKOUT_TIMEOUT", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.APIPort)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, 2*time.Second, cfg.ResumeTimeout)
	assert.Equal(t, 90*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, "https://staging.example.com", cfg.PaymentAPIBaseURL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("RESUME_TIMEOUT", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "RESUME_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.StoreBackend = "etcd"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ResumeTimeout = 0
	assert.Error(t, cfg.Validate())
}
