package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	assert.Equal(t, 5*time.Second, cfg.StoryDuration)
	assert.Empty(t, cfg.AdminToken)
}

func TestParseJson_Overlay(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	file := filepath.Join(t.TempDir(), "conf.json")
	jc := map[string]any{
		"server_endpoint_addr": "http://stories.test",
		"device_id":            "dev-42",
		"story_duration":       "3s",
	}
	data, err := json.Marshal(jc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, data, 0o600))

	os.Args = []string{"testbin", "-c", file}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "http://stories.test", cfg.ServerEndpointAddr)
	assert.Equal(t, "dev-42", cfg.DeviceID)
	assert.Equal(t, 3*time.Second, cfg.StoryDuration)
}

func TestParseFlags_Overlay(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-a", "http://other.test", "-d", "dev-7", "-u", "Maria"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "http://other.test", cfg.ServerEndpointAddr)
	assert.Equal(t, "dev-7", cfg.DeviceID)
	assert.Equal(t, "Maria", cfg.UserName)
}
