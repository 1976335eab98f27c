package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/syqdur/wedpxres-sub001/internal/flagx"
	"github.com/syqdur/wedpxres-sub001/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DeviceID           string         `json:"device_id"`
	UserName           string         `json:"user_name"`
	AdminToken         string         `json:"admin_token"`
	StoryDuration      timex.Duration `json:"story_duration"`
}

// parseJson overlays Config with values loaded from a JSON file located via
// the -c/-config flags. Only fields present in the file override defaults.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.DeviceID != "" {
		cfg.DeviceID = jc.DeviceID
	}
	if jc.UserName != "" {
		cfg.UserName = jc.UserName
	}
	if jc.AdminToken != "" {
		cfg.AdminToken = jc.AdminToken
	}
	if jc.StoryDuration.Duration != 0 {
		cfg.StoryDuration = time.Duration(jc.StoryDuration.Duration)
	}
}
