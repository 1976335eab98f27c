package config

import "github.com/caarlos0/env/v10"

// parseEnv overlays Config with values from the environment using the `env`
// struct tags. Unset variables leave the current values untouched.
func parseEnv(cfg *Config) {
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
