// Package config loads gdsim settings from an optional TOML file with
// environment overrides on top.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	defaultBackendURL   = "http://localhost:8000"
	defaultAudioBackend = "miniaudio"
	defaultMinClipBytes = 1000
	defaultNumAgents    = 4
	defaultRounds       = 2
)

type Config struct {
	BackendURL   string
	AudioBackend string // "miniaudio", "portaudio" or "none"
	MinClipBytes int

	Topic     string
	NumAgents int
	Rounds    int
	HumanName string
}

type fileConfig struct {
	BackendURL   string `toml:"backend_url"`
	AudioBackend string `toml:"audio_backend"`
	MinClipBytes int    `toml:"min_clip_bytes"`
	Topic        string `toml:"topic"`
	NumAgents    int    `toml:"num_agents"`
	Rounds       int    `toml:"rounds"`
	HumanName    string `toml:"human_name"`
}

func Load() (*Config, error) {
	// A local .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg := &Config{
		BackendURL:   defaultBackendURL,
		AudioBackend: defaultAudioBackend,
		MinClipBytes: defaultMinClipBytes,
		NumAgents:    defaultNumAgents,
		Rounds:       defaultRounds,
		HumanName:    "You",
	}

	if configPath := configFilePath(); configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(configPath, &fc); err == nil {
			if fc.BackendURL != "" {
				cfg.BackendURL = fc.BackendURL
			}
			if fc.AudioBackend != "" {
				cfg.AudioBackend = fc.AudioBackend
			}
			if fc.MinClipBytes > 0 {
				cfg.MinClipBytes = fc.MinClipBytes
			}
			if fc.Topic != "" {
				cfg.Topic = fc.Topic
			}
			if fc.NumAgents > 0 {
				cfg.NumAgents = fc.NumAgents
			}
			if fc.Rounds > 0 {
				cfg.Rounds = fc.Rounds
			}
			if fc.HumanName != "" {
				cfg.HumanName = fc.HumanName
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.BackendURL = getEnv("GDSIM_BACKEND_URL", cfg.BackendURL)
	cfg.AudioBackend = getEnv("GDSIM_AUDIO_BACKEND", cfg.AudioBackend)
	cfg.MinClipBytes = getIntEnv("GDSIM_MIN_CLIP_BYTES", cfg.MinClipBytes)
	cfg.HumanName = getEnv("GDSIM_HUMAN_NAME", cfg.HumanName)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "gdsim")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "gdsim")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
