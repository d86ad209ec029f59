// Package config loads lumen config from YAML. Env overrides take precedence.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Costs are the credit prices of the metered operations. Crop is free.
type Costs struct {
	Generate int `yaml:"generate"`
	Edit     int `yaml:"edit"`
	Filter   int `yaml:"filter"`
	Adjust   int `yaml:"adjust"`
	Upscale  int `yaml:"upscale"`
}

// S3 holds blob store settings for the s3 backend.
type S3 struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	PathStyle    bool   `yaml:"path_style"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	SessionToken string `yaml:"session_token"`
}

// Config holds resolved paths and settings. Paths use XDG defaults when not
// in file.
type Config struct {
	DbPath          string `yaml:"db_path"`
	BlobDir         string `yaml:"blob_dir"`
	BlobBackend     string `yaml:"blob_backend"` // filesystem, s3, memory
	SessionPath     string `yaml:"session_path"`
	S3              S3     `yaml:"s3"`
	GeminiAPIKeyEnv string `yaml:"gemini_api_key_env"`
	SignupCredits   int    `yaml:"signup_credits"`
	Costs           Costs  `yaml:"costs"`
}

type rawConfig struct {
	DbPath          string `yaml:"db_path"`
	BlobDir         string `yaml:"blob_dir"`
	BlobBackend     string `yaml:"blob_backend"`
	SessionPath     string `yaml:"session_path"`
	S3              S3     `yaml:"s3"`
	GeminiAPIKeyEnv string `yaml:"gemini_api_key_env"`
	SignupCredits   int    `yaml:"signup_credits"`
	Costs           *Costs `yaml:"costs"`
}

// DefaultCosts match the hosted pricing: generation and upscaling are the
// expensive calls, retouching is cheap.
func DefaultCosts() Costs {
	return Costs{Generate: 2, Edit: 1, Filter: 1, Adjust: 1, Upscale: 2}
}

// Load reads config from XDG_CONFIG_HOME/lumen/config.yaml. Missing file
// uses defaults. Env overrides: LUMEN_DB_PATH, LUMEN_BLOB_DIR,
// LUMEN_BLOB_BACKEND, LUMEN_SESSION_PATH.
func Load() (*Config, error) {
	dataHome := xdgDataHome()
	configHome := xdgConfigHome()
	path := filepath.Join(configHome, "lumen", "config.yaml")

	c := &Config{
		DbPath:          filepath.Join(dataHome, "lumen", "lumen.db"),
		BlobDir:         filepath.Join(dataHome, "lumen", "blobs"),
		BlobBackend:     "filesystem",
		SessionPath:     filepath.Join(dataHome, "lumen", "session"),
		GeminiAPIKeyEnv: "GEMINI_API_KEY",
		SignupCredits:   10,
		Costs:           DefaultCosts(),
	}

	b, err := os.ReadFile(path)
	if err == nil {
		var raw rawConfig
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, err
		}
		if raw.DbPath != "" {
			c.DbPath = resolvePath(raw.DbPath, dataHome)
		}
		if raw.BlobDir != "" {
			c.BlobDir = resolvePath(raw.BlobDir, dataHome)
		}
		if raw.BlobBackend != "" {
			c.BlobBackend = raw.BlobBackend
		}
		if raw.SessionPath != "" {
			c.SessionPath = resolvePath(raw.SessionPath, dataHome)
		}
		if raw.GeminiAPIKeyEnv != "" {
			c.GeminiAPIKeyEnv = raw.GeminiAPIKeyEnv
		}
		if raw.SignupCredits > 0 {
			c.SignupCredits = raw.SignupCredits
		}
		c.S3 = raw.S3
		if raw.Costs != nil {
			c.Costs = *raw.Costs
		}
	}

	// Env overrides
	if v := os.Getenv("LUMEN_DB_PATH"); v != "" {
		c.DbPath = v
	}
	if v := os.Getenv("LUMEN_BLOB_DIR"); v != "" {
		c.BlobDir = v
	}
	if v := os.Getenv("LUMEN_BLOB_BACKEND"); v != "" {
		c.BlobBackend = v
	}
	if v := os.Getenv("LUMEN_SESSION_PATH"); v != "" {
		c.SessionPath = v
	}

	return c, nil
}

// GeminiAPIKey resolves the API key through the configured env var.
func (c *Config) GeminiAPIKey() string {
	return os.Getenv(c.GeminiAPIKeyEnv)
}

func xdgDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share")
}

func xdgConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// resolvePath expands $XDG_DATA_HOME, $HOME in paths from config file.
func resolvePath(p, dataHome string) string {
	return filepath.Clean(os.Expand(p, func(key string) string {
		if key == "XDG_DATA_HOME" {
			return dataHome
		}
		if key == "XDG_CONFIG_HOME" {
			return xdgConfigHome()
		}
		if key == "HOME" {
			home, _ := os.UserHomeDir()
			return home
		}
		return ""
	}))
}
