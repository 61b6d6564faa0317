// Package cliconfig persists accessctl settings between runs.
package cliconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

const (
	dirName   = "accessctl"
	fileName  = "config.json"
	dirPerms  = 0700
	filePerms = 0600

	DefaultServerURL = "http://localhost:8080"
	DefaultAPIURL    = "http://localhost:5000/api"
)

// Config holds persisted CLI configuration. The token is an admin session
// token issued by the access code server.
type Config struct {
	ServerURL string `json:"server_url"`
	APIURL    string `json:"api_url"`
	Token     string `json:"token"`
}

// overrides are applied on top of the file and never written back.
type overrides struct {
	ServerURL string `env:"ACCESSCTL_SERVER"`
	APIURL    string `env:"ACCESSCTL_API"`
	Token     string `env:"ACCESSCTL_TOKEN"`
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dirName, fileName), nil
}

// Load reads the config from disk and applies environment overrides. A
// missing file is not an error.
func Load() (*Config, error) {
	cfg, err := loadFile()
	if err != nil {
		return nil, err
	}

	var o overrides
	if err := env.Parse(&o); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	if o.ServerURL != "" {
		cfg.ServerURL = o.ServerURL
	}
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.Token != "" {
		cfg.Token = o.Token
	}
	return cfg, nil
}

func loadFile() (*Config, error) {
	cfg := &Config{}
	p, err := Path()
	if err == nil {
		data, err := os.ReadFile(p)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", p, err)
			}
		}
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func Save(cfg *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), dirPerms); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, filePerms)
}

// Clear removes the config file.
func Clear() error {
	p, err := Path()
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) HasToken() bool {
	return c.Token != ""
}
