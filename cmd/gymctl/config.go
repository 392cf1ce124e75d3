package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/catherio/gym-http-api/internal/server"
	"github.com/catherio/gym-http-api/internal/upload"
)

type appConfig struct {
	Server server.Config
	Upload upload.Config
}

func defaultAppConfig() appConfig {
	return appConfig{
		Server: server.DefaultConfig(),
		Upload: upload.DefaultConfig(),
	}
}

type fileConfig struct {
	Addr          string   `toml:"addr"`
	CorsOrigins   []string `toml:"cors_origins"`
	DrainTimeout  string   `toml:"drain_timeout"`
	UploadBaseURL string   `toml:"upload_base_url"`
	UploadTimeout string   `toml:"upload_timeout"`
}

func loadConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load gym config: %w", err)
	}

	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Server.Addr = addr
		}
	}

	if meta.IsDefined("cors_origins") {
		cfg.Server.CORSOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if meta.IsDefined("drain_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DrainTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse drain_timeout: %w", err)
		}
		cfg.Server.DrainTimeout = d
	}

	if meta.IsDefined("upload_base_url") {
		cfg.Upload.BaseURL = strings.TrimSpace(raw.UploadBaseURL)
	}

	if meta.IsDefined("upload_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.UploadTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse upload_timeout: %w", err)
		}
		cfg.Upload.Timeout = d
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
