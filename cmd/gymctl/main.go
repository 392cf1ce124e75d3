package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/catherio/gym-http-api/internal/envs"
	"github.com/catherio/gym-http-api/internal/observability"
	"github.com/catherio/gym-http-api/internal/registry"
	"github.com/catherio/gym-http-api/internal/server"
	"github.com/catherio/gym-http-api/internal/upload"
)

// EnvConfigPath points gymctl at an alternate config file.
const EnvConfigPath = "GYM_HTTP_CONFIG"

const defaultConfigPath = "cmd/gymctl/config.toml"

func main() {
	observability.InitLogger("gymctl")

	path := os.Getenv(EnvConfigPath)
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg, err := loadConfig(path)
	switch {
	case err == nil:
		log.Info().Str("path", path).Msg("loaded config")
	case !explicit && errors.Is(err, os.ErrNotExist):
		cfg = defaultAppConfig()
		log.Info().Msg("no config file, using defaults")
	default:
		log.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.NewRegistry(envs.Make)
	srv := server.New(cfg.Server, reg, upload.NewClient(cfg.Upload))

	log.Info().
		Str("addr", cfg.Server.Addr).
		Strs("envs", envs.IDs()).
		Msg("gym http server starting")
	if err := srv.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
