package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastfingers/race-backend/internal/httpapi"
	"github.com/fastfingers/race-backend/internal/identity"
	"github.com/fastfingers/race-backend/internal/prefs"
	"github.com/fastfingers/race-backend/internal/registry"
)

func main() {
	_ = godotenv.Load()
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func serve(ctx context.Context, cfg *Config) error {
	logger, err := newLogger(cfg.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := registry.New(ctx, registry.Config{
		CountdownSecs: cfg.countdownSecs,
		RaceWordCount: cfg.raceWordCount,
		Logger:        logger,
	})
	store := prefs.NewStore()

	// Build the router *with* the registry injected
	handler := httpapi.SetupRoutes(reg, store, identity.QueryProvider{}, cfg.origin, logger)

	logger.Info("listening", zap.String("addr", cfg.addr()))
	return http.ListenAndServe(cfg.addr(), handler)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
