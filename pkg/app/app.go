// Package app wires configuration, storage and services for every entry point.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/urlzip/urlzip/pkg/adapters/handler"
	"github.com/urlzip/urlzip/pkg/adapters/repository"
	"github.com/urlzip/urlzip/pkg/config"
	"github.com/urlzip/urlzip/pkg/core/services"
	"github.com/urlzip/urlzip/pkg/ports"
)

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     ports.Store
	Links     *services.LinkService
	Analytics *services.AnalyticsService
	Reports   *services.ReportService
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return NewWithStore(cfg, logger, store), nil
}

// NewWithStore builds the services over an already opened store.
func NewWithStore(cfg *config.Config, logger *slog.Logger, store ports.Store) *App {
	links := services.NewLinkService(store,
		services.NewRandomCodeGenerator(cfg.CodeLength),
		services.WithMaxAttempts(cfg.CodeMaxAttempts),
		services.WithStoreTimeout(cfg.StoreTimeout),
		services.WithShortURLBase(cfg.ShortURLBase),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Links:     links,
		Analytics: services.NewAnalyticsService(store, store, cfg.StoreTimeout),
		Reports:   services.NewReportService(store, cfg.StoreTimeout),
	}
}

func (a *App) Handler() http.Handler {
	return handler.NewRouter(a.Config, a.Logger, handler.Services{
		Links:     a.Links,
		Analytics: a.Analytics,
		Reports:   a.Reports,
	})
}

func (a *App) Close() error {
	return a.Store.Close()
}
