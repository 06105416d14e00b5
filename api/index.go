package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/urlzip/urlzip/pkg/app"
	"github.com/urlzip/urlzip/pkg/config"
	"github.com/urlzip/urlzip/pkg/logging"
)

var (
	once    sync.Once
	mux     http.Handler
	initErr error
)

// setup runs on the first request. On Vercel the local sqlite file is
// ephemeral, so DATABASE_URL should point at libsql:// or postgres://.
func setup() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, "")

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		initErr = err
		return
	}
	mux = application.Handler()
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}
	mux.ServeHTTP(w, r)
}
