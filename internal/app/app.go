// Package app provides the main application setup and dependency injection.
package app

import (
	"context"

	"video-gateway-go/pkg/appctx"
	"video-gateway-go/pkg/artifact"
	"video-gateway-go/pkg/auth"
	"video-gateway-go/pkg/config"
	"video-gateway-go/pkg/engine"
	"video-gateway-go/pkg/fetch"
	"video-gateway-go/pkg/handlers/api"
	"video-gateway-go/pkg/httpclient"
	"video-gateway-go/pkg/logging"
	"video-gateway-go/pkg/probe"
	"video-gateway-go/pkg/ratelimit"
	"video-gateway-go/pkg/server"
	"video-gateway-go/pkg/stream"
)

// App is the main application container.
type App struct {
	Ctx    *appctx.Context
	Server *server.Server
}

// New creates and initializes the application.
func New() (*App, error) {
	cfg := config.Load()

	log := logging.New(cfg.LogLevel, cfg.LogJSON, nil)
	log.Info("initializing video gateway",
		"port", cfg.Port,
		"auth_enabled", cfg.APIKey != "",
		"rate_limit", cfg.RateLimit,
		"rate_window", cfg.RateWindow,
	)

	ctx := appctx.New(cfg, log)

	// The engine binary check is best-effort: when the host already has
	// yt-dlp on PATH a failed download of a fresh copy is not fatal.
	engine.Install(context.Background(), log)
	eng := engine.New(log)
	ctx.WithEngine(eng)

	guard := auth.NewGuard(cfg.APIKey)
	if !guard.Enabled() {
		log.Warn("no API key configured, identity guard disabled")
	}
	ctx.WithGuard(guard)

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateWindow)
	limiter.StartSweeper(cfg.RateWindow)
	ctx.WithLimiter(limiter)

	store := artifact.NewStore(cfg.TmpDir)
	ctx.WithArtifacts(store)

	ctx.WithProber(probe.New(eng, log))
	ctx.WithFetcher(fetch.New(eng, store, log))
	ctx.WithResponder(stream.New(store, log))
	ctx.WithHTTPClient(httpclient.New(cfg, log))

	srv := server.New(cfg, log)

	handlers := api.NewHandlers(ctx)
	handlers.RegisterRoutes(srv.Router())

	return &App{
		Ctx:    ctx,
		Server: srv,
	}, nil
}

// Run starts the application.
func (a *App) Run() error {
	a.Ctx.Log.Info("starting gateway server", "port", a.Ctx.Config.Port)
	return a.Server.Start()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() {
	a.Ctx.Log.Info("shutting down application")
	a.Ctx.Limiter.Stop()
}
