// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"video-gateway-go/pkg/artifact"
	"video-gateway-go/pkg/auth"
	"video-gateway-go/pkg/config"
	"video-gateway-go/pkg/fetch"
	"video-gateway-go/pkg/httpclient"
	"video-gateway-go/pkg/interfaces"
	"video-gateway-go/pkg/logging"
	"video-gateway-go/pkg/probe"
	"video-gateway-go/pkg/ratelimit"
	"video-gateway-go/pkg/stream"
)

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config     *config.Config
	Log        *logging.Logger
	Engine     interfaces.Engine
	Guard      *auth.Guard
	Limiter    *ratelimit.Limiter
	Artifacts  *artifact.Store
	Prober     *probe.Prober
	Fetcher    *fetch.Orchestrator
	Responder  *stream.Responder
	HTTPClient *httpclient.Client
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	return &Context{
		Config: cfg,
		Log:    log,
	}
}

// WithEngine sets the external engine.
func (c *Context) WithEngine(e interfaces.Engine) *Context {
	c.Engine = e
	return c
}

// WithGuard sets the identity guard.
func (c *Context) WithGuard(g *auth.Guard) *Context {
	c.Guard = g
	return c
}

// WithLimiter sets the admission gate.
func (c *Context) WithLimiter(l *ratelimit.Limiter) *Context {
	c.Limiter = l
	return c
}

// WithArtifacts sets the artifact store.
func (c *Context) WithArtifacts(s *artifact.Store) *Context {
	c.Artifacts = s
	return c
}

// WithProber sets the metadata prober.
func (c *Context) WithProber(p *probe.Prober) *Context {
	c.Prober = p
	return c
}

// WithFetcher sets the fetch orchestrator.
func (c *Context) WithFetcher(f *fetch.Orchestrator) *Context {
	c.Fetcher = f
	return c
}

// WithResponder sets the streaming responder.
func (c *Context) WithResponder(r *stream.Responder) *Context {
	c.Responder = r
	return c
}

// WithHTTPClient sets the outbound HTTP client.
func (c *Context) WithHTTPClient(hc *httpclient.Client) *Context {
	c.HTTPClient = hc
	return c
}
