// Package api provides the HTTP handlers for the gateway.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"video-gateway-go/pkg/appctx"
	"video-gateway-go/pkg/auth"
	"video-gateway-go/pkg/logging"
	"video-gateway-go/pkg/probe"
	"video-gateway-go/pkg/types"
	"video-gateway-go/pkg/urlutil"
)

// Handlers contains all API handlers.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /download", h.handleDownload)
	mux.HandleFunc("GET /info", h.handleInfo)
	mux.HandleFunc("GET /playlist/info", h.handlePlaylistInfo)
	mux.HandleFunc("GET /thumbnail", h.handleThumbnail)
}

// handleIndex returns the capability description.
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "video download gateway operational",
		"usage":   "/download?url=<video_url>&format=best",
	})
}

// handleDownload runs the full request lifecycle: identity guard,
// admission gate, metadata probe, download, stream with cleanup.
func (h *Handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	// The guard runs before admission accounting so unauthenticated
	// probing cannot drain a legitimate client's quota bucket.
	if !h.ctx.Guard.Allow(r.Header.Get(auth.HeaderName)) {
		h.writeError(w, http.StatusUnauthorized, "invalid API key")
		return
	}

	identity := clientIdentity(r)
	if !h.ctx.Limiter.Allow(identity) {
		h.writeError(w, http.StatusTooManyRequests, "too many requests, try again later")
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	req := types.NewFetchRequest(rawURL, r.URL.Query().Get("format"))

	h.log.Info("download requested", "url", req.URL, "format", req.Format, "identity", identity)

	displayName, err := h.ctx.Prober.DisplayName(r.Context(), req.URL)
	if err != nil {
		h.log.Error("probe failed", "url", req.URL, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id := h.ctx.Artifacts.NewID()
	path, err := h.ctx.Fetcher.Fetch(r.Context(), req, id)
	if err != nil {
		h.log.Error("download failed", "url", req.URL, "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.ctx.Responder.Serve(w, path, id, displayName)
}

// handleInfo returns video metadata. Engine failures are reported with
// status 200 and an error payload; browser frontends consume this shape
// and it is kept as the compatibility contract of the endpoint.
func (h *Handlers) handleInfo(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeJSON(w, http.StatusOK, map[string]string{"error": "url parameter required"})
		return
	}

	md, err := h.ctx.Prober.Info(r.Context(), rawURL)
	if err != nil {
		h.log.Warn("info probe failed", "url", rawURL, "error", err)
		h.writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, md)
}

// handlePlaylistInfo returns the playlist projection.
func (h *Handlers) handlePlaylistInfo(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}

	md, err := h.ctx.Prober.Playlist(r.Context(), rawURL)
	if err != nil {
		if errors.Is(err, probe.ErrNotAPlaylist) {
			h.writeError(w, http.StatusBadRequest, "not a playlist")
			return
		}
		h.log.Error("playlist probe failed", "url", rawURL, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, md)
}

// handleThumbnail relays a thumbnail image through the gateway so browser
// frontends get CORS-clean image delivery.
func (h *Handlers) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if !urlutil.IsHTTP(rawURL) {
		h.writeError(w, http.StatusBadRequest, "url must be http or https")
		return
	}

	resp, err := h.ctx.HTTPClient.Get(r.Context(), rawURL)
	if err != nil {
		h.log.Warn("thumbnail fetch failed", "url", rawURL, "error", err)
		h.writeError(w, http.StatusBadGateway, "failed to fetch thumbnail")
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// clientIdentity derives the rate-limit bucket key from the peer address.
// This is a network identity, not a verified user identity: clients behind
// a shared NAT share a bucket.
func clientIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Helper methods

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
