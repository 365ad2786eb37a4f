// Package interfaces defines the core abstractions of the gateway.
// The external engine is modeled here so request handling can be tested
// without shelling out to the real extractor.
package interfaces

import (
	"context"

	"video-gateway-go/pkg/types"
)

// Engine is the external extraction/download engine. Implementations
// resolve a remote URL into metadata and, in download mode, produce a
// media file on disk. Both operations are blocking external calls.
type Engine interface {
	// Probe resolves metadata for a URL without downloading anything.
	// For playlist URLs the result carries the member entries.
	Probe(ctx context.Context, url string) (*MediaInfo, error)

	// Fetch downloads the resource in the requested format, merging
	// multiplexed streams into a single container, writing output
	// according to the engine's output template syntax.
	Fetch(ctx context.Context, url, format, outputTemplate string) error
}

// MediaInfo is the raw engine probe result, before projection into the
// public shapes in pkg/types. Entries may contain nil members for
// playlist items the engine reports as unavailable.
type MediaInfo struct {
	ID              string
	Title           string
	ThumbnailURL    string
	DurationSeconds float64
	Uploader        string
	WebpageURL      string
	Formats         []types.FormatInfo
	Entries         []*MediaInfo // nil when the result is not a playlist
}
