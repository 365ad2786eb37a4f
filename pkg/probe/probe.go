// Package probe answers metadata questions about a remote resource by
// invoking the engine in its download-free mode, and projects engine
// playlist results into the public shapes.
package probe

import (
	"context"
	"errors"
	"strings"

	"video-gateway-go/pkg/interfaces"
	"video-gateway-go/pkg/logging"
	"video-gateway-go/pkg/types"
	"video-gateway-go/pkg/urlutil"
)

// ErrNotAPlaylist is returned when playlist semantics are requested for a
// resource the engine reports without a members collection.
var ErrNotAPlaylist = errors.New("resource is not a playlist")

// FallbackTitle is used when the engine reports no title.
const FallbackTitle = "video"

// DisplayExtension is the extension advertised in the download filename.
// It is fixed regardless of the artifact's actual container; when the
// merge step produces a different container the name is simply wrong,
// matching the long-standing behavior clients already depend on.
const DisplayExtension = ".mp4"

// Prober resolves titles, metadata and playlist projections.
type Prober struct {
	engine interfaces.Engine
	log    *logging.Logger
}

// New creates a Prober over the given engine.
func New(engine interfaces.Engine, log *logging.Logger) *Prober {
	return &Prober{
		engine: engine,
		log:    log.WithComponent("probe"),
	}
}

// DisplayName probes the URL and derives the filename the client's agent
// should save the download under: the sanitized title plus the fixed
// media extension.
func (p *Prober) DisplayName(ctx context.Context, url string) (string, error) {
	info, err := p.engine.Probe(ctx, url)
	if err != nil {
		return "", err
	}
	return SanitizeTitle(info.Title) + DisplayExtension, nil
}

// SanitizeTitle makes a probed title safe to embed in a filename by
// replacing path separators. Empty titles fall back to a generic name.
func SanitizeTitle(title string) string {
	if title == "" {
		return FallbackTitle
	}
	title = strings.ReplaceAll(title, "/", "-")
	title = strings.ReplaceAll(title, `\`, "-")
	return title
}

// Info probes the URL and returns the full metadata shape. The format
// list is filtered to entries that report a vertical resolution, dropping
// audio-only formats.
func (p *Prober) Info(ctx context.Context, url string) (*types.VideoMetadata, error) {
	info, err := p.engine.Probe(ctx, url)
	if err != nil {
		return nil, err
	}

	md := &types.VideoMetadata{
		Title:           info.Title,
		ThumbnailURL:    urlutil.NormalizeAbsolute(info.ThumbnailURL),
		DurationSeconds: info.DurationSeconds,
		Uploader:        info.Uploader,
		Formats:         []types.FormatInfo{},
	}
	for _, f := range info.Formats {
		if f.Height > 0 {
			md.Formats = append(md.Formats, f)
		}
	}
	return md, nil
}

// Playlist probes the URL and projects the engine's playlist result. A
// result without a members collection fails with ErrNotAPlaylist.
func (p *Prober) Playlist(ctx context.Context, url string) (*types.PlaylistMetadata, error) {
	info, err := p.engine.Probe(ctx, url)
	if err != nil {
		return nil, err
	}
	if info.Entries == nil {
		return nil, ErrNotAPlaylist
	}
	return Project(info), nil
}

// Project maps an engine playlist result to the public shape: null
// members are dropped without error, ordering is preserved, and Count is
// the number of members actually included.
func Project(info *interfaces.MediaInfo) *types.PlaylistMetadata {
	md := &types.PlaylistMetadata{
		Title:   info.Title,
		Entries: []types.PlaylistEntry{},
	}
	for _, entry := range info.Entries {
		if entry == nil {
			continue
		}
		md.Entries = append(md.Entries, types.PlaylistEntry{
			ID:              entry.ID,
			Title:           entry.Title,
			ThumbnailURL:    urlutil.NormalizeAbsolute(entry.ThumbnailURL),
			DurationSeconds: entry.DurationSeconds,
			URL:             entry.WebpageURL,
		})
	}
	md.Count = len(md.Entries)
	return md
}
