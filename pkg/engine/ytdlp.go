// Package engine adapts the yt-dlp extraction engine to the gateway's
// Engine interface. yt-dlp is treated as an opaque collaborator: it
// resolves a remote URL into metadata and, in download mode, produces a
// media file on disk.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lrstanley/go-ytdlp"

	"video-gateway-go/pkg/interfaces"
	"video-gateway-go/pkg/logging"
	"video-gateway-go/pkg/types"
)

// MergeContainer is the container multiplexed streams are merged into.
const MergeContainer = "mp4"

// YTDLP drives the yt-dlp binary through go-ytdlp.
type YTDLP struct {
	log *logging.Logger
}

// New creates the yt-dlp engine adapter.
func New(log *logging.Logger) *YTDLP {
	return &YTDLP{log: log.WithComponent("engine")}
}

// Install makes sure a yt-dlp binary is available, downloading one into
// the cache directory if the host has none. Failure is tolerable when the
// binary is already on PATH.
func Install(ctx context.Context, log *logging.Logger) {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		log.Warn("yt-dlp install check failed, relying on PATH", "error", err)
	}
}

// rawInfo mirrors the slice of yt-dlp's single-JSON dump the gateway
// consumes. Playlist entries may be null for unavailable members.
type rawInfo struct {
	ID         string      `json:"id"`
	Type       string      `json:"_type"`
	Title      string      `json:"title"`
	Thumbnail  string      `json:"thumbnail"`
	Duration   float64     `json:"duration"`
	Uploader   string      `json:"uploader"`
	WebpageURL string      `json:"webpage_url"`
	Formats    []rawFormat `json:"formats"`
	Entries    []*rawInfo  `json:"entries"`
}

type rawFormat struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	Height   int    `json:"height"`
}

// Probe invokes yt-dlp with downloads skipped and parses the metadata
// dump. No files are written.
func (e *YTDLP) Probe(ctx context.Context, url string) (*interfaces.MediaInfo, error) {
	e.log.Debug("probing", "url", url)

	cmd := ytdlp.New().
		SkipDownload().
		DumpSingleJSON().
		Quiet()

	result, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("engine probe: %w", err)
	}

	var raw rawInfo
	if err := json.Unmarshal([]byte(result.Stdout), &raw); err != nil {
		return nil, fmt.Errorf("engine probe: decoding metadata: %w", err)
	}

	return raw.toMediaInfo(), nil
}

// Fetch invokes yt-dlp in download mode against the output template,
// merging multiplexed streams into a single container. The produced
// file's extension is chosen by the engine.
func (e *YTDLP) Fetch(ctx context.Context, url, format, outputTemplate string) error {
	e.log.Debug("fetching", "url", url, "format", format)

	cmd := ytdlp.New().
		Format(format).
		Output(outputTemplate).
		MergeOutputFormat(MergeContainer).
		Quiet()

	if _, err := cmd.Run(ctx, url); err != nil {
		return fmt.Errorf("engine fetch: %w", err)
	}
	return nil
}

func (r *rawInfo) toMediaInfo() *interfaces.MediaInfo {
	info := &interfaces.MediaInfo{
		ID:              r.ID,
		Title:           r.Title,
		ThumbnailURL:    r.Thumbnail,
		DurationSeconds: r.Duration,
		Uploader:        r.Uploader,
		WebpageURL:      r.WebpageURL,
	}

	for _, f := range r.Formats {
		info.Formats = append(info.Formats, types.FormatInfo{
			FormatID:  f.FormatID,
			Extension: f.Ext,
			Height:    f.Height,
		})
	}

	// A playlist dump carries an entries collection; keep the null
	// members so the projector can count what it drops.
	if r.Entries != nil {
		info.Entries = make([]*interfaces.MediaInfo, 0, len(r.Entries))
		for _, entry := range r.Entries {
			if entry == nil {
				info.Entries = append(info.Entries, nil)
				continue
			}
			info.Entries = append(info.Entries, entry.toMediaInfo())
		}
	}

	return info
}

var _ interfaces.Engine = (*YTDLP)(nil)
