// Package types defines core domain types used throughout the application.
package types

// FetchRequest describes an incoming download request.
type FetchRequest struct {
	URL    string
	Format string // engine format selector, defaults to "best"
}

// DefaultFormat is the engine format selector used when none is given.
const DefaultFormat = "best"

// NewFetchRequest builds a FetchRequest, applying the format default.
func NewFetchRequest(url, format string) FetchRequest {
	if format == "" {
		format = DefaultFormat
	}
	return FetchRequest{URL: url, Format: format}
}

// FormatInfo describes a single video format reported by the engine.
type FormatInfo struct {
	FormatID  string `json:"format_id"`
	Extension string `json:"ext"`
	Height    int    `json:"height"`
}

// VideoMetadata is the public shape returned by the info endpoint.
type VideoMetadata struct {
	Title           string       `json:"title"`
	ThumbnailURL    string       `json:"thumbnail"`
	DurationSeconds float64      `json:"duration"`
	Uploader        string       `json:"uploader"`
	Formats         []FormatInfo `json:"formats"`
}

// PlaylistEntry is one member of a projected playlist.
type PlaylistEntry struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	ThumbnailURL    string  `json:"thumbnail"`
	DurationSeconds float64 `json:"duration"`
	URL             string  `json:"url"`
}

// PlaylistMetadata is the public shape returned by the playlist info
// endpoint. Count reflects the entries actually included, not the
// engine-reported total.
type PlaylistMetadata struct {
	Title   string          `json:"playlist_title"`
	Count   int             `json:"count"`
	Entries []PlaylistEntry `json:"videos"`
}
