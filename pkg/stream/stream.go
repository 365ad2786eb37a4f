// Package stream transfers a transient artifact to the client and
// guarantees its removal from disk on every exit path.
package stream

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"video-gateway-go/pkg/artifact"
	"video-gateway-go/pkg/logging"
)

// chunkSize is the copy buffer size for artifact transfers.
const chunkSize = 64 * 1024

// Responder streams artifacts as attachment downloads.
type Responder struct {
	store *artifact.Store
	log   *logging.Logger
}

// New creates a Responder over the artifact store.
func New(store *artifact.Store, log *logging.Logger) *Responder {
	return &Responder{
		store: store,
		log:   log.WithComponent("stream"),
	}
}

// Serve opens the artifact and copies it to the client in chunks, with a
// content-disposition hint naming the download displayName. The artifact
// is deleted and its id released when the transfer ends, whether it
// completed, hit a downstream write error, or the client disconnected.
// Deletion failures are logged, never escalated: the response has already
// started.
func (r *Responder) Serve(w http.ResponseWriter, path, id, displayName string) {
	defer r.dispose(path, id)

	f, err := os.Open(path)
	if err != nil {
		r.log.Error("failed to open artifact", "id", id, "error", err)
		http.Error(w, "download failed", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", displayName))
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	}

	n, err := r.copyChunks(w, f)
	if err != nil {
		// Usually a client disconnect; the cleanup deferers still run.
		r.log.Debug("transfer interrupted", "id", id, "bytes", n, "error", err)
		return
	}
	r.log.Debug("transfer complete", "id", id, "bytes", n)
}

// copyChunks pushes the artifact through in fixed-size chunks, flushing
// after each one so the client sees bytes while the copy runs.
func (r *Responder) copyChunks(w http.ResponseWriter, f *os.File) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, chunkSize)

	var written int64
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			wn, writeErr := w.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// dispose removes the artifact and releases its id. A failed removal is a
// disk leak surfaced only through logs.
func (r *Responder) dispose(path, id string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.log.Warn("failed to remove artifact", "id", id, "path", path, "error", err)
	}
	r.store.Release(id)
}
