// Package fetch drives the engine's download mode for one request: invoke
// the engine against a unique output template, then locate and validate
// the artifact it produced.
package fetch

import (
	"context"
	"os"

	"video-gateway-go/pkg/artifact"
	"video-gateway-go/pkg/interfaces"
	"video-gateway-go/pkg/logging"
	"video-gateway-go/pkg/types"
)

// DownloadError is any failure surfaced while producing the artifact:
// engine-level errors and engine-reported success that produced no
// retrievable file both collapse into it, with the underlying message as
// detail. The gateway does not distinguish retryable from permanent
// engine failures.
type DownloadError struct {
	msg   string
	cause error
}

func (e *DownloadError) Error() string {
	return "download failed: " + e.msg
}

func (e *DownloadError) Unwrap() error {
	return e.cause
}

// Orchestrator runs the download phase of a request.
type Orchestrator struct {
	engine interfaces.Engine
	store  *artifact.Store
	log    *logging.Logger
}

// New creates an Orchestrator over the engine and artifact store.
func New(engine interfaces.Engine, store *artifact.Store, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		engine: engine,
		store:  store,
		log:    log.WithComponent("fetch"),
	}
}

// Fetch downloads the requested resource under the given artifact id and
// returns the path of the produced file. The id stays reserved in the
// store; the caller releases it once the artifact is deleted. On any
// failure the id is released here and no file is left behind.
func (o *Orchestrator) Fetch(ctx context.Context, req types.FetchRequest, id string) (string, error) {
	tmpl := o.store.OutputTemplate(id)
	o.log.Debug("starting download", "url", req.URL, "format", req.Format, "id", id)

	if err := o.engine.Fetch(ctx, req.URL, req.Format, tmpl); err != nil {
		o.cleanup(id)
		return "", &DownloadError{msg: err.Error(), cause: err}
	}

	path, err := o.store.Locate(id)
	if err != nil {
		// Engine reported success but no artifact is retrievable,
		// e.g. a post-processing failure.
		o.cleanup(id)
		return "", &DownloadError{msg: err.Error(), cause: err}
	}

	o.log.Debug("download complete", "id", id, "path", path)
	return path, nil
}

// cleanup releases the id and removes any partial artifact so a failed
// download leaves nothing on disk.
func (o *Orchestrator) cleanup(id string) {
	if path, err := o.store.Locate(id); err == nil {
		if err := os.Remove(path); err != nil {
			o.log.Warn("failed to remove partial artifact", "id", id, "error", err)
		}
	}
	o.store.Release(id)
}
