// Package artifact manages the transient files the engine writes during a
// download: collision-resistant identifiers, the on-disk naming convention,
// and discovery of the produced file once the engine has chosen its
// extension.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDLength is the fixed length of artifact identifiers. Fixed-length IDs
// let Locate match on the full filename stem instead of a prefix, so an
// id can never shadow another id it happens to be a prefix of.
const IDLength = 8

// Store hands out artifact identifiers and tracks which are outstanding.
// An id is reserved from NewID until Release, so two in-flight downloads
// can never share a filename in the shared temp directory.
type Store struct {
	dir string

	mu          sync.Mutex
	outstanding map[string]struct{}
}

// NewStore creates a store rooted at the shared transient directory.
func NewStore(dir string) *Store {
	return &Store{
		dir:         dir,
		outstanding: make(map[string]struct{}),
	}
}

// Dir returns the transient storage root.
func (s *Store) Dir() string {
	return s.dir
}

// NewID reserves and returns a fresh identifier: 8 hex characters drawn
// from a random UUID. If the id collides with an outstanding one the draw
// is repeated, so uniqueness among in-flight artifacts is guaranteed
// rather than merely probable.
func (s *Store) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		id := newID()
		if _, taken := s.outstanding[id]; taken {
			continue
		}
		s.outstanding[id] = struct{}{}
		return id
	}
}

func newID() string {
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")[:IDLength]
}

// Release returns an identifier to the pool. Call it once the artifact
// file is gone from disk.
func (s *Store) Release(id string) {
	s.mu.Lock()
	delete(s.outstanding, id)
	s.mu.Unlock()
}

// Outstanding reports the number of reserved identifiers.
func (s *Store) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding)
}

// OutputTemplate builds the engine output template for an id. The engine
// resolves the extension placeholder when it writes the file.
func (s *Store) OutputTemplate(id string) string {
	return filepath.Join(s.dir, id+".%(ext)s")
}

// Locate finds the artifact written for an id. The match is on the full
// filename stem, not a prefix scan, so ids that share a prefix cannot be
// confused. Returns the absolute path, or an error when no artifact
// exists.
func (s *Store) Locate(id string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("reading artifact directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if stem != id {
			continue
		}
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("artifact vanished before validation: %w", err)
		}
		return path, nil
	}

	return "", fmt.Errorf("no artifact found for id %s", id)
}
