package pipeline

import (
	"errors"
	"fmt"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Scope owns the temporary files allocated for a single request. Every file bound to
// the scope is removed by Close unless it was released to the caller first.
// A Scope is not safe for concurrent use.
type Scope struct {
	store port.FileStore
	files []string
	bound map[string]bool
}

func NewScope(store port.FileStore) *Scope {
	return &Scope{store: store, bound: make(map[string]bool)}
}

// Allocate reserves a temporary file with the given extension and binds it to the scope.
func (s *Scope) Allocate(extension string) (string, error) {
	path, err := s.store.Allocate(extension)
	if err != nil {
		if errors.Is(err, domain.ErrResourceUnavailable) {
			return "", fmt.Errorf("allocating %s temp file: %w", extension, err)
		}
		return "", fmt.Errorf("%w: allocating %s temp file: %w", domain.ErrResourceUnavailable, extension, err)
	}

	s.Bind(path)

	return path, nil
}

// Bind ties the removal of path to the end of the scope.
func (s *Scope) Bind(path string) {
	if s.bound[path] {
		return
	}

	s.bound[path] = true
	s.files = append(s.files, path)
}

// Release transfers ownership of path out of the scope. Close will no longer remove it.
func (s *Scope) Release(path string) {
	delete(s.bound, path)
}

// Discard removes path immediately and forgets it.
func (s *Scope) Discard(path string) {
	s.store.Remove(path)
	delete(s.bound, path)
}

func (s *Scope) owns(path string) bool {
	return s.bound[path]
}

// Close removes every file still bound to the scope. It is safe to call more than once.
func (s *Scope) Close() {
	for _, path := range s.files {
		if !s.bound[path] {
			continue
		}

		log.Debug().Str("path", path).Msg("removing scoped temp file")
		s.store.Remove(path)
		delete(s.bound, path)
	}

	s.files = nil
}
