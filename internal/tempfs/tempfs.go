// Package tempfs tracks the scratch files an extraction writes so they are
// removed once the extraction finishes, whatever path it took.
package tempfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/metrics"
)

// Scope owns a set of temp paths. It is safe for concurrent use; each
// extraction gets its own Scope.
type Scope struct {
	dir    string
	logger *zap.Logger

	mu     sync.Mutex
	paths  []string
	closed bool
}

// NewScope creates a scope rooted at dir (os.TempDir when empty).
func NewScope(dir string, logger *zap.Logger) *Scope {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scope{dir: dir, logger: logger}
}

// Name returns a fresh, unused path of the form
// <dir>/<prefix>_<unixnano>_<uuid8><ext> and tracks it.
func (s *Scope) Name(prefix, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	p := filepath.Join(s.dir, fmt.Sprintf("%s_%d_%s%s", sanitize(prefix), time.Now().UnixNano(), id, ext))
	s.Track(p)
	return p
}

// Write stores data under a fresh tracked name.
func (s *Scope) Write(prefix, ext string, data []byte) (string, error) {
	p := s.Name(prefix, ext)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", apperrors.ErrTempCreate.WithCause(err)
	}
	return p, nil
}

// Track registers a path created elsewhere, e.g. by an external tool.
func (s *Scope) Track(paths ...string) {
	s.mu.Lock()
	s.paths = append(s.paths, paths...)
	s.mu.Unlock()
}

// Paths returns the tracked paths.
func (s *Scope) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Close removes every tracked path. A failed removal is logged and counted;
// the remaining paths are still attempted. Calling Close twice is a no-op.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	var failed int
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			failed++
			metrics.RecordTempCleanupError()
			s.logger.Warn("Failed to remove temp file",
				zap.String("path", p),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		return apperrors.ErrTempRemove.WithCause(fmt.Errorf("%d of %d files left behind", failed, len(paths)))
	}
	return nil
}

func sanitize(prefix string) string {
	if prefix == "" {
		return "rfq"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, prefix)
}
