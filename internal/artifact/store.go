// Package artifact persists synthesized audio on disk, one file per request.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekisa-team/voicemagic/internal/xfs"
)

const (
	// MIMETypeMP3 is the content type served for stored artifacts.
	MIMETypeMP3 = "audio/mpeg"

	// DownloadName is the file name offered to browsers on download.
	DownloadName = "voice_output.mp3"

	extension = ".mp3"
)

// Error definitions for the artifact package.
var (
	ErrNotFound  = errors.New("artifact not found")
	ErrInvalidID = errors.New("invalid artifact id")
	ErrEmpty     = errors.New("refusing to store empty audio")
)

// Artifact describes one stored audio file.
type Artifact struct {
	ID        string    `json:"id"`
	VoiceID   string    `json:"voice_id,omitempty"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	MIMEType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Store writes artifacts as <dir>/<uuid>.mp3.
type Store struct {
	dir   string
	index map[string]*Artifact
	mu    sync.RWMutex
	now   func() time.Time
}

// NewStore creates the output directory if needed and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	dir = xfs.ExpandTilde(dir)
	if err := xfs.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("artifact: failed to create output dir %s: %w", dir, err)
	}

	return &Store{
		dir:   dir,
		index: make(map[string]*Artifact),
		now:   time.Now,
	}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under a fresh id. Each call produces a distinct file.
func (s *Store) Save(data []byte, voiceID string) (*Artifact, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	id := uuid.NewString()
	path := s.pathFor(id)

	if err := xfs.WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("artifact: failed to write %s: %w", path, err)
	}

	a := &Artifact{
		ID:        id,
		VoiceID:   voiceID,
		Path:      path,
		Size:      int64(len(data)),
		MIMEType:  MIMETypeMP3,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.index[id] = a
	s.mu.Unlock()

	return a, nil
}

// Open returns the artifact and its content.
func (s *Store) Open(id string) (*Artifact, []byte, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	id = parsed.String()

	s.mu.RLock()
	a, ok := s.index[id]
	s.mu.RUnlock()

	path := s.pathFor(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("artifact: failed to read %s: %w", path, err)
	}

	if !ok {
		// Written by a previous process; rebuild what the file system knows.
		a = &Artifact{ID: id, Path: path, MIMEType: MIMETypeMP3}
		if info, err := os.Stat(path); err == nil {
			a.CreatedAt = info.ModTime()
		}
	}

	out := *a
	out.Size = int64(len(data))
	return &out, data, nil
}

// Prune deletes artifacts older than maxAge and returns how many were removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("artifact: failed to list %s: %w", s.dir, err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	var errs []error

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, extension) {
			continue
		}
		id := strings.TrimSuffix(name, extension)
		if _, err := uuid.Parse(id); err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}

		s.mu.Lock()
		delete(s.index, id)
		s.mu.Unlock()
		removed++
	}

	return removed, errors.Join(errs...)
}

// RunJanitor prunes expired artifacts every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval, maxAge time.Duration) error {
	if interval <= 0 || maxAge <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Prune(maxAge)
			if err != nil {
				slog.Error("Failed to prune artifacts", "dir", s.dir, "error", err)
			}
			if n > 0 {
				slog.Info("Pruned expired artifacts", "count", n, "max_age", maxAge)
			}
		}
	}
}

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.dir, id+extension)
}
