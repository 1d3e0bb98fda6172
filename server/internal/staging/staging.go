package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an ID the store does not hold.
var ErrNotFound = errors.New("staging: upload not found")

const maxNameLen = 100

// Entry describes one staged upload.
type Entry struct {
	ID       string
	Name     string // sanitised client file name
	Path     string
	Size     int64
	StagedAt time.Time
}

// Store is a thread-safe staging area for uploaded files, rooted at one
// directory. Every upload is written under a uuid-prefixed name so
// concurrent requests never collide. A background goroutine (Run) removes
// files older than the configured TTL that a request failed to clean up.
type Store struct {
	dir string
	ttl time.Duration

	mu   sync.RWMutex
	data map[string]*Entry
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, ttl time.Duration) (*Store, error) {
	if dir == "" {
		return nil, errors.New("staging: empty directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("staging: create %q: %w", dir, err)
	}
	return &Store{
		dir:  dir,
		ttl:  ttl,
		data: make(map[string]*Entry),
		now:  time.Now,
	}, nil
}

// Dir returns the staging directory.
func (s *Store) Dir() string { return s.dir }

// Put copies r into a new staged file named after name and returns its entry.
// A partially written file is removed on error.
func (s *Store) Put(name string, r io.Reader) (*Entry, error) {
	id := uuid.NewString()
	clean := Sanitize(name)
	path := filepath.Join(s.dir, id+"_"+clean)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("staging: create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("staging: write %q: %w", clean, err)
	}

	e := &Entry{ID: id, Name: clean, Path: path, Size: n, StagedAt: s.now()}
	s.mu.Lock()
	s.data[id] = e
	s.mu.Unlock()
	return e, nil
}

// Get returns the entry for id and whether it was found.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e, ok
}

// Open opens the staged file for id for reading.
func (s *Store) Open(id string) (*os.File, error) {
	e, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return os.Open(e.Path)
}

// Remove deletes the staged file for id. Removing an unknown id returns
// ErrNotFound.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	e, ok := s.data[id]
	delete(s.data, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("staging: remove %q: %w", e.Name, err)
	}
	return nil
}

// List returns the staged entries, oldest first.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StagedAt.Before(out[j].StagedAt) })
	return out
}

// Count returns the number of staged files currently tracked.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes tracked entries staged at or before now minus TTL, plus any
// untracked regular file in the directory whose modification time is that
// old (leftovers from an earlier process). It returns the number of files
// removed.
func (s *Store) Evict(now time.Time) int {
	cutoff := now.Add(-s.ttl)
	removed := 0

	s.mu.Lock()
	for id, e := range s.data {
		if !e.StagedAt.After(cutoff) {
			delete(s.data, id)
			if err := os.Remove(e.Path); err == nil || errors.Is(err, os.ErrNotExist) {
				removed++
			}
		}
	}
	tracked := make(map[string]bool, len(s.data))
	for _, e := range s.data {
		tracked[filepath.Base(e.Path)] = true
	}
	s.mu.Unlock()

	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("staging: read dir failed", "dir", s.dir, "err", err)
		return removed
	}
	for _, de := range dirents {
		if !de.Type().IsRegular() || tracked[de.Name()] {
			continue
		}
		info, err := de.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, de.Name())); err == nil {
			removed++
		}
	}
	return removed
}

// Run starts the background sweep loop. It ticks at half the TTL interval
// (minimum 1 second). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("staging: swept stale uploads", "count", n)
			}
		}
	}
}

// Sanitize reduces a client-supplied file name to a safe base name made of
// letters, digits, '.', '-' and '_'.
func Sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		return "upload"
	}
	return out
}
