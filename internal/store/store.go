// Package store gives bounded, replication-tolerant access to the channel file.
//
// A cloud-sync client may delete and recreate the file, or hold it locked,
// while it replicates. Reads therefore treat NotFound and PermissionDenied as
// transient. Writes go through a temp file and a rename so a reader never sees
// a half-written payload.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const (
	DefaultAttempts = 20
	DefaultBackoff  = 100 * time.Millisecond
)

// ErrReadExhausted is returned once the retry budget is spent.
var ErrReadExhausted = errors.New("store: channel file unreadable after retries")

// DirectoryError reports that the shared directory could not be created.
type DirectoryError struct {
	Dir string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("cannot create directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// WriteError reports a failed write of the channel file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Retry bounds the read retry loop.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry is 20 attempts 100 ms apart.
var DefaultRetry = Retry{Attempts: DefaultAttempts, Backoff: DefaultBackoff}

func (r Retry) normalize() Retry {
	if r.Attempts < 1 {
		r.Attempts = 1
	}
	if r.Backoff <= 0 {
		r.Backoff = DefaultBackoff
	}
	return r
}

// Signature identifies one version of the channel file.
type Signature struct {
	ModTime time.Time
	Size    int64
}

// Store reads and writes the channel file.
type Store struct {
	fs    afero.Fs
	path  string
	retry Retry
}

// Option configures a Store.
type Option func(*Store)

// WithFs replaces the OS filesystem, mainly for tests.
func WithFs(fsys afero.Fs) Option { return func(s *Store) { s.fs = fsys } }

// WithRetry overrides the read retry budget.
func WithRetry(r Retry) Option { return func(s *Store) { s.retry = r.normalize() } }

// New returns a Store for the channel file at path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		fs:    afero.NewOsFs(),
		path:  filepath.Clean(path),
		retry: DefaultRetry,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Path() string { return s.path }
func (s *Store) Dir() string  { return filepath.Dir(s.path) }
func (s *Store) Retry() Retry { return s.retry }

// Bootstrap creates the shared directory and writes title as the initial
// payload. It is a no-op when the directory and file already exist. A missing
// file inside an existing directory is recreated with title.
func (s *Store) Bootstrap(title []byte) error {
	dir := s.Dir()
	ok, err := afero.DirExists(s.fs, dir)
	if err != nil {
		return &DirectoryError{Dir: dir, Err: err}
	}
	if !ok {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return &DirectoryError{Dir: dir, Err: err}
		}
		if err := afero.WriteFile(s.fs, s.path, title, 0o644); err != nil {
			return &DirectoryError{Dir: dir, Err: err}
		}
		return nil
	}
	if exists, _ := afero.Exists(s.fs, s.path); !exists {
		if err := afero.WriteFile(s.fs, s.path, title, 0o644); err != nil {
			return &DirectoryError{Dir: dir, Err: err}
		}
	}
	return nil
}

// Write replaces the channel file content with data. The payload is written to
// a temp file next to the channel file and renamed over it.
func (s *Store) Write(data []byte) error {
	tmp, err := afero.TempFile(s.fs, s.Dir(), "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return &WriteError{Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return &WriteError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &WriteError{Path: s.path, Err: err}
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return &WriteError{Path: s.path, Err: err}
	}
	return nil
}

// ReadOnce makes a single attempt at reading the whole file.
func (s *Store) ReadOnce() ([]byte, error) {
	return afero.ReadFile(s.fs, s.path)
}

// Read reads the file, retrying transient failures with a fixed backoff until
// the budget is spent or ctx is done. It blocks; code running on the daemon
// loop uses ReadOnce and schedules its own retries instead.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		data, err := s.ReadOnce()
		if err == nil {
			return data, nil
		}
		if !IsTransient(err) {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		lastErr = err
		if attempt == s.retry.Attempts {
			break
		}
		t := time.NewTimer(s.retry.Backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, Exhausted(lastErr)
}

// Exhausted wraps the last read error in ErrReadExhausted.
func Exhausted(last error) error {
	return fmt.Errorf("%w: %v", ErrReadExhausted, last)
}

// Stat returns the current signature of the channel file. A missing file
// yields an error matching fs.ErrNotExist.
func (s *Store) Stat() (Signature, error) {
	fi, err := s.fs.Stat(s.path)
	if err != nil {
		return Signature{}, err
	}
	return Signature{ModTime: fi.ModTime(), Size: fi.Size()}, nil
}

// IsTransient reports whether err is worth retrying: the file is missing or
// locked while the sync client replicates it.
func IsTransient(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
