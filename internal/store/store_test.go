package store

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

const channel = "/cloud/.ClipboardToCloud/clipboard.data"

func newMem(t *testing.T, opts ...Option) (*Store, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	opts = append([]Option{WithFs(mem)}, opts...)
	return New(channel, opts...), mem
}

func TestBootstrap(t *testing.T) {
	s, mem := newMem(t)

	if err := s.Bootstrap([]byte("Clipboard To Dropbox dev")); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	got, err := afero.ReadFile(mem, channel)
	if err != nil {
		t.Fatalf("read after bootstrap: %v", err)
	}
	if string(got) != "Clipboard To Dropbox dev" {
		t.Errorf("bootstrap payload = %q", got)
	}

	// Second call must not clobber existing content.
	if err := afero.WriteFile(mem, channel, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Bootstrap([]byte("title")); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	got, _ = afero.ReadFile(mem, channel)
	if string(got) != "existing" {
		t.Errorf("bootstrap overwrote content: %q", got)
	}
}

func TestBootstrapRecreatesMissingFile(t *testing.T) {
	s, mem := newMem(t)
	if err := mem.MkdirAll(filepath.Dir(channel), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := s.Bootstrap([]byte("title")); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if ok, _ := afero.Exists(mem, channel); !ok {
		t.Fatal("channel file not created in existing directory")
	}
}

func TestBootstrapPermissionDenied(t *testing.T) {
	s := New(channel, WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))

	err := s.Bootstrap([]byte("title"))
	var de *DirectoryError
	if !errors.As(err, &de) {
		t.Fatalf("Bootstrap err = %v, want *DirectoryError", err)
	}
	if de.Dir != filepath.Dir(channel) {
		t.Errorf("DirectoryError.Dir = %q", de.Dir)
	}
}

func TestWriteReplacesContent(t *testing.T) {
	s, mem := newMem(t)
	if err := s.Bootstrap([]byte("title")); err != nil {
		t.Fatal(err)
	}

	for _, payload := range []string{"a much longer first payload", "short"} {
		if err := s.Write([]byte(payload)); err != nil {
			t.Fatalf("Write(%q): %v", payload, err)
		}
		got, err := s.ReadOnce()
		if err != nil {
			t.Fatalf("ReadOnce: %v", err)
		}
		if string(got) != payload {
			t.Errorf("content = %q, want %q", got, payload)
		}
	}

	// No temp files left behind.
	entries, err := afero.ReadDir(mem, filepath.Dir(channel))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestWriteFailure(t *testing.T) {
	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, channel, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(channel, WithFs(afero.NewReadOnlyFs(mem)))

	err := s.Write([]byte("new"))
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Write err = %v, want *WriteError", err)
	}
	got, _ := afero.ReadFile(mem, channel)
	if string(got) != "old" {
		t.Errorf("failed write changed content to %q", got)
	}
}

func TestReadRetriesUntilFileAppears(t *testing.T) {
	s, mem := newMem(t, WithRetry(Retry{Attempts: 50, Backoff: time.Millisecond}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = afero.WriteFile(mem, channel, []byte("late"), 0o644)
	}()

	got, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "late" {
		t.Errorf("Read = %q, want %q", got, "late")
	}
}

func TestReadExhausted(t *testing.T) {
	s, _ := newMem(t, WithRetry(Retry{Attempts: 3, Backoff: time.Millisecond}))

	_, err := s.Read(context.Background())
	if !errors.Is(err, ErrReadExhausted) {
		t.Fatalf("Read err = %v, want ErrReadExhausted", err)
	}
}

func TestReadCancelled(t *testing.T) {
	s, _ := newMem(t, WithRetry(Retry{Attempts: 1000, Backoff: time.Hour}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Read err = %v, want context.Canceled", err)
	}
}

func TestStat(t *testing.T) {
	s, mem := newMem(t)

	if _, err := s.Stat(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Stat on missing file err = %v, want ErrNotExist", err)
	}

	if err := afero.WriteFile(mem, channel, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	mt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := mem.Chtimes(channel, mt, mt); err != nil {
		t.Fatal(err)
	}
	sig, err := s.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !sig.ModTime.Equal(mt) || sig.Size != 5 {
		t.Errorf("Stat = %+v", sig)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&fs.PathError{Op: "open", Path: channel, Err: fs.ErrNotExist}, true},
		{&fs.PathError{Op: "open", Path: channel, Err: fs.ErrPermission}, true},
		{errors.New("disk on fire"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
