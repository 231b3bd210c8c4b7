package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/journal"
	"go.klb.dev/cloudclip/internal/message"
)

func TestChannelPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		name    string
		set     map[string]string
		want    string
		wantErr bool
	}{
		{
			name: "defaults",
			set:  map[string]string{"cloud": "Dropbox", "file": "clipboard.data"},
			want: filepath.Join(home, "Dropbox", ".ClipboardToCloud", "clipboard.data"),
		},
		{
			name: "other cloud",
			set:  map[string]string{"cloud": "OneDrive", "file": "clipboard.data"},
			want: filepath.Join(home, "OneDrive", ".ClipboardToCloud", "clipboard.data"),
		},
		{
			name: "explicit dir",
			set:  map[string]string{"cloud": "Dropbox", "dir": "/srv/share", "file": "clip.bin"},
			want: filepath.Join("/srv/share", "clip.bin"),
		},
		{
			name:    "file with a path",
			set:     map[string]string{"cloud": "Dropbox", "file": "../escape"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			got, err := channelPath(v)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("channelPath = %q, want error", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("channelPath = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestAppTitle(t *testing.T) {
	if got := appTitle("Dropbox"); got != "Clipboard To Dropbox "+Version {
		t.Errorf("appTitle = %q", got)
	}
}

func TestIsContainerID(t *testing.T) {
	for s, want := range map[string]bool{
		"3f2a9c1b7d4e":   true,
		"laptop":         false,
		"3F2A9C1B7D4E":   false,
		"3f2a9c1b7d4eZZ": false,
	} {
		if got := isContainerID(s); got != want {
			t.Errorf("isContainerID(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestJournalPathOff(t *testing.T) {
	v := viper.New()
	v.Set("journal", "off")
	if _, ok, err := journalPath(v); ok || err != nil {
		t.Errorf("journalPath(off) = %v, %v", ok, err)
	}

	want := filepath.Join(t.TempDir(), "sub", "j.db")
	v.Set("journal", want)
	got, ok, err := journalPath(v)
	if err != nil || !ok || got != want {
		t.Fatalf("journalPath = %q, %v, %v", got, ok, err)
	}
	if _, err := os.Stat(filepath.Dir(want)); err != nil {
		t.Errorf("journal directory not created: %v", err)
	}
}

func TestReport(t *testing.T) {
	if err := report(&message.Result{Message: "Clipboard is empty", Kind: "warning"}); err == nil || err.Error() != "Clipboard is empty" {
		t.Errorf("warning report = %v", err)
	}
	if err := report(&message.Result{Message: "Text sent to Dropbox", Kind: "info"}); err != nil {
		t.Errorf("info report = %v", err)
	}
	if err := report(nil); err != nil {
		t.Errorf("nil report = %v", err)
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	if !strings.Contains(buf.String(), "No transfers") {
		t.Errorf("empty history = %q", buf.String())
	}

	buf.Reset()
	printHistory(&buf, []journal.Entry{
		{Time: time.Now(), Direction: journal.Received, Kind: "text", Size: 5, Source: "desk", Preview: "hello", Auto: true},
	})
	out := buf.String()
	for _, want := range []string{"received (auto)", "text", "desk", "hello"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output lacks %q:\n%s", want, out)
		}
	}
}

func TestInspectChannel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipboard.data")

	if r := inspectChannel(path); r.Exists || r.Error != "" {
		t.Errorf("missing file report = %+v", r)
	}
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := inspectChannel(path)
	if !r.Exists || r.Kind != "text" || r.Size != 5 {
		t.Errorf("report = %+v", r)
	}
	if err := os.WriteFile(path, []byte{0xff, 0xfe}, 0o644); err != nil {
		t.Fatal(err)
	}
	if r := inspectChannel(path); r.Error == "" {
		t.Errorf("undecodable file report = %+v", r)
	}

	var buf bytes.Buffer
	printStatus(&buf, statusReport{Transport: "standalone", Channel: inspectChannel(path)})
	if !strings.Contains(buf.String(), "standalone") || !strings.Contains(buf.String(), path) {
		t.Errorf("status output:\n%s", buf.String())
	}
}
