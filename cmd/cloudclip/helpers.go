package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/ipc"
	"go.klb.dev/cloudclip/internal/journal"
	"go.klb.dev/cloudclip/internal/message"
	"go.klb.dev/cloudclip/internal/store"
	"go.klb.dev/cloudclip/internal/wire"
)

const (
	defaultCloud = "Dropbox"
	defaultFile  = "clipboard.data"
	sharedFolder = ".ClipboardToCloud"

	ipcTimeout = 15 * time.Second
)

func getenv(key string) string  { return os.Getenv(key) }
func hostname() (string, error) { return os.Hostname() }

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	for _, env := range []string{
		"CLOUDCLIP_SOURCE",
		"COMPUTERNAME",
		"HOSTNAME_FRIENDLY",
	} {
		if v := getenv(env); v != "" {
			return v
		}
	}
	h, err := hostname()
	if err != nil {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}

// appTitle is the product name for a cloud; it is also the first payload
// written to a fresh channel file.
func appTitle(cloud string) string {
	return fmt.Sprintf("Clipboard To %s %s", cloud, Version)
}

// channelPath resolves the channel file from --dir, --cloud and --file.
func channelPath(v *viper.Viper) (string, error) {
	dir := v.GetString("dir")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		dir = filepath.Join(home, v.GetString("cloud"), sharedFolder)
	}
	name := v.GetString("file")
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid channel file name %q", name)
	}
	return filepath.Join(dir, name), nil
}

// newStore opens the channel file store described by v.
func newStore(v *viper.Viper) (*store.Store, error) {
	path, err := channelPath(v)
	if err != nil {
		return nil, err
	}
	return store.New(path, store.WithRetry(retryOf(v))), nil
}

// journalPath resolves --journal; ok is false when the journal is off.
func journalPath(v *viper.Viper) (path string, ok bool, err error) {
	path = v.GetString("journal")
	switch path {
	case "off", "none":
		return "", false, nil
	case "":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", false, fmt.Errorf("locate config directory: %w", err)
		}
		path = filepath.Join(dir, "cloudclip", "journal.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", false, fmt.Errorf("journal directory: %w", err)
	}
	return path, true, nil
}

// openJournal opens the journal, or returns nil when it is off or cannot be
// opened. A missing journal never stops clipboard sharing.
func openJournal(v *viper.Viper) *journal.Journal {
	path, ok, err := journalPath(v)
	if err != nil {
		slog.Warn("journal disabled", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	j, err := journal.Open(path, v.GetInt("history-size"))
	if err != nil {
		slog.Warn("journal disabled", "path", path, "err", err)
		return nil
	}
	return j
}

// errNoDaemon is returned by callDaemon when nothing listens on the socket.
var errNoDaemon = errors.New("no cloudclip daemon running")

// callDaemon sends req to a running daemon.
func callDaemon(req *message.Message) (*message.Message, error) {
	if !ipc.IsRunning() {
		return nil, errNoDaemon
	}
	conn, err := ipc.Dial()
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ipc.SocketPath(), err)
	}
	req.Source = defaultSource()
	return wire.Call(conn, req, ipcTimeout)
}

// report prints a result and turns warnings into errors so the exit status
// reflects them.
func report(r *message.Result) error {
	if r == nil {
		return nil
	}
	if r.Warning() {
		return errors.New(r.Message)
	}
	fmt.Fprintln(os.Stderr, r.Message)
	return nil
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Format("2006-01-02 15:04:05")
}
