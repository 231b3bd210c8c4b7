//go:build darwin || windows || linux

package clip

import (
	"errors"
	"log/slog"

	"golang.design/x/clipboard"

	"go.klb.dev/cloudclip/internal/codec"
)

type systemBackend struct{}

// New returns the system clipboard backend, or a headless no-op backend if the
// display environment is unavailable (e.g. a headless server without X11 or
// Wayland). clipboard.Init is called here rather than in init() so that CLI
// sub-commands which only talk to a running daemon never touch the display.
func New() Provider {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return headlessBackend{}
	}
	return systemBackend{}
}

func (systemBackend) Name() string { return "system clipboard" }

func (systemBackend) Formats() []codec.Kind {
	var kinds []codec.Kind
	if clipboard.Read(clipboard.FmtText) != nil {
		kinds = append(kinds, codec.KindText)
	}
	if clipboard.Read(clipboard.FmtImage) != nil {
		kinds = append(kinds, codec.KindImage)
	}
	return kinds
}

func (systemBackend) Text() (string, error) {
	b := clipboard.Read(clipboard.FmtText)
	if b == nil {
		return "", ErrEmpty
	}
	return string(b), nil
}

func (systemBackend) Image() ([]byte, error) {
	b := clipboard.Read(clipboard.FmtImage)
	if b == nil {
		return nil, ErrEmpty
	}
	return b, nil
}

// errWrite is returned when the library refuses a write; it reports failure
// only through a nil change channel.
var errWrite = errors.New("clipboard: write rejected")

func (systemBackend) SetText(s string) error {
	if clipboard.Write(clipboard.FmtText, []byte(s)) == nil {
		return errWrite
	}
	return nil
}

func (systemBackend) SetImage(png []byte) error {
	if clipboard.Write(clipboard.FmtImage, png) == nil {
		return errWrite
	}
	return nil
}
