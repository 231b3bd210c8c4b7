// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the implementation:
//
//	clip_system.go   : macOS, Windows, Linux via golang.design/x/clipboard
//	clip_headless.go : no-op fallback when no display is available
//	clip_other.go    : other platforms, always headless
//	memory.go        : in-process clipboard for tests and piped input
package clip

import (
	"errors"
	"fmt"

	"go.klb.dev/cloudclip/internal/codec"
)

// ErrEmpty is returned when the requested format is not on the clipboard.
var ErrEmpty = errors.New("clipboard: no content in requested format")

// Provider is the interface all clipboard implementations satisfy.
type Provider interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Formats lists the payload kinds currently on the clipboard. An empty
	// result means the clipboard is empty.
	Formats() []codec.Kind

	Text() (string, error)
	// Image returns PNG-encoded bytes.
	Image() ([]byte, error)

	SetText(s string) error
	SetImage(png []byte) error
}

// Has reports whether p currently offers kind.
func Has(p Provider, kind codec.Kind) bool {
	for _, k := range p.Formats() {
		if k == kind {
			return true
		}
	}
	return false
}

// Read returns the clipboard content as a single value. When both an image
// and text are present the image wins. An empty clipboard yields the zero
// Value and a nil error.
func Read(p Provider) (codec.Value, error) {
	formats := p.Formats()
	if len(formats) == 0 {
		return codec.Value{}, nil
	}
	if Has(p, codec.KindImage) {
		img, err := p.Image()
		if err != nil {
			return codec.Value{}, fmt.Errorf("read image: %w", err)
		}
		return codec.Image(img), nil
	}
	if Has(p, codec.KindText) {
		s, err := p.Text()
		if err != nil {
			return codec.Value{}, fmt.Errorf("read text: %w", err)
		}
		return codec.Text(s), nil
	}
	return codec.Value{}, nil
}

// Apply writes v to the clipboard.
func Apply(p Provider, v codec.Value) error {
	switch v.Kind() {
	case codec.KindImage:
		return p.SetImage(v.Image())
	case codec.KindText:
		return p.SetText(v.Text())
	default:
		return fmt.Errorf("clipboard: cannot apply %s value", v.Kind())
	}
}
