package clip

import "go.klb.dev/cloudclip/internal/codec"

// headlessBackend is a no-op clipboard for environments without a display
// server (headless Linux servers, containers, etc.). It always reads as empty
// and silently discards writes.
type headlessBackend struct{}

func (headlessBackend) Name() string            { return "headless (no-op)" }
func (headlessBackend) Formats() []codec.Kind   { return nil }
func (headlessBackend) Text() (string, error)   { return "", ErrEmpty }
func (headlessBackend) Image() ([]byte, error)  { return nil, ErrEmpty }
func (headlessBackend) SetText(_ string) error  { return nil }
func (headlessBackend) SetImage(_ []byte) error { return nil }
