package clip

import (
	"sync"

	"go.klb.dev/cloudclip/internal/codec"
)

// Memory is an in-process clipboard holding at most one text and one image.
type Memory struct {
	mu    sync.Mutex
	text  *string
	image []byte

	// Writes counts SetText/SetImage calls.
	Writes int
}

// NewMemory returns a Memory preloaded with v (which may be zero).
func NewMemory(v codec.Value) *Memory {
	m := &Memory{}
	switch v.Kind() {
	case codec.KindText:
		s := v.Text()
		m.text = &s
	case codec.KindImage:
		m.image = v.Image()
	}
	return m
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Formats() []codec.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kinds []codec.Kind
	if m.text != nil {
		kinds = append(kinds, codec.KindText)
	}
	if m.image != nil {
		kinds = append(kinds, codec.KindImage)
	}
	return kinds
}

func (m *Memory) Text() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.text == nil {
		return "", ErrEmpty
	}
	return *m.text, nil
}

func (m *Memory) Image() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.image == nil {
		return nil, ErrEmpty
	}
	return m.image, nil
}

// SetText replaces the clipboard with s, dropping any image, as a system
// clipboard does.
func (m *Memory) SetText(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text, m.image = &s, nil
	m.Writes++
	return nil
}

func (m *Memory) SetImage(png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text, m.image = nil, png
	m.Writes++
	return nil
}
