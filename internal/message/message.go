// Package message defines the cloudclip IPC protocol spoken between the CLI
// and a running daemon.
//
// All messages are newline-delimited JSON. Payloads are always base64-encoded
// so that binary content (images) is safe to embed in JSON strings.
// Each message is exactly one line: <json>\n
//
// Every exchange is one request and one response on a fresh connection.
package message

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.klb.dev/cloudclip/internal/codec"
	"go.klb.dev/cloudclip/internal/journal"
	"go.klb.dev/cloudclip/internal/notify"
	"go.klb.dev/cloudclip/internal/preview"
)

// Type identifies the kind of message.
type Type string

const (
	// Requests
	TypeCopy    Type = "COPY"
	TypePaste   Type = "PASTE"
	TypePeek    Type = "PEEK"
	TypeStatus  Type = "STATUS"
	TypeHistory Type = "HISTORY"

	// Responses
	TypeResult          Type = "RESULT"
	TypeStatusResponse  Type = "STATUS_RESPONSE"
	TypeHistoryResponse Type = "HISTORY_RESPONSE"
	TypeError           Type = "ERROR"
)

// Item is a single clipboard representation with a MIME type.
// Data is always base64-encoded.
type Item struct {
	MIME string `json:"mime"`
	Data string `json:"data"` // base64-encoded
}

// NewItem encodes v as an Item.
func NewItem(v codec.Value) Item {
	return Item{
		MIME: v.Kind().MIME(),
		Data: base64.StdEncoding.EncodeToString(codec.Encode(v)),
	}
}

// Decode returns the raw bytes of the item payload.
func (it Item) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(it.Data)
}

// ErrNoItem is returned by Value when no item carries a supported type.
var ErrNoItem = errors.New("message: no image/png or text/plain item")

// Value picks the value a COPY request carries. An image/png item wins over
// text/plain, as on the clipboard itself.
func Value(items []Item) (codec.Value, error) {
	pick := func(mime string) (Item, bool) {
		for _, it := range items {
			if it.MIME == mime {
				return it, true
			}
		}
		return Item{}, false
	}
	it, ok := pick(codec.KindImage.MIME())
	if !ok {
		if it, ok = pick(codec.KindText.MIME()); !ok {
			return codec.Value{}, ErrNoItem
		}
	}
	raw, err := it.Decode()
	if err != nil {
		return codec.Value{}, fmt.Errorf("item %s: %w", it.MIME, err)
	}
	v, err := codec.Decode(raw)
	if err != nil {
		return codec.Value{}, fmt.Errorf("item %s: %w", it.MIME, err)
	}
	if v.Kind().MIME() != it.MIME {
		return codec.Value{}, fmt.Errorf("item %s: %w", it.MIME, codec.ErrDecode)
	}
	return v, nil
}

// Result is a user-facing status carried by RESULT.
type Result struct {
	Message string    `json:"message"`
	Kind    string    `json:"kind"` // "info" or "warning"
	Time    time.Time `json:"time,omitzero"`
}

// NewResult converts a status for the wire. Icons stay in the daemon.
func NewResult(st notify.Status) *Result {
	return &Result{Message: st.Message, Kind: st.Kind.String(), Time: st.Time}
}

// Warning reports whether the result is a warning.
func (r *Result) Warning() bool { return notify.ParseKind(r.Kind) == notify.Warning }

// Preview is a rendering of the local clipboard carried by a PEEK RESULT.
type Preview struct {
	Kind   string `json:"kind"`
	Text   string `json:"text,omitempty"`
	Image  string `json:"image,omitempty"` // base64 PNG thumbnail
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Size   int    `json:"size"`
}

// NewPreview converts p for the wire.
func NewPreview(p preview.Preview) *Preview {
	out := &Preview{
		Kind:   p.Kind.String(),
		Text:   p.Text,
		Width:  p.Width,
		Height: p.Height,
		Size:   p.Size,
	}
	if len(p.Image) > 0 {
		out.Image = base64.StdEncoding.EncodeToString(p.Image)
	}
	return out
}

// State is the daemon snapshot carried by STATUS_RESPONSE.
type State struct {
	Version   string    `json:"version"`
	PID       int       `json:"pid"`
	Cloud     string    `json:"cloud"`
	Path      string    `json:"path"`
	Clipboard string    `json:"clipboard"`
	ModTime   time.Time `json:"mod_time,omitzero"`
	Size      int64     `json:"size"`
	Armed     bool      `json:"armed"`
	Pending   bool      `json:"pending"`
	Attempt   int       `json:"attempt,omitempty"`
	Last      string    `json:"last"`
	LastAt    time.Time `json:"last_at,omitzero"`
	StartedAt time.Time `json:"started_at"`
	Latest    *Result   `json:"latest,omitempty"`
}

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type   Type   `json:"type"`
	Source string `json:"source,omitempty"`

	// COPY: empty Items means "send the daemon's clipboard"
	Items []Item `json:"items,omitempty"`

	// HISTORY: 0 means all
	Limit int `json:"limit,omitempty"`

	// RESULT
	Result  *Result  `json:"result,omitempty"`
	Preview *Preview `json:"preview,omitempty"` // PEEK only

	// STATUS_RESPONSE
	State *State `json:"state,omitempty"`

	// HISTORY_RESPONSE
	Entries []journal.Entry `json:"entries,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}

// Errorf builds an ERROR response.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}
