package message

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"go.klb.dev/cloudclip/internal/codec"
)

func TestValuePrefersImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	items := []Item{NewItem(codec.Text("caption")), NewItem(codec.Image(buf.Bytes()))}

	v, err := Value(items)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != codec.KindImage || !bytes.Equal(v.Image(), buf.Bytes()) {
		t.Errorf("Value = %v", v)
	}
}

func TestValue(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		want    string
		wantErr error
	}{
		{name: "text", items: []Item{NewItem(codec.Text("hi"))}, want: "hi"},
		{name: "no items", wantErr: ErrNoItem},
		{name: "unsupported mime", items: []Item{{MIME: "text/html", Data: "PGI+"}}, wantErr: ErrNoItem},
		{name: "invalid utf8", items: []Item{{MIME: "text/plain", Data: "//4="}}, wantErr: codec.ErrDecode},
		{name: "png bytes labelled text", items: []Item{{MIME: "text/plain", Data: "iVBORw=="}}, wantErr: codec.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Value(tt.items)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || v.Text() != tt.want {
				t.Errorf("Value = %q, %v", v.Text(), err)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}
