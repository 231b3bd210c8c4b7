package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

// headerAndTrailer keeps the signature, the IHDR chunk and the IEND chunk of
// a PNG stream, dropping everything in between.
func headerAndTrailer(img []byte) []byte {
	const head = 8 + 25
	out := append([]byte{}, img[:head]...)
	return append(out, img[len(img)-12:]...)
}

func TestEncode(t *testing.T) {
	img := testPNG(t)

	if got := Encode(Text("hello")); !bytes.Equal(got, []byte("hello")) {
		t.Errorf("Encode(text) = %q, want %q", got, "hello")
	}
	if got := Encode(Text("héllo ✓")); !bytes.Equal(got, []byte("héllo ✓")) {
		t.Errorf("Encode(utf8 text) = %q", got)
	}
	got := Encode(Image(img))
	if !bytes.Equal(got, img) {
		t.Errorf("Encode(image) added framing: got %d bytes, want %d", len(got), len(img))
	}
	if !bytes.HasPrefix(got, []byte{0x89, 0x50, 0x4E, 0x47}) {
		t.Errorf("Encode(image) does not start with PNG signature: % x", got[:4])
	}
	if got := Encode(Value{}); got != nil {
		t.Errorf("Encode(zero) = %v, want nil", got)
	}
}

func TestDecode(t *testing.T) {
	img := testPNG(t)

	tests := []struct {
		name     string
		in       []byte
		wantKind Kind
		wantText string
		wantErr  error
	}{
		{name: "ascii text", in: []byte("hello"), wantKind: KindText, wantText: "hello"},
		{name: "utf8 text", in: []byte("naïve café"), wantKind: KindText, wantText: "naïve café"},
		{name: "empty payload is empty text", in: []byte{}, wantKind: KindText, wantText: ""},
		{name: "title placeholder", in: []byte("Clipboard To Dropbox dev"), wantKind: KindText, wantText: "Clipboard To Dropbox dev"},
		{name: "png image", in: img, wantKind: KindImage},
		{name: "invalid utf8", in: []byte{0xff, 0xfe, 0x00, 0x41}, wantErr: ErrDecode},
		{name: "truncated utf8 sequence", in: []byte("ok\xe2\x82"), wantErr: ErrDecode},
		{name: "png magic with garbage body", in: []byte{0x89, 'P', 'N', 'G', 1, 2, 3}, wantErr: ErrDecode},
		{name: "truncated png", in: img[:len(img)/2], wantErr: ErrDecode},
		{name: "png missing its trailer", in: img[:len(img)-1], wantErr: ErrDecode},
		{name: "png with its image data cut out", in: headerAndTrailer(img), wantErr: ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode err = %v, want %v", err, tt.wantErr)
				}
				if !v.IsZero() {
					t.Errorf("Decode returned a value alongside an error: %v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if v.Kind() != tt.wantKind {
				t.Fatalf("kind = %v, want %v", v.Kind(), tt.wantKind)
			}
			if tt.wantKind == KindText && v.Text() != tt.wantText {
				t.Errorf("text = %q, want %q", v.Text(), tt.wantText)
			}
			if tt.wantKind == KindImage && !bytes.Equal(v.Image(), tt.in) {
				t.Errorf("image bytes changed by decode")
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	img := testPNG(t)
	for _, v := range []Value{Text("hello"), Text(""), Image(img)} {
		got, err := Decode(Encode(v))
		if err != nil {
			t.Fatalf("Decode(Encode(%v)): %v", v, err)
		}
		if got.Kind() != v.Kind() || got.Text() != v.Text() || !bytes.Equal(got.Image(), v.Image()) {
			t.Errorf("round trip of %v returned %v", v, got)
		}
	}
}

func TestKind(t *testing.T) {
	if KindText.MIME() != "text/plain" || KindImage.MIME() != "image/png" || KindNone.MIME() != "" {
		t.Errorf("unexpected MIME mapping")
	}
	if Text("abc").Len() != 3 {
		t.Errorf("Len(text) = %d, want 3", Text("abc").Len())
	}
	if !(Value{}).IsZero() || Text("").IsZero() {
		t.Errorf("IsZero: zero value must be empty, empty text must not")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("hello"))
	if len(a) != 16 {
		t.Errorf("fingerprint %q is not 16 hex digits", a)
	}
	if a != Fingerprint([]byte("hello")) {
		t.Error("fingerprint not deterministic")
	}
	if a == Fingerprint([]byte("hellO")) {
		t.Error("different payloads share a fingerprint")
	}
}
