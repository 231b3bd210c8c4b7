// Package preview renders clipboard values for presenters: a short text
// excerpt, scaled PNG thumbnails and the default tray icon.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/draw"

	"go.klb.dev/cloudclip/internal/codec"
)

const (
	// IconWidth is the width of notification icons.
	IconWidth = 32
	// PeekWidth is the width of the image shown by peek.
	PeekWidth = 350
	// TextRunes caps text previews.
	TextRunes = 120
)

// Preview is what a presenter shows for a clipboard value.
type Preview struct {
	Kind codec.Kind
	// Text is the (possibly truncated) text, for text values.
	Text string
	// Image is a PNG thumbnail, for image values.
	Image  []byte
	Width  int
	Height int
	// Size is the full payload size in bytes.
	Size int
}

// Summary is a one-line description suitable for logs and terminals.
func (p Preview) Summary() string {
	switch p.Kind {
	case codec.KindImage:
		return fmt.Sprintf("image %dx%d (%d bytes)", p.Width, p.Height, p.Size)
	case codec.KindText:
		return fmt.Sprintf("text (%d bytes): %s", p.Size, p.Text)
	default:
		return "empty"
	}
}

// Of builds the preview of v, scaling images to width.
func Of(v codec.Value, width int) (Preview, error) {
	p := Preview{Kind: v.Kind(), Size: v.Len()}
	switch v.Kind() {
	case codec.KindText:
		p.Text = Truncate(v.Text(), TextRunes)
	case codec.KindImage:
		thumb, w, h, err := Thumbnail(v.Image(), width)
		if err != nil {
			return p, err
		}
		p.Image, p.Width, p.Height = thumb, w, h
	}
	return p, nil
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	var b strings.Builder
	i := 0
	for _, r := range s {
		if i == n {
			break
		}
		b.WriteRune(r)
		i++
	}
	return b.String() + "…"
}

// Thumbnail scales a PNG to width, keeping the aspect ratio. Images narrower
// than width are returned unchanged. It returns the PNG bytes and the
// resulting dimensions.
func Thumbnail(src []byte, width int) ([]byte, int, int, error) {
	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("preview: decode png: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= width || width <= 0 {
		return src, b.Dx(), b.Dy(), nil
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, 0, 0, fmt.Errorf("preview: encode png: %w", err)
	}
	return buf.Bytes(), width, height, nil
}

var (
	iconOnce sync.Once
	iconPNG  []byte
)

// Icon returns the default clipboard icon as a 32x32 PNG.
func Icon() []byte {
	iconOnce.Do(func() { iconPNG = drawIcon() })
	return iconPNG
}

func drawIcon() []byte {
	const n = IconWidth
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	board := color.NRGBA{R: 0x8d, G: 0x6e, B: 0x63, A: 0xff}
	paper := color.NRGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	clip := color.NRGBA{R: 0x60, G: 0x7d, B: 0x8b, A: 0xff}
	ink := color.NRGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}

	fill := func(r image.Rectangle, c color.Color) {
		draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
	}
	fill(image.Rect(5, 4, 27, 31), board)
	fill(image.Rect(8, 8, 24, 28), paper)
	fill(image.Rect(11, 2, 21, 7), clip)
	for y := 12; y <= 24; y += 4 {
		fill(image.Rect(10, y, 22, y+2), ink)
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
