package syncer

import (
	"context"
	"log/slog"

	"go.klb.dev/cloudclip/internal/codec"
	"go.klb.dev/cloudclip/internal/preview"
)

// logValue logs a transfer at INFO and, when debug logging is on, a
// preview of its content.
func logValue(event, path string, v codec.Value) {
	slog.Info(event, "path", path, "type", v.Kind().MIME(), "size_bytes", v.Len())

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if v.Kind() == codec.KindText {
		slog.Debug("clipboard item", "mime", v.Kind().MIME(), "preview", preview.Truncate(v.Text(), preview.TextRunes))
		return
	}
	slog.Debug("clipboard item", "mime", v.Kind().MIME(), "fingerprint", codec.Fingerprint(v.Image()))
}
