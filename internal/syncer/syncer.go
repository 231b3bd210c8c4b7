// Package syncer ties the clipboard, the channel file, the change detector and
// the echo guard together into the copy, paste and peek operations and the
// per-tick transition:
//
//	Idle → Detecting ─┬─ unchanged ───────────────→ Idle
//	                  ├─ changed, guard armed ─────→ Suppressed → Idle
//	                  └─ changed, guard clear ─────→ Pasting → Idle
//
// A Controller is not safe for concurrent use. The daemon loop owns it and
// runs every method, including scheduled retries, on one goroutine.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.klb.dev/cloudclip/internal/clip"
	"go.klb.dev/cloudclip/internal/codec"
	"go.klb.dev/cloudclip/internal/detect"
	"go.klb.dev/cloudclip/internal/journal"
	"go.klb.dev/cloudclip/internal/notify"
	"go.klb.dev/cloudclip/internal/preview"
	"go.klb.dev/cloudclip/internal/store"
)

// Outcome classifies what a tick (or a read attempt) did.
type Outcome int

const (
	Unchanged Outcome = iota
	Suppressed
	Pasted
	Duplicate // changed on disk, but the clipboard already holds the content
	Pending   // read failed transiently, retry scheduled
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Suppressed:
		return "suppressed"
	case Pasted:
		return "pasted"
	case Duplicate:
		return "duplicate"
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Scheduler runs fn after d on the goroutine that owns the Controller.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Previewer displays a clipboard preview (the peek side effect).
type Previewer interface {
	ShowPreview(p preview.Preview)
}

// Recorder persists transfers; *journal.Journal satisfies it.
type Recorder interface {
	Record(e journal.Entry) error
}

// Option configures a Controller.
type Option func(*Controller)

func WithScheduler(s Scheduler) Option { return func(c *Controller) { c.sched = s } }
func WithHub(h *notify.Hub) Option     { return func(c *Controller) { c.hub = h } }
func WithRecorder(r Recorder) Option   { return func(c *Controller) { c.rec = r } }
func WithPreviewer(p Previewer) Option { return func(c *Controller) { c.previewer = p } }

// WithCloud sets the cloud name used in status messages.
func WithCloud(name string) Option { return func(c *Controller) { c.cloud = name } }

// WithSource sets the host identifier recorded in the journal.
func WithSource(src string) Option { return func(c *Controller) { c.source = src } }

// pendingRead is a read that failed transiently and will be retried.
type pendingRead struct {
	attempt int
	manual  bool
	restore bool // put prev back as the baseline if the budget runs out
	prev    *store.Signature
}

// Controller implements the sync operations.
type Controller struct {
	clip     clip.Provider
	store    *store.Store
	detector *detect.Detector
	guard    detect.Guard

	sched     Scheduler
	hub       *notify.Hub
	rec       Recorder
	previewer Previewer
	cloud     string
	source    string

	pending *pendingRead
	last    Outcome
	lastAt  time.Time
}

// New returns a Controller for the channel file behind st. The detector's
// baseline is taken from the file as it is now.
func New(st *store.Store, cb clip.Provider, opts ...Option) *Controller {
	c := &Controller{
		clip:     cb,
		store:    st,
		detector: detect.New(st),
		sched:    afterFunc{},
		cloud:    "Dropbox",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// afterFunc schedules on a timer goroutine. It is only correct when the
// caller serializes access some other way; the daemon installs its own.
type afterFunc struct{}

func (afterFunc) After(d time.Duration, fn func()) { time.AfterFunc(d, fn) }

// Tick runs one detection cycle.
func (c *Controller) Tick() Outcome {
	if c.pending != nil {
		return Pending
	}
	change, err := c.detector.Poll()
	if err != nil {
		slog.Warn("stat channel file failed", "path", c.store.Path(), "err", err)
	}
	if change.Outcome == detect.Unchanged {
		return Unchanged
	}
	if c.guard.ConsumeIfArmed() {
		slog.Debug("echo suppressed", "path", c.store.Path())
		return c.settle(Suppressed)
	}
	out, st := c.read(&pendingRead{restore: true, prev: change.Prev})
	if out != Pending {
		c.publish(st)
	}
	return out
}

// Copy sends the local clipboard to the channel file.
func (c *Controller) Copy() notify.Status {
	v, err := clip.Read(c.clip)
	if err != nil {
		slog.Error("clipboard read failed", "err", err)
		return notify.NewWarning(fmt.Sprintf("Cannot read the clipboard: %v", err))
	}
	return c.CopyValue(v)
}

// CopyValue sends v to the channel file. The echo guard is armed only after
// the write succeeded, so a failed write never hides the next remote change.
func (c *Controller) CopyValue(v codec.Value) notify.Status {
	if v.IsZero() || v.Len() == 0 {
		return notify.NewWarning("Clipboard is empty")
	}
	data := codec.Encode(v)
	if err := c.store.Write(data); err != nil {
		slog.Error("channel write failed", "path", c.store.Path(), "err", err)
		return notify.NewWarning(fmt.Sprintf("Cannot write to %s: %v", c.cloud, err))
	}
	c.guard.Arm()
	logValue("clipboard sent", c.store.Path(), v)
	c.record(journal.Sent, v, data, false)
	return notify.NewInfo(fmt.Sprintf("%s sent to %s", title(v.Kind()), c.cloud), icon(v))
}

// Paste applies the channel file to the local clipboard on demand. It
// bypasses the echo guard and always applies. If the file is momentarily
// unavailable the read is retried on the scheduler and the final status is
// published to the hub.
func (c *Controller) Paste() notify.Status {
	if c.pending != nil {
		c.pending.manual = true
		return notify.NewWarning("Channel busy, retrying")
	}
	_, st := c.read(&pendingRead{manual: true})
	return st
}

// PasteWait is Paste for callers that may block, such as a one-shot CLI
// command with no event loop. Transient failures are retried in place.
func (c *Controller) PasteWait(ctx context.Context) notify.Status {
	data, err := c.store.Read(ctx)
	if err != nil {
		c.settle(Failed)
		return c.readFailed(err)
	}
	_, st := c.apply(data, true)
	return st
}

// Peek shows a preview of the local clipboard through the Previewer. It
// returns nil when something was shown, and a warning only when there is
// nothing to show.
func (c *Controller) Peek() *notify.Status {
	v, err := clip.Read(c.clip)
	if err != nil {
		st := notify.NewWarning(fmt.Sprintf("Cannot read the clipboard: %v", err))
		return &st
	}
	if v.IsZero() {
		st := notify.NewWarning("Clipboard is empty")
		return &st
	}
	p, err := preview.Of(v, preview.PeekWidth)
	if err != nil {
		st := notify.NewWarning(fmt.Sprintf("Cannot preview the clipboard: %v", err))
		return &st
	}
	if c.previewer != nil {
		c.previewer.ShowPreview(p)
	}
	return nil
}

// Snapshot describes the controller for status displays.
type Snapshot struct {
	Path      string
	Clipboard string
	Baseline  *store.Signature
	Armed     bool
	Pending   bool
	Attempt   int
	Last      Outcome
	LastAt    time.Time
}

// State returns a Snapshot.
func (c *Controller) State() Snapshot {
	s := Snapshot{
		Path:      c.store.Path(),
		Clipboard: c.clip.Name(),
		Baseline:  c.detector.Baseline(),
		Armed:     c.guard.Armed(),
		Last:      c.last,
		LastAt:    c.lastAt,
	}
	if c.pending != nil {
		s.Pending = true
		s.Attempt = c.pending.attempt
	}
	return s
}

// read makes one attempt at reading the channel file and applying it. On a
// transient failure with budget left it schedules the next attempt and
// returns Pending.
func (c *Controller) read(p *pendingRead) (Outcome, notify.Status) {
	p.attempt++
	data, err := c.store.ReadOnce()
	if err != nil {
		retry := c.store.Retry()
		if store.IsTransient(err) && p.attempt < retry.Attempts {
			c.pending = p
			slog.Debug("channel read failed, retrying",
				"path", c.store.Path(),
				"attempt", p.attempt,
				"err", err,
			)
			c.sched.After(retry.Backoff, c.retry)
			return Pending, notify.NewWarning("Channel busy, retrying")
		}
		c.pending = nil
		if store.IsTransient(err) {
			err = store.Exhausted(err)
			if p.restore {
				c.detector.Restore(p.prev)
			}
		}
		return c.settle(Failed), c.readFailed(err)
	}
	c.pending = nil
	return c.apply(data, p.manual)
}

// retry is the scheduled continuation of a pending read.
func (c *Controller) retry() {
	p := c.pending
	if p == nil {
		return
	}
	out, st := c.read(p)
	if out != Pending {
		c.publish(st)
	}
}

func (c *Controller) readFailed(err error) notify.Status {
	slog.Warn("channel read failed", "path", c.store.Path(), "err", err)
	if errors.Is(err, store.ErrReadExhausted) {
		return notify.NewWarning(fmt.Sprintf("The %s file stayed unreadable, will retry", c.cloud))
	}
	return notify.NewWarning(fmt.Sprintf("Cannot read the %s file: %v", c.cloud, err))
}

// apply decodes data and writes it to the clipboard. Undecodable content
// never reaches the clipboard. Automatic pastes are skipped when the
// clipboard already holds the same payload.
func (c *Controller) apply(data []byte, manual bool) (Outcome, notify.Status) {
	v, err := codec.Decode(data)
	if err != nil {
		slog.Warn("channel content rejected", "path", c.store.Path(), "size", len(data), "err", err)
		return c.settle(Failed), notify.NewWarning(fmt.Sprintf("The %s file holds neither an image nor text", c.cloud))
	}
	if !manual && c.holds(data) {
		slog.Debug("clipboard already up to date", "fingerprint", codec.Fingerprint(data))
		return c.settle(Duplicate), notify.Status{}
	}
	if err := clip.Apply(c.clip, v); err != nil {
		slog.Error("clipboard write failed", "err", err)
		return c.settle(Failed), notify.NewWarning(fmt.Sprintf("Cannot write the clipboard: %v", err))
	}
	logValue("clipboard received", c.store.Path(), v)
	c.record(journal.Received, v, data, !manual)
	return c.settle(Pasted), notify.NewInfo(fmt.Sprintf("%s pasted to the clipboard", title(v.Kind())), icon(v))
}

// holds reports whether the local clipboard already contains data.
func (c *Controller) holds(data []byte) bool {
	cur, err := clip.Read(c.clip)
	if err != nil || cur.IsZero() {
		return false
	}
	return codec.Fingerprint(codec.Encode(cur)) == codec.Fingerprint(data)
}

func (c *Controller) settle(o Outcome) Outcome {
	c.last, c.lastAt = o, time.Now()
	return o
}

func (c *Controller) publish(st notify.Status) {
	if c.hub == nil || st.Message == "" {
		return
	}
	c.hub.Publish(st)
}

func (c *Controller) record(dir journal.Direction, v codec.Value, data []byte, auto bool) {
	if c.rec == nil {
		return
	}
	e := journal.Entry{
		Direction: dir,
		Kind:      v.Kind().String(),
		Size:      len(data),
		Hash:      codec.Fingerprint(data),
		Source:    c.source,
		Auto:      auto,
	}
	if v.Kind() == codec.KindText {
		e.Preview = preview.Truncate(strings.Join(strings.Fields(v.Text()), " "), 60)
	}
	if err := c.rec.Record(e); err != nil {
		slog.Warn("journal write failed", "err", err)
	}
}

func title(k codec.Kind) string {
	if k == codec.KindImage {
		return "Image"
	}
	return "Text"
}

// icon returns the notification icon: a thumbnail for images, the default
// clipboard icon otherwise.
func icon(v codec.Value) []byte {
	if v.Kind() == codec.KindImage {
		if thumb, _, _, err := preview.Thumbnail(v.Image(), preview.IconWidth); err == nil {
			return thumb
		}
	}
	return preview.Icon()
}
