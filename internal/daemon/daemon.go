// Package daemon owns the sync controller and runs it on a single goroutine.
//
// The loop multiplexes the poll ticker, filesystem nudges, scheduled read
// retries and requests posted by the IPC server and the tray. Nothing else
// touches the controller, so its methods never run in parallel.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/cloudclip/internal/clip"
	"go.klb.dev/cloudclip/internal/codec"
	"go.klb.dev/cloudclip/internal/journal"
	"go.klb.dev/cloudclip/internal/message"
	"go.klb.dev/cloudclip/internal/notify"
	"go.klb.dev/cloudclip/internal/preview"
	"go.klb.dev/cloudclip/internal/store"
	"go.klb.dev/cloudclip/internal/syncer"
)

// DefaultInterval is the poll period.
const DefaultInterval = time.Second

// ErrStopped is returned by requests made after the loop has exited.
var ErrStopped = errors.New("daemon: stopped")

// Config holds the loop settings.
type Config struct {
	Interval time.Duration
	// Watch enables fsnotify nudges on the shared directory. Polling keeps
	// running either way; a nudge only brings the next tick forward.
	Watch   bool
	Version string
	Cloud   string
}

// History lists journal entries; *journal.Journal satisfies it.
type History interface {
	List(n int) ([]journal.Entry, error)
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithHistory enables HISTORY requests.
func WithHistory(h History) Option { return func(d *Daemon) { d.history = h } }

// WithPresenter forwards peek previews to p (the tray). Without one they are
// logged.
func WithPresenter(p syncer.Previewer) Option { return func(d *Daemon) { d.presenter = p } }

// WithSyncOptions passes extra options to the controller.
func WithSyncOptions(opts ...syncer.Option) Option {
	return func(d *Daemon) { d.syncOpts = append(d.syncOpts, opts...) }
}

// Daemon runs the sync loop.
type Daemon struct {
	cfg       Config
	st        *store.Store
	hub       *notify.Hub
	history   History
	presenter syncer.Previewer
	syncOpts  []syncer.Option
	ctrl      *syncer.Controller

	reqs    chan func()
	nudge   chan struct{}
	done    chan struct{}
	started time.Time

	// set by ShowPreview during a peek; loop goroutine only
	shown *preview.Preview
}

// New builds the daemon and its controller.
func New(cfg Config, st *store.Store, cb clip.Provider, hub *notify.Hub, opts ...Option) *Daemon {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	d := &Daemon{
		cfg:     cfg,
		st:      st,
		hub:     hub,
		reqs:    make(chan func(), 16),
		nudge:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		started: time.Now(),
	}
	for _, o := range opts {
		o(d)
	}
	base := []syncer.Option{
		syncer.WithScheduler(d),
		syncer.WithHub(hub),
		syncer.WithPreviewer(d),
	}
	if cfg.Cloud != "" {
		base = append(base, syncer.WithCloud(cfg.Cloud))
	}
	d.ctrl = syncer.New(st, cb, append(base, d.syncOpts...)...)
	return d
}

// Run starts the loop, the watcher and, when ln is non-nil, the IPC server.
// It blocks until ctx is cancelled or one of them fails.
func (d *Daemon) Run(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.loop(ctx) })
	if d.cfg.Watch {
		g.Go(func() error { return d.watch(ctx) })
	}
	if ln != nil {
		g.Go(func() error {
			<-ctx.Done()
			_ = ln.Close()
			return nil
		})
		g.Go(func() error { return d.serve(ctx, ln) })
	}

	slog.Info("cloudclip daemon started",
		"path", d.st.Path(),
		"interval", d.cfg.Interval,
		"watch", d.cfg.Watch,
		"ipc", ln != nil,
	)
	err := g.Wait()
	slog.Info("cloudclip daemon stopped")
	return err
}

func (d *Daemon) loop(ctx context.Context) error {
	defer close(d.done)
	t := time.NewTicker(d.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			d.tick()
		case <-d.nudge:
			d.tick()
		case fn := <-d.reqs:
			fn()
		}
	}
}

func (d *Daemon) tick() {
	if out := d.ctrl.Tick(); out != syncer.Unchanged {
		slog.Debug("tick", "outcome", out)
	}
}

// Nudge asks the loop for an early tick. Nudges coalesce.
func (d *Daemon) Nudge() {
	select {
	case d.nudge <- struct{}{}:
	default:
	}
}

// After implements syncer.Scheduler: fn runs on the loop once d has passed.
func (d *Daemon) After(dur time.Duration, fn func()) {
	time.AfterFunc(dur, func() {
		select {
		case d.reqs <- fn:
		case <-d.done:
		}
	})
}

// ShowPreview implements syncer.Previewer.
func (d *Daemon) ShowPreview(p preview.Preview) {
	d.shown = &p
	if d.presenter != nil {
		d.presenter.ShowPreview(p)
		return
	}
	slog.Info("clipboard preview", "summary", p.Summary())
}

// do runs fn on the loop and waits for it.
func (d *Daemon) do(ctx context.Context, fn func()) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	finished := make(chan struct{})
	select {
	case d.reqs <- func() { defer close(finished); fn() }:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	// The loop may exit with the request still queued.
	select {
	case <-finished:
		return nil
	case <-d.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Copy sends the daemon's clipboard to the channel file.
func (d *Daemon) Copy(ctx context.Context) (notify.Status, error) {
	return d.op(ctx, func() notify.Status { return d.ctrl.Copy() })
}

// CopyValue sends v to the channel file.
func (d *Daemon) CopyValue(ctx context.Context, v codec.Value) (notify.Status, error) {
	return d.op(ctx, func() notify.Status { return d.ctrl.CopyValue(v) })
}

// Paste applies the channel file to the daemon's clipboard.
func (d *Daemon) Paste(ctx context.Context) (notify.Status, error) {
	return d.op(ctx, func() notify.Status { return d.ctrl.Paste() })
}

// op runs a user-initiated operation and publishes its status.
func (d *Daemon) op(ctx context.Context, fn func() notify.Status) (notify.Status, error) {
	var st notify.Status
	if err := d.do(ctx, func() { st = fn() }); err != nil {
		return notify.Status{}, err
	}
	if st.Message != "" {
		d.hub.Publish(st)
	}
	return st, nil
}

// Peek previews the daemon's clipboard. It returns the preview that was
// shown, or the warning explaining why there was none.
func (d *Daemon) Peek(ctx context.Context) (*preview.Preview, *notify.Status, error) {
	var (
		shown *preview.Preview
		st    *notify.Status
	)
	err := d.do(ctx, func() {
		d.shown = nil
		st = d.ctrl.Peek()
		shown, d.shown = d.shown, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if st != nil {
		d.hub.Publish(*st)
	}
	return shown, st, nil
}

// State returns the status snapshot.
func (d *Daemon) State(ctx context.Context) (message.State, error) {
	var snap syncer.Snapshot
	if err := d.do(ctx, func() { snap = d.ctrl.State() }); err != nil {
		return message.State{}, err
	}
	s := message.State{
		Version:   d.cfg.Version,
		PID:       os.Getpid(),
		Cloud:     d.cfg.Cloud,
		Path:      snap.Path,
		Clipboard: snap.Clipboard,
		Armed:     snap.Armed,
		Pending:   snap.Pending,
		Attempt:   snap.Attempt,
		Last:      snap.Last.String(),
		LastAt:    snap.LastAt,
		StartedAt: d.started,
	}
	if snap.Baseline != nil {
		s.ModTime = snap.Baseline.ModTime
		s.Size = snap.Baseline.Size
	}
	if latest, ok := d.hub.Latest(); ok {
		s.Latest = message.NewResult(latest)
	}
	return s, nil
}

// watch nudges the loop whenever the channel file is touched. Sync clients
// usually replace the file, so the directory is watched rather than the file.
func (d *Daemon) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("file watcher unavailable, polling only", "err", err)
		return nil
	}
	defer w.Close()
	if err := w.Add(d.st.Dir()); err != nil {
		slog.Warn("file watcher unavailable, polling only", "dir", d.st.Dir(), "err", err)
		return nil
	}

	name := filepath.Base(d.st.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			slog.Debug("channel file event", "op", ev.Op.String())
			d.Nudge()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "err", err)
		}
	}
}
