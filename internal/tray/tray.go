// Package tray is the system tray presenter: a menu to send, paste and
// preview, a tooltip showing the last status, and an icon that follows the
// content just moved.
package tray

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/getlantern/systray"

	"go.klb.dev/cloudclip/internal/notify"
	"go.klb.dev/cloudclip/internal/preview"
)

const actionTimeout = 10 * time.Second

// Actions is what the menu drives; *daemon.Daemon satisfies it.
type Actions interface {
	Copy(ctx context.Context) (notify.Status, error)
	Paste(ctx context.Context) (notify.Status, error)
	Peek(ctx context.Context) (*preview.Preview, *notify.Status, error)
}

// update is one change to the tray's tooltip and icon.
type update struct {
	tooltip string
	icon    []byte
}

// Tray manages the system tray icon and menu.
type Tray struct {
	title   string
	cloud   string
	updates chan update
	quit    chan struct{}
}

// New returns a tray titled title ("Clipboard To Dropbox 1.2.0").
func New(title, cloud string) *Tray {
	return &Tray{
		title:   title,
		cloud:   cloud,
		updates: make(chan update, 8),
		quit:    make(chan struct{}),
	}
}

// ID implements notify.Subscriber.
func (t *Tray) ID() string { return "tray" }

// Notify implements notify.Subscriber.
func (t *Tray) Notify(st notify.Status) {
	t.push(statusUpdate(t.title, st))
}

// ShowPreview implements syncer.Previewer.
func (t *Tray) ShowPreview(p preview.Preview) {
	t.push(previewUpdate(t.title, p))
}

func (t *Tray) push(u update) {
	select {
	case t.updates <- u:
	default:
		slog.Warn("tray update channel full, dropping")
	}
}

// Run shows the tray and blocks until ctx is cancelled or the user quits.
// Menu clicks drive a. On macOS it must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context, a Actions) {
	go func() {
		select {
		case <-ctx.Done():
			systray.Quit()
		case <-t.quit:
		}
	}()
	systray.Run(func() { t.onReady(ctx, a) }, t.onExit)
}

func (t *Tray) onReady(ctx context.Context, a Actions) {
	setIcon(preview.Icon())
	systray.SetTitle("")
	systray.SetTooltip(t.title)

	labels := menuLabels(t.cloud)
	mSend := systray.AddMenuItem(labels[0], "Send the clipboard to the shared folder")
	mPaste := systray.AddMenuItem(labels[1], "Paste the shared folder into the clipboard")
	mPeek := systray.AddMenuItem(labels[2], "Show what the clipboard holds")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem(labels[3], "Exit "+t.title)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-t.updates:
				systray.SetTooltip(u.tooltip)
				if len(u.icon) > 0 {
					setIcon(u.icon)
				}
			case <-mSend.ClickedCh:
				go t.run(ctx, "send", func(ctx context.Context) error {
					_, err := a.Copy(ctx)
					return err
				})
			case <-mPaste.ClickedCh:
				go t.run(ctx, "paste", func(ctx context.Context) error {
					_, err := a.Paste(ctx)
					return err
				})
			case <-mPeek.ClickedCh:
				go t.run(ctx, "peek", func(ctx context.Context) error {
					_, _, err := a.Peek(ctx)
					return err
				})
			case <-mQuit.ClickedCh:
				slog.Info("user requested quit from system tray")
				close(t.quit)
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	slog.Info("system tray exited")
}

// run performs a menu action. Its status reaches the tray through the hub.
func (t *Tray) run(ctx context.Context, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Error("tray action failed", "action", name, "err", err)
	}
}

func menuLabels(cloud string) [4]string {
	return [4]string{
		fmt.Sprintf("Send to %s", cloud),
		fmt.Sprintf("Paste from %s", cloud),
		"Preview clipboard",
		"Quit",
	}
}

func statusUpdate(title string, st notify.Status) update {
	u := update{tooltip: title + "\n" + st.Message, icon: st.Icon}
	if st.Kind == notify.Warning {
		u.tooltip = title + "\n⚠ " + st.Message
		u.icon = preview.Icon()
	}
	return u
}

func previewUpdate(title string, p preview.Preview) update {
	return update{tooltip: title + "\n" + p.Summary(), icon: p.Image}
}

// setIcon sets PNG icon data. Windows wants ICO data; the stock icon stays
// there.
func setIcon(png []byte) {
	if runtime.GOOS == "windows" {
		return
	}
	systray.SetIcon(png)
}
