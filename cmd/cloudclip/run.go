package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/clip"
	"go.klb.dev/cloudclip/internal/daemon"
	"go.klb.dev/cloudclip/internal/ipc"
	"go.klb.dev/cloudclip/internal/notify"
	"go.klb.dev/cloudclip/internal/syncer"
	"go.klb.dev/cloudclip/internal/tray"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the shared folder and sync the local clipboard",
		Long: `Starts the cloudclip daemon. It polls the channel file in the shared folder
and pastes every remote change into the local clipboard. Copies made through
"cloudclip copy", the tray menu or the IPC socket are written to the folder
for the other machines.

Config file search order:
  /etc/cloudclip/cloudclip.toml
  $HOME/.config/cloudclip/cloudclip.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLOUDCLIP_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runDaemon(v) },
	}

	f := cmd.Flags()
	f.Duration("interval", daemon.DefaultInterval, "poll interval")
	f.Bool("no-watch", false, "disable filesystem notifications (poll only)")
	f.Bool("tray", false, "show a system tray icon")
	addChannelFlags(cmd)
	addJournalFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(v *viper.Viper) error {
	closeLog, err := setupLogging(v)
	if err != nil {
		return err
	}
	defer closeLog()

	interval, err := intervalOf(v)
	if err != nil {
		return err
	}
	st, err := newStore(v)
	if err != nil {
		return err
	}
	cloud := v.GetString("cloud")
	title := appTitle(cloud)

	if err := st.Bootstrap([]byte(title)); err != nil {
		slog.Error("cannot prepare the shared folder", "err", err)
		return err
	}

	ln, err := ipc.Listen()
	switch {
	case errors.Is(err, ipc.ErrRunning):
		return fmt.Errorf("%w (socket %s)", err, ipc.SocketPath())
	case err != nil:
		slog.Warn("IPC socket unavailable", "err", err)
		ln = nil
	default:
		slog.Info("IPC socket listening", "path", ipc.SocketPath())
	}

	hub := notify.New()
	hub.Register(notify.Logger{})

	syncOpts := []syncer.Option{syncer.WithSource(v.GetString("source"))}
	opts := []daemon.Option{}
	if j := openJournal(v); j != nil {
		defer j.Close()
		syncOpts = append(syncOpts, syncer.WithRecorder(j))
		opts = append(opts, daemon.WithHistory(j))
	}

	var tr *tray.Tray
	if v.GetBool("tray") {
		tr = tray.New(title, cloud)
		hub.Register(tr)
		opts = append(opts, daemon.WithPresenter(tr))
	}
	opts = append(opts, daemon.WithSyncOptions(syncOpts...))

	backend := clip.New()
	slog.Info("cloudclip starting",
		"version", Version,
		"path", st.Path(),
		"clipboard", backend.Name(),
		"interval", interval,
	)

	d := daemon.New(daemon.Config{
		Interval: interval,
		Watch:    !v.GetBool("no-watch"),
		Version:  Version,
		Cloud:    cloud,
	}, st, backend, hub, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if tr == nil {
		return d.Run(ctx, ln)
	}

	// The tray owns the main goroutine; the daemon runs beside it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- d.Run(ctx, ln)
		cancel()
	}()
	tr.Run(ctx, d)
	// The daemon may still publish while it winds down.
	hub.Unregister(tr)
	cancel()
	return <-errc
}
