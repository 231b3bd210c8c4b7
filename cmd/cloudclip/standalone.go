package main

import (
	"log/slog"

	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/clip"
	"go.klb.dev/cloudclip/internal/syncer"
)

// standalone builds a controller for one-shot commands run without a daemon.
// The returned func releases the journal.
func standalone(v *viper.Viper, opts ...syncer.Option) (*syncer.Controller, func(), error) {
	st, err := newStore(v)
	if err != nil {
		return nil, nil, err
	}
	cloud := v.GetString("cloud")
	if err := st.Bootstrap([]byte(appTitle(cloud))); err != nil {
		return nil, nil, err
	}

	release := func() {}
	base := []syncer.Option{
		syncer.WithCloud(cloud),
		syncer.WithSource(v.GetString("source")),
	}
	if j := openJournal(v); j != nil {
		base = append(base, syncer.WithRecorder(j))
		release = func() { _ = j.Close() }
	}

	backend := clip.New()
	slog.Debug("standalone mode", "path", st.Path(), "clipboard", backend.Name())
	return syncer.New(st, backend, append(base, opts...)...), release, nil
}

// quietLogging keeps one-shot commands to warnings unless asked otherwise.
func quietLogging(v *viper.Viper) func() {
	level := v.GetString("log-level")
	if level == "" {
		level = "warn"
	}
	closeLog, err := resolveLogging(false, v.GetString("log-format"), level, v.GetString("log-file"))
	if err != nil {
		slog.Warn("logging setup failed", "err", err)
	}
	return closeLog
}
