package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/logging"
	"go.klb.dev/cloudclip/internal/store"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLOUDCLIP_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLOUDCLIP_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("cloudclip")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/cloudclip/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/cloudclip", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLOUDCLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
	cmd.Flags().String("log-file", "", "also append logs to this file")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addChannelFlags adds the flags locating the channel file.
func addChannelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("cloud", defaultCloud, "name of the cloud service; also the folder under $HOME")
	f.String("dir", "", "shared directory (default $HOME/<cloud>/.ClipboardToCloud)")
	f.String("file", defaultFile, "channel file name inside the shared directory")
	f.Int("read-retries", store.DefaultAttempts, "read attempts while the sync client holds the file")
	f.Duration("read-backoff", store.DefaultBackoff, "pause between read attempts")
	f.String("source", defaultSource(), "name for this host in the journal")
}

// addJournalFlags adds the transfer journal flags.
func addJournalFlags(cmd *cobra.Command) {
	cmd.Flags().String("journal", "", `transfer journal (default <config dir>/cloudclip/journal.db, "off" disables)`)
	cmd.Flags().Int("history-size", 200, "journal entries to keep (0 = unlimited)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) (func(), error) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	return resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"), v.GetString("log-file"))
}

// retryOf reads the read retry budget.
func retryOf(v *viper.Viper) store.Retry {
	return store.Retry{
		Attempts: v.GetInt("read-retries"),
		Backoff:  v.GetDuration("read-backoff"),
	}
}

// intervalOf reads the poll interval, refusing nonsense.
func intervalOf(v *viper.Viper) (time.Duration, error) {
	d := v.GetDuration("interval")
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}
