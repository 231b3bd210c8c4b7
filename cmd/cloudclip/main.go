// cloudclip: share the clipboard between machines through a cloud-synced
// folder.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/cloudclip/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "cloudclip",
		Short: "Clipboard sharing through a cloud-synced folder",
		Long: `cloudclip shares the clipboard between machines that sync the same folder
(Dropbox, OneDrive, Google Drive, ...). No server, no account: a single file
in the shared folder carries the last copied text or image.

Run "cloudclip run" on each machine. "Send" writes the clipboard into the
folder; every other machine notices the change and pastes it automatically.

Config file search order (first found wins):
  /etc/cloudclip/cloudclip.toml
  $HOME/.config/cloudclip/cloudclip.toml
  path supplied via --config

All flags can be set via CLOUDCLIP_<FLAG> env vars or config-file keys.
See "cloudclip run --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newPeekCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("cloudclip %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr, logFile string) (func(), error) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	return logging.Setup(format, level, logFile)
}
