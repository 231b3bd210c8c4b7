package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/codec"
	"go.klb.dev/cloudclip/internal/message"
	"go.klb.dev/cloudclip/internal/notify"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Send the clipboard to the shared folder",
		Long: `Writes the local clipboard (an image if there is one, else text) to the
channel file. With --stdin the data comes from stdin instead (like pbcopy);
it must be UTF-8 text or a PNG image.

If a local cloudclip daemon is running the write goes through it, so that the
daemon does not paste its own write back.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runCopy(v) },
	}

	cmd.Flags().Bool("stdin", false, "read the value from stdin instead of the clipboard")
	addChannelFlags(cmd)
	addJournalFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runCopy(v *viper.Viper) error {
	defer quietLogging(v)()

	var (
		val      codec.Value
		supplied bool
	)
	if v.GetBool("stdin") {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if val, err = codec.Decode(data); err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
		supplied = true
	}

	// Try local daemon first
	req := &message.Message{Type: message.TypeCopy}
	if supplied {
		req.Items = []message.Item{message.NewItem(val)}
	}
	resp, err := callDaemon(req)
	if err == nil {
		return report(resp.Result)
	}
	if !errors.Is(err, errNoDaemon) {
		return err
	}

	ctrl, release, err := standalone(v)
	if err != nil {
		return err
	}
	defer release()

	var st notify.Status
	if supplied {
		st = ctrl.CopyValue(val)
	} else {
		st = ctrl.Copy()
	}
	return report(message.NewResult(st))
}
