package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/codec"
	"go.klb.dev/cloudclip/internal/message"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Paste the shared folder into the clipboard",
		Long: `Reads the channel file and puts its content on the local clipboard,
whether or not it changed. With --stdout the content is printed instead
(like pbpaste); an image comes out as PNG bytes:

  cloudclip paste --stdout > screenshot.png`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd.Context(), v) },
	}

	cmd.Flags().Bool("stdout", false, "print the content instead of pasting it")
	addChannelFlags(cmd)
	addJournalFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPaste(ctx context.Context, v *viper.Viper) error {
	defer quietLogging(v)()

	if v.GetBool("stdout") {
		return pasteToStdout(ctx, v)
	}

	resp, err := callDaemon(&message.Message{Type: message.TypePaste})
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
	return report(message.NewResult(ctrl.PasteWait(ctx)))
}

// pasteToStdout needs no daemon: it only reads the shared file.
func pasteToStdout(ctx context.Context, v *viper.Viper) error {
	st, err := newStore(v)
	if err != nil {
		return err
	}
	data, err := st.Read(ctx)
	if err != nil {
		return err
	}
	if _, err := codec.Decode(data); err != nil {
		return fmt.Errorf("%s: %w", st.Path(), err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
