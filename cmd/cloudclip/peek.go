package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/message"
	"go.klb.dev/cloudclip/internal/preview"
	"go.klb.dev/cloudclip/internal/syncer"
)

func newPeekCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Preview what the local clipboard holds",
		Long: `Shows the start of the clipboard text, or the size of the clipboard image,
without sending anything. With a daemon running in tray mode the preview also
appears on the tray icon.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runPeek(v) },
	}

	addChannelFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPeek(v *viper.Viper) error {
	defer quietLogging(v)()

	resp, err := callDaemon(&message.Message{Type: message.TypePeek})
	if err == nil {
		if resp.Preview != nil {
			printPreview(os.Stdout, resp.Preview)
		}
		return report(resp.Result)
	}
	if !errors.Is(err, errNoDaemon) {
		return err
	}

	// Peek never touches the journal.
	v.Set("journal", "off")
	ctrl, release, err := standalone(v, syncer.WithPreviewer(terminal{w: os.Stdout}))
	if err != nil {
		return err
	}
	defer release()
	if st := ctrl.Peek(); st != nil {
		return report(message.NewResult(*st))
	}
	return nil
}

// terminal prints previews.
type terminal struct{ w io.Writer }

func (t terminal) ShowPreview(p preview.Preview) {
	printPreview(t.w, message.NewPreview(p))
}

func printPreview(w io.Writer, p *message.Preview) {
	switch p.Kind {
	case "image":
		fmt.Fprintf(w, "image, %d bytes (preview %dx%d)\n", p.Size, p.Width, p.Height)
	default:
		fmt.Fprintf(w, "text, %d bytes:\n%s\n", p.Size, p.Text)
	}
}
