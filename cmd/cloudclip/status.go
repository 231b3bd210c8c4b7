package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/codec"
	"go.klb.dev/cloudclip/internal/ipc"
	"go.klb.dev/cloudclip/internal/message"
	"go.klb.dev/cloudclip/internal/store"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon and channel file state",
		Long: `Displays the channel file, what it holds, and, when a daemon is running,
its echo guard, pending reads and last outcome. The daemon is reached over
the local IPC socket.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addChannelFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

// channelReport is what status can tell without a daemon.
type channelReport struct {
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Kind    string    `json:"kind,omitempty"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time,omitzero"`
	Error   string    `json:"error,omitempty"`
}

type statusReport struct {
	Transport string         `json:"transport"`
	Daemon    *message.State `json:"daemon,omitempty"`
	Channel   channelReport  `json:"channel"`
}

func runStatus(v *viper.Viper) error {
	defer quietLogging(v)()

	rep := statusReport{Transport: "standalone"}
	resp, err := callDaemon(&message.Message{Type: message.TypeStatus})
	switch {
	case err == nil:
		rep.Transport = fmt.Sprintf("ipc (%s)", ipc.SocketPath())
		rep.Daemon = resp.State
	case !errors.Is(err, errNoDaemon):
		return err
	}

	path := ""
	if rep.Daemon != nil {
		path = rep.Daemon.Path
	} else if path, err = channelPath(v); err != nil {
		return err
	}
	rep.Channel = inspectChannel(path)

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(rep, "", "  ")
		fmt.Println(string(enc))
		return nil
	}
	printStatus(os.Stdout, rep)
	return nil
}

func inspectChannel(path string) channelReport {
	r := channelReport{Path: path}
	st := store.New(path)
	sig, err := st.Stat()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.Error = err.Error()
		}
		return r
	}
	r.Exists, r.Size, r.ModTime = true, sig.Size, sig.ModTime
	data, err := st.ReadOnce()
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if val, err := codec.Decode(data); err != nil {
		r.Error = err.Error()
	} else {
		r.Kind = val.Kind().String()
	}
	return r
}

func printStatus(out io.Writer, rep statusReport) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Transport:\t%s\n", rep.Transport)
	if d := rep.Daemon; d != nil {
		fmt.Fprintf(w, "Daemon:\tpid %d, %s, up since %s\n", d.PID, d.Version, d.StartedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Clipboard:\t%s\n", d.Clipboard)
		fmt.Fprintf(w, "Echo guard:\t%s\n", armedLabel(d.Armed))
		if d.Pending {
			fmt.Fprintf(w, "Read:\tretrying (attempt %d)\n", d.Attempt)
		}
		if !d.LastAt.IsZero() {
			fmt.Fprintf(w, "Last:\t%s (%s)\n", d.Last, fmtAge(d.LastAt))
		}
		if d.Latest != nil {
			fmt.Fprintf(w, "Status:\t%s\n", d.Latest.Message)
		}
	}

	c := rep.Channel
	fmt.Fprintf(w, "Channel:\t%s\n", c.Path)
	switch {
	case !c.Exists && c.Error == "":
		fmt.Fprintf(w, "Content:\tnone yet\n")
	case c.Kind != "":
		fmt.Fprintf(w, "Content:\t%s, %d bytes, modified %s\n", c.Kind, c.Size, fmtAge(c.ModTime))
	}
	if c.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", c.Error)
	}
	_ = w.Flush()
}

func armedLabel(armed bool) string {
	if armed {
		return "armed (next change is our own write)"
	}
	return "clear"
}
