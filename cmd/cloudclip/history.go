package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cloudclip/internal/journal"
	"go.klb.dev/cloudclip/internal/message"
)

func newHistoryCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transfers",
		Long: `Lists values this machine sent to or received from the shared folder,
newest first. The journal is local; other machines keep their own.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runHistory(v) },
	}

	cmd.Flags().Int("limit", 20, "entries to show (0 = all)")
	cmd.Flags().Bool("json", false, "output raw JSON")
	addJournalFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runHistory(v *viper.Viper) error {
	defer quietLogging(v)()
	limit := v.GetInt("limit")

	var entries []journal.Entry
	resp, err := callDaemon(&message.Message{Type: message.TypeHistory, Limit: limit})
	switch {
	case err == nil:
		entries = resp.Entries
	case errors.Is(err, errNoDaemon):
		// The daemon holds the database lock while it runs.
		path, ok, err := journalPath(v)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("journal is off")
		}
		j, err := journal.Open(path, 0)
		if err != nil {
			return err
		}
		defer j.Close()
		if entries, err = j.List(limit); err != nil {
			return err
		}
	default:
		return err
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(enc))
		return nil
	}
	printHistory(os.Stdout, entries)
	return nil
}

func printHistory(out io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No transfers recorded.")
		return
	}
	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "WHEN\tDIRECTION\tKIND\tSIZE\tSOURCE\tPREVIEW\n")
	_, _ = fmt.Fprintf(tw, "----\t---------\t----\t----\t------\t-------\n")
	for _, e := range entries {
		dir := string(e.Direction)
		if e.Auto {
			dir += " (auto)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			fmtAge(e.Time), dir, e.Kind, e.Size, e.Source, e.Preview)
	}
	_ = tw.Flush()
}
