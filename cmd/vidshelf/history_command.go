package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"vidshelf/internal/journal"
)

const sessionPrefixLen = 8

type historyEntry struct {
	ID         int64           `json:"id"`
	SessionID  string          `json:"session_id"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
	ReceivedAt time.Time       `json:"received_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var name string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show notifications recorded by the watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}
			if _, err := os.Stat(cfg.JournalPath()); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "No journal at %s yet; run `vidshelf watch` to start recording.\n", cfg.JournalPath())
				return nil
			}

			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), journal.Filter{Name: name, Limit: limit})
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]historyEntry, 0, len(entries))
				for _, e := range entries {
					out = append(out, historyEntry{
						ID:         e.ID,
						SessionID:  e.SessionID,
						Name:       e.Name,
						Parameters: e.Parameters,
						ReceivedAt: e.ReceivedAt.UTC(),
					})
				}
				return writeJSON(cmd, out)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistoryTable(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Only show notifications with this name")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderHistoryTable(entries []journal.Entry) string {
	columns := []columnSpec{
		{header: "ID", align: text.AlignRight},
		{header: "Received"},
		{header: "Session"},
		{header: "Notification"},
		{header: "Parameters", maxWidth: 60},
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		session := e.SessionID
		if len(session) > sessionPrefixLen {
			session = session[:sessionPrefixLen]
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			session,
			displayName(e.Name),
			compactJSON(e.Parameters),
		})
	}
	return renderTable(columns, rows)
}
