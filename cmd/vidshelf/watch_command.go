package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vidshelf/internal/journal"
	"vidshelf/internal/logging"
	"vidshelf/internal/rpc"
)

const pruneInterval = time.Hour

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var names []string
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and print backend notifications as they arrive",
		Long: `Stay connected to the backend, reconnecting with backoff when the
connection drops, and print notifications as they arrive. Unless disabled,
every notification is also recorded in the local journal; only one watcher
may own the journal at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			opts, err := ctx.sessionOptions()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printer := newNotificationPrinter(out, names, shouldColorize(out))

			var store *journal.Store
			if cfg.Journal.Enabled && !noJournal {
				lock := flock.New(cfg.LockPath())
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire watch lock: %w", err)
				}
				if !ok {
					return fmt.Errorf("another vidshelf watcher already owns the journal (lock %s); pass --no-journal to watch without recording", cfg.LockPath())
				}
				defer func() {
					if err := lock.Unlock(); err != nil {
						logging.WarnWithContext(logger, "failed to release watch lock", "watch_lock_release_failed",
							logging.Error(err),
							logging.String(logging.FieldImpact, "the next watcher may report a stale lock"),
							logging.String(logging.FieldErrorHint, "remove "+cfg.LockPath()+" if no watcher is running"))
					}
				}()

				store, err = journal.Open(cfg.JournalPath())
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer store.Close()
			}

			sup := rpc.NewSupervisor(rpc.SupervisorOptions{
				Session:     opts,
				Backoff:     ctx.backoff(),
				MaxAttempts: cfg.Reconnect.MaxAttempts,
				OnOpen: func(s *rpc.Session) {
					printer.status(statusOK, "connected to "+s.Endpoint().URL())
				},
				OnClose: func(err error) {
					printer.reset()
					printer.status(statusWarn, "connection lost: "+err.Error())
				},
				Logger: logger,
			})
			router := sup.Session().Router()
			if store != nil {
				router.Register(journal.Recorder(store, sup.Session().ID(), logger))
			}
			router.Register(printer.print)

			group, groupCtx := errgroup.WithContext(cmd.Context())
			group.Go(func() error {
				return sup.Run(groupCtx)
			})
			if store != nil && cfg.JournalRetention() > 0 {
				group.Go(func() error {
					return pruneJournal(groupCtx, store, cfg.JournalRetention(), logger)
				})
			}

			printer.status(statusInfo, "watching "+opts.Endpoint.URL())
			err = group.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&names, "name", nil, "Only print notifications with these names (repeatable)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not record notifications in the journal")
	return cmd
}

// pruneJournal trims entries older than retention now and then hourly until
// ctx ends.
func pruneJournal(ctx context.Context, store *journal.Store, retention time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		removed, err := store.Prune(ctx, time.Now().Add(-retention))
		switch {
		case err != nil && ctx.Err() == nil:
			logging.WarnWithContext(logger, "journal prune failed", "journal_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "old notifications remain in history"),
				logging.String(logging.FieldErrorHint, "check the journal database at "+store.Path()))
		case removed > 0:
			logger.Info("pruned journal", logging.Int64("removed", removed))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type notificationPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	filter   map[string]struct{}
	colorize bool
	sampler  *logging.ProgressSampler
}

func newNotificationPrinter(out io.Writer, names []string, colorize bool) *notificationPrinter {
	p := &notificationPrinter{
		out:      out,
		colorize: colorize,
		sampler:  logging.NewProgressSampler(10),
	}
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			if p.filter == nil {
				p.filter = make(map[string]struct{})
			}
			p.filter[name] = struct{}{}
		}
	}
	return p
}

type progressParams struct {
	Task    string   `json:"task"`
	Percent *float64 `json:"percent"`
}

func (p *notificationPrinter) print(n rpc.Notification) {
	if p.filter != nil {
		if _, ok := p.filter[n.Name]; !ok {
			return
		}
	}
	if strings.HasSuffix(n.Name, "_progress") {
		var progress progressParams
		if err := json.Unmarshal(n.Parameters, &progress); err == nil && progress.Percent != nil {
			if !p.sampler.ShouldEmit(n.Name, progress.Task, *progress.Percent) {
				return
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s  %-20s %s\n", time.Now().Format("15:04:05"), displayName(n.Name), compactJSON(n.Parameters))
}

func (p *notificationPrinter) status(kind statusKind, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, renderStatusLine("backend", kind, message, p.colorize))
}

func (p *notificationPrinter) reset() {
	p.sampler.Reset()
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
