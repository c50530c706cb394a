// Command svitlo is the operator CLI for the outage notifier.
//
// Usage:
//
//	svitlo check
//	svitlo check --dry-run
//	svitlo fetch
//	svitlo migrate
//	svitlo request --reason manual
//	svitlo schedule list
//	svitlo schedule show --group 1.1
//	svitlo subscribers add --user 123456 --group 1.1
//	svitlo subscribers remove --user 123456 [--group 1.1]
//	svitlo subscribers list
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/svitlo/svitlo-bot/internal/config"
	"github.com/svitlo/svitlo-bot/internal/db"
	"github.com/svitlo/svitlo-bot/internal/metrics"
	"github.com/svitlo/svitlo-bot/internal/notifications"
	"github.com/svitlo/svitlo-bot/internal/provider/loe"
	"github.com/svitlo/svitlo-bot/internal/schedule"
	"github.com/svitlo/svitlo-bot/internal/store"
)

// Logs go to stderr so command output on stdout stays pipeable.
var (
	logLevel = new(slog.LevelVar)
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "svitlo",
		Short:         "Power outage schedule notifier CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(checkCmd())
	root.AddCommand(fetchCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(requestCmd())
	root.AddCommand(scheduleCmd())
	root.AddCommand(subscribersCmd())

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logLevel.Set(cfg.LogLevel)
	return cfg, nil
}

// withBackend loads config, opens the store, and runs fn with a
// signal-aware context.
func withBackend(fn func(ctx context.Context, cfg *config.Config, b *store.Backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	return fn(ctx, cfg, b)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --------------------------------------------------------------------------
// check command
// --------------------------------------------------------------------------

func checkCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one fetch, detect, notify and commit cycle",
		Long: "Run one cycle. With --dry-run messages are logged instead of sent " +
			"and nothing is written to the store, so a later real run still sees the changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(func(ctx context.Context, cfg *config.Config, b *store.Backend) error {
				lock, closeLock, err := b.RunLock(ctx, cfg, logger)
				if err != nil {
					return fmt.Errorf("run lock: %w", err)
				}
				defer closeLock()

				var sender notifications.Sender
				if dryRun || cfg.DryRun() {
					sender = notifications.NewDryRunSender(logger)
				} else {
					tg, err := notifications.NewTelegramSender(cfg.TelegramBotToken, "", cfg.SendTimeout, logger)
					if err != nil {
						return err
					}
					sender = tg
				}

				sink := metrics.NewNoopSink()
				p := notifications.NewPipeline(notifications.Deps{
					Fetcher:    loe.NewClient(cfg.UpstreamURL, cfg.FetchTimeout, cfg.FetchRequestsPerMinute, cfg.DumpPath, logger),
					Records:    b.Store,
					Dispatcher: notifications.NewDispatcher(b.Store, sender, cfg.SendInterval, cfg.SendTimeout, sink, logger),
					Lock:       lock,
					Metrics:    sink,
				}, notifications.Policy{
					NotifyTomorrowPublished: cfg.NotifyTomorrowPublished,
					NotifyTomorrowWithdrawn: cfg.NotifyTomorrowWithdrawn,
				}, logger)
				p.ReadOnly = dryRun

				result, err := p.RunOnce(ctx)
				if errors.Is(err, notifications.ErrRunInProgress) {
					logger.Warn("Another check is running, nothing to do")
					return nil
				}
				if err != nil {
					return err
				}
				logger.Info("Check finished",
					"run_id", result.RunID,
					"dry_run", dryRun,
					"duration", result.Duration.Round(time.Millisecond),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("Check error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log messages instead of sending and skip store writes")
	return cmd
}

// --------------------------------------------------------------------------
// fetch command
// --------------------------------------------------------------------------

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the upstream schedule and print the canonical form",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client := loe.NewClient(cfg.UpstreamURL, cfg.FetchTimeout, cfg.FetchRequestsPerMinute, cfg.DumpPath, logger)
			snap, err := client.Fetch(ctx)
			if err != nil {
				return err
			}

			out := make([]schedule.GroupSchedule, 0, len(snap.Groups))
			for _, raw := range snap.Groups {
				gs, err := schedule.Normalize(raw)
				if err != nil {
					logger.Warn("Skipping malformed group", "group", raw.Label, "error", err)
					continue
				}
				out = append(out, gs)
			}
			logger.Info("Fetched", "groups", len(out), "metadata", snap.Metadata)
			return printJSON(out)
		},
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store applies its migrations.
			return withBackend(func(ctx context.Context, cfg *config.Config, b *store.Backend) error {
				logger.Info("Migrations applied", "driver", cfg.StoreDriver)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// request command
// --------------------------------------------------------------------------

func requestCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Ask running services to check now (postgres only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(func(ctx context.Context, cfg *config.Config, b *store.Backend) error {
				pg, ok := b.Store.(*db.Store)
				if !ok {
					return fmt.Errorf("request needs the %s driver, have %s", config.DriverPostgres, cfg.StoreDriver)
				}
				if err := pg.RequestCheck(ctx, reason); err != nil {
					return err
				}
				logger.Info("Check requested", "channel", db.CheckChannel, "reason", reason)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "cli", "Reason reported in service logs")
	return cmd
}

// --------------------------------------------------------------------------
// schedule command
// --------------------------------------------------------------------------

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect stored schedules",
	}
	cmd.AddCommand(scheduleListCmd())
	cmd.AddCommand(scheduleShowCmd())
	return cmd
}

func scheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stored schedule of every observed group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(func(ctx context.Context, cfg *config.Config, b *store.Backend) error {
				recs, err := b.Store.ListRecords(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "GROUP\tFINGERPRINT\tUPDATED\tOFF TODAY\tTOMORROW")
				for _, r := range recs {
					tomorrow := "-"
					if t := r.Schedule.Tomorrow; t != nil {
						tomorrow = fmt.Sprintf("%s off", t.Unavailable())
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						r.Group,
						r.Fingerprint.String()[:12],
						r.UpdatedAt.Local().Format(time.DateTime),
						r.Schedule.Today.Unavailable(),
						tomorrow)
				}
				return tw.Flush()
			})
		},
	}
}

func scheduleShowCmd() *cobra.Command {
	var group string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored schedule of one group",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := schedule.ParseGroup(group)
			if err != nil {
				return err
			}
			return withBackend(func(ctx context.Context, cfg *config.Config, b *store.Backend) error {
				rec, err := b.Store.GetRecord(ctx, g)
				if errors.Is(err, schedule.ErrRecordNotFound) {
					return fmt.Errorf("group %s has not been observed yet", g)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(rec)
				}
				// Same text subscribers receive for a first observation.
				fmt.Println(notifications.Render(notifications.ChangeSet{
					Group:            g,
					Schedule:         rec.Schedule,
					FirstObservation: true,
				}))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Group label, e.g. 1.1")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored record as JSON")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

// --------------------------------------------------------------------------
// subscribers command
// --------------------------------------------------------------------------

func subscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage group subscriptions",
	}
	cmd.AddCommand(subscribersAddCmd())
	cmd.AddCommand(subscribersRemoveCmd())
	cmd.AddCommand(subscribersListCmd())
	return cmd
}

func subscribersAddCmd() *cobra.Command {
	var userID int64
	var group string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Subscribe a Telegram user to a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := schedule.ParseGroup(group)
			if err != nil {
				return err
			}
			return withBackend(func(ctx context.Context, cfg *config.Config, b *store.Backend) error {
				if err := b.Store.AddSubscriber(ctx, userID, g); err != nil {
					return err
				}
				logger.Info("Subscribed", "user_id", userID, "group", g)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "Telegram user id")
	cmd.Flags().StringVar(&group, "group", "", "Group label, e.g. 1.1")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func subscribersRemoveCmd() *cobra.Command {
	var userID int64
	var group string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Unsubscribe a user from one group, or from all without --group",
		RunE: func(cmd *cobra.Command, args []string) error {
			var g schedule.GroupID
			if group != "" {
				parsed, err := schedule.ParseGroup(group)
				if err != nil {
					return err
				}
				g = parsed
			}
			return withBackend(func(ctx context.Context, cfg *config.Config, b *store.Backend) error {
				removed, err := b.Store.RemoveSubscriber(ctx, userID, g)
				if err != nil {
					return err
				}
				if !removed {
					logger.Warn("Nothing to remove", "user_id", userID, "group", group)
					return nil
				}
				logger.Info("Unsubscribed", "user_id", userID, "group", group)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "Telegram user id")
	cmd.Flags().StringVar(&group, "group", "", "Group label; omit to remove every subscription of the user")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func subscribersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(func(ctx context.Context, cfg *config.Config, b *store.Backend) error {
				subs, err := b.Store.ListSubscribers(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USER\tGROUP\tJOINED")
				for _, s := range subs {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", s.UserID, s.Group, s.JoinedAt.Local().Format(time.DateTime))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				logger.Info("Subscriptions", "count", len(subs), "limit_users", cfg.MaxSubscribers, "limit_groups_per_user", cfg.MaxGroupsPerUser)
				return nil
			})
		},
	}
}
