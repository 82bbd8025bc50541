package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vietddude/tronwatch/internal/control"
	"github.com/vietddude/tronwatch/internal/core/cursor"
	"github.com/vietddude/tronwatch/internal/infra/storage/postgres"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one scheduling pass and exit",
	Long: `Selects the next blocks and hands them to the job queue, as the running
watcher does on every interval. Requires Redis, since an in-process queue
would not outlive the command.`,
	RunE: runTick,
}

var parityCmd = &cobra.Command{
	Use:   "parity <height>|clear",
	Short: "Set or clear the parity target",
	Args:  cobra.ExactArgs(1),
	RunE:  runParity,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Manage the backfill set",
}

var backfillAddCmd = &cobra.Command{
	Use:   "add <block>...",
	Short: "Queue blocks for reprocessing",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBackfillAdd,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

func init() {
	backfillCmd.AddCommand(backfillAddCmd)
	rootCmd.AddCommand(tickCmd, parityCmd, backfillCmd, migrateCmd)
}

func runTick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Redis.URL == "" {
		return errors.New("tick needs redis.url: jobs enqueued in process would be dropped on exit")
	}
	ctx := cmd.Context()

	app, err := control.NewWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	res, err := app.Tick(ctx)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Println("Scheduler lock held by another instance, nothing done")
		return nil
	}
	fmt.Printf("head=%d cursor=%d gaps=%d\n", res.Head, res.Cursor, res.Gaps)
	fmt.Printf("enqueued=%v duplicates=%v cooldown=%v failed=%v\n",
		res.Enqueued, res.Duplicates, res.CooledDown, res.Failed)
	return nil
}

// withCursor runs fn against a cursor manager on the configured storage.
func withCursor(ctx context.Context, fn func(cursor.Manager) error) error {
	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = stores.Close()
	}()
	return fn(cursor.NewManager(stores.State, cursor.DefaultLiveLag))
}

func runParity(cmd *cobra.Command, args []string) error {
	var target *uint64
	if args[0] != "clear" {
		h, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || h == 0 {
			return fmt.Errorf("invalid parity height %q", args[0])
		}
		target = &h
	}

	return withCursor(cmd.Context(), func(m cursor.Manager) error {
		if err := m.SetParityTarget(cmd.Context(), target); err != nil {
			return err
		}
		if target == nil {
			slog.Info("Parity target cleared")
		} else {
			slog.Info("Parity target set", "height", *target)
		}
		return nil
	})
}

func runBackfillAdd(cmd *cobra.Command, args []string) error {
	blocks := make([]uint64, 0, len(args))
	for _, a := range args {
		b, err := strconv.ParseUint(a, 10, 64)
		if err != nil || b == 0 {
			return fmt.Errorf("invalid block number %q", a)
		}
		blocks = append(blocks, b)
	}

	return withCursor(cmd.Context(), func(m cursor.Manager) error {
		if err := m.AddBackfill(cmd.Context(), blocks); err != nil {
			return err
		}
		slog.Info("Blocks added to backfill", "count", len(blocks))
		return nil
	})
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is not configured")
	}
	ctx := cmd.Context()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	return db.Migrate(ctx)
}
