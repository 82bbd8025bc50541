package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/tronwatch/internal/control"
	"github.com/vietddude/tronwatch/internal/core/cursor"
	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/backfill"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored sync state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// openStores opens the configured storage. Memory storage belongs to this
// process only, so commands run against it see an empty state.
func openStores(ctx context.Context) (*control.Stores, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	stores, err := control.OpenStores(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		return nil, err
	}
	if !stores.Persistent() {
		slog.Warn("No database configured, the state shown is not the running watcher's")
	}
	return stores, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = stores.Close()
	}()

	state, err := stores.State.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		fmt.Println("Sync state not initialized")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}
	printState(state)
	return nil
}

func printState(state *domain.SyncState) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "PHASE\t%s\n", cursor.PhaseOf(state, cursor.DefaultLiveLag))
	_, _ = fmt.Fprintf(w, "CURSOR\t%d\n", state.CursorBlock)
	_, _ = fmt.Fprintf(w, "HEAD\t%d\n", state.LastNetworkHeight)
	_, _ = fmt.Fprintf(w, "LAG\t%d\n", state.Lag())
	_, _ = fmt.Fprintf(w, "BACKFILL\t%d %v\n", len(state.Backfill), backfill.Ranges(state.Backfill))

	parity := "-"
	if state.ParityTarget != nil {
		parity = fmt.Sprint(*state.ParityTarget)
	}
	_, _ = fmt.Fprintf(w, "PARITY\t%s\n", parity)

	if e := state.LastError; e != nil {
		_, _ = fmt.Fprintf(w, "LAST ERROR\tblock %d %s: %s (%s ago)\n",
			e.Block, e.Cause, e.Message, time.Since(e.At).Round(time.Second))
	}
	_, _ = fmt.Fprintf(w, "UPDATED\t%s\n", state.UpdatedAt.Format(time.RFC3339))
	_ = w.Flush()
}
