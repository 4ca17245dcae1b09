package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/billtrack/internal/pipeline"
	"github.com/ppiankov/billtrack/internal/store"
)

var (
	dryRun     bool
	fullRun    bool
	forceVotes bool
	runTimeout time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Fetch and store event history for bills whose status changed",
	Long: `History lists the session's legislation, compares each bill's latest
status with the snapshot saved by the previous run, and fetches full event
history only for bills that changed. Events are stored idempotently and the
touched bills get their status chambers re-attributed.

Example:
  billtrack history --session-code 20251 --session-id 3
  billtrack history --full
  billtrack history --dry-run -v`,
	RunE: runHistory,
}

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Ingest roll-call votes referenced by stored statuses",
	Long: `Vote resolves every vote id cited by stored bill statuses but missing
from the vote table. The session vote list is skipped when its content is
unchanged since the last run unless --force is given. Partisanship is scored
for the new votes at the end of the run.

In a dry run the in-memory store starts empty, so a history pass runs first
to find referenced votes.`,
	RunE: runVote,
}

var attributeCmd = &cobra.Command{
	Use:   "attribute",
	Short: "Re-attribute status chambers for every bill in the session",
	RunE:  runAttribute,
}

var partisanshipCmd = &cobra.Command{
	Use:   "partisanship",
	Short: "Score votes that have no partisanship score yet",
	RunE:  runPartisanship,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and indexes",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(historyCmd, voteCmd, attributeCmd, partisanshipCmd, migrateCmd)

	for _, cmd := range []*cobra.Command{historyCmd, voteCmd, attributeCmd, partisanshipCmd, migrateCmd} {
		cmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Hour, "overall run timeout")
	}
	historyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep all writes in memory")
	historyCmd.Flags().BoolVar(&fullRun, "full", false, "fetch every listed bill, ignoring the change snapshot")
	voteCmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep all writes in memory")
	voteCmd.Flags().BoolVar(&forceVotes, "force", false, "process the vote list even if unchanged since the last run")
}

// runContext is cancelled by SIGINT/SIGTERM or the --timeout flag
func runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext()
	defer cancel()

	rt, err := newRuntime(ctx, "history", dryRun)
	if err != nil {
		return err
	}
	rt.header("billtrack history")

	fmt.Fprintf(os.Stderr, "⚙️  Fetching legislation list...\n")
	res, err := rt.pipeline.RunHistory(ctx, pipeline.HistoryOptions{
		Full:          fullRun,
		RegisterBills: dryRun,
	})

	banner("History Complete",
		[2]string{"Listed", fmt.Sprint(res.Listed)},
		[2]string{"Changed", fmt.Sprint(res.Changed)},
		[2]string{"Unknown", fmt.Sprint(res.UnknownBills)},
		[2]string{"Fetched", fmt.Sprintf("%d ok, %d failed", res.Fetch.Succeeded, res.Fetch.Failed)},
		[2]string{"Stored", fmt.Sprintf("%d status rows", res.Stored)},
		[2]string{"Attributed", fmt.Sprintf("%d bills, %d rows corrected", res.Attribution.Bills, res.Attribution.Corrected)},
	)
	return rt.finish(err)
}

func runVote(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext()
	defer cancel()

	rt, err := newRuntime(ctx, "vote", dryRun)
	if err != nil {
		return err
	}
	rt.header("billtrack vote")

	if dryRun {
		fmt.Fprintf(os.Stderr, "⚙️  Seeding in-memory store with a history pass...\n")
		if _, err := rt.pipeline.RunHistory(ctx, pipeline.HistoryOptions{Full: true, RegisterBills: true}); err != nil {
			return rt.finish(fmt.Errorf("seed history: %w", err))
		}
	}

	fmt.Fprintf(os.Stderr, "⚙️  Resolving referenced votes...\n")
	res, err := rt.pipeline.RunVotes(ctx, pipeline.VoteOptions{Force: forceVotes})

	in := res.Ingest
	status := fmt.Sprintf("%d stored, %d skipped, %d failed", in.Stored, in.Skipped, in.Failed)
	if in.Unchanged {
		status = "vote list unchanged, nothing ingested"
	}
	banner("Vote Ingest Complete",
		[2]string{"Candidates", fmt.Sprint(in.Candidates)},
		[2]string{"Votes", status},
		[2]string{"Responses", fmt.Sprintf("%d stored, %d unknown members", in.Responses, in.UnknownMembers)},
		[2]string{"Corrected", fmt.Sprintf("%d committee ids cleared", in.CommitteesCleared)},
		[2]string{"Backfilled", fmt.Sprintf("%d dates", in.DatesBackfilled)},
		[2]string{"Scored", fmt.Sprint(res.Scored)},
	)
	return rt.finish(err)
}

func runAttribute(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext()
	defer cancel()

	rt, err := newRuntime(ctx, "attribute", false)
	if err != nil {
		return err
	}
	rt.header("billtrack attribute")

	res, err := rt.pipeline.RunAttribution(ctx)
	banner("Attribution Complete",
		[2]string{"Bills", fmt.Sprint(res.Bills)},
		[2]string{"Skipped", fmt.Sprintf("%d single-chamber", res.Skipped)},
		[2]string{"Failed", fmt.Sprint(res.Failed)},
		[2]string{"Corrected", fmt.Sprintf("%d rows", res.Corrected)},
	)
	return rt.finish(err)
}

func runPartisanship(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext()
	defer cancel()

	rt, err := newRuntime(ctx, "partisanship", false)
	if err != nil {
		return err
	}
	rt.header("billtrack partisanship")

	n, err := rt.pipeline.RunPartisanship(ctx)
	fmt.Fprintf(os.Stderr, "✓ Scored %d votes\n", n)
	return rt.finish(err)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext()
	defer cancel()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(db) }()

	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Schema up to date\n")
	return nil
}
