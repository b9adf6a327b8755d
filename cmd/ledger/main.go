// Command ledger inspects and maintains the SQLite run ledger written by
// associate -ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/banshee-data/voeval/internal/db"
	"github.com/banshee-data/voeval/internal/version"
)

const defaultDBPath = "voeval_runs.db"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Error: %v", err)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ledger - association run ledger

Usage: ledger [-db <path>] <command> [options]

Commands:
  runs [-limit N]     List recorded runs, newest first
  pairs <run-id>      Print the associations of one run
  migrate <action>    Manage the ledger schema (see: ledger migrate help)
  version             Show version
  help                Show this help message

Examples:
  ledger runs -limit 5
  ledger -db experiments.db pairs 3f0c2a9e-...
  ledger migrate status`)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", defaultDBPath, "Ledger database path")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		printUsage(stderr)
		return fmt.Errorf("missing command")
	}
	command, rest := fs.Arg(0), fs.Args()[1:]

	switch command {
	case "runs":
		return handleRuns(ctx, stdout, stderr, *dbPath, rest)
	case "pairs":
		return handlePairs(ctx, stdout, *dbPath, rest)
	case "migrate":
		return db.RunMigrateCommand(stdout, rest, *dbPath)
	case "version":
		fmt.Fprintln(stdout, version.String("ledger"))
		return nil
	case "help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", command)
	}
}

func handleRuns(ctx context.Context, stdout, stderr io.Writer, dbPath string, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 20, "Maximum runs to list (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ledger, err := db.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	runs, err := ledger.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tDATA DIR\tMAX DIFF\tMATCHED\tMEAN GAP\tMAX GAP")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%d/%d\t%.6f\t%.6f\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.DataDir, r.MaxDifference,
			r.AssociationCount, r.FirstCount, r.MeanGap, r.MaxGap)
	}
	return tw.Flush()
}

func handlePairs(ctx context.Context, stdout io.Writer, dbPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ledger pairs <run-id>")
	}

	ledger, err := db.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	pairs, err := ledger.RunPairs(ctx, args[0])
	if err != nil {
		return err
	}
	for _, p := range pairs {
		fmt.Fprintf(stdout, "%d %.6f %d %.6f %.6f\n",
			p.FirstIndex, p.FirstTimestamp, p.SecondIndex, p.SecondTimestamp, p.Gap)
	}
	return nil
}
