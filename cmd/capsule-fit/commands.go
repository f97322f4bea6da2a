package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/banshee-data/capsulefit/internal/store"
)

const migrateUsage = `usage: capsule-fit migrate <status|up|down> -db <path>`

// runMigrate handles the 'migrate' subcommand. Opening the store applies
// pending migrations, so "up" only reports the resulting version.
func runMigrate(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		return errors.New(migrateUsage)
	}
	action := args[0]
	fs := flag.NewFlagSet("capsule-fit migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "SQLite database path")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New(migrateUsage)
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action {
	case "up", "status":
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migrate action %q\n%s", action, migrateUsage)
	}

	v, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	latest, err := store.LatestMigration()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "version %d of %d", v, latest)
	if dirty {
		fmt.Fprint(stdout, " (dirty)")
	}
	fmt.Fprintln(stdout)
	return nil
}

// runRuns handles the 'runs' subcommand: list recorded fits, show one with
// its iteration history, or delete one.
func runRuns(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("capsule-fit runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "SQLite database path")
	limit := fs.Int("limit", 20, "Maximum runs to list")
	show := fs.String("show", "", "Print one run and its iteration history")
	del := fs.String("delete", "", "Delete one run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("usage: capsule-fit runs -db <path> [-limit n | -show id | -delete id]")
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	fits := store.NewFitStore(db.DB)

	switch {
	case *del != "":
		if err := fits.Delete(*del); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %s\n", *del)
		return nil
	case *show != "":
		run, err := fits.Get(*show)
		if err != nil {
			return err
		}
		history, err := fits.Iterations(*show)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %s %s volume=%g -> %g\n", run.RunID, run.Solver, run.Status, run.InitVolume, run.SolutionVolume)
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "OUTER\tOBJECTIVE\tVIOLATION\tPENALTY\tINNER")
		for _, it := range history {
			fmt.Fprintf(tw, "%d\t%g\t%g\t%g\t%d\n", it.Outer, it.Objective, it.MaxViolation, it.Penalty, it.InnerIters)
		}
		return tw.Flush()
	}

	runs, err := fits.List(*limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tLABEL\tSOLVER\tSTATUS\tPOINTS\tVOLUME")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%g\n", r.RunID, r.Label, r.Solver, r.Status, r.PointCount, r.SolutionVolume)
	}
	return tw.Flush()
}
