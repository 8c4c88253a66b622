package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mattjoyce/excbridge/internal/config"
	"github.com/mattjoyce/excbridge/internal/inspect"
	"github.com/mattjoyce/excbridge/internal/storage"
)

// runInspect prints a summary of the lifecycle journal. It reads the
// database directly, so the bridge does not need to be running.
func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	journalPath := fs.String("journal", "", "Journal database (default events.journal_path)")
	app := fs.String("app", "", "Only report this application name")
	transitions := fs.Int("transitions", 10, "Latest transitions to show per application")
	jsonOut := fs.Bool("json", false, "Output report in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path := *journalPath
	if path == "" {
		cfg, err := config.Load(resolveConfigFlag(*configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			return 1
		}
		if cfg.Events.JournalPath == "" {
			fmt.Fprintln(os.Stderr, "No journal configured: set events.journal_path or pass --journal")
			return 1
		}
		path = cfg.Events.JournalPath
	}
	// OpenSQLite would create an empty database.
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "Journal not found: %v\n", err)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open journal: %v\n", err)
		return 1
	}
	defer db.Close()

	opts := inspect.Options{App: *app, Transitions: *transitions}
	var report string
	if *jsonOut {
		report, err = inspect.BuildJSONReport(ctx, db, path, opts)
	} else {
		report, err = inspect.BuildReport(ctx, db, path, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inspect failed: %v\n", err)
		return 1
	}

	fmt.Print(report)
	if *jsonOut {
		fmt.Println()
	}
	return 0
}

func printInspectHelp() {
	fmt.Println("Usage: excbridge inspect [flags]")
	fmt.Println()
	fmt.Println("Summarize the lifecycle journal: hook counts and recent state transitions.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --config <path>     Configuration file or directory")
	fmt.Println("  --journal <path>    Journal database (default events.journal_path)")
	fmt.Println("  --app <name>        Only report this application name")
	fmt.Println("  --transitions <n>   Latest transitions per application (default 10)")
	fmt.Println("  --json              Output report in JSON")
}
