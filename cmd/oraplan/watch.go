package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/oraplan/oraplan/internal/config"
	"github.com/oraplan/oraplan/internal/lint"
)

// newWatchCmd creates the "watch" subcommand for re-rendering on config
// changes.
func newWatchCmd() *cobra.Command {
	var (
		lintOnly     bool
		debounce     time.Duration
		outputFormat string
		outputFile   string
		tagFlags     []string
	)

	cmd := &cobra.Command{
		Use:   "watch <config.yaml>",
		Short: "Re-render the plan when the configuration changes",
		Long: `Watch monitors the configuration and option document for changes and
re-renders the plan.

The watch command:
- Monitors the config file's directory for .yaml/.yml/.json changes
- Runs lint on each change
- Re-renders the plan (unless --lint-only)
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    oraplan watch deploy.yaml -o plan.json
    oraplan watch deploy.yaml --lint-only
    oraplan watch deploy.yaml --debounce 1s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(args[0], watchOptions{
				lintOnly:     lintOnly,
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
				tagFlags:     tagFlags,
			})
		},
	}

	cmd.Flags().BoolVar(&lintOnly, "lint-only", false, "Only run lint, skip the render")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for the plan: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for the plan (default: summary only)")
	cmd.Flags().StringArrayVar(&tagFlags, "tag", nil, "Mandatory tag key=value (repeatable)")

	return cmd
}

type watchOptions struct {
	lintOnly     bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
	tagFlags     []string
}

// runWatch monitors the config directory and re-renders on changes.
func runWatch(configPath string, opts watchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(absConfig)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fmt.Printf("Watching: %s\n", dir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Running initial lint/render...")
	runLintAndRender(absConfig, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Println("\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !watchedFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Debounce: reset timer on each change.
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Printf("\n[%s] Change detected, re-rendering...\n", time.Now().Format("15:04:05"))
			runLintAndRender(absConfig, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-sigChan:
			fmt.Println("\nStopping watch...")
			return nil
		}
	}
}

// watchedFile reports whether a change to this file should trigger a
// re-render. Config and option documents are YAML or JSON.
func watchedFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return !strings.HasPrefix(filepath.Base(name), ".")
	}
	return false
}

// runLintAndRender runs lint and optionally re-renders the plan.
func runLintAndRender(configPath string, opts watchOptions) {
	if !runWatchLint(configPath) {
		return
	}

	if opts.lintOnly {
		return
	}

	runWatchRender(configPath, opts)
}

// runWatchLint runs the advisory checks and returns true when the config at
// least loads. Lint issues are printed but do not block the render.
func runWatchLint(configPath string) bool {
	d, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lint error: %v\n", err)
		return false
	}

	result := lint.Check(d, lint.Options{})
	for _, issue := range result.Issues {
		fmt.Printf("%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
	}
	if result.Success {
		fmt.Println("Lint passed")
	}

	return true
}

// runWatchRender renders the plan and writes it or prints a summary.
func runWatchRender(configPath string, opts watchOptions) {
	plan, err := buildPlan(configPath, opts.tagFlags, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render error: %v\n", err)
		return
	}

	if opts.outputFile == "" {
		fmt.Printf("Render successful, %d resources\n", len(plan.Resources))
		return
	}

	if err := writePlan(plan, opts.outputFormat, opts.outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
		return
	}
	fmt.Printf("Render successful, wrote %s\n", opts.outputFile)
}
