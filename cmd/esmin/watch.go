package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/esmin/pkg/analyzer/esfeatures"
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/panbanda/esmin/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and re-detect features",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Debounce duration",
			},
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "Flag changed files that need a later edition than this",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	st := getState(c)
	paths := getPaths(c)

	target := edition.Unknown
	if name := getTrailingFlag(c, "target", "t", ""); name != "" {
		t, err := edition.Parse(name)
		if err != nil {
			return err
		}
		target = t
	}

	absPath, err := filepath.Abs(paths[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	watcher, err := watch.NewWatcher(absPath, st.config, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.SetLogger(st.logger)

	analyzer := esfeatures.New(esfeatures.WithMaxFileSize(st.config.Analysis.MaxFileSize))
	defer analyzer.Close()

	// Callbacks run concurrently; the analyzer's parser is not goroutine-safe.
	var mu sync.Mutex
	w := c.App.Writer
	watcher.SetCallback(func(changed string) {
		mu.Lock()
		defer mu.Unlock()
		fr, err := analyzer.AnalyzeFile(changed)
		if err != nil {
			color.New(color.FgRed).Fprintf(w, "%s: %v\n", changed, err)
			return
		}
		reportChange(w, fr, target)
	})

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	color.Cyan("Watching %s for changes (Ctrl+C to stop)", absPath)
	err = watcher.Start(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "\nStopping watch...")
		return nil
	}
	return err
}

// reportChange prints one line per analysed file.
func reportChange(w io.Writer, fr *esfeatures.FileResult, target edition.Edition) {
	if !fr.HasFeatures() {
		fmt.Fprintf(w, "%s: %s\n", fr.Path, esfeatures.NoFeatures)
		return
	}

	line := fmt.Sprintf("%s: %s (%s)", fr.Path, fr.MinEdition, strings.Join(fr.Features.Names(), ", "))
	switch {
	case target == edition.Unknown:
		fmt.Fprintln(w, line)
	case fr.MinEdition.After(target):
		color.New(color.FgRed).Fprintf(w, "%s exceeds %s\n", line, target)
	default:
		color.New(color.FgGreen).Fprintln(w, line)
	}
}
