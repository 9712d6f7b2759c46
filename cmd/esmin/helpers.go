package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/panbanda/esmin/internal/output"
	"github.com/panbanda/esmin/internal/progress"
	"github.com/panbanda/esmin/internal/service/analysis"
	scannerSvc "github.com/panbanda/esmin/internal/service/scanner"
	"github.com/panbanda/esmin/pkg/analyzer/esfeatures"
	"github.com/panbanda/esmin/pkg/config"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

const stateKey = "esmin"

// state is built once in setup and shared by every command.
type state struct {
	config *config.Config
	source string
	logger zerolog.Logger
}

// setup loads the configuration and builds the logger.
func setup(c *cli.Context) error {
	errw := c.App.ErrWriter
	if errw == nil {
		errw = os.Stderr
	}

	level := zerolog.WarnLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: errw, NoColor: color.NoColor}).
		Level(level).
		With().Timestamp().Logger()

	st := &state{logger: logger}
	c.App.Metadata[stateKey] = st

	// config subcommands report load errors themselves.
	if c.Args().First() == "config" {
		return nil
	}

	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return err
	}
	st.config = result.Config
	st.source = result.Source
	if st.source != "" {
		logger.Debug().Str("path", st.source).Msg("loaded config")
	}
	return nil
}

func getState(c *cli.Context) *state {
	if st, ok := c.App.Metadata[stateKey].(*state); ok && st.config != nil {
		return st
	}
	return &state{config: config.DefaultConfig(), logger: zerolog.Nop()}
}

// valueFlags take a separate value argument when written after positionals.
var valueFlags = map[string]bool{
	"format": true, "f": true,
	"output": true, "o": true,
	"config": true, "c": true,
	"target": true, "t": true,
	"edition": true, "e": true,
	"empty":    true,
	"debounce": true,
}

// getPaths returns positional args, defaulting to ["."]. Flags written
// after the first path, and their values, are skipped.
func getPaths(c *cli.Context) []string {
	var paths []string
	args := c.Args().Slice()
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			name := strings.TrimLeft(arg, "-")
			if !strings.Contains(name, "=") && valueFlags[name] {
				i++
			}
			continue
		}
		paths = append(paths, arg)
	}
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

// getTrailingFlag returns a string flag value, also looking at args after
// the first positional, which urfave/cli leaves unparsed.
func getTrailingFlag(c *cli.Context, name, short, defaultValue string) string {
	args := c.Args().Slice()
	for i, arg := range args {
		for _, prefix := range flagPrefixes(name, short) {
			if arg == prefix && i+1 < len(args) {
				return args[i+1]
			}
			if v, ok := strings.CutPrefix(arg, prefix+"="); ok {
				return v
			}
		}
	}
	if v := c.String(name); v != "" {
		return v
	}
	return defaultValue
}

// getTrailingBool is getTrailingFlag for boolean flags.
func getTrailingBool(c *cli.Context, name, short string) bool {
	if c.Bool(name) {
		return true
	}
	for _, arg := range c.Args().Slice() {
		for _, prefix := range flagPrefixes(name, short) {
			if arg == prefix || arg == prefix+"=true" {
				return true
			}
		}
	}
	return false
}

func flagPrefixes(name, short string) []string {
	prefixes := []string{"--" + name}
	if short != "" {
		prefixes = append(prefixes, "-"+short)
	}
	return prefixes
}

// newFormatter builds the output formatter from the global flags, falling
// back to the config output section.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(getTrailingFlag(c, "format", "f", cfg.Output.Format))
	colored := cfg.Output.Color && !color.NoColor

	if path := getTrailingFlag(c, "output", "o", ""); path != "" {
		return output.NewFormatter(format, path, false)
	}
	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	return output.NewWriterFormatter(format, w, colored), nil
}

// scanFiles resolves the command paths to source files.
func scanFiles(c *cli.Context, st *state) ([]string, error) {
	result, err := scannerSvc.New(scannerSvc.WithConfig(st.config)).ScanPaths(getPaths(c))
	if err != nil {
		return nil, err
	}
	st.logger.Debug().Strs("paths", result.Paths).Int("files", len(result.Files)).Msg("scanned")
	return result.Files, nil
}

func newAnalysisService(c *cli.Context, st *state) *analysis.Service {
	opts := []analysis.Option{
		analysis.WithConfig(st.config),
		analysis.WithLogger(st.logger),
	}
	if c.Bool("no-cache") {
		opts = append(opts, analysis.WithoutCache())
	}
	return analysis.New(opts...)
}

// progressOptions shows a progress bar while analysing when stderr is a
// terminal.
func progressOptions(c *cli.Context, label string, total int) (analysis.FeatureOptions, *progress.Tracker) {
	if c.App.ErrWriter != os.Stderr || !isatty.IsTerminal(os.Stderr.Fd()) {
		return analysis.FeatureOptions{}, nil
	}
	tracker := progress.NewTracker(label, total)
	return analysis.FeatureOptions{OnProgress: tracker.Callback()}, tracker
}

// fileErrors turns per-file failures into a terminal error after results
// have been written.
func fileErrors(w io.Writer, errs []esfeatures.FileError) error {
	if len(errs) == 0 {
		return nil
	}
	for _, fe := range errs {
		fmt.Fprintf(w, "%s: %s\n", fe.Path, fe.Error)
	}
	return fmt.Errorf("%d file(s) could not be analyzed", len(errs))
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
