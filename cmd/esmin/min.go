package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/esmin/internal/output"
	"github.com/panbanda/esmin/pkg/analyzer/esfeatures"
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/urfave/cli/v2"
)

// Values of --empty.
const (
	emptyNone  = "none"
	emptyHide  = "hide"
	emptyError = "error"
)

func minCmd() *cli.Command {
	return &cli.Command{
		Name:      "min",
		Aliases:   []string{"edition"},
		Usage:     "Show the minimum ECMAScript edition per file and for the project",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "empty",
				Value: emptyNone,
				Usage: "Files without features: none (show as none), hide, or error (fail when the whole project has none)",
			},
		},
		Action: runMinCmd,
	}
}

// minReport is the structured output of min.
type minReport struct {
	MinEdition string         `json:"min_edition" yaml:"min_edition"`
	P50Edition string         `json:"p50_edition" yaml:"p50_edition"`
	P90Edition string         `json:"p90_edition" yaml:"p90_edition"`
	ByEdition  map[string]int `json:"by_edition" yaml:"by_edition"`
	Files      []minFile      `json:"files" yaml:"files"`
}

type minFile struct {
	Path       string `json:"path" yaml:"path"`
	MinEdition string `json:"min_edition" yaml:"min_edition"`
}

// displayEdition renders the empty policy: Unknown means no features.
func displayEdition(e edition.Edition) string {
	if e == edition.Unknown {
		return esfeatures.NoFeatures
	}
	return e.String()
}

func runMinCmd(c *cli.Context) error {
	st := getState(c)
	empty := getTrailingFlag(c, "empty", "", emptyNone)
	switch empty {
	case emptyNone, emptyHide, emptyError:
	default:
		return fmt.Errorf("invalid --empty value %q (want none, hide or error)", empty)
	}

	files, err := scanFiles(c, st)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	opts, tracker := progressOptions(c, "Computing minimum edition...", len(files))
	result, err := newAnalysisService(c, st).AnalyzeFeatures(c.Context, files, opts)
	tracker.FinishSuccess()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if empty == emptyError {
		if _, err := esfeatures.Minimum(result.Features()); err != nil {
			return err
		}
	}

	report := minReport{
		MinEdition: displayEdition(result.Summary.MinEdition),
		P50Edition: displayEdition(result.Summary.P50Edition),
		P90Edition: displayEdition(result.Summary.P90Edition),
		ByEdition:  result.Summary.ByEdition,
	}
	var rows [][]string
	for _, fr := range result.Files {
		if empty == emptyHide && !fr.HasFeatures() {
			continue
		}
		name := displayEdition(fr.MinEdition)
		report.Files = append(report.Files, minFile{Path: fr.Path, MinEdition: name})
		rows = append(rows, []string{fr.Path, name})
	}

	formatter, err := newFormatter(c, st.config)
	if err != nil {
		return err
	}
	defer formatter.Close()

	table := output.NewTable(
		"Minimum ECMAScript Edition",
		[]string{"File", "Edition"},
		rows,
		[]string{"Project", report.MinEdition},
		report,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}
	return fileErrors(errWriter(c), result.Errors)
}
