package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/esmin/internal/output"
	"github.com/urfave/cli/v2"
)

func featuresCmd() *cli.Command {
	return &cli.Command{
		Name:      "features",
		Aliases:   []string{"ft"},
		Usage:     "List the ECMAScript features each file uses",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "locations",
				Aliases: []string{"l"},
				Usage:   "Show where each feature first occurs",
			},
		},
		Action: runFeaturesCmd,
	}
}

func runFeaturesCmd(c *cli.Context) error {
	st := getState(c)
	locations := getTrailingBool(c, "locations", "l")

	files, err := scanFiles(c, st)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	opts, tracker := progressOptions(c, "Detecting features...", len(files))
	result, err := newAnalysisService(c, st).AnalyzeFeatures(c.Context, files, opts)
	tracker.FinishSuccess()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	formatter, err := newFormatter(c, st.config)
	if err != nil {
		return err
	}
	defer formatter.Close()

	for i := range result.Files {
		result.Files[i].Hash = ""
		if !locations {
			result.Files[i].Occurrences = nil
		}
	}

	var table *output.Table
	if locations {
		var rows [][]string
		for _, fr := range result.Files {
			for _, o := range fr.Occurrences {
				rows = append(rows, []string{
					fr.Path,
					o.Feature.String(),
					o.Edition().String(),
					fmt.Sprintf("%d:%d", o.Line, o.Column),
				})
			}
		}
		table = output.NewTable(
			"Feature Occurrences",
			[]string{"File", "Feature", "Edition", "Location"},
			rows,
			[]string{"Files", fmt.Sprintf("%d", len(result.Files)), "", ""},
			result,
		)
	} else {
		var rows [][]string
		for _, fr := range result.Files {
			if !fr.HasFeatures() {
				continue
			}
			rows = append(rows, []string{
				fr.Path,
				fr.MinEdition.String(),
				strings.Join(fr.Features.Names(), ", "),
			})
		}
		table = output.NewTable(
			"ECMAScript Features",
			[]string{"File", "Min Edition", "Features"},
			rows,
			[]string{"Files", fmt.Sprintf("%d", len(result.Files)), fmt.Sprintf("%d with features", result.Summary.FilesWithFeatures)},
			result,
		)
	}

	if err := formatter.Output(table); err != nil {
		return err
	}
	return fileErrors(errWriter(c), result.Errors)
}
