package main

import (
	"fmt"

	"github.com/panbanda/esmin/internal/output"
	"github.com/panbanda/esmin/pkg/analyzer/esfeatures"
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/urfave/cli/v2"
)

func catalogCmd() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "List every detectable feature with its edition",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "edition",
				Aliases: []string{"e"},
				Usage:   "Only list features introduced in this edition",
			},
		},
		Action: runCatalogCmd,
	}
}

func runCatalogCmd(c *cli.Context) error {
	st := getState(c)

	entries := esfeatures.Catalog()
	if name := getTrailingFlag(c, "edition", "e", ""); name != "" {
		e, err := edition.Parse(name)
		if err != nil {
			return err
		}
		filtered := []esfeatures.CatalogEntry{}
		for _, entry := range entries {
			if entry.Edition == e {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{entry.Feature.String(), entry.Edition.String(), entry.Description})
	}

	formatter, err := newFormatter(c, st.config)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewTable(
		"ECMAScript Feature Catalog",
		[]string{"Feature", "Edition", "Description"},
		rows,
		[]string{"Total", fmt.Sprintf("%d", len(entries)), ""},
		entries,
	))
}
