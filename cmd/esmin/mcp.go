package main

import (
	"fmt"

	"github.com/panbanda/esmin/internal/mcpserver"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes esmin's feature
detection as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "esmin": {
        "command": "esmin",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - detect_features       ECMAScript features used per file or snippet
  - minimum_edition       Minimum edition for files or a snippet
  - check_compatibility   Files that need a later edition than a target
  - list_catalog          Every detectable feature and its edition`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest (server.json)",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	st := getState(c)
	server := mcpserver.NewServer(version, mcpserver.WithConfig(st.config))
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
