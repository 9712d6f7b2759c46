package mcpserver

import (
	"encoding/json"
)

// Manifest represents the MCP server manifest (server.json) format.
// Uses schema version 2025-10-17.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

// Repository contains source repository information.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes how to install and run the server.
type Package struct {
	RegistryType     string     `json:"registryType"`
	Identifier       string     `json:"identifier"`
	Version          string     `json:"version,omitempty"`
	PackageArguments []Argument `json:"packageArguments,omitempty"`
	Transport        Transport  `json:"transport"`
}

// Argument represents a command-line argument.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Transport describes the communication method.
type Transport struct {
	Type string `json:"type"`
}

const repoURL = "https://github.com/panbanda/esmin"

// GenerateManifest creates the MCP server manifest JSON.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	stdio := Transport{Type: "stdio"}
	mcpArg := []Argument{{Type: "positional", Value: "mcp"}}

	manifest := Manifest{
		Schema:      "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json",
		Name:        "io.github.panbanda/esmin",
		Description: "Detect the ECMAScript features JavaScript uses and the minimum edition it needs",
		Version:     version,
		Repository:  &Repository{URL: repoURL, Source: "github"},
		Packages: []Package{
			{
				RegistryType:     "oci",
				Identifier:       "ghcr.io/panbanda/esmin:" + version,
				PackageArguments: mcpArg,
				Transport:        stdio,
			},
			{
				RegistryType:     "go",
				Identifier:       "github.com/panbanda/esmin/cmd/esmin",
				Version:          version,
				PackageArguments: mcpArg,
				Transport:        stdio,
			},
		},
	}

	return json.MarshalIndent(manifest, "", "  ")
}
