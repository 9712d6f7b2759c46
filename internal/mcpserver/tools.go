package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/esmin/internal/output"
	"github.com/panbanda/esmin/internal/service/analysis"
	scannerSvc "github.com/panbanda/esmin/internal/service/scanner"
	"github.com/panbanda/esmin/pkg/analyzer/esfeatures"
	"github.com/panbanda/esmin/pkg/edition"
)

// AnalyzeInput is the base input for all analyze tools.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
}

// DetectInput adds inline source and location options.
type DetectInput struct {
	AnalyzeInput
	Source    string `json:"source,omitempty" jsonschema:"JavaScript source to analyze instead of paths."`
	Locations bool   `json:"locations,omitempty" jsonschema:"Include the first line and column of each feature."`
}

// MinimumInput adds inline source to the base input.
type MinimumInput struct {
	AnalyzeInput
	Source string `json:"source,omitempty" jsonschema:"JavaScript source to analyze instead of paths."`
}

// CheckInput adds the target edition.
type CheckInput struct {
	AnalyzeInput
	Target string `json:"target,omitempty" jsonschema:"Target edition such as ES2019, 2019 or ES10. Defaults to analysis.target from the config."`
}

// CatalogInput filters the catalog.
type CatalogInput struct {
	Format  string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
	Edition string `json:"edition,omitempty" jsonschema:"Only list features introduced in this edition."`
}

// Helper functions

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	switch f := output.ParseFormat(format); f {
	case output.FormatJSON, output.FormatYAML, output.FormatMarkdown:
		return f
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	if format == output.FormatMarkdown {
		out, err := output.Encode(output.FormatTOON, data)
		if err != nil {
			return "", err
		}
		return "```\n" + string(out) + "```", nil
	}
	out, err := output.Encode(format, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// analyzePaths scans and analyzes input paths with the server configuration.
func (s *Server) analyzePaths(ctx context.Context, input AnalyzeInput) (*esfeatures.Analysis, error) {
	scanResult, err := scannerSvc.New(scannerSvc.WithConfig(s.config)).ScanPaths(getPaths(input))
	if err != nil {
		return nil, err
	}
	if len(scanResult.Files) == 0 {
		return nil, errors.New("no source files found")
	}
	return analysis.New(analysis.WithConfig(s.config)).AnalyzeFeatures(ctx, scanResult.Files, analysis.FeatureOptions{})
}

func analyzeSource(src string) (*esfeatures.FileResult, error) {
	a := esfeatures.New()
	defer a.Close()
	return a.AnalyzeSource("<source>", []byte(src))
}

// Tool handlers

func (s *Server) handleDetectFeatures(ctx context.Context, req *mcp.CallToolRequest, input DetectInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.Format)

	if input.Source != "" {
		fr, err := analyzeSource(input.Source)
		if err != nil {
			return toolError(err.Error())
		}
		if !input.Locations {
			fr.Occurrences = nil
		}
		fr.Hash = ""
		return toolResult(fr, format)
	}

	result, err := s.analyzePaths(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}
	for i := range result.Files {
		result.Files[i].Hash = ""
		if !input.Locations {
			result.Files[i].Occurrences = nil
		}
	}
	return toolResult(result, format)
}

// minimumResult is the minimum_edition payload.
type minimumResult struct {
	MinEdition string         `json:"min_edition"`
	P50Edition string         `json:"p50_edition,omitempty"`
	P90Edition string         `json:"p90_edition,omitempty"`
	ByEdition  map[string]int `json:"by_edition,omitempty"`
	Features   []string       `json:"features,omitempty"`
	Files      []fileEdition  `json:"files,omitempty"`
}

type fileEdition struct {
	Path       string `json:"path"`
	MinEdition string `json:"min_edition"`
}

func editionName(e edition.Edition) string {
	if e == edition.Unknown {
		return esfeatures.NoFeatures
	}
	return e.String()
}

func (s *Server) handleMinimumEdition(ctx context.Context, req *mcp.CallToolRequest, input MinimumInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.Format)

	if input.Source != "" {
		fr, err := analyzeSource(input.Source)
		if err != nil {
			return toolError(err.Error())
		}
		return toolResult(minimumResult{
			MinEdition: editionName(fr.MinEdition),
			Features:   fr.Features.Names(),
		}, format)
	}

	result, err := s.analyzePaths(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	out := minimumResult{
		MinEdition: editionName(result.Summary.MinEdition),
		P50Edition: editionName(result.Summary.P50Edition),
		P90Edition: editionName(result.Summary.P90Edition),
		ByEdition:  result.Summary.ByEdition,
		Features:   result.Features().Names(),
	}
	for _, fr := range result.Files {
		out.Files = append(out.Files, fileEdition{Path: fr.Path, MinEdition: editionName(fr.MinEdition)})
	}
	return toolResult(out, format)
}

func (s *Server) handleCheckCompatibility(ctx context.Context, req *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.Format)

	target := edition.Unknown
	if input.Target != "" {
		t, err := edition.Parse(input.Target)
		if err != nil {
			return toolError(err.Error())
		}
		target = t
	} else {
		t, err := s.config.TargetEdition()
		if err != nil {
			return toolError(err.Error())
		}
		target = t
	}

	result, err := s.analyzePaths(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(result.Check(target), format)
}

func (s *Server) handleListCatalog(ctx context.Context, req *mcp.CallToolRequest, input CatalogInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.Format)

	entries := esfeatures.Catalog()
	if input.Edition != "" {
		e, err := edition.Parse(input.Edition)
		if err != nil {
			return toolError(err.Error())
		}
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.Edition == e {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}
	return toolResult(entries, format)
}
