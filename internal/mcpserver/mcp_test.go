package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/esmin/internal/output"
	"github.com/panbanda/esmin/internal/testutil"
	"github.com/panbanda/esmin/pkg/analyzer/esfeatures"
	"github.com/panbanda/esmin/pkg/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	return NewServer("1.0.0-test", WithConfig(cfg))
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("nil result")
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected *mcp.TextContent, got %T", result.Content[0])
	}
	return text.Text
}

// TestServerCreation verifies the MCP server can be created without panicking.
func TestServerCreation(t *testing.T) {
	server := testServer(t)
	if server.server == nil {
		t.Fatal("NewServer().server is nil")
	}
	if server.config == nil {
		t.Fatal("NewServer().config is nil")
	}
}

// TestServerCreationEmptyVersion verifies empty version defaults to "dev".
func TestServerCreationEmptyVersion(t *testing.T) {
	if NewServer("") == nil {
		t.Fatal("NewServer(\"\") returned nil")
	}
}

func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"detect_features":     describeDetectFeatures,
		"minimum_edition":     describeMinimumEdition,
		"check_compatibility": describeCheckCompatibility,
		"list_catalog":        describeListCatalog,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s section", name, section)
				}
			}
		})
	}
}

func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		input    AnalyzeInput
		expected []string
	}{
		{"nil defaults to current dir", AnalyzeInput{}, []string{"."}},
		{"empty slice defaults to current dir", AnalyzeInput{Paths: []string{}}, []string{"."}},
		{"paths returned as-is", AnalyzeInput{Paths: []string{"/a", "/b"}}, []string{"/a", "/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getPaths(tt.input)
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("getPaths() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected output.Format
	}{
		{"", output.FormatTOON},
		{"toon", output.FormatTOON},
		{"text", output.FormatTOON},
		{"json", output.FormatJSON},
		{"JSON", output.FormatJSON},
		{"yaml", output.FormatYAML},
		{"md", output.FormatMarkdown},
		{"bogus", output.FormatTOON},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := getFormat(tt.input); got != tt.expected {
				t.Errorf("getFormat(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToolError(t *testing.T) {
	result, _, err := toolError("boom")
	if err != nil {
		t.Fatalf("toolError returned error: %v", err)
	}
	if !result.IsError {
		t.Error("toolError result.IsError should be true")
	}
	if got := resultText(t, result); got != "Error: boom" {
		t.Errorf("text = %q", got)
	}
}

func TestToolResultMarkdownIsFenced(t *testing.T) {
	result, _, err := toolResult(map[string]int{"a": 1}, output.FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, result)
	if !strings.HasPrefix(text, "```\n") || !strings.HasSuffix(text, "```") {
		t.Errorf("markdown output not fenced: %q", text)
	}
}

func TestHandleDetectFeaturesSource(t *testing.T) {
	s := testServer(t)
	input := DetectInput{
		AnalyzeInput: AnalyzeInput{Format: "json"},
		Source:       "const v = a?.b ?? c;",
		Locations:    true,
	}

	result, _, err := s.handleDetectFeatures(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleDetectFeatures returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}

	var fr esfeatures.FileResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &fr); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got := strings.Join(fr.Features.Names(), ","); got != "OptionalChaining,NullishCoalescingOperator" {
		t.Errorf("features = %s", got)
	}
	if len(fr.Occurrences) != 2 {
		t.Errorf("expected 2 occurrences, got %d", len(fr.Occurrences))
	}
}

func TestHandleDetectFeaturesPaths(t *testing.T) {
	dir := testutil.Project(t, map[string]string{
		"src/a.js":            "x ||= 1;",
		"node_modules/dep.js": "a?.b;",
	})
	s := testServer(t)

	result, _, err := s.handleDetectFeatures(context.Background(), nil, DetectInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}

	var analysis esfeatures.Analysis
	if err := json.Unmarshal([]byte(resultText(t, result)), &analysis); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(analysis.Files) != 1 {
		t.Fatalf("expected node_modules to be excluded, got %d files", len(analysis.Files))
	}
	if analysis.Files[0].Occurrences != nil {
		t.Error("occurrences should be omitted without locations")
	}
	if analysis.Files[0].Hash != "" {
		t.Error("hash should be omitted")
	}
}

func TestHandleDetectFeaturesNoFiles(t *testing.T) {
	s := testServer(t)
	result, _, err := s.handleDetectFeatures(context.Background(), nil, DetectInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{t.TempDir()}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected tool error for empty directory")
	}
}

func TestHandleMinimumEdition(t *testing.T) {
	dir := testutil.Project(t, map[string]string{
		"a.js": "a ** b;",
		"b.js": "class A { static { init(); } }",
		"c.js": "var plain = 1;",
	})
	s := testServer(t)

	result, _, err := s.handleMinimumEdition(context.Background(), nil, MinimumInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var got minimumResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.MinEdition != "ES2022" {
		t.Errorf("min_edition = %s, want ES2022", got.MinEdition)
	}
	if got.ByEdition[esfeatures.NoFeatures] != 1 {
		t.Errorf("by_edition[none] = %d, want 1", got.ByEdition[esfeatures.NoFeatures])
	}
	if len(got.Files) != 3 {
		t.Errorf("expected 3 files, got %d", len(got.Files))
	}
}

func TestHandleMinimumEditionSourceWithoutFeatures(t *testing.T) {
	s := testServer(t)
	result, _, err := s.handleMinimumEdition(context.Background(), nil, MinimumInput{
		AnalyzeInput: AnalyzeInput{Format: "json"},
		Source:       "var x = 1;",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, result), `"min_edition": "none"`) {
		t.Errorf("unexpected output: %s", resultText(t, result))
	}
}

func TestHandleCheckCompatibility(t *testing.T) {
	dir := testutil.Project(t, map[string]string{
		"old.js": "async function f() { await g(); }",
		"new.js": "const n = 1_000_000;",
	})
	s := testServer(t)

	tests := []struct {
		target string
		passed bool
	}{
		{"ES2017", false},
		{"2021", true},
		{"ES12", true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			result, _, err := s.handleCheckCompatibility(context.Background(), nil, CheckInput{
				AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
				Target:       tt.target,
			})
			if err != nil {
				t.Fatal(err)
			}
			var check esfeatures.CheckResult
			if err := json.Unmarshal([]byte(resultText(t, result)), &check); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if check.Passed != tt.passed {
				t.Errorf("passed = %v, want %v", check.Passed, tt.passed)
			}
			if check.Checked != 2 {
				t.Errorf("checked = %d, want 2", check.Checked)
			}
		})
	}
}

func TestHandleCheckCompatibilityBadTarget(t *testing.T) {
	s := testServer(t)
	result, _, err := s.handleCheckCompatibility(context.Background(), nil, CheckInput{Target: "ES3"})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown edition")
	}
}

func TestHandleListCatalog(t *testing.T) {
	s := testServer(t)

	result, _, err := s.handleListCatalog(context.Background(), nil, CatalogInput{Format: "json", Edition: "ES2016"})
	if err != nil {
		t.Fatal(err)
	}
	var entries []esfeatures.CatalogEntry
	if err := json.Unmarshal([]byte(resultText(t, result)), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Feature.String() != "ExponentiationOperator" {
		t.Errorf("ES2016 catalog = %v", entries)
	}

	result, _, err = s.handleListCatalog(context.Background(), nil, CatalogInput{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, result), "PromiseWithResolvers") {
		t.Error("full catalog missing PromiseWithResolvers")
	}
}

func TestLoadPrompts(t *testing.T) {
	defs := loadPrompts()
	if len(defs) < 2 {
		t.Fatalf("expected at least 2 prompts, got %d", len(defs))
	}
	for _, def := range defs {
		if def.Description == "" {
			t.Errorf("prompt %s has no description", def.name)
		}
		if strings.HasPrefix(def.body, "---") {
			t.Errorf("prompt %s body still has frontmatter", def.name)
		}
	}
}

func TestParseFrontmatter(t *testing.T) {
	fm, body := parseFrontmatter([]byte("---\ndescription: hello\narguments:\n  - name: target\n    default: ES2020\n---\nCheck {{target}}\n"))
	if fm.Description != "hello" {
		t.Errorf("description = %q", fm.Description)
	}
	if body != "Check {{target}}\n" {
		t.Errorf("body = %q", body)
	}

	fm, body = parseFrontmatter([]byte("no frontmatter"))
	if fm.Description != "" || body != "no frontmatter" {
		t.Errorf("unexpected parse of plain content: %q %q", fm.Description, body)
	}
}

func TestPromptHandlerRendersArguments(t *testing.T) {
	def := promptDef{
		name: "audit",
		promptFrontmatter: promptFrontmatter{
			Description: "audit",
			Arguments:   []promptArgument{{Name: "target", Default: "ES2020"}},
		},
		body: "Target {{target}}",
	}
	handler := makePromptHandler(def)

	res, err := handler(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "audit", Arguments: map[string]string{"target": "ES2018"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Messages[0].Content.(*mcp.TextContent).Text; got != "Target ES2018" {
		t.Errorf("rendered = %q", got)
	}

	res, err = handler(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Messages[0].Content.(*mcp.TextContent).Text; got != "Target ES2020" {
		t.Errorf("default rendered = %q", got)
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m.Name != "io.github.panbanda/esmin" || m.Version != "1.2.3" {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if len(m.Packages) == 0 || m.Packages[0].Identifier != "ghcr.io/panbanda/esmin:1.2.3" {
		t.Errorf("unexpected packages: %+v", m.Packages)
	}

	data, err = GenerateManifest("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"version": "0.0.0"`) {
		t.Error("empty version should default to 0.0.0")
	}
}
