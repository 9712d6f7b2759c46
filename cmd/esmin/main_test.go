package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/esmin/internal/testutil"
	"github.com/panbanda/esmin/pkg/analyzer/esfeatures"
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/urfave/cli/v2"
)

// runApp runs esmin with the cache disabled and returns stdout, stderr and
// the exit status.
func runApp(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	app := newApp()
	var stdout, stderr bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = &stderr
	code := run(app, append([]string{"esmin", "--no-cache"}, args...))
	return stdout.String(), stderr.String(), code
}

// TestGetPaths verifies path handling from CLI arguments.
func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"no args defaults to current dir", []string{}, []string{"."}},
		{"single path", []string{"/foo/bar"}, []string{"/foo/bar"}},
		{"multiple paths", []string{"/foo", "/bar"}, []string{"/foo", "/bar"}},
		{"filters out flags", []string{"/foo", "-f", "json", "/bar"}, []string{"/foo", "/bar"}},
		{"filters out target flag", []string{"/foo", "--target", "ES2019"}, []string{"/foo"}},
		{"filters out equals form", []string{"/foo", "--target=ES2019"}, []string{"/foo"}},
		{"boolean flag keeps next path", []string{"/foo", "--locations", "/bar"}, []string{"/foo", "/bar"}},
		{"only flags defaults to current dir", []string{"-o", "out.txt"}, []string{"."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Action: func(c *cli.Context) error {
					result := getPaths(c)
					if strings.Join(result, "|") != strings.Join(tt.expected, "|") {
						t.Errorf("getPaths() = %v, want %v", result, tt.expected)
					}
					return nil
				},
			}
			_ = app.Run(append([]string{"test", "--"}, tt.args...))
		})
	}
}

// TestGetTrailingFlag verifies trailing flag parsing.
func TestGetTrailingFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"no flag returns default", []string{}, "text"},
		{"long flag with space", []string{"--format", "json"}, "json"},
		{"short flag with space", []string{"-f", "markdown"}, "markdown"},
		{"long flag with equals", []string{"--format=toon"}, "toon"},
		{"short flag with equals", []string{"-f=json"}, "json"},
		{"trailing flag after positional", []string{".", "-f", "yaml"}, "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text"},
				},
				Action: func(c *cli.Context) error {
					if got := getTrailingFlag(c, "format", "f", "text"); got != tt.expected {
						t.Errorf("getTrailingFlag() = %q, want %q", got, tt.expected)
					}
					return nil
				},
			}
			_ = app.Run(append([]string{"test"}, tt.args...))
		})
	}
}

func TestGetTrailingBool(t *testing.T) {
	app := &cli.App{
		Flags: []cli.Flag{&cli.BoolFlag{Name: "locations", Aliases: []string{"l"}}},
		Action: func(c *cli.Context) error {
			if !getTrailingBool(c, "locations", "l") {
				t.Error("expected trailing -l to be detected")
			}
			return nil
		},
	}
	_ = app.Run([]string{"test", "src", "-l"})
}

func TestFeaturesCommand(t *testing.T) {
	dir := testutil.Project(t, map[string]string{
		"a.js":                "const v = a?.b;",
		"b.js":                "var old = 1;",
		"node_modules/dep.js": "x ??= y;",
	})

	stdout, _, code := runApp(t, "-f", "json", "features", dir)
	if code != 0 {
		t.Fatalf("exit = %d, output: %s", code, stdout)
	}

	var result esfeatures.Analysis
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(result.Files))
	}
	if result.Summary.MinEdition != edition.ES2020 {
		t.Errorf("min edition = %s, want ES2020", result.Summary.MinEdition)
	}
	for _, fr := range result.Files {
		if len(fr.Occurrences) != 0 {
			t.Errorf("%s: occurrences without --locations", fr.Path)
		}
	}
}

func TestFeaturesCommandLocationsText(t *testing.T) {
	dir := testutil.Project(t, map[string]string{"a.js": "\nconst v = 2 ** 8;"})

	stdout, _, code := runApp(t, "-f", "text", "features", dir, "--locations")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	for _, want := range []string{"ExponentiationOperator", "ES2016", "2:11"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestFeaturesCommandParseError(t *testing.T) {
	dir := testutil.Project(t, map[string]string{"bad.js": "let = ;", "ok.js": "a?.b;"})

	_, stderr, code := runApp(t, "-f", "json", "features", dir)
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "bad.js") {
		t.Errorf("stderr should name the failing file: %s", stderr)
	}
}

func TestFeaturesCommandMissingPath(t *testing.T) {
	_, _, code := runApp(t, "features", filepath.Join(t.TempDir(), "missing"))
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
}

func TestMinCommand(t *testing.T) {
	dir := testutil.Project(t, map[string]string{
		"a.js": "class A { #x = 1; }",
		"b.js": "var old = 1;",
	})

	stdout, _, code := runApp(t, "-f", "json", "min", dir)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	var report minReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if report.MinEdition != "ES2022" {
		t.Errorf("min_edition = %s, want ES2022", report.MinEdition)
	}
	if len(report.Files) != 2 {
		t.Errorf("expected 2 files, got %d", len(report.Files))
	}

	stdout, _, _ = runApp(t, "-f", "json", "min", "--empty", "hide", dir)
	report = minReport{}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Files) != 1 {
		t.Errorf("--empty hide: expected 1 file, got %d", len(report.Files))
	}
}

func TestMinCommandEmptyPolicy(t *testing.T) {
	dir := testutil.Project(t, map[string]string{"old.js": "var x = 1;"})

	stdout, _, code := runApp(t, "-f", "json", "min", dir)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout, `"min_edition": "none"`) {
		t.Errorf("expected none:\n%s", stdout)
	}

	_, _, code = runApp(t, "min", "--empty", "error", dir)
	if code != 1 {
		t.Errorf("--empty error: exit = %d, want 1", code)
	}

	_, _, code = runApp(t, "min", "--empty", "bogus", dir)
	if code != 1 {
		t.Errorf("invalid --empty: exit = %d, want 1", code)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := testutil.Project(t, map[string]string{
		"a.js": "const n = 1_000;",
		"b.js": "async function f() {}",
	})

	stdout, _, code := runApp(t, "-f", "json", "check", "--target", "ES2019", dir)
	if code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	var res esfeatures.CheckResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if res.Passed || len(res.Violations) != 1 {
		t.Errorf("unexpected check result: %+v", res)
	}
	if res.Violations[0].Features[0].Line != 1 {
		t.Errorf("violation should carry a position: %+v", res.Violations[0])
	}

	_, _, code = runApp(t, "check", dir, "--target", "2021")
	if code != 0 {
		t.Errorf("trailing --target 2021: exit = %d, want 0", code)
	}

	_, _, code = runApp(t, "check", "--target", "ES3", dir)
	if code != 1 {
		t.Errorf("bad target: exit = %d, want 1", code)
	}
}

func TestCheckCommandUsesConfigTarget(t *testing.T) {
	dir := testutil.Project(t, map[string]string{
		"a.js":       "obj?.x;",
		"esmin.yaml": "analysis:\n  target: ES2019\n",
	})

	_, _, code := runApp(t, "-c", filepath.Join(dir, "esmin.yaml"), "check", dir)
	if code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
}

func TestCatalogCommand(t *testing.T) {
	stdout, _, code := runApp(t, "-f", "json", "catalog", "--edition", "ES2016")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	var entries []esfeatures.CatalogEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 ES2016 entry, got %d", len(entries))
	}

	stdout, _, _ = runApp(t, "-f", "markdown", "catalog")
	if !strings.Contains(stdout, "| ClassFields |") {
		t.Errorf("markdown catalog missing ClassFields row:\n%s", stdout)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := testutil.Project(t, map[string]string{
		"good.toml": "[analysis]\ntarget = \"ES2018\"\n",
		"bad.toml":  "[analysis]\ntarget = \"ES1999\"\n",
	})

	stdout, _, code := runApp(t, "-c", filepath.Join(dir, "good.toml"), "config", "validate")
	if code != 0 || !strings.Contains(stdout, "Configuration valid") {
		t.Errorf("validate good: exit = %d, output: %s", code, stdout)
	}

	_, _, code = runApp(t, "-c", filepath.Join(dir, "bad.toml"), "config", "validate")
	if code != 1 {
		t.Errorf("validate bad: exit = %d, want 1", code)
	}

	stdout, _, code = runApp(t, "-c", filepath.Join(dir, "good.toml"), "config", "show")
	if code != 0 {
		t.Fatalf("show: exit = %d", code)
	}
	if !strings.Contains(stdout, `target = "ES2018"`) {
		t.Errorf("show output missing target:\n%s", stdout)
	}
}

func TestBrokenConfigIsTerminal(t *testing.T) {
	dir := testutil.Project(t, map[string]string{"esmin.json": "{not json"})

	_, _, code := runApp(t, "-c", filepath.Join(dir, "esmin.json"), "catalog")
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
}

func TestMCPManifestCommand(t *testing.T) {
	stdout, _, code := runApp(t, "mcp", "manifest")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout, "io.github.panbanda/esmin") {
		t.Errorf("unexpected manifest:\n%s", stdout)
	}
}

func TestReportChange(t *testing.T) {
	fr, err := esfeatures.New().AnalyzeSource("x.js", []byte("a ||= b;"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	reportChange(&buf, fr, edition.ES2020)
	if !strings.Contains(buf.String(), "exceeds ES2020") {
		t.Errorf("expected exceed notice: %s", buf.String())
	}

	buf.Reset()
	reportChange(&buf, fr, edition.Unknown)
	if got := buf.String(); got != "x.js: ES2021 (LogicalAssignmentOperators)\n" {
		t.Errorf("reportChange() = %q", got)
	}
}

func TestFeaturesCommandHonoursGitignore(t *testing.T) {
	dir := testutil.GitProject(t, map[string]string{
		".gitignore":          "generated/\n",
		"src/app.js":          "a?.b;",
		"generated/bundle.js": "x ||= 1;",
	})

	stdout, _, code := runApp(t, "-f", "json", "features", dir)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if strings.Contains(stdout, "bundle.js") {
		t.Errorf("ignored file was analysed:\n%s", stdout)
	}
	if !strings.Contains(stdout, "app.js") {
		t.Errorf("app.js missing:\n%s", stdout)
	}
}
