package esfeatures

import (
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/panbanda/esmin/pkg/feature"
)

// Occurrence is the first place a feature was seen in a file.
// Line and Column are 1-based.
type Occurrence struct {
	Feature feature.Feature `json:"feature" yaml:"feature"`
	Line    uint32          `json:"line" yaml:"line"`
	Column  uint32          `json:"column" yaml:"column"`
}

// Edition returns the edition of the occurring feature.
func (o Occurrence) Edition() edition.Edition {
	return o.Feature.Edition()
}

// FileResult is the detection result for one file.
type FileResult struct {
	Path        string          `json:"path" yaml:"path"`
	Hash        string          `json:"hash,omitempty" yaml:"hash,omitempty"`
	Features    feature.Set     `json:"features" yaml:"features"`
	Occurrences []Occurrence    `json:"occurrences,omitempty" yaml:"occurrences,omitempty"`
	MinEdition  edition.Edition `json:"min_edition" yaml:"min_edition"`
}

// HasFeatures reports whether any feature was detected in the file.
func (r *FileResult) HasFeatures() bool {
	return !r.Features.IsEmpty()
}

// FeatureUsage aggregates one feature across a project.
type FeatureUsage struct {
	Feature   feature.Feature `json:"feature" yaml:"feature"`
	Edition   edition.Edition `json:"edition" yaml:"edition"`
	FileCount int             `json:"file_count" yaml:"file_count"`
	Files     []string        `json:"files" yaml:"files"`
}

// Summary aggregates detection over all analysed files.
type Summary struct {
	TotalFiles        int             `json:"total_files" yaml:"total_files"`
	FilesWithFeatures int             `json:"files_with_features" yaml:"files_with_features"`
	FilesWithErrors   int             `json:"files_with_errors" yaml:"files_with_errors"`
	MinEdition        edition.Edition `json:"min_edition" yaml:"min_edition"`
	P50Edition        edition.Edition `json:"p50_edition" yaml:"p50_edition"`
	P90Edition        edition.Edition `json:"p90_edition" yaml:"p90_edition"`
	// ByEdition counts files by their minimum edition name.
	ByEdition map[string]int `json:"by_edition" yaml:"by_edition"`
	Features  []FeatureUsage `json:"features" yaml:"features"`
}

// FileError records a file that could not be analysed.
type FileError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Analysis is the result of analysing a set of files.
type Analysis struct {
	Files   []FileResult `json:"files" yaml:"files"`
	Summary Summary      `json:"summary" yaml:"summary"`
	Errors  []FileError  `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Violation is a file that needs a later edition than the check target.
type Violation struct {
	Path       string          `json:"path" yaml:"path"`
	MinEdition edition.Edition `json:"min_edition" yaml:"min_edition"`
	// Features lists only the occurrences newer than the target.
	Features []Occurrence `json:"features" yaml:"features"`
}

// CheckResult is the outcome of checking an Analysis against a target
// edition.
type CheckResult struct {
	Target     edition.Edition `json:"target" yaml:"target"`
	Passed     bool            `json:"passed" yaml:"passed"`
	Checked    int             `json:"checked" yaml:"checked"`
	Violations []Violation     `json:"violations" yaml:"violations"`
}

// CatalogEntry describes one detectable feature.
type CatalogEntry struct {
	Feature     feature.Feature `json:"feature" yaml:"feature"`
	Edition     edition.Edition `json:"edition" yaml:"edition"`
	Description string          `json:"description" yaml:"description"`
}

// Catalog lists every detectable feature in catalog order.
func Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, feature.Count)
	for f := range feature.All() {
		entries = append(entries, CatalogEntry{Feature: f, Edition: f.Edition(), Description: f.Description()})
	}
	return entries
}
