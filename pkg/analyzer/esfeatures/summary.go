package esfeatures

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/esmin/internal/fileproc"
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/panbanda/esmin/pkg/feature"
	"gonum.org/v1/gonum/stat"
)

// NoFeatures is the ByEdition key for files without detected features.
const NoFeatures = "none"

// buildAnalysis aggregates per-file results into an Analysis.
func buildAnalysis(results []FileResult, errs *fileproc.ProcessingErrors) *Analysis {
	analysis := &Analysis{Files: results}
	if analysis.Files == nil {
		analysis.Files = []FileResult{}
	}

	for _, e := range errs.Sorted() {
		analysis.Errors = append(analysis.Errors, FileError{Path: e.Path, Error: e.Err.Error()})
	}

	analysis.Summary = summarize(results)
	analysis.Summary.FilesWithErrors = len(analysis.Errors)
	analysis.Summary.TotalFiles += len(analysis.Errors)
	return analysis
}

func summarize(results []FileResult) Summary {
	s := Summary{
		TotalFiles: len(results),
		ByEdition:  make(map[string]int),
		Features:   []FeatureUsage{},
	}

	// One bitmap of file indexes per feature.
	var usage [feature.Count]*roaring.Bitmap
	ranks := make([]float64, 0, len(results))

	for i, fr := range results {
		if !fr.HasFeatures() {
			s.ByEdition[NoFeatures]++
			continue
		}

		s.FilesWithFeatures++
		s.MinEdition = edition.Max(s.MinEdition, fr.MinEdition)
		s.ByEdition[fr.MinEdition.String()]++
		ranks = append(ranks, float64(fr.MinEdition))

		for f := range fr.Features.All() {
			if usage[f] == nil {
				usage[f] = roaring.New()
			}
			usage[f].Add(uint32(i))
		}
	}

	if len(ranks) > 0 {
		sort.Float64s(ranks)
		s.P50Edition = edition.Edition(stat.Quantile(0.5, stat.Empirical, ranks, nil))
		s.P90Edition = edition.Edition(stat.Quantile(0.9, stat.Empirical, ranks, nil))
	}

	for f := range feature.All() {
		bm := usage[f]
		if bm == nil {
			continue
		}
		u := FeatureUsage{
			Feature:   f,
			Edition:   f.Edition(),
			FileCount: int(bm.GetCardinality()),
			Files:     make([]string, 0, bm.GetCardinality()),
		}
		it := bm.Iterator()
		for it.HasNext() {
			u.Files = append(u.Files, results[it.Next()].Path)
		}
		s.Features = append(s.Features, u)
	}

	return s
}

// Check reports every file whose minimum edition is later than target,
// with the occurrences that push it past the target.
func (a *Analysis) Check(target edition.Edition) *CheckResult {
	res := &CheckResult{
		Target:     target,
		Checked:    len(a.Files),
		Violations: []Violation{},
	}

	for _, fr := range a.Files {
		if !fr.HasFeatures() || !fr.MinEdition.After(target) {
			continue
		}

		v := Violation{Path: fr.Path, MinEdition: fr.MinEdition}
		for _, o := range fr.Occurrences {
			if o.Edition().After(target) {
				v.Features = append(v.Features, o)
			}
		}
		if len(v.Features) == 0 {
			// Results built without positions still name the features.
			for f := range fr.Features.All() {
				if f.Edition().After(target) {
					v.Features = append(v.Features, Occurrence{Feature: f})
				}
			}
		}
		res.Violations = append(res.Violations, v)
	}

	res.Passed = len(res.Violations) == 0
	return res
}

// Features returns the union of the features used across all files.
func (a *Analysis) Features() feature.Set {
	var all feature.Set
	for _, fr := range a.Files {
		all = all.Union(fr.Features)
	}
	return all
}
