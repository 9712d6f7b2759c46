// Package esfeatures detects which ECMAScript features a JavaScript syntax
// tree uses and derives the minimum edition needed to run it.
//
// Detection is a single depth-first walk. Each node kind may have a rule
// that adds features to the result; a small scope value tracks whether the
// walk is inside a function so that await can be classified as top-level or
// function-scoped.
package esfeatures

import (
	"errors"

	"github.com/panbanda/esmin/pkg/edition"
	"github.com/panbanda/esmin/pkg/feature"
	"github.com/panbanda/esmin/pkg/parser"
)

// ErrNoFeaturesDetected is returned by the minimum edition functions when the
// source uses no cataloged feature. Such code runs on any supported edition;
// callers wanting a baseline should test with errors.Is and substitute one.
var ErrNoFeaturesDetected = errors.New("no features detected")

// Detect returns the set of features used in a parsed tree.
func Detect(result *parser.ParseResult) feature.Set {
	return run(result).found
}

// DetectOccurrences returns the first occurrence of each feature used in a
// parsed tree, in catalog order.
func DetectOccurrences(result *parser.ParseResult) []Occurrence {
	return run(result).occurrences()
}

// MinimumEdition returns the latest edition among the features used in a
// parsed tree, or ErrNoFeaturesDetected.
func MinimumEdition(result *parser.ParseResult) (edition.Edition, error) {
	return Minimum(Detect(result))
}

// Minimum reduces a feature set to the edition required to run it.
func Minimum(set feature.Set) (edition.Edition, error) {
	e, ok := set.MaxEdition()
	if !ok {
		return edition.Unknown, ErrNoFeaturesDetected
	}
	return e, nil
}

// DetectSource parses src and returns the features it uses. Syntax errors
// are returned unchanged and match parser.ErrSyntax.
func DetectSource(src []byte) (feature.Set, error) {
	result, err := parse(src)
	if err != nil {
		return feature.Set{}, err
	}
	return Detect(result), nil
}

// MinimumEditionSource parses src and returns the edition it requires.
func MinimumEditionSource(src []byte) (edition.Edition, error) {
	set, err := DetectSource(src)
	if err != nil {
		return edition.Unknown, err
	}
	return Minimum(set)
}

func parse(src []byte) (*parser.ParseResult, error) {
	p := parser.New()
	defer p.Close()
	return p.Parse(src, "")
}

func run(result *parser.ParseResult) *detector {
	if result == nil {
		return newDetector(nil)
	}
	d := newDetector(result.Source)
	d.walk(result.Root(), scope{})
	return d
}
