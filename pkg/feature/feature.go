// Package feature is the catalog of detectable ECMAScript features and the
// edition each one was introduced in.
package feature

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/panbanda/esmin/pkg/edition"
)

// ErrUnknownFeature is returned when a name does not match any catalog entry.
var ErrUnknownFeature = errors.New("unknown feature")

// Feature identifies one detectable language capability.
// Two features are the same feature only if they are the same constant,
// regardless of their editions.
type Feature uint8

const (
	ExponentiationOperator Feature = iota
	ObjectValuesEntries
	ObjectGetOwnPropertyDescriptors
	AsyncFunctions
	SharedMemoryAndAtomics
	SDotAllFlagForRegularExpressions
	RestSpreadProperties
	RegExpLookbehindAssertions
	RegExpUnicodePropertyEscapes
	RegExpNamedCaptureGroups
	AsynchronousIteration
	OptionalCatchBinding
	ObjectFromEntries
	BigInt
	PromiseAllSettled
	GlobalThis
	ForInMechanics
	OptionalChaining
	NullishCoalescingOperator
	DynamicImport
	ImportMeta
	PromiseAny
	LogicalAssignmentOperators
	NumericSeparators
	WeakReferences
	ClassFields
	RegExpMatchIndices
	TopLevelAwait
	ErgonomicBrandChecksForPrivateFields
	AccessibleObjectPrototypeHasOwnProperty
	ClassStaticBlock
	ErrorCause
	HashbangGrammar
	AtomicsWaitAsync
	RegexpVFlagWithSetNotationAndPropertiesOfStrings
	ArrayGrouping
	PromiseWithResolvers
	DuplicateNamedCaptureGroups
	RegExpPatternModifiers
	PromiseTry
	Float16Array
	IteratorHelpers

	numFeatures
)

// Count is the number of cataloged features.
const Count = int(numFeatures)

type entry struct {
	name        string
	edition     edition.Edition
	description string
}

// catalog is indexed by Feature. Its length must equal numFeatures; the
// assertion below turns a missing trailing entry into a build failure.
var catalog = [...]entry{
	ExponentiationOperator:                           {"ExponentiationOperator", edition.ES2016, "** and **= operators"},
	ObjectValuesEntries:                              {"ObjectValuesEntries", edition.ES2017, "Object.values and Object.entries"},
	ObjectGetOwnPropertyDescriptors:                  {"ObjectGetOwnPropertyDescriptors", edition.ES2017, "Object.getOwnPropertyDescriptors"},
	AsyncFunctions:                                   {"AsyncFunctions", edition.ES2017, "async functions and await inside them"},
	SharedMemoryAndAtomics:                           {"SharedMemoryAndAtomics", edition.ES2017, "SharedArrayBuffer and Atomics"},
	SDotAllFlagForRegularExpressions:                 {"SDotAllFlagForRegularExpressions", edition.ES2018, "regular expression s (dotAll) flag"},
	RestSpreadProperties:                             {"RestSpreadProperties", edition.ES2018, "rest and spread syntax"},
	RegExpLookbehindAssertions:                       {"RegExpLookbehindAssertions", edition.ES2018, "regular expression lookbehind (?<= and (?<!"},
	RegExpUnicodePropertyEscapes:                     {"RegExpUnicodePropertyEscapes", edition.ES2018, "regular expression \\p{...} escapes with the u flag"},
	RegExpNamedCaptureGroups:                         {"RegExpNamedCaptureGroups", edition.ES2018, "regular expression named groups (?<name>...)"},
	AsynchronousIteration:                            {"AsynchronousIteration", edition.ES2018, "for await loops and async generators"},
	OptionalCatchBinding:                             {"OptionalCatchBinding", edition.ES2019, "catch clause without a binding"},
	ObjectFromEntries:                                {"ObjectFromEntries", edition.ES2019, "Object.fromEntries"},
	BigInt:                                           {"BigInt", edition.ES2020, "BigInt literals and BigInt() conversion"},
	PromiseAllSettled:                                {"PromiseAllSettled", edition.ES2020, "Promise.allSettled"},
	GlobalThis:                                       {"GlobalThis", edition.ES2020, "globalThis object"},
	ForInMechanics:                                   {"ForInMechanics", edition.ES2020, "for-in enumeration order"},
	OptionalChaining:                                 {"OptionalChaining", edition.ES2020, "optional chaining ?."},
	NullishCoalescingOperator:                        {"NullishCoalescingOperator", edition.ES2020, "nullish coalescing ??"},
	DynamicImport:                                    {"DynamicImport", edition.ES2020, "import() expressions"},
	ImportMeta:                                       {"ImportMeta", edition.ES2020, "import.meta"},
	PromiseAny:                                       {"PromiseAny", edition.ES2021, "Promise.any"},
	LogicalAssignmentOperators:                       {"LogicalAssignmentOperators", edition.ES2021, "&&=, ||= and ??= operators"},
	NumericSeparators:                                {"NumericSeparators", edition.ES2021, "numeric literal separators 1_000"},
	WeakReferences:                                   {"WeakReferences", edition.ES2021, "WeakRef and FinalizationRegistry"},
	ClassFields:                                      {"ClassFields", edition.ES2022, "class fields and private methods"},
	RegExpMatchIndices:                               {"RegExpMatchIndices", edition.ES2022, "regular expression d (indices) flag"},
	TopLevelAwait:                                    {"TopLevelAwait", edition.ES2022, "await outside of functions"},
	ErgonomicBrandChecksForPrivateFields:             {"ErgonomicBrandChecksForPrivateFields", edition.ES2022, "#field in obj checks"},
	AccessibleObjectPrototypeHasOwnProperty:          {"AccessibleObjectPrototypeHasOwnProperty", edition.ES2022, "Object.hasOwn"},
	ClassStaticBlock:                                 {"ClassStaticBlock", edition.ES2022, "static { } blocks in classes"},
	ErrorCause:                                       {"ErrorCause", edition.ES2022, "error constructors with { cause }"},
	HashbangGrammar:                                  {"HashbangGrammar", edition.ES2023, "#! line at the start of a file"},
	AtomicsWaitAsync:                                 {"AtomicsWaitAsync", edition.ES2024, "Atomics.waitAsync"},
	RegexpVFlagWithSetNotationAndPropertiesOfStrings: {"RegexpVFlagWithSetNotationAndPropertiesOfStrings", edition.ES2024, "regular expression v flag"},
	ArrayGrouping:                                    {"ArrayGrouping", edition.ES2024, "Object.groupBy and Map.groupBy"},
	PromiseWithResolvers:                             {"PromiseWithResolvers", edition.ES2024, "Promise.withResolvers"},
	DuplicateNamedCaptureGroups:                      {"DuplicateNamedCaptureGroups", edition.ES2025, "regular expression group names used twice"},
	RegExpPatternModifiers:                           {"RegExpPatternModifiers", edition.ES2025, "regular expression modifier groups (?i:...)"},
	PromiseTry:                                       {"PromiseTry", edition.ES2025, "Promise.try"},
	Float16Array:                                     {"Float16Array", edition.ES2025, "Float16Array and Math.f16round"},
	IteratorHelpers:                                  {"IteratorHelpers", edition.ES2025, "Iterator.from and iterator helpers"},
}

var _ = [1]struct{}{}[len(catalog)-Count]

var byName = func() map[string]Feature {
	m := make(map[string]Feature, Count)
	for f := range All() {
		m[strings.ToLower(catalog[f].name)] = f
	}
	return m
}()

// All returns an iterator over every cataloged feature in catalog order,
// which is also ascending edition order.
func All() iter.Seq[Feature] {
	return func(yield func(Feature) bool) {
		for f := Feature(0); f < numFeatures; f++ {
			if !yield(f) {
				return
			}
		}
	}
}

// IsValid reports whether f is a cataloged feature.
func (f Feature) IsValid() bool { return f < numFeatures }

// Edition returns the edition that introduced f.
func (f Feature) Edition() edition.Edition {
	if !f.IsValid() {
		return edition.Unknown
	}
	return catalog[f].edition
}

// String returns the catalog name of f.
func (f Feature) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("Feature(%d)", uint8(f))
	}
	return catalog[f].name
}

// Description returns a short human description of f.
func (f Feature) Description() string {
	if !f.IsValid() {
		return ""
	}
	return catalog[f].description
}

// Parse looks up a feature by its catalog name, case-insensitive.
func Parse(name string) (Feature, error) {
	f, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return f, nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Feature) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFeature, uint8(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Feature) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
