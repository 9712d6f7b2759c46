// Package edition defines the ordered set of ECMAScript editions.
//
// Editions are compared by rank only. ESNext is a forward-compatibility
// sentinel that sorts after every named edition.
package edition

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// ErrUnknownEdition is returned when a string does not name an edition.
var ErrUnknownEdition = errors.New("unknown edition")

// Edition is one yearly ECMAScript specification release.
type Edition uint8

// The zero value is Unknown so that an unset edition is never mistaken for a
// real one.
const (
	Unknown Edition = iota
	ES2016
	ES2017
	ES2018
	ES2019
	ES2020
	ES2021
	ES2022
	ES2023
	ES2024
	ES2025
	ESNext
)

// Latest is the most recent named edition.
const Latest = ES2025

// firstYear is the publication year of ES2016.
const firstYear = 2016

// All returns an iterator over all valid editions, oldest first.
func All() iter.Seq[Edition] {
	return func(yield func(Edition) bool) {
		for e := ES2016; e <= ESNext; e++ {
			if !yield(e) {
				return
			}
		}
	}
}

// IsValid reports whether e is a named edition or ESNext.
func (e Edition) IsValid() bool {
	return e >= ES2016 && e <= ESNext
}

// Year returns the publication year, or 0 for ESNext and invalid values.
func (e Edition) Year() int {
	if e < ES2016 || e > Latest {
		return 0
	}
	return firstYear + int(e-ES2016)
}

// String returns the year-based name, e.g. "ES2020".
func (e Edition) String() string {
	switch {
	case e == ESNext:
		return "ESNext"
	case e.IsValid():
		return "ES" + strconv.Itoa(e.Year())
	default:
		return "unknown"
	}
}

// Ordinal returns the legacy numbered name, e.g. "ES11" for ES2020.
func (e Edition) Ordinal() string {
	switch {
	case e == ESNext:
		return "ESNext"
	case e.IsValid():
		return "ES" + strconv.Itoa(e.Year()-2009)
	default:
		return "unknown"
	}
}

// Before reports whether e was published before o.
func (e Edition) Before(o Edition) bool { return e < o }

// After reports whether e was published after o.
func (e Edition) After(o Edition) bool { return e > o }

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to
// or after b.
func Compare(a, b Edition) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Max returns the latest of the given editions, or Unknown if none are given.
func Max(editions ...Edition) Edition {
	latest := Unknown
	for _, e := range editions {
		if e > latest {
			latest = e
		}
	}
	return latest
}

// Parse converts a user-supplied name into an Edition.
// Accepted forms: "ES2020", "2020", "ES11", "ESNext" and "next", case-insensitive.
func Parse(s string) (Edition, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "esnext", "next":
		return ESNext, nil
	}
	name = strings.TrimPrefix(name, "es")

	n, err := strconv.Atoi(name)
	if err != nil {
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownEdition, s)
	}

	year := n
	if n < 100 {
		// Legacy ordinals: ES7 is ES2016.
		year = n + 2009
	}
	if year < firstYear || year > Latest.Year() {
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownEdition, s)
	}
	return ES2016 + Edition(year-firstYear), nil
}

// MarshalText implements encoding.TextMarshaler.
func (e Edition) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Edition) UnmarshalText(text []byte) error {
	if string(text) == "unknown" || len(text) == 0 {
		*e = Unknown
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
