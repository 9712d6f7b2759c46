package feature

import (
	"encoding/json"
	"iter"
	"math/bits"
	"slices"

	"github.com/panbanda/esmin/pkg/edition"
)

// Set is an unordered, duplicate-free collection of features.
// The zero value is an empty set ready to use.
type Set struct {
	bits uint64
}

// The bit set holds at most 64 features.
var _ = [1]struct{}{}[Count/64]

// Of returns a set holding the given features.
func Of(features ...Feature) Set {
	var s Set
	for _, f := range features {
		s.Add(f)
	}
	return s
}

// Add inserts f. Adding a feature already present is a no-op, as is adding
// an uncataloged value.
func (s *Set) Add(f Feature) {
	if !f.IsValid() {
		return
	}
	s.bits |= 1 << f
}

// Has reports whether f is in the set.
func (s Set) Has(f Feature) bool {
	return f.IsValid() && s.bits&(1<<f) != 0
}

// Len returns the number of features in the set.
func (s Set) Len() int { return bits.OnesCount64(s.bits) }

// IsEmpty reports whether the set has no features.
func (s Set) IsEmpty() bool { return s.bits == 0 }

// Union returns a set with the features of both s and o.
func (s Set) Union(o Set) Set {
	return Set{bits: s.bits | o.bits}
}

// All iterates the features in catalog order.
func (s Set) All() iter.Seq[Feature] {
	return func(yield func(Feature) bool) {
		for rest := s.bits; rest != 0; rest &= rest - 1 {
			if !yield(Feature(bits.TrailingZeros64(rest))) {
				return
			}
		}
	}
}

// Slice returns the features in catalog order.
func (s Set) Slice() []Feature {
	return slices.Collect(s.All())
}

// Names returns the catalog names of the features in catalog order.
func (s Set) Names() []string {
	names := make([]string, 0, s.Len())
	for f := range s.All() {
		names = append(names, f.String())
	}
	return names
}

// MaxEdition returns the latest edition among the features in the set.
// ok is false for an empty set.
func (s Set) MaxEdition() (latest edition.Edition, ok bool) {
	for f := range s.All() {
		latest = edition.Max(latest, f.Edition())
	}
	return latest, !s.IsEmpty()
}

// Latest returns the features of s introduced in its latest edition.
func (s Set) Latest() []Feature {
	latest, ok := s.MaxEdition()
	if !ok {
		return nil
	}
	var out []Feature
	for f := range s.All() {
		if f.Edition() == latest {
			out = append(out, f)
		}
	}
	return out
}

// String renders the set like a slice of names.
func (s Set) String() string {
	out := "["
	for i, name := range s.Names() {
		if i > 0 {
			out += " "
		}
		out += name
	}
	return out + "]"
}

// MarshalJSON encodes the set as a sorted array of feature names.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON decodes an array of feature names.
func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var decoded Set
	for _, name := range names {
		f, err := Parse(name)
		if err != nil {
			return err
		}
		decoded.Add(f)
	}
	*s = decoded
	return nil
}

// MarshalYAML encodes the set as a list of feature names.
func (s Set) MarshalYAML() (any, error) {
	return s.Names(), nil
}
