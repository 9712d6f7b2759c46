package feature

import (
	"encoding/json"
	"testing"

	"github.com/panbanda/esmin/pkg/edition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsComplete(t *testing.T) {
	seen := make(map[string]Feature)
	count := 0
	for f := range All() {
		count++
		assert.True(t, f.Edition().IsValid(), "%d has no edition", f)
		assert.NotEmpty(t, f.String())
		assert.NotEmpty(t, f.Description(), "%s has no description", f)

		if prev, dup := seen[f.String()]; dup {
			t.Errorf("name %q used by %d and %d", f.String(), prev, f)
		}
		seen[f.String()] = f
	}
	assert.Equal(t, Count, count)
}

func TestCatalogIsOrderedByEdition(t *testing.T) {
	prev := edition.Unknown
	for f := range All() {
		assert.False(t, f.Edition().Before(prev), "%s (%s) listed after %s", f, f.Edition(), prev)
		prev = f.Edition()
	}
}

func TestEditions(t *testing.T) {
	tests := []struct {
		f    Feature
		want edition.Edition
	}{
		{ExponentiationOperator, edition.ES2016},
		{AsyncFunctions, edition.ES2017},
		{RegExpLookbehindAssertions, edition.ES2018},
		{OptionalCatchBinding, edition.ES2019},
		{OptionalChaining, edition.ES2020},
		{NumericSeparators, edition.ES2021},
		{TopLevelAwait, edition.ES2022},
		{HashbangGrammar, edition.ES2023},
		{ArrayGrouping, edition.ES2024},
		{PromiseTry, edition.ES2025},
	}

	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Edition())
		})
	}
}

func TestIdentityIsNotEdition(t *testing.T) {
	// Same edition, different features.
	require.Equal(t, PromiseAny.Edition(), NumericSeparators.Edition())
	assert.NotEqual(t, PromiseAny, NumericSeparators)

	s := Of(PromiseAny, NumericSeparators)
	assert.Equal(t, 2, s.Len())
}

func TestInvalidFeature(t *testing.T) {
	bogus := Feature(200)
	assert.False(t, bogus.IsValid())
	assert.Equal(t, edition.Unknown, bogus.Edition())
	assert.Equal(t, "Feature(200)", bogus.String())
	assert.Empty(t, bogus.Description())

	_, err := bogus.MarshalText()
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestParse(t *testing.T) {
	for f := range All() {
		got, err := Parse(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	got, err := Parse("optionalchaining")
	require.NoError(t, err)
	assert.Equal(t, OptionalChaining, got)

	_, err = Parse("Decorators")
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestTextMarshaling(t *testing.T) {
	data, err := json.Marshal([]Feature{BigInt, GlobalThis})
	require.NoError(t, err)
	assert.JSONEq(t, `["BigInt","GlobalThis"]`, string(data))

	var decoded []Feature
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []Feature{BigInt, GlobalThis}, decoded)
}
