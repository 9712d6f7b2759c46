package feature

import (
	"encoding/json"
	"testing"

	"github.com/panbanda/esmin/pkg/edition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAddIsIdempotent(t *testing.T) {
	var s Set
	assert.True(t, s.IsEmpty())

	s.Add(OptionalChaining)
	s.Add(OptionalChaining)
	s.Add(BigInt)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(OptionalChaining))
	assert.True(t, s.Has(BigInt))
	assert.False(t, s.Has(GlobalThis))
}

func TestSetIgnoresInvalid(t *testing.T) {
	var s Set
	s.Add(Feature(99))
	assert.True(t, s.IsEmpty())
	assert.False(t, s.Has(Feature(99)))
}

func TestSetOrderIndependent(t *testing.T) {
	a := Of(TopLevelAwait, ExponentiationOperator, ClassFields)
	b := Of(ClassFields, TopLevelAwait, ExponentiationOperator)
	assert.Equal(t, a, b)
	assert.Equal(t, []Feature{ExponentiationOperator, ClassFields, TopLevelAwait}, a.Slice())
}

func TestSetUnion(t *testing.T) {
	u := Of(BigInt).Union(Of(GlobalThis, BigInt))
	assert.Equal(t, []string{"BigInt", "GlobalThis"}, u.Names())
}

func TestSetMaxEdition(t *testing.T) {
	_, ok := Set{}.MaxEdition()
	assert.False(t, ok)

	e, ok := Of(ExponentiationOperator, NullishCoalescingOperator, AsyncFunctions).MaxEdition()
	require.True(t, ok)
	assert.Equal(t, edition.ES2020, e)
}

func TestSetLatest(t *testing.T) {
	s := Of(AsyncFunctions, PromiseAny, NumericSeparators)
	assert.Equal(t, []Feature{PromiseAny, NumericSeparators}, s.Latest())
	assert.Nil(t, Set{}.Latest())
}

func TestSetJSON(t *testing.T) {
	s := Of(GlobalThis, BigInt)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["BigInt","GlobalThis"]`, string(data))

	var decoded Set
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s, decoded)

	assert.Error(t, json.Unmarshal([]byte(`["NotAFeature"]`), &decoded))
}

func TestSetString(t *testing.T) {
	assert.Equal(t, "[]", Set{}.String())
	assert.Equal(t, "[BigInt GlobalThis]", Of(GlobalThis, BigInt).String())
}
