package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialGeneratorOrdered(t *testing.T) {
	gen := NewSequentialGenerator(1)

	prev := gen.Next()
	for i := 0; i < 100; i++ {
		next := gen.Next()
		assert.True(t, prev.Less(next), "ids must be strictly increasing")
		prev = next
	}
}

func TestRowIDFromUint64(t *testing.T) {
	assert.False(t, RowIDFromUint64(0).IsZero())
	assert.True(t, RowIDFromUint64(2).Less(RowIDFromUint64(10)))
	assert.True(t, RowIDFromUint64(255).Less(RowIDFromUint64(256)))
	assert.Equal(t, 0, RowIDFromUint64(7).Compare(RowIDFromUint64(7)))
	assert.True(t, ZeroRowID.Less(RowIDFromUint64(0)))
}

func TestUUIDv7GeneratorMonotonic(t *testing.T) {
	var gen UUIDv7Generator

	ids := make([]RowID, 50)
	for i := range ids {
		ids[i] = gen.Next()
	}
	for i := 1; i < len(ids); i++ {
		assert.True(t, ids[i-1].Less(ids[i]), "UUIDv7 ids should be monotonic within a process")
	}
}

func TestRowIDText(t *testing.T) {
	id := RowIDFromUint64(42)

	parsed, err := ParseRowID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseRowID("not-a-uuid")
	assert.Error(t, err)

	text, err := id.MarshalText()
	require.NoError(t, err)
	var decoded RowID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
}
