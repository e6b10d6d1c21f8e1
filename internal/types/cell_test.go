package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellMarshalRoundTrip(t *testing.T) {
	cells := []Cell{
		Int64s{1, -2, 3},
		Float64s{0.5, 1e9},
		Strings{"a", "ü"},
		Bools{true, false},
		Blobs{[]byte{0x00, 0xff}},
		BlobRefs{"sha256:abc"},
	}

	for _, c := range cells {
		t.Run(c.DataType().String(), func(t *testing.T) {
			data, err := MarshalCell(c)
			require.NoError(t, err)

			decoded, err := UnmarshalCell(data)
			require.NoError(t, err)
			assert.Equal(t, c, decoded)
			assert.Equal(t, c.Len(), decoded.Len())
		})
	}
}

func TestUnmarshalCellErrors(t *testing.T) {
	_, err := UnmarshalCell([]byte(`{"type":"complex128","values":[]}`))
	assert.Error(t, err)

	_, err = UnmarshalCell([]byte(`{"type":"int64","values":["x"]}`))
	assert.Error(t, err)

	_, err = MarshalCell(nil)
	assert.Error(t, err)
}

func TestNewCellFromAny(t *testing.T) {
	c, err := NewCellFromAny(DataTypeFloat64, []any{1, 2.5})
	require.NoError(t, err)
	assert.Equal(t, Float64s{1, 2.5}, c)

	_, err = NewCellFromAny(DataTypeBool, []any{"yes"})
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "42", FormatValue(Int64s{42}, 0))
	assert.Equal(t, "0.25", FormatValue(Float64s{0.25}, 0))
	assert.Equal(t, `"hi"`, FormatValue(Strings{"hi"}, 0))
	assert.Equal(t, "<3 bytes>", FormatValue(Blobs{{1, 2, 3}}, 0))
	assert.Equal(t, "blob:k", FormatValue(BlobRefs{"k"}, 0))
}

func TestDataTypeParse(t *testing.T) {
	dt, err := ParseDataType("blob_ref")
	require.NoError(t, err)
	assert.Equal(t, DataTypeBlobRef, dt)

	_, err = ParseDataType("nope")
	assert.Error(t, err)
}
