package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DataType tags the column type carried by a Cell.
type DataType int

const (
	DataTypeInt64 DataType = iota + 1
	DataTypeFloat64
	DataTypeString
	DataTypeBool
	DataTypeBlob
	DataTypeBlobRef
)

var dataTypeNames = map[DataType]string{
	DataTypeInt64:   "int64",
	DataTypeFloat64: "float64",
	DataTypeString:  "string",
	DataTypeBool:    "bool",
	DataTypeBlob:    "blob",
	DataTypeBlobRef: "blob_ref",
}

// String returns the encoding name of the data type.
func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// ParseDataType parses an encoding name such as "float64".
func ParseDataType(s string) (DataType, error) {
	for d, name := range dataTypeNames {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// Cell is one component's values for one row: a column of NumInstances values.
//
// This is a sealed interface - only the column types in this package
// implement it. The fixed set keeps the store free of reflection and lets
// decoders switch exhaustively on the concrete type.
type Cell interface {
	// Len returns the number of instances in the cell.
	Len() int
	// DataType returns the column type tag.
	DataType() DataType
	// SizeBytes estimates the heap size of the values.
	SizeBytes() int
	cell()
}

// Int64s is a column of 64-bit integers.
type Int64s []int64

// Float64s is a column of 64-bit floats.
type Float64s []float64

// Strings is a column of UTF-8 strings.
type Strings []string

// Bools is a column of booleans.
type Bools []bool

// Blobs is a column of inline binary payloads.
type Blobs [][]byte

// BlobRefs is a column of keys of blobs stored outside the store.
// Decoding a BlobRefs cell requires fetching the blobs, which may be pending.
type BlobRefs []string

func (Int64s) cell()   {}
func (Float64s) cell() {}
func (Strings) cell()  {}
func (Bools) cell()    {}
func (Blobs) cell()    {}
func (BlobRefs) cell() {}

func (c Int64s) Len() int   { return len(c) }
func (c Float64s) Len() int { return len(c) }
func (c Strings) Len() int  { return len(c) }
func (c Bools) Len() int    { return len(c) }
func (c Blobs) Len() int    { return len(c) }
func (c BlobRefs) Len() int { return len(c) }

func (Int64s) DataType() DataType   { return DataTypeInt64 }
func (Float64s) DataType() DataType { return DataTypeFloat64 }
func (Strings) DataType() DataType  { return DataTypeString }
func (Bools) DataType() DataType    { return DataTypeBool }
func (Blobs) DataType() DataType    { return DataTypeBlob }
func (BlobRefs) DataType() DataType { return DataTypeBlobRef }

func (c Int64s) SizeBytes() int   { return 8 * len(c) }
func (c Float64s) SizeBytes() int { return 8 * len(c) }
func (c Bools) SizeBytes() int    { return len(c) }

func (c Strings) SizeBytes() int {
	n := 16 * len(c)
	for _, s := range c {
		n += len(s)
	}
	return n
}

func (c Blobs) SizeBytes() int {
	n := 24 * len(c)
	for _, b := range c {
		n += len(b)
	}
	return n
}

func (c BlobRefs) SizeBytes() int {
	return Strings(c).SizeBytes()
}

// FormatValue renders instance i of c for human readable output.
func FormatValue(c Cell, i int) string {
	switch v := c.(type) {
	case Int64s:
		return strconv.FormatInt(v[i], 10)
	case Float64s:
		return strconv.FormatFloat(v[i], 'g', -1, 64)
	case Strings:
		return strconv.Quote(v[i])
	case Bools:
		return strconv.FormatBool(v[i])
	case Blobs:
		return fmt.Sprintf("<%d bytes>", len(v[i]))
	case BlobRefs:
		return "blob:" + v[i]
	default:
		return fmt.Sprintf("<%T>", c)
	}
}

// cellEnvelope is the tagged JSON form of a Cell.
type cellEnvelope struct {
	Type   string          `json:"type"`
	Values json.RawMessage `json:"values"`
}

// MarshalCell encodes a cell as tagged JSON: {"type":"float64","values":[...]}.
// Blobs are base64 encoded by encoding/json.
func MarshalCell(c Cell) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("marshal cell: nil cell")
	}
	values, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal cell: %w", err)
	}
	return json.Marshal(cellEnvelope{Type: c.DataType().String(), Values: values})
}

// UnmarshalCell decodes the tagged JSON produced by MarshalCell.
func UnmarshalCell(data []byte) (Cell, error) {
	var env cellEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal cell: %w", err)
	}
	dt, err := ParseDataType(env.Type)
	if err != nil {
		return nil, fmt.Errorf("unmarshal cell: %w", err)
	}
	return decodeCellValues(dt, env.Values)
}

// NewCellFromAny converts loosely typed values (as produced by YAML or JSON
// decoding into interface{}) into a Cell of the given type.
func NewCellFromAny(dt DataType, values []any) (Cell, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("cell values: %w", err)
	}
	return decodeCellValues(dt, raw)
}

func decodeCellValues(dt DataType, raw json.RawMessage) (Cell, error) {
	var (
		c   Cell
		err error
	)
	switch dt {
	case DataTypeInt64:
		var v Int64s
		err = json.Unmarshal(raw, &v)
		c = v
	case DataTypeFloat64:
		var v Float64s
		err = json.Unmarshal(raw, &v)
		c = v
	case DataTypeString:
		var v Strings
		err = json.Unmarshal(raw, &v)
		c = v
	case DataTypeBool:
		var v Bools
		err = json.Unmarshal(raw, &v)
		c = v
	case DataTypeBlob:
		var v Blobs
		err = json.Unmarshal(raw, &v)
		c = v
	case DataTypeBlobRef:
		var v BlobRefs
		err = json.Unmarshal(raw, &v)
		c = v
	default:
		return nil, fmt.Errorf("unsupported data type %v", dt)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s values: %w", dt, err)
	}
	return c, nil
}
