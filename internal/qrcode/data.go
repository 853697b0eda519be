package qrcode

import "fmt"

// DataType identifies a segment encoding. The values are bit flags so the
// highest type seen in a symbol can be reported as its payload type.
type DataType int

const (
	DataTypeNumeric  DataType = 1
	DataTypeAlpha    DataType = 2
	DataTypeByte     DataType = 4
	DataTypeKanji    DataType = 8
	dataTypeECI               = 7
	modeStructured            = 3
	modeFNC1First             = 5
	modeFNC1Second            = 9
	modeTerminator            = 0
)

func (t DataType) String() string {
	switch t {
	case 0:
		return "none"
	case DataTypeNumeric:
		return "numeric"
	case DataTypeAlpha:
		return "alphanumeric"
	case DataTypeByte:
		return "byte"
	case DataTypeKanji:
		return "kanji"
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Segment is one run of payload bytes with a single encoding.
type Segment struct {
	Type DataType
	// Offset and Length locate the segment inside Data.Payload.
	Offset int
	Length int
	// ECI is the designator in effect for this segment, 0 if none.
	ECI uint32
}

// StructuredAppend is the header of a symbol that is part of a sequence.
type StructuredAppend struct {
	Index  int
	Total  int
	Parity byte
}

// Data is the decoded content of a Code.
type Data struct {
	Version  int
	ECLevel  ECLevel
	Mask     int
	DataType DataType
	// ECI is the last designator seen, 0 if the symbol carries none.
	ECI      uint32
	Payload  []byte
	Segments []Segment

	StructuredAppend *StructuredAppend
	FNC1First        bool
	FNC1Second       bool
	// ApplicationIndicator is set with FNC1Second.
	ApplicationIndicator byte

	// CorrectedErrors counts codewords repaired by Reed-Solomon.
	CorrectedErrors int
	Generation      uint64
}
