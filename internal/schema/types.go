// Package schema turns CREATE TABLE text into a typed table model.
package schema

import "fmt"

// Kind tags the column data type. Only the tag matters downstream.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindDateTime
	KindUUID
	KindBoolean
	KindVarChar
)

// DefaultVarCharLength is used when VARCHAR has no usable length.
const DefaultVarCharLength = 255

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindDateTime:
		return "DateTime"
	case KindUUID:
		return "UUID"
	case KindBoolean:
		return "Boolean"
	case KindVarChar:
		return "VarChar"
	default:
		return "Unknown"
	}
}

// DataType is a column type. Length is only set for VarChar.
type DataType struct {
	Kind   Kind
	Length int
}

func (d DataType) String() string {
	if d.Kind == KindVarChar {
		return fmt.Sprintf("VarChar(%d)", d.Length)
	}

	return d.Kind.String()
}

// Convenience constructors used by tests and callers building tables by hand.
var (
	Int      = DataType{Kind: KindInt}
	Float    = DataType{Kind: KindFloat}
	String   = DataType{Kind: KindString}
	DateTime = DataType{Kind: KindDateTime}
	UUID     = DataType{Kind: KindUUID}
	Boolean  = DataType{Kind: KindBoolean}
)

// VarChar returns a VarChar type of the given length.
func VarChar(length int) DataType {
	return DataType{Kind: KindVarChar, Length: length}
}

// Column is one column definition. Constraints are the raw tokens that
// followed the type, e.g. ["NOT", "NULL"].
type Column struct {
	Name        string
	DataType    DataType
	Constraints []string
}

// Table is one parsed CREATE TABLE statement.
type Table struct {
	Name    string
	Columns []Column
}
