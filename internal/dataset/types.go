// Package dataset materializes synthetic rows for a parsed table into a
// columnar file.
package dataset

import (
	"fmt"

	"github.com/kyleking/lernspark/internal/schema"
)

// ColumnType is the storage type a schema data type maps to.
type ColumnType struct {
	Physical  string // parquet physical type
	Converted string // parquet converted type, empty when none
}

var (
	Int32   = ColumnType{Physical: "INT32"}
	Float32 = ColumnType{Physical: "FLOAT"}
	UTF8    = ColumnType{Physical: "BYTE_ARRAY", Converted: "UTF8"}
	Date32  = ColumnType{Physical: "INT32", Converted: "DATE"}
	Bool    = ColumnType{Physical: "BOOLEAN"}
)

// MapType maps every data type to exactly one storage type. UUIDs are stored
// as text and dates as days since the epoch.
func MapType(dt schema.DataType) ColumnType {
	switch dt.Kind {
	case schema.KindInt:
		return Int32
	case schema.KindFloat:
		return Float32
	case schema.KindDateTime:
		return Date32
	case schema.KindBoolean:
		return Bool
	default:
		// String, VarChar and UUID
		return UTF8
	}
}

// ParquetTag renders the parquet-go schema tag for a column of this type.
func (c ColumnType) ParquetTag(name string) string {
	if c.Converted == "" {
		return fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", name, c.Physical)
	}

	return fmt.Sprintf("name=%s, type=%s, convertedtype=%s, repetitiontype=OPTIONAL", name, c.Physical, c.Converted)
}

func (c ColumnType) String() string {
	if c.Converted == "" {
		return c.Physical
	}

	return c.Physical + "/" + c.Converted
}

// ParquetSchema returns the schema tags for a table in column order.
func ParquetSchema(table schema.Table) []string {
	tags := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		tags = append(tags, MapType(col.DataType).ParquetTag(col.Name))
	}

	return tags
}
