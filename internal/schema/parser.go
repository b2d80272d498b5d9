package schema

import (
	"os"
	"strconv"
	"strings"

	"github.com/kyleking/lernspark/internal/errors"
)

const commentMarker = "--"

// ParseFile reads and parses a schema file.
func ParseFile(path string) ([]Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "read schema file %s", path).
			WithSuggestion("Point --schema or LERNSPARK_DATASET_SCHEMA_PATH at an existing file")
	}

	return Parse(string(data))
}

// Parse parses one or more semicolon-terminated CREATE TABLE statements.
// A single bad statement or a repeated table name (ignoring case) fails the
// whole input and no tables are returned.
func Parse(text string) ([]Table, error) {
	text = stripLeadingComment(text)

	var tables []Table

	seen := make(map[string]bool)

	for _, fragment := range strings.Split(text, ";") {
		statement := strings.TrimSpace(fragment)
		if statement == "" {
			continue
		}

		table, err := ParseCreateTable(statement)
		if err != nil {
			return nil, err
		}

		// each table becomes one archive entry named after it
		key := strings.ToLower(table.Name)
		if seen[key] {
			return nil, errors.Newf(errors.ErrTypeMalformedSchema, "table %s is defined more than once", table.Name)
		}

		seen[key] = true
		tables = append(tables, table)
	}

	return tables, nil
}

// stripLeadingComment drops the first non-blank line when it is a comment.
func stripLeadingComment(text string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, commentMarker) {
			return strings.Join(lines[i+1:], "\n")
		}

		break
	}

	return text
}

// ParseCreateTable parses a single statement without its trailing semicolon.
func ParseCreateTable(statement string) (Table, error) {
	name, err := tableName(statement)
	if err != nil {
		return Table{}, err
	}

	columns, err := parseColumns(name, columnBlock(statement))
	if err != nil {
		return Table{}, err
	}

	return Table{Name: name, Columns: columns}, nil
}

func tableName(statement string) (string, error) {
	tokens := strings.Fields(statement)
	if len(tokens) < 2 || !strings.EqualFold(tokens[0], "CREATE") || !strings.EqualFold(tokens[1], "TABLE") {
		return "", errors.Newf(errors.ErrTypeMalformedSchema, "expected CREATE TABLE statement, got %q", preview(statement))
	}

	if len(tokens) < 3 {
		return "", errors.Newf(errors.ErrTypeMalformedSchema, "missing table name in %q", preview(statement))
	}

	name, _, _ := strings.Cut(tokens[2], "(")
	if name == "" {
		return "", errors.Newf(errors.ErrTypeMalformedSchema, "missing table name in %q", preview(statement))
	}

	return name, nil
}

// columnBlock returns the text between the first "(" and the last ")".
// A statement without a block yields "" and therefore no columns.
func columnBlock(statement string) string {
	open := strings.Index(statement, "(")
	if open < 0 {
		return ""
	}

	closing := strings.LastIndex(statement, ")")
	if closing <= open {
		return ""
	}

	return statement[open+1 : closing]
}

// splitDefinitions splits on commas at parenthesis depth zero, so length
// qualifiers such as VARCHAR(10) stay inside their column.
func splitDefinitions(block string) []string {
	var (
		parts []string
		depth int
		start int
	)

	for i, r := range block {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, block[start:i])
				start = i + 1
			}
		}
	}

	parts = append(parts, block[start:])

	return parts
}

func parseColumns(table, block string) ([]Column, error) {
	var columns []Column

	for _, def := range splitDefinitions(block) {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}

		column, err := parseColumn(def)
		if err != nil {
			if se, ok := err.(*errors.Error); ok {
				se.Message = table + ": " + se.Message
			}

			return nil, err
		}

		columns = append(columns, column)
	}

	return columns, nil
}

func parseColumn(def string) (Column, error) {
	tokens := strings.Fields(def)
	if len(tokens) < 2 {
		return Column{}, errors.Newf(errors.ErrTypeMalformedSchema, "column %q has no type", def)
	}

	dataType, consumed, err := parseDataType(tokens[1:])
	if err != nil {
		return Column{}, err
	}

	constraints := make([]string, 0, len(tokens)-1-consumed)
	constraints = append(constraints, tokens[1+consumed:]...)

	return Column{
		Name:        tokens[0],
		DataType:    dataType,
		Constraints: constraints,
	}, nil
}

// parseDataType matches the leading tail tokens against the type vocabulary
// and reports how many tokens the type used.
func parseDataType(tail []string) (DataType, int, error) {
	head := strings.ToUpper(tail[0])

	switch head {
	case "INT":
		return Int, 1, nil
	case "FLOAT":
		return Float, 1, nil
	case "TEXT":
		return String, 1, nil
	case "DATE", "DATETIME":
		return DateTime, 1, nil
	case "UUID":
		return UUID, 1, nil
	case "BOOLEAN":
		return Boolean, 1, nil
	}

	if !strings.HasPrefix(head, "VARCHAR") {
		return DataType{}, 0, errors.Newf(errors.ErrTypeUnsupportedType, "unsupported data type %q", tail[0]).
			WithSuggestion("Supported types: INT, FLOAT, TEXT, DATE, DATETIME, UUID, BOOLEAN, VARCHAR(n)")
	}

	qualifier := head[len("VARCHAR"):]
	consumed := 1

	// "VARCHAR (50)" puts the length in its own token
	if qualifier == "" && len(tail) > 1 && strings.HasPrefix(tail[1], "(") {
		qualifier = tail[1]
		consumed = 2
	}

	// "VARCHAR( 50 )" spreads it over several
	for strings.HasPrefix(qualifier, "(") && !strings.Contains(qualifier, ")") && consumed < len(tail) {
		qualifier += tail[consumed]
		consumed++
	}

	if qualifier != "" && !strings.HasPrefix(qualifier, "(") {
		return DataType{}, 0, errors.Newf(errors.ErrTypeUnsupportedType, "unsupported data type %q", tail[0])
	}

	return VarChar(varCharLength(qualifier)), consumed, nil
}

func varCharLength(qualifier string) int {
	inner := strings.TrimSuffix(strings.TrimPrefix(qualifier, "("), ")")

	n, err := strconv.Atoi(strings.TrimSpace(inner))
	if err != nil || n <= 0 {
		return DefaultVarCharLength
	}

	return n
}

func preview(statement string) string {
	const maxPreview = 40

	flat := strings.Join(strings.Fields(statement), " ")
	if len(flat) > maxPreview {
		return flat[:maxPreview] + "..."
	}

	return flat
}
