// Handles column description of document rows through JSON Schema reflection.

package jsondb

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// ColumnType represents the logical type of a column.
type ColumnType string

// Column types.
const (
	ColumnTypeText   ColumnType = "text"
	ColumnTypeNumber ColumnType = "number"
	ColumnTypeBool   ColumnType = "bool"
	ColumnTypeJSON   ColumnType = "json"
)

// Column describes one field of a row type.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Nullable    bool       `json:"nullable,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Schema returns the JSON Schema of T with all properties inlined.
//
// Required properties are the ones tagged `jsonschema:"required"`.
func Schema[T any]() (*jsonschema.Schema, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true, RequiredFromJSONSchemaTags: true}
	return r.ReflectFromType(t), nil
}

// Columns extracts column definitions of T in declaration order.
//
// It uses github.com/invopop/jsonschema to extract field descriptions from
// `jsonschema:"description=..."` tags.
func Columns[T any]() ([]Column, error) {
	schema, err := Schema[T]()
	if err != nil {
		return nil, err
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	var columns []Column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		typ, nullable := columnType(pair.Value)
		columns = append(columns, Column{
			Name:        pair.Key,
			Type:        typ,
			Required:    required[pair.Key],
			Nullable:    nullable,
			Description: pair.Value.Description,
		})
	}
	return columns, nil
}

// columnType maps a property schema to a column type.
func columnType(s *jsonschema.Schema) (ColumnType, bool) {
	if len(s.OneOf) != 0 {
		nullable := false
		var typ ColumnType
		for _, alt := range s.OneOf {
			if alt.Type == "null" {
				nullable = true
				continue
			}
			typ, _ = columnType(alt)
		}
		if typ == "" {
			typ = ColumnTypeJSON
		}
		return typ, nullable
	}
	switch s.Type {
	case "string":
		return ColumnTypeText, false
	case "integer":
		if len(s.Enum) == 2 {
			return ColumnTypeBool, false
		}
		return ColumnTypeNumber, false
	case "number":
		return ColumnTypeNumber, false
	case "boolean":
		return ColumnTypeBool, false
	default:
		return ColumnTypeJSON, false
	}
}
