package datavalues

import (
	"fmt"
	"strings"

	"github.com/zhaox1n/datafuse/errorcode"
)

// DataField describes one named column.
type DataField struct {
	Name     string
	DataType DataType
	Nullable bool
}

func NewDataField(name string, dt DataType, nullable bool) DataField {
	return DataField{Name: name, DataType: dt, Nullable: nullable}
}

func (f DataField) Equal(o DataField) bool {
	return f.Name == o.Name && f.Nullable == o.Nullable && f.DataType.Equal(o.DataType)
}

func (f DataField) String() string {
	if f.Nullable {
		return fmt.Sprintf("%s:%s (nullable)", f.Name, f.DataType)
	}
	return fmt.Sprintf("%s:%s", f.Name, f.DataType)
}

// DataSchema is an ordered list of uniquely named fields.
type DataSchema struct {
	fields []DataField
	index  map[string]int
}

// NewDataSchema builds a schema. Duplicate names keep the first position for
// lookups.
func NewDataSchema(fields ...DataField) *DataSchema {
	s := &DataSchema{fields: append([]DataField(nil), fields...), index: make(map[string]int, len(fields))}
	for i, f := range s.fields {
		if _, dup := s.index[f.Name]; !dup {
			s.index[f.Name] = i
		}
	}
	return s
}

func (s *DataSchema) Fields() []DataField {
	return s.fields
}

func (s *DataSchema) NumFields() int {
	return len(s.fields)
}

func (s *DataSchema) Field(i int) DataField {
	return s.fields[i]
}

func (s *DataSchema) HasField(name string) bool {
	_, ok := s.index[name]
	return ok
}

// IndexOf returns the position of the named field.
func (s *DataSchema) IndexOf(name string) (int, error) {
	if i, ok := s.index[name]; ok {
		return i, nil
	}
	return -1, errorcode.UnknownColumn("Unable to get field named \"%s\". Valid fields: %s", name, s.names())
}

func (s *DataSchema) FieldWithName(name string) (DataField, error) {
	i, err := s.IndexOf(name)
	if err != nil {
		return DataField{}, err
	}
	return s.fields[i], nil
}

// Project returns a schema with the named fields in the given order.
func (s *DataSchema) Project(names ...string) (*DataSchema, error) {
	fields := make([]DataField, 0, len(names))
	for _, n := range names {
		f, err := s.FieldWithName(n)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return NewDataSchema(fields...), nil
}

func (s *DataSchema) Equal(o *DataSchema) bool {
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if !s.fields[i].Equal(o.fields[i]) {
			return false
		}
	}
	return true
}

func (s *DataSchema) names() string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = "\"" + f.Name + "\""
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func (s *DataSchema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
