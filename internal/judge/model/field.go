package model

import (
	"fmt"
	"strings"
)

// FieldType is the value-type vocabulary shared by testcases and the synthesizer.
// The integer codes are persisted.
type FieldType int

const (
	FieldInteger    FieldType = 1
	FieldString     FieldType = 2
	FieldArrayInt   FieldType = 3
	FieldArrayStr   FieldType = 4
	FieldArrayInt2D FieldType = 5
	FieldArrayStr2D FieldType = 6
	FieldBoolean    FieldType = 7
	FieldFloat      FieldType = 8
)

// OutputFieldName names the field holding a testcase's expected output.
const OutputFieldName = "output"

var fieldTypeNames = map[FieldType]string{
	FieldInteger:    "Integer",
	FieldString:     "String",
	FieldArrayInt:   "Integer Array",
	FieldArrayStr:   "String Array",
	FieldArrayInt2D: "2D Integer Array",
	FieldArrayStr2D: "2D String Array",
	FieldBoolean:    "Boolean",
	FieldFloat:      "Float",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Valid reports whether t is a known code.
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// ValueField is one named literal of a testcase.
type ValueField struct {
	Name  string    `json:"name"`
	Type  FieldType `json:"type"`
	Value string    `json:"value"`
}

// CanonicalBool maps any casing of true/false to the stored True/False form.
// ok is false when value is not a boolean literal.
func CanonicalBool(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return "True", true
	case "false":
		return "False", true
	}
	return value, false
}

// Canonical returns the literal in the form program output is compared against.
func (f ValueField) Canonical() string {
	if f.Type == FieldBoolean {
		v, _ := CanonicalBool(f.Value)
		return v
	}
	return f.Value
}

// IsOutput reports whether f holds the expected output.
func (f ValueField) IsOutput() bool {
	return f.Name == OutputFieldName
}

// TestCase is an ordered list of parameters plus exactly one output field.
type TestCase struct {
	ID       int64        `json:"-"`
	PublicID string       `json:"public_id,omitempty"`
	IsSample bool         `json:"is_sample"`
	Inputs   []ValueField `json:"inputs"`
}

// Output returns the expected output field.
func (tc TestCase) Output() (ValueField, bool) {
	for _, f := range tc.Inputs {
		if f.IsOutput() {
			return f, true
		}
	}
	return ValueField{}, false
}

// Params returns the non-output fields in declaration order.
func (tc TestCase) Params() []ValueField {
	params := make([]ValueField, 0, len(tc.Inputs))
	for _, f := range tc.Inputs {
		if !f.IsOutput() {
			params = append(params, f)
		}
	}
	return params
}

// Validate checks the field layout of a testcase.
func (tc TestCase) Validate() error {
	outputs := 0
	seen := make(map[string]struct{}, len(tc.Inputs))
	for _, f := range tc.Inputs {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("field name is required")
		}
		if !f.Type.Valid() {
			return fmt.Errorf("field %q has unknown type %d", f.Name, int(f.Type))
		}
		if f.IsOutput() {
			outputs++
			continue
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate parameter %q", f.Name)
		}
		seen[name] = struct{}{}
	}
	if outputs != 1 {
		return fmt.Errorf("testcase must have exactly one %q field, got %d", OutputFieldName, outputs)
	}
	return nil
}
