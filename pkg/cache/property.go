package cache

import "fmt"

// PropertyType is the value type of a user property.
type PropertyType int

const (
	PropertyUnknown PropertyType = iota

	// scalar types
	PropertyBool
	PropertyInt
	PropertyUInt
	PropertyFloat
	PropertyFloat2
	PropertyFloat3
	PropertyFloat4
	PropertyFloat4x4

	// array types
	PropertyBoolArray
	PropertyIntArray
	PropertyUIntArray
	PropertyFloatArray
	PropertyFloat2Array
	PropertyFloat3Array
	PropertyFloat4Array
	PropertyFloat4x4Array
)

var propertyTypeNames = [...]string{
	PropertyUnknown:       "Unknown",
	PropertyBool:          "Bool",
	PropertyInt:           "Int",
	PropertyUInt:          "UInt",
	PropertyFloat:         "Float",
	PropertyFloat2:        "Float2",
	PropertyFloat3:        "Float3",
	PropertyFloat4:        "Float4",
	PropertyFloat4x4:      "Float4x4",
	PropertyBoolArray:     "BoolArray",
	PropertyIntArray:      "IntArray",
	PropertyUIntArray:     "UIntArray",
	PropertyFloatArray:    "FloatArray",
	PropertyFloat2Array:   "Float2Array",
	PropertyFloat3Array:   "Float3Array",
	PropertyFloat4Array:   "Float4Array",
	PropertyFloat4x4Array: "Float4x4Array",
}

// String returns the type name.
func (t PropertyType) String() string {
	if t >= 0 && int(t) < len(propertyTypeNames) {
		return propertyTypeNames[t]
	}
	return fmt.Sprintf("Unknown(%d)", int(t))
}

// ParsePropertyType converts a type name back to a PropertyType.
func ParsePropertyType(s string) (PropertyType, error) {
	for i, name := range propertyTypeNames {
		if name == s {
			return PropertyType(i), nil
		}
	}
	return PropertyUnknown, fmt.Errorf("unknown property type %q", s)
}

// IsScalar reports whether the type holds a single value.
func (t PropertyType) IsScalar() bool {
	return t >= PropertyBool && t <= PropertyFloat4x4
}

// IsArray reports whether the type holds a variable length array.
func (t PropertyType) IsArray() bool {
	return t >= PropertyBoolArray && t <= PropertyFloat4x4Array
}

// Components returns the number of float/int components per element.
func (t PropertyType) Components() int {
	switch t {
	case PropertyFloat2, PropertyFloat2Array:
		return 2
	case PropertyFloat3, PropertyFloat3Array:
		return 3
	case PropertyFloat4, PropertyFloat4Array:
		return 4
	case PropertyFloat4x4, PropertyFloat4x4Array:
		return 16
	case PropertyUnknown:
		return 0
	default:
		return 1
	}
}

// Property is a user-defined attribute attached to a schema. Values are
// flattened: a Float3Array of n elements has 3n entries in Data.
type Property struct {
	Name string
	Type PropertyType
	Data []float64
}

// Len returns the number of elements (not components).
func (p Property) Len() int {
	c := p.Type.Components()
	if c == 0 {
		return 0
	}
	return len(p.Data) / c
}
