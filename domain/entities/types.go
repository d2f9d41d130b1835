package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

// Built-in argument type names. Any other name belongs to the open catalog of
// host domain types and generic values.
const (
	TypeInt8     = "int8"
	TypeUint8    = "uint8"
	TypeInt16    = "int16"
	TypeUint16   = "uint16"
	TypeInt32    = "int32"
	TypeUint32   = "uint32"
	TypeInt64    = "int64"
	TypeUint64   = "uint64"
	TypeFloat32  = "float32"
	TypeFloat64  = "float64"
	TypeBool     = "bool"
	TypeString   = "string"
	TypeTime     = "time"
	TypeFilename = "filename"
)

// arrayPrefix marks a homogeneous sequence type, e.g. "[]int32".
const arrayPrefix = "[]"

// ErrIncompatibleValue is returned when a value does not match the declared
// type of an argument.
var ErrIncompatibleValue = errors.New("incompatible value")

// Filename is a file path value. Its canonical form is an absolute, cleaned path.
type Filename struct {
	Path string
}

// NewFilename returns a Filename for path.
func NewFilename(path string) Filename {
	return Filename{Path: path}
}

// FullPathAndName returns the canonical path.
func (f Filename) FullPathAndName() string {
	if f.Path == "" {
		return ""
	}
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return filepath.Clean(f.Path)
	}
	return abs
}

func (f Filename) String() string {
	return f.FullPathAndName()
}

// MarshalJSON encodes the filename as its canonical path string.
func (f Filename) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.FullPathAndName())
}

// UnmarshalJSON decodes a path string.
func (f *Filename) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f.Path = s
	return nil
}

var scalarTypes = map[string]reflect.Type{
	TypeInt8:     reflect.TypeOf(int8(0)),
	TypeUint8:    reflect.TypeOf(uint8(0)),
	TypeInt16:    reflect.TypeOf(int16(0)),
	TypeUint16:   reflect.TypeOf(uint16(0)),
	TypeInt32:    reflect.TypeOf(int32(0)),
	TypeUint32:   reflect.TypeOf(uint32(0)),
	TypeInt64:    reflect.TypeOf(int64(0)),
	TypeUint64:   reflect.TypeOf(uint64(0)),
	TypeFloat32:  reflect.TypeOf(float32(0)),
	TypeFloat64:  reflect.TypeOf(float64(0)),
	TypeBool:     reflect.TypeOf(false),
	TypeString:   reflect.TypeOf(""),
	TypeTime:     reflect.TypeOf(time.Time{}),
	TypeFilename: reflect.TypeOf(Filename{}),
}

// ArrayOf returns the sequence type name for elem.
func ArrayOf(elem string) string {
	return arrayPrefix + elem
}

// ElementType reports the element type name of a sequence type name.
func ElementType(typeName string) (string, bool) {
	if !strings.HasPrefix(typeName, arrayPrefix) {
		return "", false
	}
	elem := strings.TrimPrefix(typeName, arrayPrefix)
	return elem, elem != ""
}

// IsBuiltinType reports whether typeName is one of the built-in scalar names.
func IsBuiltinType(typeName string) bool {
	_, ok := scalarTypes[typeName]
	return ok
}

// BuiltinTypes returns the built-in scalar type names.
func BuiltinTypes() []string {
	names := make([]string, 0, len(scalarTypes))
	for name := range scalarTypes {
		names = append(names, name)
	}
	return names
}

// GoType returns the Go type backing a built-in type name or a sequence of one.
// Open catalog names have no fixed Go type.
func GoType(typeName string) (reflect.Type, bool) {
	if t, ok := scalarTypes[typeName]; ok {
		return t, true
	}
	if elem, ok := ElementType(typeName); ok {
		if t, ok := GoType(elem); ok {
			return reflect.SliceOf(t), true
		}
	}
	return nil, false
}

// CheckValue verifies that v may be stored in an argument of typeName.
// nil is always accepted and means "unset". Values of open catalog types are
// opaque here and only checked by the marshaller.
func CheckValue(typeName string, v any) error {
	if v == nil {
		return nil
	}
	want, ok := GoType(typeName)
	if !ok {
		return nil
	}
	if got := reflect.TypeOf(v); got != want {
		return fmt.Errorf("%w: %s expects %s, got %s", ErrIncompatibleValue, typeName, want, got)
	}
	return nil
}

// Coerce converts a generically decoded value (YAML or JSON: numbers,
// strings, booleans, lists) into the Go type backing typeName.
// Open catalog types are returned unchanged.
func Coerce(typeName string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	want, ok := GoType(typeName)
	if !ok {
		return v, nil
	}
	if reflect.TypeOf(v) == want {
		return v, nil
	}

	if elem, isArray := ElementType(typeName); isArray {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("%w: %s expects a list, got %T", ErrIncompatibleValue, typeName, v)
		}
		out := reflect.MakeSlice(want, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := Coerce(elem, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			if item == nil {
				return nil, fmt.Errorf("%w: element %d of %s is null", ErrIncompatibleValue, i, typeName)
			}
			out.Index(i).Set(reflect.ValueOf(item))
		}
		return out.Interface(), nil
	}

	switch typeName {
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeFilename:
		if s, ok := v.(string); ok {
			return NewFilename(s), nil
		}
	case TypeTime:
		switch t := v.(type) {
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrIncompatibleValue, err)
			}
			return parsed, nil
		case time.Time:
			return t, nil
		}
	default:
		if f, ok := toFloat(v); ok {
			return convertNumber(typeName, want, f)
		}
	}
	return nil, fmt.Errorf("%w: %s expects %s, got %T", ErrIncompatibleValue, typeName, want, v)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// convertNumber converts f to the numeric Go type want, rejecting fractions
// for integer types and values outside the type's range.
func convertNumber(typeName string, want reflect.Type, f float64) (any, error) {
	out := reflect.New(want).Elem()
	switch want.Kind() {
	case reflect.Float32, reflect.Float64:
		out.SetFloat(f)
		return out.Interface(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("%w: %s expects an integer, got %v", ErrIncompatibleValue, typeName, f)
		}
		bits := want.Bits()
		lo, hi := -math.Ldexp(1, bits-1), math.Ldexp(1, bits-1)
		if f < lo || f >= hi {
			return nil, fmt.Errorf("%w: %v overflows %s", ErrIncompatibleValue, f, typeName)
		}
		out.SetInt(int64(f))
		return out.Interface(), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("%w: %s expects an integer, got %v", ErrIncompatibleValue, typeName, f)
		}
		if f < 0 || f >= math.Ldexp(1, want.Bits()) {
			return nil, fmt.Errorf("%w: %v overflows %s", ErrIncompatibleValue, f, typeName)
		}
		out.SetUint(uint64(f))
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s is not numeric", ErrIncompatibleValue, typeName)
}
