// Package marshal converts values between host arguments and script values.
//
// Conversions are looked up in a registration table keyed by type name. The
// table is seeded with the built-in scalar types, file names and dates;
// sequence types ("[]T") are derived from their element codec on first use;
// host domain types registered with RegisterDomainType become opaque script
// objects; every other type falls back to JSON text.
package marshal

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
)

// Codec converts one host type in both directions.
type Codec struct {
	ToScript   func(rt *goja.Runtime, v any) (goja.Value, error)
	FromScript func(rt *goja.Runtime, v goja.Value) (any, error)
}

// Marshaller holds the codec registration table.
type Marshaller struct {
	codecs     map[string]Codec
	prototypes map[string]reflect.Type
	mu         sync.RWMutex
}

// Option configures a Marshaller.
type Option func(*Marshaller)

// WithDomainTypes registers host domain types converted to opaque handles.
func WithDomainTypes(names ...string) Option {
	return func(m *Marshaller) {
		m.RegisterDomainType(names...)
	}
}

// WithPrototype registers the Go type used to decode JSON text for typeName.
func WithPrototype(typeName string, sample any) Option {
	return func(m *Marshaller) {
		m.RegisterPrototype(typeName, sample)
	}
}

// WithCodec registers a custom codec.
func WithCodec(typeName string, c Codec) Option {
	return func(m *Marshaller) {
		m.Register(typeName, c)
	}
}

// New creates a Marshaller with the built-in codecs.
func New(opts ...Option) *Marshaller {
	m := &Marshaller{
		codecs:     make(map[string]Codec),
		prototypes: make(map[string]reflect.Type),
	}
	for _, name := range []string{
		entities.TypeInt8, entities.TypeUint8, entities.TypeInt16, entities.TypeUint16,
		entities.TypeInt32, entities.TypeUint32, entities.TypeInt64, entities.TypeUint64,
		entities.TypeFloat32, entities.TypeFloat64,
	} {
		m.codecs[name] = numberCodec(name)
	}
	m.codecs[entities.TypeBool] = Codec{ToScript: boolToScript, FromScript: boolFromScript}
	m.codecs[entities.TypeString] = Codec{ToScript: stringToScript, FromScript: stringFromScript}
	m.codecs[entities.TypeTime] = Codec{ToScript: timeToScript, FromScript: timeFromScript}
	m.codecs[entities.TypeFilename] = Codec{ToScript: filenameToScript, FromScript: filenameFromScript}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds or replaces the codec for typeName.
func (m *Marshaller) Register(typeName string, c Codec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codecs[typeName] = c
}

// RegisterDomainType registers opaque host entity types.
func (m *Marshaller) RegisterDomainType(names ...string) {
	for _, name := range names {
		m.Register(name, opaqueCodec(name))
	}
}

// RegisterPrototype records the Go type of sample as the decoding target of
// the structured-text fallback for typeName.
func (m *Marshaller) RegisterPrototype(typeName string, sample any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prototypes[typeName] = reflect.TypeOf(sample)
}

// ToScript converts the effective value of arg. Unset arguments become undefined.
func (m *Marshaller) ToScript(rt *goja.Runtime, arg *entities.Argument) (goja.Value, error) {
	v, ok := arg.Value()
	if !ok {
		return goja.Undefined(), nil
	}
	return m.ValueToScript(rt, arg.Type(), v)
}

// ValueToScript converts v, declared as typeName.
func (m *Marshaller) ValueToScript(rt *goja.Runtime, typeName string, v any) (goja.Value, error) {
	if v == nil {
		return goja.Undefined(), nil
	}
	return m.codecFor(typeName).ToScript(rt, v)
}

// FromScript converts v to the Go representation of typeName.
// undefined and null convert to nil (unset).
func (m *Marshaller) FromScript(rt *goja.Runtime, v goja.Value, typeName string) (any, error) {
	if isNullish(v) {
		return nil, nil
	}
	out, err := m.codecFor(typeName).FromScript(rt, v)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Marshaller) codecFor(typeName string) Codec {
	m.mu.RLock()
	c, ok := m.codecs[typeName]
	m.mu.RUnlock()
	if ok {
		return c
	}
	if elem, isArray := entities.ElementType(typeName); isArray {
		c = m.arrayCodec(typeName, elem)
		m.Register(typeName, c)
		return c
	}
	return m.jsonCodec(typeName)
}

func mismatch(typeName string, v goja.Value, err error) error {
	return &errors.MarshalTypeMismatch{TypeName: typeName, Got: describe(v), Index: -1, Err: err}
}

// describe names the script-side kind of v for diagnostics.
func describe(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		return obj.ClassName()
	}
	if t := v.ExportType(); t != nil {
		switch t.Kind() {
		case reflect.Bool:
			return "boolean"
		case reflect.Int64, reflect.Float64:
			return "number"
		case reflect.String:
			return "string"
		}
	}
	return "value"
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func isPrimitive(v goja.Value, kind reflect.Kind) bool {
	if _, isObj := v.(*goja.Object); isObj {
		return false
	}
	t := v.ExportType()
	return t != nil && t.Kind() == kind
}

// maxSafeInteger is the largest integer a script number holds exactly.
const maxSafeInteger = 1<<53 - 1

func numberCodec(typeName string) Codec {
	goType, _ := entities.GoType(typeName)
	return Codec{
		ToScript: func(rt *goja.Runtime, v any) (goja.Value, error) {
			rv := reflect.ValueOf(v)
			if rv.Type() != goType {
				return nil, &errors.MarshalTypeMismatch{TypeName: typeName, Got: rv.Type().String(), Index: -1}
			}
			switch rv.Kind() {
			case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				if i := rv.Int(); i > maxSafeInteger || i < -maxSafeInteger {
					return rt.ToValue(strconv.FormatInt(i, 10)), nil
				}
				return rt.ToValue(rv.Int()), nil
			case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				if u := rv.Uint(); u > maxSafeInteger {
					return rt.ToValue(strconv.FormatUint(u, 10)), nil
				}
				return rt.ToValue(rv.Uint()), nil
			default:
				return rt.ToValue(rv.Float()), nil
			}
		},
		FromScript: func(rt *goja.Runtime, v goja.Value) (any, error) {
			if _, isObj := v.(*goja.Object); isObj {
				return nil, mismatch(typeName, v, nil)
			}
			out := reflect.New(goType).Elem()
			switch n := v.Export().(type) {
			case int64:
				switch out.Kind() {
				case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
					if out.OverflowInt(n) {
						return nil, mismatch(typeName, v, fmt.Errorf("%d overflows %s", n, typeName))
					}
					out.SetInt(n)
				case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
					if n < 0 || out.OverflowUint(uint64(n)) {
						return nil, mismatch(typeName, v, fmt.Errorf("%d overflows %s", n, typeName))
					}
					out.SetUint(uint64(n))
				default:
					out.SetFloat(float64(n))
				}
				return out.Interface(), nil
			case float64:
				if out.Kind() == reflect.Float32 || out.Kind() == reflect.Float64 {
					if !math.IsInf(n, 0) && out.OverflowFloat(n) {
						return nil, mismatch(typeName, v, fmt.Errorf("%v overflows %s", n, typeName))
					}
					out.SetFloat(n)
					return out.Interface(), nil
				}
				if math.IsNaN(n) || math.IsInf(n, 0) {
					return nil, mismatch(typeName, v, fmt.Errorf("%v is not an integer", n))
				}
				converted, err := entities.Coerce(typeName, n)
				if err != nil {
					return nil, mismatch(typeName, v, err)
				}
				return converted, nil
			case string:
				return decimalFromScript(typeName, out, v, n)
			}
			return nil, mismatch(typeName, v, nil)
		},
	}
}

// decimalFromScript reads the decimal text form that 64-bit integers take
// outside the exactly representable number range.
func decimalFromScript(typeName string, out reflect.Value, v goja.Value, text string) (any, error) {
	switch out.Kind() {
	case reflect.Int64:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, mismatch(typeName, v, err)
		}
		out.SetInt(i)
	case reflect.Uint64:
		u, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, mismatch(typeName, v, err)
		}
		out.SetUint(u)
	default:
		return nil, mismatch(typeName, v, nil)
	}
	return out.Interface(), nil
}

func boolToScript(rt *goja.Runtime, v any) (goja.Value, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, &errors.MarshalTypeMismatch{TypeName: entities.TypeBool, Got: fmt.Sprintf("%T", v), Index: -1}
	}
	return rt.ToValue(b), nil
}

func boolFromScript(_ *goja.Runtime, v goja.Value) (any, error) {
	if !isPrimitive(v, reflect.Bool) {
		return nil, mismatch(entities.TypeBool, v, nil)
	}
	return v.ToBoolean(), nil
}

func stringToScript(rt *goja.Runtime, v any) (goja.Value, error) {
	s, ok := v.(string)
	if !ok {
		return nil, &errors.MarshalTypeMismatch{TypeName: entities.TypeString, Got: fmt.Sprintf("%T", v), Index: -1}
	}
	return rt.ToValue(s), nil
}

func stringFromScript(_ *goja.Runtime, v goja.Value) (any, error) {
	if !isPrimitive(v, reflect.String) {
		return nil, mismatch(entities.TypeString, v, nil)
	}
	return v.String(), nil
}

// Dates travel as epoch milliseconds, the native Date resolution.
func timeToScript(rt *goja.Runtime, v any) (goja.Value, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, &errors.MarshalTypeMismatch{TypeName: entities.TypeTime, Got: fmt.Sprintf("%T", v), Index: -1}
	}
	date, err := rt.New(rt.Get("Date"), rt.ToValue(t.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("failed to construct Date: %w", err)
	}
	return date, nil
}

func timeFromScript(_ *goja.Runtime, v goja.Value) (any, error) {
	obj, ok := v.(*goja.Object)
	if !ok || obj.ClassName() != "Date" {
		return nil, mismatch(entities.TypeTime, v, nil)
	}
	getTime, ok := goja.AssertFunction(obj.Get("getTime"))
	if !ok {
		return nil, mismatch(entities.TypeTime, v, fmt.Errorf("Date has no getTime"))
	}
	ms, err := getTime(obj)
	if err != nil {
		return nil, mismatch(entities.TypeTime, v, err)
	}
	f := ms.ToFloat()
	if math.IsNaN(f) {
		return nil, mismatch(entities.TypeTime, v, fmt.Errorf("invalid date"))
	}
	return time.UnixMilli(int64(f)), nil
}

func filenameToScript(rt *goja.Runtime, v any) (goja.Value, error) {
	f, ok := v.(entities.Filename)
	if !ok {
		return nil, &errors.MarshalTypeMismatch{TypeName: entities.TypeFilename, Got: fmt.Sprintf("%T", v), Index: -1}
	}
	return rt.ToValue(f.FullPathAndName()), nil
}

func filenameFromScript(_ *goja.Runtime, v goja.Value) (any, error) {
	if !isPrimitive(v, reflect.String) {
		return nil, mismatch(entities.TypeFilename, v, nil)
	}
	return entities.NewFilename(v.String()), nil
}

func (m *Marshaller) arrayCodec(typeName, elem string) Codec {
	sliceType, ok := entities.GoType(typeName)
	if !ok {
		sliceType = reflect.TypeOf([]any(nil))
	}
	return Codec{
		ToScript: func(rt *goja.Runtime, v any) (goja.Value, error) {
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Slice {
				return nil, &errors.MarshalTypeMismatch{TypeName: typeName, Got: rv.Type().String(), Index: -1}
			}
			ec := m.codecFor(elem)
			items := make([]any, rv.Len())
			for i := range items {
				item, err := ec.ToScript(rt, rv.Index(i).Interface())
				if err != nil {
					return nil, &errors.MarshalTypeMismatch{TypeName: typeName, Got: fmt.Sprintf("%T", v), Index: i, Err: err}
				}
				items[i] = item
			}
			return rt.NewArray(items...), nil
		},
		FromScript: func(rt *goja.Runtime, v goja.Value) (any, error) {
			obj, ok := v.(*goja.Object)
			if !ok || obj.ClassName() != "Array" {
				return nil, mismatch(typeName, v, nil)
			}
			ec := m.codecFor(elem)
			n := int(obj.Get("length").ToInteger())
			out := reflect.MakeSlice(sliceType, n, n)
			for i := 0; i < n; i++ {
				item := obj.Get(strconv.Itoa(i))
				if isNullish(item) {
					return nil, &errors.MarshalTypeMismatch{TypeName: typeName, Got: describe(item), Index: i}
				}
				converted, err := ec.FromScript(rt, item)
				if err != nil {
					return nil, &errors.MarshalTypeMismatch{TypeName: typeName, Got: describe(item), Index: i, Err: err}
				}
				cv := reflect.ValueOf(converted)
				if !cv.Type().AssignableTo(sliceType.Elem()) {
					return nil, &errors.MarshalTypeMismatch{TypeName: typeName, Got: cv.Type().String(), Index: i}
				}
				out.Index(i).Set(cv)
			}
			return out.Interface(), nil
		},
	}
}

func jsonToScript(rt *goja.Runtime, v any) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &errors.WireFormatError{Operation: "marshal", Type: fmt.Sprintf("%T", v), Err: err}
	}
	return rt.ToValue(string(data)), nil
}

func (m *Marshaller) jsonCodec(typeName string) Codec {
	return Codec{
		ToScript: jsonToScript,
		FromScript: func(_ *goja.Runtime, v goja.Value) (any, error) {
			if !isPrimitive(v, reflect.String) {
				return nil, mismatch(typeName, v, fmt.Errorf("expected structured text"))
			}
			m.mu.RLock()
			proto, ok := m.prototypes[typeName]
			m.mu.RUnlock()
			if !ok {
				var out any
				if err := json.Unmarshal([]byte(v.String()), &out); err != nil {
					return nil, decodeMismatch(typeName, err)
				}
				return out, nil
			}
			target := reflect.New(proto)
			if err := json.Unmarshal([]byte(v.String()), target.Interface()); err != nil {
				return nil, decodeMismatch(typeName, err)
			}
			return target.Elem().Interface(), nil
		},
	}
}

func decodeMismatch(typeName string, err error) error {
	wf := &errors.WireFormatError{Operation: "unmarshal", Type: typeName, Err: err}
	return &errors.MarshalTypeMismatch{TypeName: typeName, Got: "string", Index: -1, Err: wf}
}
