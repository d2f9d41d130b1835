package marshal

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/domain/errors"
)

// opaqueObject wraps a host entity. Scripts see a single read-only
// "type" property; the entity itself never crosses into the engine.
type opaqueObject struct {
	rt       *goja.Runtime
	value    any
	typeName string
}

func (o *opaqueObject) Get(key string) goja.Value {
	if key == "type" {
		return o.rt.ToValue(o.typeName)
	}
	return nil
}

func (o *opaqueObject) Set(string, goja.Value) bool { return false }

func (o *opaqueObject) Has(key string) bool { return key == "type" }

func (o *opaqueObject) Delete(string) bool { return false }

func (o *opaqueObject) Keys() []string { return []string{"type"} }

func opaqueCodec(typeName string) Codec {
	return Codec{
		ToScript: func(rt *goja.Runtime, v any) (goja.Value, error) {
			return rt.NewDynamicObject(&opaqueObject{rt: rt, typeName: typeName, value: v}), nil
		},
		FromScript: func(_ *goja.Runtime, v goja.Value) (any, error) {
			obj, ok := v.(*goja.Object)
			if !ok {
				return nil, mismatch(typeName, v, nil)
			}
			o, ok := obj.Export().(*opaqueObject)
			if !ok {
				return nil, mismatch(typeName, v, fmt.Errorf("not a host object"))
			}
			if o.typeName != typeName {
				return nil, &errors.MarshalTypeMismatch{TypeName: typeName, Got: o.typeName, Index: -1}
			}
			return o.value, nil
		},
	}
}
