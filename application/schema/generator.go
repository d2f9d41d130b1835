// Package schema provides JSON schema generation for configuration structs
// and plug-in argument lists.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
)

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// ForArguments describes an argument list as a JSON object schema.
// Arguments without a default are required.
func ForArguments(title string, list *entities.ArgumentList) ([]byte, error) {
	s := &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                title,
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}

	for _, arg := range list.Arguments() {
		prop := typeSchema(arg.Type())
		prop.Description = arg.Description()
		if def := arg.Default(); def != nil {
			prop.Default = def
		} else {
			s.Required = append(s.Required, arg.Name())
		}
		s.Properties.Set(arg.Name(), prop)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, &errors.SchemaError{Type: title, Err: err}
	}
	return data, nil
}

var integerBounds = map[string][2]string{
	entities.TypeInt8:   {strconv.Itoa(math.MinInt8), strconv.Itoa(math.MaxInt8)},
	entities.TypeUint8:  {"0", strconv.Itoa(math.MaxUint8)},
	entities.TypeInt16:  {strconv.Itoa(math.MinInt16), strconv.Itoa(math.MaxInt16)},
	entities.TypeUint16: {"0", strconv.Itoa(math.MaxUint16)},
	entities.TypeInt32:  {strconv.Itoa(math.MinInt32), strconv.Itoa(math.MaxInt32)},
	entities.TypeUint32: {"0", strconv.FormatUint(math.MaxUint32, 10)},
	entities.TypeInt64:  {strconv.FormatInt(math.MinInt64, 10), strconv.FormatInt(math.MaxInt64, 10)},
	entities.TypeUint64: {"0", strconv.FormatUint(math.MaxUint64, 10)},
}

func typeSchema(typeName string) *jsonschema.Schema {
	if bounds, ok := integerBounds[typeName]; ok {
		return &jsonschema.Schema{
			Type:    "integer",
			Minimum: json.Number(bounds[0]),
			Maximum: json.Number(bounds[1]),
		}
	}

	switch typeName {
	case entities.TypeFloat32, entities.TypeFloat64:
		return &jsonschema.Schema{Type: "number"}
	case entities.TypeBool:
		return &jsonschema.Schema{Type: "boolean"}
	case entities.TypeString, entities.TypeFilename:
		return &jsonschema.Schema{Type: "string"}
	case entities.TypeTime:
		return &jsonschema.Schema{Type: "string", Format: "date-time"}
	}

	if elem, ok := entities.ElementType(typeName); ok {
		return &jsonschema.Schema{Type: "array", Items: typeSchema(elem)}
	}

	// Host domain types and structured-text types have no JSON shape.
	return &jsonschema.Schema{Title: typeName}
}
