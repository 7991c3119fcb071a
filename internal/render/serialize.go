package render

import (
	"reflect"
	"strings"
)

// properties serializes a property struct to a CloudFormation-style
// property map. Field names come from json tags (PascalCase by convention),
// zero and nil values are omitted so a field the active mode does not own
// never appears in the output.
func properties(v any) map[string]any {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := fieldName(field)
		if name == "-" {
			continue
		}
		if isZeroValue(fieldVal) {
			continue
		}

		if serialized := serializeValue(fieldVal); serialized != nil {
			result[name] = serialized
		}
	}

	return result
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return field.Name
	}
	return name
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	default:
		return false
	}
}

func serializeValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return serializeValue(v.Elem())

	case reflect.Struct:
		return properties(v.Interface())

	case reflect.Slice:
		result := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if item := serializeValue(v.Index(i)); item != nil {
				result = append(result, item)
			}
		}
		return result

	case reflect.Map:
		result := make(map[string]any, v.Len())
		for _, key := range v.MapKeys() {
			if item := serializeValue(v.MapIndex(key)); item != nil {
				result[key.String()] = item
			}
		}
		return result

	default:
		return v.Interface()
	}
}
