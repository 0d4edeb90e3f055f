// Package binder converts untyped payloads plus out-of-band route
// parameters into typed operation inputs. Binding failures are
// structured values carrying the underlying cause, never panics.
package binder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/actionmesh/gateway/pkg/operation"
)

// BindError is a structured binding failure. The message surfaces the
// underlying cause without leaking type internals beyond the input
// shape's declared field names.
type BindError struct {
	Cause string
}

func (e *BindError) Error() string { return e.Cause }

func bindErrorf(format string, args ...interface{}) *BindError {
	return &BindError{Cause: fmt.Sprintf(format, args...)}
}

// Bind produces the typed input instance for a descriptor.
//
// Empty payload: zero-argument construction via NewInput, unless the
// input shape is immutable, in which case the descriptor's Bind
// closure satisfies each field from route parameters, declared
// defaults, or the field type's zero value.
//
// Present payload: case-insensitive deserialization into the input
// shape; immutable shapes reconcile route parameters over payload
// fields over defaults through the Bind closure.
func Bind(d *operation.Descriptor, payload []byte, route map[string]string) (interface{}, error) {
	if d.Bind != nil {
		out, err := d.Bind(payload, route)
		if err != nil {
			if _, ok := err.(*BindError); ok {
				return nil, err
			}
			return nil, &BindError{Cause: err.Error()}
		}
		return out, nil
	}

	if d.Input.Immutable {
		return nil, bindErrorf("operation %s declares an immutable input shape but no builder", d.Name)
	}
	if d.NewInput == nil {
		return nil, bindErrorf("operation %s cannot construct its input shape", d.Name)
	}

	instance := d.NewInput()
	if emptyPayload(payload) {
		return instance, nil
	}
	if err := json.Unmarshal(payload, instance); err != nil {
		return nil, decodeError(d.Input, err)
	}
	return instance, nil
}

// Fields builds a BindFunc for immutable value shapes. Field values
// are merged in ascending priority: declared defaults, then payload
// fields, then route parameters; any field still unset receives its
// type's zero value. The build closure receives the merged values
// keyed by the shape's declared field names.
func Fields(shape operation.Shape, build func(values map[string]interface{}) (interface{}, error)) operation.BindFunc {
	return func(payload []byte, route map[string]string) (interface{}, error) {
		values := make(map[string]interface{}, len(shape.Fields))

		// Declared defaults.
		for _, f := range shape.Fields {
			if f.Default != nil {
				values[f.Name] = f.Default
			}
		}

		// Payload fields, matched case-insensitively.
		if !emptyPayload(payload) {
			var doc map[string]interface{}
			if err := json.Unmarshal(payload, &doc); err != nil {
				return nil, decodeError(shape, err)
			}
			for key, val := range doc {
				if f, ok := shape.FieldNamed(key); ok {
					converted, err := convertJSON(f, val)
					if err != nil {
						return nil, err
					}
					values[f.Name] = converted
				}
			}
		}

		// Route parameters win over everything.
		for key, val := range route {
			if f, ok := shape.FieldNamed(key); ok {
				converted, err := convertString(f, val)
				if err != nil {
					return nil, err
				}
				values[f.Name] = converted
			}
		}

		// Zero values for whatever remains.
		for _, f := range shape.Fields {
			if _, ok := values[f.Name]; !ok {
				values[f.Name] = zeroValue(f.Type)
			}
		}

		out, err := build(values)
		if err != nil {
			if _, ok := err.(*BindError); ok {
				return nil, err
			}
			return nil, &BindError{Cause: err.Error()}
		}
		return out, nil
	}
}

func emptyPayload(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeError sanitizes JSON errors down to declared field names.
func decodeError(shape operation.Shape, err error) *BindError {
	switch e := err.(type) {
	case *json.UnmarshalTypeError:
		if f, ok := shape.FieldNamed(e.Field); ok {
			return bindErrorf("invalid value for field %q: expected %s", f.Name, f.Type)
		}
		if e.Field != "" {
			return bindErrorf("invalid value for field %q", e.Field)
		}
		return bindErrorf("payload does not match the %s shape", shape.Name)
	case *json.SyntaxError:
		return bindErrorf("malformed payload at offset %d", e.Offset)
	default:
		return bindErrorf("payload does not match the %s shape", shape.Name)
	}
}

// convertString converts a route parameter to the field's declared type.
func convertString(f operation.Field, val string) (interface{}, error) {
	switch f.Type {
	case operation.FieldInt:
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, bindErrorf("invalid value for field %q: expected int", f.Name)
		}
		return n, nil
	case operation.FieldFloat:
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, bindErrorf("invalid value for field %q: expected float", f.Name)
		}
		return n, nil
	case operation.FieldBool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, bindErrorf("invalid value for field %q: expected bool", f.Name)
		}
		return b, nil
	default:
		return val, nil
	}
}

// convertJSON normalizes a decoded JSON value to the field's declared
// type. JSON numbers arrive as float64.
func convertJSON(f operation.Field, val interface{}) (interface{}, error) {
	switch f.Type {
	case operation.FieldInt:
		switch n := val.(type) {
		case float64:
			return int(n), nil
		case string:
			return convertString(f, n)
		}
		return nil, bindErrorf("invalid value for field %q: expected int", f.Name)
	case operation.FieldFloat:
		if n, ok := val.(float64); ok {
			return n, nil
		}
		return nil, bindErrorf("invalid value for field %q: expected float", f.Name)
	case operation.FieldBool:
		if b, ok := val.(bool); ok {
			return b, nil
		}
		return nil, bindErrorf("invalid value for field %q: expected bool", f.Name)
	case operation.FieldString:
		if s, ok := val.(string); ok {
			return s, nil
		}
		return nil, bindErrorf("invalid value for field %q: expected string", f.Name)
	default:
		return val, nil
	}
}

func zeroValue(t operation.FieldType) interface{} {
	switch t {
	case operation.FieldInt:
		return 0
	case operation.FieldFloat:
		return float64(0)
	case operation.FieldBool:
		return false
	case operation.FieldString:
		return ""
	default:
		return nil
	}
}

// StringValue reads a merged string field produced by Fields.
func StringValue(values map[string]interface{}, name string) string {
	if s, ok := values[name].(string); ok {
		return s
	}
	return ""
}

// IntValue reads a merged int field produced by Fields.
func IntValue(values map[string]interface{}, name string) int {
	switch n := values[name].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// BoolValue reads a merged bool field produced by Fields.
func BoolValue(values map[string]interface{}, name string) bool {
	if b, ok := values[name].(bool); ok {
		return b
	}
	return false
}

// FloatValue reads a merged float field produced by Fields.
func FloatValue(values map[string]interface{}, name string) float64 {
	switch n := values[name].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
