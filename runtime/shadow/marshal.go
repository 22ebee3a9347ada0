// Copyright 2025 Binaek Sarkar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shadow

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/dop251/goja"
	"github.com/fatih/structs"
	"github.com/mlld-sh/mlld/values"
)

// exportValue converts a goja return value into a runtime value. Structs
// become maps; maps and slices pass through; anything exotic is rejected.
func exportValue(vm *goja.Runtime, out goja.Value) (any, error) {
	if out == nil || goja.IsUndefined(out) || goja.IsNull(out) || out.ExportType() == nil {
		return nil, nil
	}

	acceptedReturnTypes := []reflect.Kind{
		reflect.Map,
		reflect.Slice,
		reflect.Array,
		reflect.String,
		reflect.Int64,
		reflect.Float64,
		reflect.Bool,
		reflect.Struct,
	}

	if !slices.Contains(acceptedReturnTypes, out.ExportType().Kind()) {
		return nil, fmt.Errorf("unexpected return type %s", out.ExportType())
	}

	result := out.Export()

	if structs.IsStruct(result) {
		result = structs.Map(result)
	}

	return normalizeNumbers(result), nil
}

// normalizeNumbers folds integer returns into float64, the single numeric
// type the value model uses.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case []any:
		for i := range t {
			t[i] = normalizeNumbers(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeNumbers(t[k])
		}
		return t
	default:
		return v
	}
}

// toHostValue prepares a runtime value for a shadow VM: ordered objects and
// structured values cross as plain data.
func toHostValue(v any) any {
	switch t := v.(type) {
	case *values.Object:
		out := map[string]any{}
		t.Range(func(k string, inner any) bool {
			out[k] = toHostValue(inner)
			return true
		})
		return out
	case *values.StructuredValue:
		return toHostValue(t.Data())
	case values.Path:
		return string(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = toHostValue(t[i])
		}
		return out
	default:
		return v
	}
}

// StringifyResult renders a shadow result the way shell interpolation
// needs it: JSON for compound data, plain text otherwise.
func StringifyResult(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case values.Path:
		return string(t)
	default:
		b, err := json.Marshal(toHostValue(v))
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
