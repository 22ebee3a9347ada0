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

package runtime

import (
	"context"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// resolution selects the unwrapping rules for a variable reference.
type resolution int

const (
	// resolveDisplay: text view, stringified primitives, "" on missing.
	resolveDisplay resolution = iota

	// resolveFieldAccess: data view; missing errors (strict) or yields
	// undefined (permissive).
	resolveFieldAccess

	// resolveEquality: raw value; missing yields undefined, which equals
	// nothing.
	resolveEquality

	// resolvePipelineInput: raw value plus metadata, passed through.
	resolvePipelineInput

	// resolveInterpolation: text view in string form, "" on missing.
	resolveInterpolation
)

// resolveRef evaluates `@name.a.b.0` under the given resolution context.
func (it *Interpreter) resolveRef(ctx context.Context, env *Environment, ref *ast.VariableRef, rc resolution) (any, error) {
	v, ok := env.Get(ref.Name)
	if !ok {
		switch rc {
		case resolveDisplay, resolveInterpolation:
			return "", nil
		case resolveEquality, resolvePipelineInput:
			return values.Undefined, nil
		default:
			if it.permissiveFields {
				return values.Undefined, nil
			}
			return nil, xerr.ErrVariableNotFound(ref.Name).(*xerr.Error).WithLocation(ref.Rng)
		}
	}

	current := v.Value
	for _, field := range ref.Fields {
		// field traversal always looks at the data view
		next, err := it.accessField(unwrapData(current), ref.Name, field)
		if err != nil {
			return nil, err
		}
		current = next
	}

	switch rc {
	case resolveDisplay:
		return displayText(current), nil
	case resolveInterpolation:
		return interpolationText(current), nil
	case resolveFieldAccess:
		return unwrapData(current), nil
	default:
		return current, nil
	}
}

// accessField traverses one step: objects by key, arrays by index.
func (it *Interpreter) accessField(v any, name string, field ast.Field) (any, error) {
	if field.IsIndex {
		arr, err := asArray(v)
		if err != nil || arr == nil {
			if it.permissiveFields {
				return values.Undefined, nil
			}
			return nil, xerr.ErrFieldNotFound(name, field.String())
		}
		if field.Index < 0 || field.Index >= len(arr) {
			if it.permissiveFields {
				return values.Undefined, nil
			}
			return nil, xerr.ErrFieldNotFound(name, field.String())
		}
		return arr[field.Index], nil
	}

	switch t := v.(type) {
	case *values.Object:
		if out, ok := t.Get(field.Key); ok {
			return out, nil
		}
	case map[string]any:
		if out, ok := t[field.Key]; ok {
			return out, nil
		}
	}
	if it.permissiveFields {
		return values.Undefined, nil
	}
	return nil, xerr.ErrFieldNotFound(name, field.Key)
}

// unwrapData exposes the semantic payload of structured values.
func unwrapData(v any) any {
	if sv, ok := v.(*values.StructuredValue); ok {
		return sv.Data()
	}
	return v
}

func asArray(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case *values.LazyArray:
		return t.Materialize()
	default:
		return nil, nil
	}
}
