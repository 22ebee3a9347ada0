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
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/values"
)

// displayText renders a value for document output.
func displayText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case *values.StructuredValue:
		return t.Text()
	case string:
		return t
	case values.Path:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case *values.Executable:
		return "<executable @" + t.Name + ">"
	case *values.Template:
		return "<template>"
	case *values.LazyArray:
		arr, err := t.Materialize()
		if err != nil {
			return ""
		}
		return displayText(arr)
	default:
		if values.IsUndefined(v) {
			return ""
		}
		b, err := json.Marshal(jsonReady(v))
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// interpolationText renders a value for shell and template interpolation;
// same rules as display, structured values go through their text view.
func interpolationText(v any) string {
	return displayText(v)
}

// jsonReady converts runtime values into encoding/json-friendly forms while
// keeping object key order (Object implements MarshalJSON).
func jsonReady(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = jsonReady(t[i])
		}
		return out
	case *values.StructuredValue:
		return jsonReady(t.Data())
	case *values.LazyArray:
		arr, err := t.Materialize()
		if err != nil {
			return nil
		}
		return jsonReady(arr)
	default:
		return v
	}
}

// interpolate renders a template literal in the current environment.
func (it *Interpreter) interpolate(ctx context.Context, env *Environment, tpl *ast.TemplateLiteral) (string, error) {
	var b strings.Builder
	for _, part := range tpl.Parts {
		if part.Expr == nil {
			b.WriteString(part.Text)
			continue
		}
		if ref, ok := part.Expr.(*ast.VariableRef); ok {
			out, err := it.resolveRef(ctx, env, ref, resolveDisplay)
			if err != nil {
				return "", err
			}
			b.WriteString(values.AsString(out))
			continue
		}
		out, err := it.evalExpr(ctx, env, part.Expr)
		if err != nil {
			return "", err
		}
		b.WriteString(displayText(out))
	}
	return b.String(), nil
}
