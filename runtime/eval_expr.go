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
	"fmt"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/trinary"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// retrySignal is the out-of-band value a pipeline stage yields to request a
// retry of its predecessor. It never escapes the pipeline engine.
type retrySignal struct{}

var retryRequested = &retrySignal{}

// evalExpr walks an expression and returns its raw value.
func (it *Interpreter) evalExpr(ctx context.Context, env *Environment, e ast.Expression) (any, error) {
	switch t := e.(type) {

	case *ast.NullLiteral:
		return nil, nil

	case *ast.BoolLiteral:
		return t.Value, nil

	case *ast.NumberLiteral:
		return t.Value, nil

	case *ast.StringLiteral:
		return t.Value, nil

	case *ast.RetryLiteral:
		return retryRequested, nil

	case *ast.ArrayLiteral:
		arr := make([]any, 0, len(t.Values))
		for _, item := range t.Values {
			v, err := it.evalExpr(ctx, env, item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil

	case *ast.ObjectLiteral:
		obj := values.NewObject()
		for _, entry := range t.Entries {
			v, err := it.evalExpr(ctx, env, entry.Value)
			if err != nil {
				return nil, err
			}
			obj.Set(entry.Key, v)
		}
		return obj, nil

	case *ast.VariableRef:
		return it.resolveRef(ctx, env, t, resolveFieldAccess)

	case *ast.TemplateLiteral:
		return it.interpolate(ctx, env, t)

	case *ast.BinaryExpr:
		return it.evalBinary(ctx, env, t)

	case *ast.UnaryExpr:
		return it.evalUnary(ctx, env, t)

	case *ast.CallExpr:
		return it.evalCall(ctx, env, t)

	case *ast.ForeachExpr:
		return it.evalForeach(ctx, env, t)

	case *ast.LoaderExpr:
		return it.loadContent(ctx, env, t)

	case *ast.PipelineExpr:
		res, err := it.runPipeline(ctx, env, t)
		if err != nil {
			return nil, err
		}
		return res.Value, nil

	default:
		return nil, xerr.Internal("unsupported expression node: %T", t)
	}
}

func (it *Interpreter) evalUnary(ctx context.Context, env *Environment, e *ast.UnaryExpr) (any, error) {
	v, err := it.evalExpr(ctx, env, e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!", "not":
		return !values.IsTruthy(v), nil
	case "-":
		return -values.AsNumber(unwrapData(v)), nil
	default:
		return nil, xerr.Internal("unsupported unary operator %q", e.Op)
	}
}

func (it *Interpreter) evalBinary(ctx context.Context, env *Environment, e *ast.BinaryExpr) (any, error) {
	// logical operators short-circuit
	switch e.Op {
	case "&&", "and":
		left, err := it.evalExpr(ctx, env, e.Left)
		if err != nil {
			return nil, err
		}
		if !values.IsTruthy(left) {
			return false, nil
		}
		right, err := it.evalExpr(ctx, env, e.Right)
		if err != nil {
			return nil, err
		}
		return values.IsTruthy(right), nil
	case "||", "or":
		left, err := it.evalExpr(ctx, env, e.Left)
		if err != nil {
			return nil, err
		}
		if values.IsTruthy(left) {
			return true, nil
		}
		right, err := it.evalExpr(ctx, env, e.Right)
		if err != nil {
			return nil, err
		}
		return values.IsTruthy(right), nil
	}

	left, err := it.evalOperand(ctx, env, e.Left)
	if err != nil {
		return nil, err
	}
	right, err := it.evalOperand(ctx, env, e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	case "+":
		// string concatenation when either side is text
		if ls, ok := left.(string); ok {
			return ls + displayText(right), nil
		}
		if rs, ok := right.(string); ok {
			return displayText(left) + rs, nil
		}
		return values.AsNumber(left) + values.AsNumber(right), nil
	case "-":
		return values.AsNumber(left) - values.AsNumber(right), nil
	case "*":
		return values.AsNumber(left) * values.AsNumber(right), nil
	case "/":
		rv := values.AsNumber(right)
		if rv == 0 {
			return nil, xerr.New(xerr.CodeInternal, "division by zero")
		}
		return values.AsNumber(left) / rv, nil
	case "%":
		rv := int64(values.AsNumber(right))
		if rv == 0 {
			return nil, xerr.New(xerr.CodeInternal, "division by zero")
		}
		return float64(int64(values.AsNumber(left)) % rv), nil
	case "<":
		return values.AsNumber(left) < values.AsNumber(right), nil
	case "<=":
		return values.AsNumber(left) <= values.AsNumber(right), nil
	case ">":
		return values.AsNumber(left) > values.AsNumber(right), nil
	case ">=":
		return values.AsNumber(left) >= values.AsNumber(right), nil
	default:
		return nil, xerr.Internal("unsupported binary operator %q", e.Op)
	}
}

// evalOperand resolves refs in equality context so undefined compares
// unequal instead of erroring.
func (it *Interpreter) evalOperand(ctx context.Context, env *Environment, e ast.Expression) (any, error) {
	if ref, ok := e.(*ast.VariableRef); ok {
		return it.resolveRef(ctx, env, ref, resolveEquality)
	}
	return it.evalExpr(ctx, env, e)
}

// equalValues implements the equality context: raw comparison, undefined is
// never equal to anything (including itself).
func equalValues(a, b any) bool {
	if values.IsUndefined(a) || values.IsUndefined(b) {
		return false
	}
	a, b = unwrapData(a), unwrapData(b)
	if an, ok := numeric(a); ok {
		if bn, ok := numeric(b); ok {
			return an == bn
		}
		return false
	}
	switch at := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && at == bs
	case values.Path:
		bp, ok := b.(values.Path)
		return ok && at == bp
	case bool:
		bb, ok := b.(bool)
		return ok && at == bb
	case nil:
		return b == nil
	default:
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// whenGate evaluates a condition the way `/when` does: Unknown does not
// fire.
func (it *Interpreter) whenGate(ctx context.Context, env *Environment, cond ast.Expression) (trinary.Value, error) {
	if cond == nil {
		return trinary.True, nil
	}
	v, err := it.evalExpr(ctx, env, cond)
	if err != nil {
		return trinary.Unknown, err
	}
	return trinary.From(v), nil
}
