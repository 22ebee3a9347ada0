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

// evalForeach computes the cartesian product of the call's array arguments
// and invokes the target once per tuple. The result is lazy: tuples are
// only invoked when a consumer reads them.
func (it *Interpreter) evalForeach(ctx context.Context, env *Environment, e *ast.ForeachExpr) (any, error) {
	axes := make([][]any, 0, len(e.Call.Args))
	for _, argExpr := range e.Call.Args {
		v, err := it.evalExpr(ctx, env, argExpr)
		if err != nil {
			return nil, err
		}
		arr, err := asArray(unwrapData(v))
		if err != nil {
			return nil, err
		}
		if arr == nil {
			return nil, xerr.New(xerr.CodeInternal, "foreach arguments must be arrays, got %T", v)
		}
		axes = append(axes, arr)
	}

	total := 1
	for _, axis := range axes {
		total *= len(axis)
	}
	if len(axes) == 0 {
		total = 0
	}

	target := e.Call.Target
	return values.NewLazyArray(total, func(i int) (any, error) {
		tuple := tupleAt(axes, i)
		return it.call(ctx, env, target, tuple, e.Call)
	}), nil
}

// tupleAt decodes a flat index into one cartesian tuple, last axis fastest,
// matching source-order nesting.
func tupleAt(axes [][]any, index int) []any {
	tuple := make([]any, len(axes))
	for i := len(axes) - 1; i >= 0; i-- {
		n := len(axes[i])
		tuple[i] = axes[i][index%n]
		index /= n
	}
	return tuple
}
