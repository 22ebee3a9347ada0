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

// evalCall resolves `@target(args)` to an executable and invokes it.
// Arguments that are bare variable refs cross as variable proxies so the
// callee (and guards) can see their metadata.
func (it *Interpreter) evalCall(ctx context.Context, env *Environment, c *ast.CallExpr) (any, error) {
	args := make([]any, 0, len(c.Args))
	for _, a := range c.Args {
		if ref, ok := a.(*ast.VariableRef); ok && len(ref.Fields) == 0 {
			if v, found := env.Get(ref.Name); found {
				args = append(args, v)
				continue
			}
		}
		v, err := it.evalExpr(ctx, env, a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return it.call(ctx, env, c.Target, args, c)
}

// call invokes a named executable with pre-evaluated arguments.
func (it *Interpreter) call(ctx context.Context, env *Environment, target string, args []any, at *ast.CallExpr) (any, error) {
	if v, ok := env.Get(target); ok {
		exe, ok := v.Value.(*values.Executable)
		if !ok {
			err := xerr.New(xerr.CodeInternal, "@%s is not executable", target)
			if at != nil {
				err.WithLocation(at.Rng)
			}
			return nil, err
		}
		return it.invoke(ctx, env, invocation{exe: exe, vari: v, args: args})
	}

	if builtin, ok := Builtins[target]; ok {
		plain := make([]any, len(args))
		for i := range args {
			plain[i] = unwrapData(argValue(args[i]))
		}
		return builtin(ctx, plain)
	}

	err := xerr.ErrVariableNotFound(target).(*xerr.Error)
	if at != nil {
		err.WithLocation(at.Rng)
	}
	return nil, err
}
