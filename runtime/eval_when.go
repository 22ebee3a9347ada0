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
)

// evalWhen gates actions on conditions. The outer condition (when present)
// must hold before any arm is considered; arms then fire on their own
// conditions, all matches or first-match only.
func (it *Interpreter) evalWhen(ctx context.Context, env *Environment, d *ast.WhenDirective) (any, error) {
	gate, err := it.whenGate(ctx, env, d.Cond)
	if err != nil {
		return nil, err
	}
	if !gate.IsTrue() {
		return nil, nil
	}

	var last any
	for _, branch := range d.Branches {
		cond, err := it.whenGate(ctx, env, branch.Cond)
		if err != nil {
			return nil, err
		}
		if !cond.IsTrue() {
			continue
		}

		// each firing arm evaluates in its own scope so bindings do not
		// leak between arms
		scope := env.NewChild()
		last, err = it.evalAction(ctx, scope, branch.Action)
		if err != nil {
			return nil, err
		}
		if d.First {
			break
		}
	}
	return last, nil
}

// evalAction runs a node that may be a directive or an expression.
func (it *Interpreter) evalAction(ctx context.Context, env *Environment, action ast.Node) (any, error) {
	switch t := action.(type) {
	case ast.Directive:
		return it.evalDirective(ctx, env, t)
	case ast.Expression:
		return it.evalExpr(ctx, env, t)
	default:
		return nil, nil
	}
}
