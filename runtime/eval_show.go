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
	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// evalShow emits a value to the document, mirrored to stdout by the sink.
func (it *Interpreter) evalShow(ctx context.Context, env *Environment, d *ast.ShowDirective) (any, error) {
	var text string
	if ref, ok := d.Value.(*ast.VariableRef); ok {
		out, err := it.resolveRef(ctx, env, ref, resolveDisplay)
		if err != nil {
			return nil, err
		}
		text = values.AsString(out)
	} else {
		out, err := it.evalExpr(ctx, env, d.Value)
		if err != nil {
			return nil, err
		}
		text = displayText(out)
	}

	if err := env.Sink().Emit(ctx, effects.NewBoth(text+"\n")); err != nil {
		return nil, err
	}
	return text, nil
}

// evalOutput writes a value to a file through the security manager.
func (it *Interpreter) evalOutput(ctx context.Context, env *Environment, d *ast.OutputDirective) (any, error) {
	out, err := it.evalExpr(ctx, env, d.Value)
	if err != nil {
		return nil, err
	}
	targetVal, err := it.evalExpr(ctx, env, d.Target)
	if err != nil {
		return nil, err
	}
	path := values.AsString(targetVal)
	if path == "" {
		path = displayText(targetVal)
	}

	sc := security.Context{File: env.FilePath(), Location: d.Rng, Directive: "output"}
	if err := it.secure.CheckPath(ctx, sc, path, security.PathWrite); err != nil {
		return nil, err
	}

	meta := security.MetaOf(env.SecuritySnapshot(), security.OpOutput)
	if verdict := env.Guards().Evaluate(security.PhaseBefore, security.OpOutput, meta); verdict.Outcome.IsFalse() {
		return nil, xerr.ErrGuardDenied(verdict.Guard, verdict.Reason)
	}

	text := displayText(out)
	if err := env.Sink().Emit(ctx, effects.NewFileWrite(path, []byte(text), d.Append)); err != nil {
		return nil, err
	}
	return nil, nil
}
