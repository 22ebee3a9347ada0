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
	"strings"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/runtime/shadow"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// evalRun executes `/run <command>` or `/run <lang> { ... }`. The result
// feeds an optional trailing pipeline.
func (it *Interpreter) evalRun(ctx context.Context, env *Environment, d *ast.RunDirective) (any, error) {
	meta := security.MetaOf(env.SecuritySnapshot(), security.OpRun)
	if verdict := env.Guards().Evaluate(security.PhaseBefore, security.OpRun, meta); verdict.Outcome.IsFalse() {
		return nil, xerr.ErrGuardDenied(verdict.Guard, verdict.Reason)
	}

	var out any
	var err error
	switch {
	case d.Lang != "":
		out, err = it.runBlock(ctx, env, d.Lang, d.Body)
	default:
		cmdVal, cerr := it.evalExpr(ctx, env, d.Command)
		if cerr != nil {
			return nil, cerr
		}
		command := values.AsString(cmdVal)
		if command == "" {
			command = displayText(cmdVal)
		}
		out, err = it.runOneShot(ctx, env, command)
	}
	if err != nil {
		return nil, err
	}

	if verdict := env.Guards().Evaluate(security.PhaseAfter, security.OpRun, meta); verdict.Outcome.IsFalse() {
		return nil, xerr.ErrGuardDenied(verdict.Guard, verdict.Reason)
	}

	if len(d.Pipeline) > 0 {
		res, err := it.runStages(ctx, env, out, d.Pipeline, "", false)
		if err != nil {
			return nil, err
		}
		return res.Value, nil
	}
	return out, nil
}

// runBlock executes a language block in the dynamic shadow env.
func (it *Interpreter) runBlock(ctx context.Context, env *Environment, lang, body string) (any, error) {
	shadowEnv, _ := env.Shadows().Peek(lang)

	switch lang {
	case shadow.LangJS:
		out, err := shadow.RunJS(ctx, body, nil, shadowEnv)
		if err != nil {
			return nil, err
		}
		return wrapStructuredExec(out, lang), nil
	case shadow.LangNode:
		out, err := it.node.Run(ctx, body, nil, shadowEnv)
		if err != nil {
			return nil, err
		}
		return wrapStructuredExec(out, lang), nil
	case shadow.LangSh, shadow.LangBash:
		res, err := shadow.RunShell(ctx, lang, body, env.PathContext(), nil)
		if err != nil {
			return nil, err
		}
		env.TaintSnapshot(security.Descriptor{Taint: security.NewSet(security.TaintCommandOutput)})
		return strings.TrimRight(res.Stdout, "\n"), nil
	case shadow.LangPython:
		res, err := shadow.RunShell(ctx, "python3", body, env.PathContext(), nil)
		if err != nil {
			return nil, err
		}
		env.TaintSnapshot(security.Descriptor{Taint: security.NewSet(security.TaintCommandOutput)})
		return strings.TrimRight(res.Stdout, "\n"), nil
	default:
		return nil, xerr.Internal("unsupported run language %q", lang)
	}
}
