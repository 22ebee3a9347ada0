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
	"github.com/mlld-sh/mlld/runtime/trace"
	"github.com/mlld-sh/mlld/xerr"
)

// HookDecision is a pre-hook's answer: continue or abort. Retry is not
// supported at this layer.
type HookDecision int

const (
	HookContinue HookDecision = iota
	HookAbort
)

// PreHook runs before dispatch. An abort carries a reason.
type PreHook func(ctx context.Context, env *Environment, d ast.Directive) (HookDecision, string, error)

// PostHook observes the dispatch result.
type PostHook func(ctx context.Context, env *Environment, d ast.Directive, result any, err error)

// evalDirective is the router: trace frame, hooks, kind dispatch, trace
// enrichment on unwind.
func (it *Interpreter) evalDirective(ctx context.Context, env *Environment, d ast.Directive) (result any, err error) {
	frame := trace.Frame{Kind: d.Kind(), Principal: principalOf(d), Location: d.Position()}
	env.Trace().Push(frame)
	defer func() {
		env.Trace().Pop()
		if err != nil {
			err = xerr.AttachTrace(err, frame.String())
		}
	}()

	for _, hook := range it.preHooks {
		decision, reason, herr := hook(ctx, env, d)
		if herr != nil {
			return nil, herr
		}
		if decision == HookAbort {
			return nil, xerr.ErrHookAborted(reason)
		}
	}

	switch t := d.(type) {
	case *ast.VarDirective:
		result, err = it.evalVar(ctx, env, t)
	case *ast.PathDirective:
		result, err = it.evalPath(ctx, env, t)
	case *ast.RunDirective:
		result, err = it.evalRun(ctx, env, t)
	case *ast.ShowDirective:
		result, err = it.evalShow(ctx, env, t)
	case *ast.OutputDirective:
		result, err = it.evalOutput(ctx, env, t)
	case *ast.ExeDirective:
		result, err = it.evalExe(ctx, env, t)
	case *ast.ImportDirective:
		result, err = it.evalImport(ctx, env, t)
	case *ast.ExportDirective:
		result, err = it.evalExport(ctx, env, t)
	case *ast.ForDirective:
		result, err = it.evalFor(ctx, env, t)
	case *ast.WhenDirective:
		result, err = it.evalWhen(ctx, env, t)
	case *ast.GuardDirective:
		result, err = it.evalGuard(ctx, env, t)
	case *ast.EnvDirective:
		result, err = it.evalEnv(ctx, env, t)
	case *ast.PolicyDirective:
		result, err = it.evalPolicy(ctx, env, t)
	case *ast.CommentDirective:
		result, err = nil, nil
	default:
		result, err = nil, xerr.ErrUnknownDirective(d.Kind())
	}

	for _, hook := range it.postHooks {
		hook(ctx, env, d, result, err)
	}
	return result, err
}

// principalOf extracts the identifier a trace frame names.
func principalOf(d ast.Directive) string {
	switch t := d.(type) {
	case *ast.VarDirective:
		return "@" + t.Name
	case *ast.PathDirective:
		return "@" + t.Name
	case *ast.ExeDirective:
		return "@" + t.Name
	case *ast.ImportDirective:
		return t.Source
	case *ast.ForDirective:
		return "@" + t.VarName
	case *ast.GuardDirective:
		return "@" + t.Name
	case *ast.EnvDirective:
		return "@" + t.Name
	case *ast.PolicyDirective:
		return t.Name
	default:
		return ""
	}
}

func xerrFromContext(ctx context.Context, what string) error {
	if err := xerr.FromContext(ctx, what); err != nil {
		return err
	}
	return xerr.ErrCancelled(what)
}
