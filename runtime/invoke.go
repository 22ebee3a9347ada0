// SPDX-License-Identifier: Apache-2.0
//
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
	"log/slog"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/mlld-sh/mlld/runtime/shadow"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/tokens"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// invocation carries everything needed to call an executable once.
type invocation struct {
	exe  *values.Executable
	vari *values.Variable // the variable the executable was resolved from
	args []any
}

// invoke runs an executable: guard gate, memoization, definition dispatch,
// result wrapping and taint propagation.
func (it *Interpreter) invoke(ctx context.Context, env *Environment, inv invocation) (any, error) {
	meta := it.guardMeta(env, inv)

	if verdict := env.Guards().Evaluate(security.PhaseBefore, security.OpExe, meta); verdict.Outcome.IsFalse() {
		return nil, xerr.ErrGuardDenied(verdict.Guard, verdict.Reason)
	}

	call := func(ctx context.Context) (any, error) {
		return it.dispatch(ctx, env, inv)
	}

	var out any
	var err error
	if inv.exe.Memoize {
		ttl := inv.exe.MemoizeTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		key := memoizeKey(inv.exe, inv.args)
		out, _, err = it.memoize.Get(ctx, key, ttl, func(ctx context.Context, _ string) (any, error) {
			return call(ctx)
		})
	} else {
		out, err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	if verdict := env.Guards().Evaluate(security.PhaseAfter, security.OpExe, meta); verdict.Outcome.IsFalse() {
		return nil, xerr.ErrGuardDenied(verdict.Guard, verdict.Reason)
	}
	return out, nil
}

// guardMeta unions the executable's descriptor with the arguments'.
func (it *Interpreter) guardMeta(env *Environment, inv invocation) security.Meta {
	d := env.SecuritySnapshot()
	if inv.vari != nil {
		d = d.Union(inv.vari.Security)
	}
	for _, arg := range inv.args {
		if v, ok := arg.(*values.Variable); ok {
			d = d.Union(v.Security)
		}
	}
	return security.MetaOf(d, security.OpExe)
}

// dispatch routes on the executable's definition variant.
func (it *Interpreter) dispatch(ctx context.Context, env *Environment, inv invocation) (any, error) {
	exe := inv.exe

	// sibling references resolve against the captured module env
	var scope *Environment
	if captured, ok := exe.ModuleEnv.(*Environment); ok && captured != nil {
		scope = captured.NewChild()
	} else {
		scope = env.NewChild()
	}
	bindParams(scope, exe, inv.args)

	switch def := exe.Def.(type) {

	case *values.NativeDef:
		return def.Fn(ctx, inv.args)

	case *values.TemplateDef:
		return it.interpolate(ctx, scope, def.Body)

	case *values.CommandDef:
		return it.runCommandDef(ctx, scope, def, inv.args)

	case *values.CodeDef:
		return it.runCodeDef(ctx, scope, exe, def, inv.args)

	case *values.McpDef:
		return it.runMcpDef(ctx, env, exe, def, inv.args)

	default:
		return nil, xerr.Internal("unsupported executable definition %T", def)
	}
}

func bindParams(scope *Environment, exe *values.Executable, args []any) {
	params := exe.Def.ParamNames()
	for i, name := range params {
		var v any = values.Undefined
		if i < len(args) {
			v = argValue(args[i])
		}
		scope.Set(name, values.NewVariable(name, v, values.SourceInfo{Directive: "exe"}, tokens.Range{}))
	}
}

// argValue unwraps variable proxies to their payload for binding.
func argValue(a any) any {
	if v, ok := a.(*values.Variable); ok {
		return v.Value
	}
	return a
}

func (it *Interpreter) runCommandDef(ctx context.Context, scope *Environment, def *values.CommandDef, args []any) (any, error) {
	cmd, err := it.evalExpr(ctx, scope, def.Command)
	if err != nil {
		return nil, err
	}
	command := values.AsString(cmd)
	if command == "" {
		command = displayText(cmd)
	}
	return it.runOneShot(ctx, scope, command)
}

// runOneShot validates and executes a single command line.
func (it *Interpreter) runOneShot(ctx context.Context, env *Environment, command string) (any, error) {
	sc := security.Context{File: env.FilePath(), Directive: "run"}
	if err := it.secure.CheckCommand(ctx, sc, env.Policy(), command, nil); err != nil {
		return nil, err
	}

	res, err := shadow.RunShell(ctx, "sh", command, env.PathContext(), nil)
	if err != nil {
		return nil, err
	}

	env.TaintSnapshot(security.Descriptor{Taint: security.NewSet(security.TaintCommandOutput)})
	return strings.TrimRight(res.Stdout, "\n"), nil
}

func (it *Interpreter) runCodeDef(ctx context.Context, scope *Environment, exe *values.Executable, def *values.CodeDef, args []any) (any, error) {
	params := marshalParams(def.Params, args)

	shadowEnv := it.shadowEnvFor(scope, exe, def.Lang)

	var out any
	var err error
	switch def.Lang {
	case shadow.LangJS:
		out, err = shadow.RunJS(ctx, def.Body, params, shadowEnv)
	case shadow.LangNode:
		out, err = it.node.Run(ctx, def.Body, params, shadowEnv)
	case shadow.LangSh, shadow.LangBash:
		envVars := map[string]string{}
		for _, p := range params {
			envVars[p.Name] = shadow.StringifyResult(p.Value)
		}
		var res *shadow.ShellResult
		res, err = shadow.RunShell(ctx, def.Lang, def.Body, scope.PathContext(), envVars)
		if err == nil {
			out = strings.TrimRight(res.Stdout, "\n")
		}
	case shadow.LangPython:
		envVars := map[string]string{}
		for _, p := range params {
			envVars[p.Name] = shadow.StringifyResult(p.Value)
		}
		var res *shadow.ShellResult
		res, err = shadow.RunShell(ctx, "python3", def.Body, scope.PathContext(), envVars)
		if err == nil {
			out = strings.TrimRight(res.Stdout, "\n")
		}
	default:
		return nil, xerr.Internal("unsupported language %q", def.Lang)
	}
	if err != nil {
		return nil, err
	}
	return wrapStructuredExec(out, def.Lang), nil
}

// shadowEnvFor prefers the executable's captured env over the dynamic one.
func (it *Interpreter) shadowEnvFor(env *Environment, exe *values.Executable, lang string) *shadow.Env {
	if captured, ok := exe.ShadowEnvs.(*shadow.EnvSet); ok && captured != nil {
		if se, ok := captured.Peek(lang); ok {
			return se
		}
	}
	if se, ok := env.Shadows().Peek(lang); ok {
		return se
	}
	return nil
}

func (it *Interpreter) runMcpDef(ctx context.Context, env *Environment, exe *values.Executable, def *values.McpDef, args []any) (any, error) {
	conn, ok := it.mcp[def.Server]
	if !ok {
		return nil, xerr.New(xerr.CodeInternal, "mcp server %q is not connected", def.Server)
	}

	toolArgs := map[string]any{}
	for i, name := range def.Params {
		if i < len(args) {
			toolArgs[name] = shadow.StringifyResult(argValue(args[i]))
		}
	}

	out, err := conn.CallTool(ctx, def.Tool, toolArgs)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "mcp.tool.called", slog.String("tool", def.Tool))

	// the result taints the calling scope, so values bound from it carry
	// mcp provenance
	env.TaintSnapshot(security.Descriptor{
		Taint:   security.NewSet(security.TaintMCP),
		Labels:  security.NewSet(security.LabelUntrusted),
		Sources: security.NewSet("mcp:" + def.Tool),
	})
	sv := values.NewStructured("text", shadow.StringifyResult(out), out, values.Metadata{
		Source: "mcp:" + def.Tool,
	})
	return sv, nil
}

// wrapStructuredExec wraps compound returns from embedded code as
// structured values with exe provenance.
func wrapStructuredExec(out any, lang string) any {
	switch out.(type) {
	case map[string]any, []any:
		text := shadow.StringifyResult(out)
		return values.NewStructured("json", text, out, values.Metadata{Source: "exe:" + lang})
	default:
		return out
	}
}

func marshalParams(names []string, args []any) []shadow.Param {
	params := make([]shadow.Param, 0, len(names))
	for i, name := range names {
		p := shadow.Param{Name: name}
		if i < len(args) {
			if v, ok := args[i].(*values.Variable); ok {
				p.Value = v.Value
				p.Meta = map[string]any{
					"type":   string(v.Type),
					"taint":  v.Security.Taint.Slice(),
					"labels": v.Security.Labels.Slice(),
				}
			} else {
				p.Value = args[i]
			}
		}
		params = append(params, p)
	}
	return params
}

func memoizeKey(exe *values.Executable, args []any) string {
	plain := make([]any, len(args))
	for i := range args {
		plain[i] = shadow.StringifyResult(argValue(args[i]))
	}
	h, err := hashstructure.Hash(plain, hashstructure.FormatV2, nil)
	if err != nil {
		return exe.Name
	}
	return fmt.Sprintf("%s:%016x", exe.Name, h)
}
