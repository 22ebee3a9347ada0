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
	"strings"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/resolver"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// evalExe declares an executable, or a shadow env when the directive is
// the `/exe @lang = { fnA, fnB }` form.
func (it *Interpreter) evalExe(ctx context.Context, env *Environment, d *ast.ExeDirective) (any, error) {
	if len(d.ShadowFns) > 0 {
		return it.declareShadowEnv(ctx, env, d)
	}

	exe := &values.Executable{
		Name:   d.Name,
		Origin: "local",
	}

	switch d.Subtype() {
	case "command":
		exe.Def = &values.CommandDef{Command: d.Command, Params: d.Params}
	case "code":
		exe.Def = &values.CodeDef{Lang: d.Lang, Body: d.Body, Params: d.Params}
	case "template":
		exe.Def = &values.TemplateDef{Body: d.Template, Syntax: d.Template.Syntax, Params: d.Params}
	case "mcp":
		server, tool := splitMcpTool(d.McpTool)
		if tool == "" {
			return nil, xerr.New(xerr.CodeInternal, "bad mcp tool reference %q", d.McpTool)
		}
		exe.Def = &values.McpDef{Server: server, Tool: tool, Params: d.Params}
		exe.Origin = "mcp:" + tool
	default:
		return nil, xerr.Internal("unsupported exe subtype %q", d.Subtype())
	}

	if d.Memoize {
		exe.Memoize = true
		if d.MemoizeTTL != "" {
			ttl, err := resolver.ParseCacheDuration(d.MemoizeTTL)
			if err != nil {
				return nil, err
			}
			exe.MemoizeTTL = ttl
		}
	}

	// capture at declaration time: shadow envs and the module scope
	exe.ShadowEnvs = env.Shadows().Capture()
	exe.ModuleEnv = env.CaptureModule()

	vari := values.NewVariable(d.Name, exe, values.SourceInfo{Directive: "exe"}, d.Rng)
	vari.WithSecurity(env.SecuritySnapshot())

	if mcpDef, ok := exe.Def.(*values.McpDef); ok {
		vari.WithSecurity(security.Descriptor{
			Taint:   security.NewSet(security.TaintMCP),
			Labels:  security.NewSet(security.LabelUntrusted),
			Sources: security.NewSet("mcp:" + mcpDef.Tool),
		})
		vari.Internal.McpTool = mcpDef.Tool
	}

	env.Set(d.Name, vari)
	return exe, nil
}

// declareShadowEnv exposes previously declared executables of a language
// to that language's subsequent code blocks.
func (it *Interpreter) declareShadowEnv(ctx context.Context, env *Environment, d *ast.ExeDirective) (any, error) {
	lang := d.Name
	shadowEnv := env.Shadows().Lang(lang)

	for _, fnName := range d.ShadowFns {
		v, ok := env.Get(fnName)
		if !ok {
			return nil, xerr.ErrVariableNotFound(fnName)
		}
		exe, ok := v.Value.(*values.Executable)
		if !ok {
			return nil, xerr.New(xerr.CodeInternal, "@%s is not executable", fnName)
		}

		captured := exe
		capturedVar := v
		shadowEnv.Set(fnName, func(ctx context.Context, args []any) (any, error) {
			return it.invoke(ctx, env, invocation{exe: captured, vari: capturedVar, args: args})
		})
	}
	return nil, nil
}

// splitMcpTool splits "server/tool" references.
func splitMcpTool(ref string) (server, tool string) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 {
		return "", ref
	}
	return parts[0], parts[1]
}
