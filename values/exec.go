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

package values

import (
	"context"
	"time"

	"github.com/mlld-sh/mlld/ast"
)

// ExecDef is the tagged definition of an executable. Exactly one concrete
// variant implements it per executable.
type ExecDef interface {
	execDef()
	ParamNames() []string
}

// CommandDef runs an interpolated one-shot command.
type CommandDef struct {
	Command ast.Expression
	Params  []string
}

func (d *CommandDef) execDef()             {}
func (d *CommandDef) ParamNames() []string { return d.Params }

// CodeDef runs an embedded-language body (js/node/sh/bash/python).
type CodeDef struct {
	Lang   string
	Body   string
	Params []string
}

func (d *CodeDef) execDef()             {}
func (d *CodeDef) ParamNames() []string { return d.Params }

// NativeDef wraps a host Go function, the `fn_ref` form used for builtins
// and transformers.
type NativeDef struct {
	Fn     func(ctx context.Context, args []any) (any, error)
	Params []string
}

func (d *NativeDef) execDef()             {}
func (d *NativeDef) ParamNames() []string { return d.Params }

// TemplateDef renders a template body with bound parameters.
type TemplateDef struct {
	Body   *ast.TemplateLiteral
	Syntax string
	Params []string
}

func (d *TemplateDef) execDef()             {}
func (d *TemplateDef) ParamNames() []string { return d.Params }

// McpDef proxies an MCP tool call.
type McpDef struct {
	Tool   string
	Server string
	Params []string
}

func (d *McpDef) execDef()             {}
func (d *McpDef) ParamNames() []string { return d.Params }

// Executable is the runtime value produced by `/exe`. It carries the
// captured shadow envs and module env so sibling references keep resolving
// after the executable crosses an import boundary.
type Executable struct {
	Name string
	Def  ExecDef

	// ShadowEnvs is the per-language captured ShadowEnvSet (owned by the
	// runtime's shadow package).
	ShadowEnvs any

	// ModuleEnv is the captured defining environment snapshot.
	ModuleEnv any

	// Origin distinguishes local declarations from imported and MCP-backed
	// ones: "local", "import:<path>", "mcp:<tool>".
	Origin string

	// Memoize enables arg-hash caching of call results.
	Memoize    bool
	MemoizeTTL time.Duration
}

// Template is the runtime value of a bound template (no parameters).
type Template struct {
	Body   *ast.TemplateLiteral
	Syntax string
}
