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

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/tokens"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// evalGuard compiles a `/guard` directive and registers it locally.
func (it *Interpreter) evalGuard(ctx context.Context, env *Environment, d *ast.GuardDirective) (any, error) {
	phase := security.PhaseBefore
	if d.Phase == string(security.PhaseAfter) {
		phase = security.PhaseAfter
	}
	op := d.Op
	if op == "" {
		op = security.OpExe
	}

	guard := &security.Guard{
		Name:   d.Name,
		Phase:  phase,
		Op:     op,
		Origin: "directive",
	}
	for _, clause := range d.Clauses {
		guard.Clauses = append(guard.Clauses, it.compileClause(env, clause))
	}

	env.Guards().Register(guard)
	return nil, nil
}

// compileClause closes over the directive's condition; at evaluation time
// `@mx` is bound to the operation metadata and the condition runs in a
// detached scope.
func (it *Interpreter) compileClause(env *Environment, clause ast.GuardClause) security.Clause {
	cond := clause.Cond
	return security.Clause{
		Allow:  clause.Allow,
		Reason: clause.Reason,
		Match: func(meta security.Meta) bool {
			if cond == nil {
				return true
			}
			scope := env.NewChild()
			scope.Set("mx", values.NewVariable("mx", metaObject(meta), values.SourceInfo{Directive: "guard"}, tokens.Range{}))
			out, err := it.evalExpr(context.Background(), scope, cond)
			if err != nil {
				return false
			}
			return values.IsTruthy(out)
		},
	}
}

// metaObject exposes guard metadata as the `@mx` value.
func metaObject(meta security.Meta) *values.Object {
	obj := values.NewObject()
	obj.Set("taint", stringsToAny(meta.Taint.Slice()))
	obj.Set("labels", stringsToAny(meta.Labels.Slice()))
	obj.Set("sources", stringsToAny(meta.Sources.Slice()))
	obj.Set("op", meta.Op)
	return obj
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

// evalEnv binds a named tool environment: an object of executables.
func (it *Interpreter) evalEnv(ctx context.Context, env *Environment, d *ast.EnvDirective) (any, error) {
	obj := values.NewObject()
	obj.Namespace = d.Name
	for _, tool := range d.Tools {
		v, ok := env.Get(tool)
		if !ok {
			return nil, xerr.ErrVariableNotFound(tool)
		}
		if _, ok := v.Value.(*values.Executable); !ok {
			return nil, xerr.New(xerr.CodeInternal, "@%s is not executable", tool)
		}
		obj.Set(tool, v.Value)
	}

	vari := values.NewVariable(d.Name, obj, values.SourceInfo{Directive: "env"}, d.Rng)
	vari.WithSecurity(env.SecuritySnapshot())
	env.Set(d.Name, vari)
	return obj, nil
}

// evalPolicy installs an inline policy configuration on the environment.
func (it *Interpreter) evalPolicy(ctx context.Context, env *Environment, d *ast.PolicyDirective) (any, error) {
	policy := policyFromConfig(d.Name, d.Config)
	env.SetPolicy(policy)
	return nil, nil
}

// policyFromConfig maps a raw config object onto a PolicyConfig.
func policyFromConfig(name string, config map[string]any) *security.PolicyConfig {
	p := &security.PolicyConfig{Name: name}
	p.Labels = stringList(config["labels"])
	p.Taint = stringList(config["taint"])
	p.AllowedCommands = stringList(config["allowed_commands"])
	p.DeniedOps = stringList(config["denied_ops"])
	return p
}

func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
