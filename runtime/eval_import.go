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
	"log/slog"
	"os"
	"time"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/constants"
	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/resolver"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// moduleResult is what processing one module yields.
type moduleResult struct {
	object      *values.Object
	frontmatter map[string]any
	childEnv    *Environment
	guards      []*security.Guard
}

// evalImport resolves, processes and applies an import directive.
func (it *Interpreter) evalImport(ctx context.Context, env *Environment, d *ast.ImportDirective) (any, error) {
	if d.SubKind == ast.ImportAll {
		return nil, xerr.ErrWildcardImport()
	}

	// `@input` is the environment-variable pseudo-module
	if d.Source == "@input" {
		return nil, it.importEnvVars(ctx, env, d)
	}

	res, err := it.resolver.Resolve(ctx, d.Source, env.PathContext(), d.ImportType)
	if err != nil {
		return nil, err
	}

	if err := it.imports.AddImport(env.FilePath(), res.ResolvedPath); err != nil {
		return nil, xerr.ErrImportCycle([]string{env.FilePath(), res.ResolvedPath})
	}
	if cycle := it.imports.FirstCycle(); len(cycle) > 0 {
		return nil, xerr.ErrImportCycle(cycle)
	}

	var mod *moduleResult
	if res.Kind == resolver.KindDirectory {
		mod, err = it.processDirectory(ctx, env, res)
	} else {
		mod, err = it.processModule(ctx, env, res, d)
	}
	if err != nil {
		return nil, err
	}

	switch d.SubKind {
	case ast.ImportSelected:
		return nil, it.applySelected(ctx, env, d, mod)
	case ast.ImportNamespace:
		return nil, it.applyNamespace(ctx, env, d, mod, nil)
	case ast.ImportPolicy:
		return nil, it.applyPolicyImport(ctx, env, d, mod)
	default:
		return nil, xerr.ErrUnknownDirective("import." + d.SubKind)
	}
}

// processModule fetches, approves, parses and evaluates a module in a
// fresh environment whose effects are buffered away from the document.
func (it *Interpreter) processModule(ctx context.Context, env *Environment, res *resolver.Resolution, d *ast.ImportDirective) (*moduleResult, error) {
	var ttl time.Duration
	if d.ImportType == "cached" && d.CacheFor != "" {
		parsed, err := resolver.ParseCacheDuration(d.CacheFor)
		if err != nil {
			return nil, err
		}
		ttl = parsed
	}

	sc := security.Context{File: env.FilePath(), Location: d.Rng, Directive: "import", TTL: ttl}

	if res.Kind == resolver.KindURL || res.Kind == resolver.KindRegistry {
		if err := it.secure.CheckURL(ctx, sc, res.ResolvedPath); err != nil {
			return nil, err
		}
	}

	content, err := it.resolver.Fetch(ctx, res, ttl)
	if err != nil {
		return nil, err
	}

	if res.Kind == resolver.KindURL || res.Kind == resolver.KindRegistry {
		if err := it.secure.ApproveImport(ctx, sc, res.ResolvedPath, res.ContentHash, nil); err != nil {
			return nil, err
		}
		env.TaintSnapshot(security.Descriptor{Taint: security.NewSet(security.TaintNetwork)})
	}

	frontmatter, body, err := resolver.SplitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	if it.loader == nil {
		return nil, xerr.Internal("no module loader installed")
	}
	doc, err := it.loader.Load(ctx, res.ResolvedPath, body)
	if err != nil {
		return nil, err
	}
	if doc.Frontmatter == nil {
		doc.Frontmatter = frontmatter
	}

	// module evaluation must not leak effects into the importer's document
	childEnv := NewEnvironment(res.ResolvedPath, effects.NewBuffer())
	if _, err := it.EvalDocument(ctx, doc, childEnv); err != nil {
		return nil, err
	}

	mod := &moduleResult{
		object:      moduleObject(childEnv, res.ResolvedPath),
		frontmatter: doc.Frontmatter,
		childEnv:    childEnv,
	}
	for _, name := range childEnv.Guards().Names() {
		if g, ok := childEnv.Guards().Get(name); ok {
			mod.guards = append(mod.guards, g)
		}
	}
	slog.DebugContext(ctx, "import.processed", slog.String("module", res.ResolvedPath))
	return mod, nil
}

// processDirectory assembles a namespace whose entries are the module
// exports of the directory's children, keyed by filename stem.
func (it *Interpreter) processDirectory(ctx context.Context, env *Environment, res *resolver.Resolution) (*moduleResult, error) {
	children, order, err := resolver.DirectoryChildren(res.ResolvedPath, constants.ModuleFileExtension)
	if err != nil {
		return nil, err
	}

	obj := values.NewObject()
	combined := &moduleResult{object: obj}
	for _, stem := range order {
		childRes := &resolver.Resolution{Kind: resolver.KindFile, ResolvedPath: children[stem], ResolverName: res.ResolverName}
		mod, err := it.processModule(ctx, env, childRes, &ast.ImportDirective{Source: children[stem]})
		if err != nil {
			return nil, err
		}
		obj.Set(stem, mod.object)
		combined.guards = append(combined.guards, mod.guards...)
	}
	return combined, nil
}

// moduleObject builds the exported object: declared exports, or every
// top-level binding when the module has no /export directive.
func moduleObject(env *Environment, path string) *values.Object {
	obj := values.NewObject()
	names := env.Exports()
	if len(names) == 0 {
		names = env.Names()
	}
	for _, name := range names {
		if v, ok := env.Get(name); ok && !v.Internal.IsSystem {
			obj.Set(name, v.Value)
		}
	}
	obj.Namespace = path
	return obj
}

// applySelected binds each requested name. The ledger collision check runs
// before anything else so precedence is observable.
func (it *Interpreter) applySelected(ctx context.Context, env *Environment, d *ast.ImportDirective, mod *moduleResult) error {
	if mod.object.Len() == 0 {
		return xerr.ErrImportExportMissing(d.Source)
	}

	// validate and collision-check every requested name up front
	for _, name := range d.Names {
		if _, ok := mod.object.Get(name.Name); !ok {
			return xerr.ErrExportedNameNotFound(name.Name, d.Source)
		}
		if err := env.CheckImportCollision(name.Bound(), d.Source, d.Rng); err != nil {
			return err
		}
	}

	it.registerModuleGuards(env, mod)

	for _, name := range d.Names {
		raw, _ := mod.object.Get(name.Name)
		bound := name.Bound()
		vari := it.importedVariable(bound, raw, d, mod)
		env.RecordImportBinding(bound, d.Source, d.Rng)
		env.Set(bound, vari)
		slog.DebugContext(ctx, "import.bound", slog.String("name", bound), slog.String("source", d.Source))
	}
	return nil
}

// applyNamespace binds the whole module object under the alias.
func (it *Interpreter) applyNamespace(ctx context.Context, env *Environment, d *ast.ImportDirective, mod *moduleResult, policy *security.PolicyConfig) error {
	alias := d.Alias
	if alias == "" {
		alias = d.Source
	}
	if err := env.CheckImportCollision(alias, d.Source, d.Rng); err != nil {
		return err
	}

	it.registerModuleGuards(env, mod)

	obj := mod.object.Clone()
	obj.Namespace = d.Source
	vari := it.importedVariable(alias, obj, d, mod)
	if policy != nil {
		vari.WithSecurity(security.Descriptor{
			Labels: security.NewSet(policy.Labels...),
			Taint:  security.NewSet(policy.Taint...),
		})
	}
	env.RecordImportBinding(alias, d.Source, d.Rng)
	env.Set(alias, vari)
	return nil
}

// applyPolicyImport is a namespace import that additionally installs the
// module's policy config and synthesizes its guards. The collision check
// fires before the policy context is applied.
func (it *Interpreter) applyPolicyImport(ctx context.Context, env *Environment, d *ast.ImportDirective, mod *moduleResult) error {
	policy := policyFromModule(d, mod)

	if err := it.applyNamespace(ctx, env, d, mod, policy); err != nil {
		return err
	}

	env.SetPolicy(policy)
	for _, g := range synthesizePolicyGuards(policy) {
		env.Guards().Register(g)
	}
	if it.secure != nil {
		// pin the policy config for auditability
		if err := it.secure.PinPolicy(policy.Name, map[string]any{
			"labels":           policy.Labels,
			"taint":            policy.Taint,
			"allowed_commands": policy.AllowedCommands,
			"denied_ops":       policy.DeniedOps,
		}); err != nil {
			return err
		}
	}
	return nil
}

// policyFromModule reads the module's exported `policy` object.
func policyFromModule(d *ast.ImportDirective, mod *moduleResult) *security.PolicyConfig {
	name := d.Alias
	if name == "" {
		name = d.Source
	}
	if raw, ok := mod.object.Get("policy"); ok {
		if obj, ok := raw.(*values.Object); ok {
			return policyFromConfig(name, obj.Plain())
		}
		if m, ok := raw.(map[string]any); ok {
			return policyFromConfig(name, m)
		}
	}
	return &security.PolicyConfig{Name: name}
}

// synthesizePolicyGuards turns denied ops into before-guards.
func synthesizePolicyGuards(policy *security.PolicyConfig) []*security.Guard {
	guards := make([]*security.Guard, 0, len(policy.DeniedOps))
	for _, op := range policy.DeniedOps {
		op := op
		guards = append(guards, &security.Guard{
			Name:   policy.Name + ":" + op,
			Phase:  security.PhaseBefore,
			Op:     op,
			Origin: "policy:" + policy.Name,
			Clauses: []security.Clause{{
				Match:  func(security.Meta) bool { return true },
				Allow:  false,
				Reason: "denied by policy " + policy.Name,
			}},
		})
	}
	return guards
}

func (it *Interpreter) registerModuleGuards(env *Environment, mod *moduleResult) {
	for _, g := range mod.guards {
		env.Guards().Register(g)
	}
}

// importedVariable wraps a module export for binding, marking provenance
// and re-homing executables.
func (it *Interpreter) importedVariable(name string, raw any, d *ast.ImportDirective, mod *moduleResult) *values.Variable {
	if exe, ok := raw.(*values.Executable); ok {
		clone := *exe
		clone.Origin = "import:" + d.Source
		raw = &clone
	}
	vari := values.NewVariable(name, raw, values.SourceInfo{Directive: "import", Syntax: d.SubKind}, d.Rng)
	if vari.Type != values.KindExecutable {
		vari.Type = values.KindImported
	}
	return vari
}

// importEnvVars handles `/import { X } from @input` under the manifest's
// env allow-list.
func (it *Interpreter) importEnvVars(ctx context.Context, env *Environment, d *ast.ImportDirective) error {
	for _, name := range d.Names {
		if !it.secure.EnvAllowed(name.Name) {
			return xerr.ErrPolicyDenied("op:import", "environment variable "+name.Name+" is not allow-listed")
		}
		if err := env.CheckImportCollision(name.Bound(), "@input", d.Rng); err != nil {
			return err
		}
	}
	for _, name := range d.Names {
		value := os.Getenv(name.Name)
		vari := values.NewVariable(name.Bound(), value, values.SourceInfo{Directive: "import", Syntax: "env"}, d.Rng)
		env.RecordImportBinding(name.Bound(), "@input", d.Rng)
		env.Set(name.Bound(), vari)
	}
	return nil
}
