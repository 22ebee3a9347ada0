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
	"path/filepath"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/values"
)

// evalVar binds `/var @x = expr`. A local re-bind of an import-introduced
// name goes through the collision check first.
func (it *Interpreter) evalVar(ctx context.Context, env *Environment, d *ast.VarDirective) (any, error) {
	localSource := "local:" + env.FilePath()
	if err := env.CheckImportCollision(d.Name, localSource, d.Rng); err != nil {
		return nil, err
	}

	v, err := it.evalExpr(ctx, env, d.Value)
	if err != nil {
		return nil, err
	}

	vari := values.NewVariable(d.Name, v, values.SourceInfo{
		Directive: "var",
		Syntax:    d.Value.String(),
	}, d.Rng)
	vari.WithSecurity(env.SecuritySnapshot())
	if len(d.Labels) > 0 {
		vari.WithSecurity(security.Descriptor{Labels: security.NewSet(d.Labels...)})
	}
	if sv, ok := v.(*values.StructuredValue); ok && sv.Metadata.Source != "" {
		vari.WithSecurity(security.Descriptor{Sources: security.NewSet(sv.Metadata.Source)})
	}

	env.Set(d.Name, vari)
	return v, nil
}

// evalPath binds `/path @p = "..."` normalized against the file's
// directory.
func (it *Interpreter) evalPath(ctx context.Context, env *Environment, d *ast.PathDirective) (any, error) {
	v, err := it.evalExpr(ctx, env, d.Value)
	if err != nil {
		return nil, err
	}
	raw := values.AsString(v)
	if raw == "" {
		raw = displayText(v)
	}
	if !filepath.IsAbs(raw) {
		raw = filepath.Join(env.PathContext(), raw)
	}
	p := values.Path(filepath.Clean(raw))

	vari := values.NewVariable(d.Name, p, values.SourceInfo{Directive: "path"}, d.Rng)
	vari.WithSecurity(env.SecuritySnapshot())
	env.Set(d.Name, vari)
	return p, nil
}
