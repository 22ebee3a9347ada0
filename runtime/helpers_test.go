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
	"os"
	"path/filepath"
	"testing"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/project"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/tokens"
	"github.com/mlld-sh/mlld/values"
	"github.com/stretchr/testify/require"
)

// fixtureLoader resolves module paths to pre-built ASTs, standing in for
// the parser collaborator.
type fixtureLoader map[string]*ast.Document

func (f fixtureLoader) Load(_ context.Context, path, _ string) (*ast.Document, error) {
	if doc, ok := f[path]; ok {
		return doc, nil
	}
	if doc, ok := f[filepath.Base(path)]; ok {
		return doc, nil
	}
	return &ast.Document{Path: path}, nil
}

type harness struct {
	interp  *Interpreter
	sink    *effects.Buffer
	env     *Environment
	dir     string
	modules fixtureLoader
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	dir := t.TempDir()
	manifest := project.Default(dir)

	modules := fixtureLoader{}
	interp, err := New(manifest, append([]Option{WithModuleLoader(modules)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(interp.Close)

	sink := effects.NewBuffer()
	env := NewEnvironment(filepath.Join(dir, "main.mld"), sink)
	return &harness{interp: interp, sink: sink, env: env, dir: dir, modules: modules}
}

// addModule writes a placeholder module file for the resolver and maps its
// path to the given AST.
func (h *harness) addModule(t *testing.T, name string, doc *ast.Document) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# module fixture\n"), 0o644))
	doc.Path = path
	h.modules[path] = doc
	return path
}

// bindNative registers a host function as an executable variable.
func (h *harness) bindNative(name string, params []string, fn func(ctx context.Context, args []any) (any, error)) {
	exe := &values.Executable{
		Name:   name,
		Def:    &values.NativeDef{Fn: fn, Params: params},
		Origin: "local",
	}
	h.env.Set(name, values.NewVariable(name, exe, values.SourceInfo{Directive: "exe"}, tokens.Range{}))
}

func (h *harness) bindValue(name string, v any) {
	h.env.Set(name, values.NewVariable(name, v, values.SourceInfo{Directive: "var"}, tokens.Range{}))
}

func stageCall(target string, args ...ast.Expression) *ast.Stage {
	return &ast.Stage{Call: &ast.CallExpr{Target: target, Args: args}}
}

func ref(name string, fields ...ast.Field) *ast.VariableRef {
	return &ast.VariableRef{Name: name, Fields: fields}
}

func str(s string) *ast.StringLiteral { return &ast.StringLiteral{Value: s} }

func descriptorWithTaint(tags ...string) security.Descriptor {
	return security.Descriptor{Taint: security.NewSet(tags...)}
}

func num(f float64) *ast.NumberLiteral { return &ast.NumberLiteral{Value: f} }
