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

	"github.com/binaek/perch"
	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/dag"
	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/project"
	"github.com/mlld-sh/mlld/resolver"
	"github.com/mlld-sh/mlld/runtime/shadow"
	"github.com/mlld-sh/mlld/security"
)

const defaultParallelLimit = 8

// ModuleLoader parses module content into an AST. The surface grammar is a
// collaborator: the CLI installs a real parser, tests install fixtures.
type ModuleLoader interface {
	Load(ctx context.Context, path, content string) (*ast.Document, error)
}

// ModuleLoaderFunc adapts a function to ModuleLoader.
type ModuleLoaderFunc func(ctx context.Context, path, content string) (*ast.Document, error)

func (f ModuleLoaderFunc) Load(ctx context.Context, path, content string) (*ast.Document, error) {
	return f(ctx, path, content)
}

// Interpreter evaluates parsed documents against environments. One
// interpreter serves one project; it owns the resolver, the security
// manager, the memoize cache and the shadow runtimes.
type Interpreter struct {
	manifest *project.Manifest
	resolver *resolver.Resolver
	secure   *security.Manager
	loader   ModuleLoader

	memoize *perch.Perch[any]
	node    *shadow.NodeRuntime
	mcp     map[string]*shadow.McpConn

	imports *dag.ImportGraph

	parallelLimit    int
	permissiveFields bool

	preHooks  []PreHook
	postHooks []PostHook
}

type Option func(*Interpreter)

// WithParallelLimit bounds in-flight parallel work.
func WithParallelLimit(n int) Option {
	return func(it *Interpreter) {
		if n > 0 {
			it.parallelLimit = n
		}
	}
}

// WithPermissiveFieldAccess makes missing fields resolve to undefined
// instead of erroring.
func WithPermissiveFieldAccess() Option {
	return func(it *Interpreter) { it.permissiveFields = true }
}

// WithMemoizeCacheSize sets the call-memoize cache capacity (entries).
func WithMemoizeCacheSize(n int) Option {
	return func(it *Interpreter) { it.memoize = perch.New[any](n) }
}

// WithModuleLoader installs the parser collaborator.
func WithModuleLoader(l ModuleLoader) Option {
	return func(it *Interpreter) { it.loader = l }
}

// WithResolver swaps the import resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(it *Interpreter) { it.resolver = r }
}

// WithSecurityManager swaps the security manager.
func WithSecurityManager(m *security.Manager) Option {
	return func(it *Interpreter) { it.secure = m }
}

// WithPreHook appends a pre-dispatch hook.
func WithPreHook(h PreHook) Option {
	return func(it *Interpreter) { it.preHooks = append(it.preHooks, h) }
}

// WithPostHook appends a post-dispatch hook.
func WithPostHook(h PostHook) Option {
	return func(it *Interpreter) { it.postHooks = append(it.postHooks, h) }
}

// WithMcpConn registers a connected MCP server for mcp-backed executables.
func WithMcpConn(conn *shadow.McpConn) Option {
	return func(it *Interpreter) { it.mcp[conn.Name] = conn }
}

func New(manifest *project.Manifest, opts ...Option) (*Interpreter, error) {
	limit := manifest.ParallelLimit
	if limit <= 0 {
		limit = defaultParallelLimit
	}
	node, err := shadow.NewNodeRuntime(manifest.Location, int32(limit))
	if err != nil {
		return nil, err
	}
	it := &Interpreter{
		manifest:      manifest,
		resolver:      resolver.New(manifest),
		memoize:       perch.New[any](1 << 12),
		node:          node,
		mcp:           map[string]*shadow.McpConn{},
		imports:       dag.NewImportGraph(),
		parallelLimit: limit,
	}
	for _, opt := range opts {
		opt(it)
	}
	if it.secure == nil {
		it.secure = security.NewManager(manifest, nil)
	}
	return it, nil
}

// Result is what a document evaluation produces besides its side effects.
type Result struct {
	Document string
}

// EvalDocument evaluates a parsed document in the given environment. Prose
// nodes become document effects; directives go through the router. The
// final document comes from the environment's sink.
func (it *Interpreter) EvalDocument(ctx context.Context, doc *ast.Document, env *Environment) (*Result, error) {
	it.imports.AddModule(doc.Path)
	for _, node := range doc.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, xerrFromContext(ctx, "document evaluation")
		}
		switch n := node.(type) {
		case *ast.TextNode:
			if err := env.Sink().Emit(ctx, effects.NewDoc(n.Text)); err != nil {
				return nil, err
			}
		case ast.Directive:
			if _, err := it.evalDirective(ctx, env, n); err != nil {
				return nil, err
			}
		}
	}
	return &Result{Document: env.Sink().Document()}, nil
}

// Close releases pooled resources.
func (it *Interpreter) Close() {
	it.node.Close()
	for _, conn := range it.mcp {
		_ = conn.Close()
	}
}
