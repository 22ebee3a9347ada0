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
	"path/filepath"
	"sync"

	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/runtime/shadow"
	"github.com/mlld-sh/mlld/runtime/trace"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/tokens"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// ImportBinding records which import introduced a public name, for
// collision detection.
type ImportBinding struct {
	Source   string
	Location tokens.Range
}

// Environment is a lexically nested scope. Lookups climb parents; writes
// stay in the current scope, so children never mutate their parents.
type Environment struct {
	mu sync.RWMutex

	parent *Environment
	vars   map[string]*values.Variable

	filePath    string
	pathContext string

	ledger  map[string]ImportBinding
	exports []string
	guards  *security.Registry
	policy   *security.PolicyConfig
	snapshot security.Descriptor

	traceStack *trace.Stack
	sink       effects.Sink

	// shadows is the dynamic per-language shadow env set for this file.
	shadows *shadow.EnvSet
}

// NewEnvironment creates a file-root environment.
func NewEnvironment(filePath string, sink effects.Sink) *Environment {
	return &Environment{
		vars:        map[string]*values.Variable{},
		filePath:    filePath,
		pathContext: filepath.Dir(filePath),
		ledger:      map[string]ImportBinding{},
		guards:      security.NewRegistry(),
		snapshot:    security.NewDescriptor(),
		traceStack:  trace.NewStack(),
		sink:        sink,
		shadows:     shadow.NewEnvSet(),
	}
}

// NewChild creates an inner lexical scope sharing the file context, guard
// registry, trace stack and effect sink.
func (e *Environment) NewChild() *Environment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &Environment{
		parent:      e,
		vars:        map[string]*values.Variable{},
		filePath:    e.filePath,
		pathContext: e.pathContext,
		ledger:      map[string]ImportBinding{},
		guards:      e.guards,
		policy:      e.policy,
		snapshot:    e.snapshot.Clone(),
		traceStack:  e.traceStack,
		sink:        e.sink,
		shadows:     e.shadows,
	}
}

// Get climbs parent scopes for the nearest binding.
func (e *Environment) Get(name string) (*values.Variable, bool) {
	e.mu.RLock()
	v, ok := e.vars[name]
	e.mu.RUnlock()
	if ok {
		return v, true
	}
	if e.parent != nil {
		return e.parent.Get(name)
	}
	return nil, false
}

// Set publishes a variable into the current scope. Re-binding is allowed,
// but shadowing a name introduced by an import from a different source is
// an import collision and must be pre-checked via CheckImportCollision.
func (e *Environment) Set(name string, v *values.Variable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = v
}

// CheckImportCollision enforces the ledger rule: a name already bound by a
// different import source cannot be re-bound. Returns the taxonomy error
// before any policy context has been applied.
func (e *Environment) CheckImportCollision(name, source string, loc tokens.Range) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if prior, ok := e.ledger[name]; ok && prior.Source != source {
		return xerr.ErrImportNameConflict(name, source, prior.Source, loc, prior.Location)
	}
	return nil
}

// RecordImportBinding notes that name was introduced by source.
func (e *Environment) RecordImportBinding(name, source string, loc tokens.Range) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger[name] = ImportBinding{Source: source, Location: loc}
}

// Names returns the locally bound names, in no particular order.
func (e *Environment) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.vars))
	for name := range e.vars {
		out = append(out, name)
	}
	return out
}

// CaptureModule returns a snapshot of the file-level scope for an
// executable to keep as its module env. The snapshot observes only
// variables that were actually set.
func (e *Environment) CaptureModule() *Environment {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	root.mu.RLock()
	defer root.mu.RUnlock()

	snap := &Environment{
		vars:        make(map[string]*values.Variable, len(root.vars)),
		filePath:    root.filePath,
		pathContext: root.pathContext,
		ledger:      map[string]ImportBinding{},
		guards:      root.guards,
		policy:      root.policy,
		snapshot:    root.snapshot.Clone(),
		traceStack:  root.traceStack,
		sink:        root.sink,
		shadows:     root.shadows,
	}
	for name, v := range root.vars {
		snap.vars[name] = v
	}
	return snap
}

// RecordExport marks a name as exported from this module.
func (e *Environment) RecordExport(names ...string) {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	root.mu.Lock()
	defer root.mu.Unlock()
	root.exports = append(root.exports, names...)
}

// Exports lists the names declared by /export, in declaration order.
func (e *Environment) Exports() []string {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	root.mu.RLock()
	defer root.mu.RUnlock()
	out := make([]string, len(root.exports))
	copy(out, root.exports)
	return out
}

// FilePath returns the file this environment evaluates.
func (e *Environment) FilePath() string { return e.filePath }

// PathContext is the directory relative paths resolve against.
func (e *Environment) PathContext() string { return e.pathContext }

// Trace exposes the directive stack.
func (e *Environment) Trace() *trace.Stack { return e.traceStack }

// Sink exposes the effect sink.
func (e *Environment) Sink() effects.Sink { return e.sink }

// Guards exposes the guard registry shared across the environment tree.
func (e *Environment) Guards() *security.Registry { return e.guards }

// Shadows exposes the dynamic shadow env set.
func (e *Environment) Shadows() *shadow.EnvSet { return e.shadows }

// Policy returns the environment-scoped policy context.
func (e *Environment) Policy() *security.PolicyConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// SetPolicy installs a policy context; merging with an existing one keeps
// the more restrictive choice per field.
func (e *Environment) SetPolicy(p *security.PolicyConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = security.MergeRestrictive(e.policy, p)
}

// SecuritySnapshot returns the labels/taint propagated to values created
// in this scope.
func (e *Environment) SecuritySnapshot() security.Descriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot.Clone()
}

// TaintSnapshot merges tags into the scope's security snapshot.
func (e *Environment) TaintSnapshot(d security.Descriptor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot = e.snapshot.Union(d)
}
