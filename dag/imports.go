// SPDX-License-Identifier: Apache-2.0

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

package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ImportGraph tracks which module imports which, keyed by resolved path.
// The import evaluator feeds it while modules are being processed so that
// a module importing itself through any chain is rejected before it recurses.
type ImportGraph struct {
	lock  sync.RWMutex
	nodes map[string]struct{}
	edges map[string]map[string]struct{}
}

var ErrSelfImport = errors.New("module imports itself")

// ErrCycle carries the offending import chain, importer first.
type ErrCycle struct {
	Path []string
}

func (e ErrCycle) Error() string {
	return fmt.Sprintf("import cycle: %s", strings.Join(e.Path, " -> "))
}

func NewImportGraph() *ImportGraph {
	return &ImportGraph{
		nodes: make(map[string]struct{}),
		edges: make(map[string]map[string]struct{}),
	}
}

// AddModule registers a resolved module path.
func (g *ImportGraph) AddModule(path string) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.nodes[path] = struct{}{}
	if g.edges[path] == nil {
		g.edges[path] = make(map[string]struct{})
	}
}

// AddImport records that importer pulls in imported. Both endpoints are
// registered implicitly. Self-imports are rejected immediately.
func (g *ImportGraph) AddImport(importer, imported string) error {
	if importer == imported {
		return ErrSelfImport
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	for _, p := range []string{importer, imported} {
		g.nodes[p] = struct{}{}
		if g.edges[p] == nil {
			g.edges[p] = make(map[string]struct{})
		}
	}
	g.edges[importer][imported] = struct{}{}
	return nil
}

// FirstCycle returns the first import cycle found, or nil when the graph is
// acyclic. DFS with an explicit visiting stack, so the returned path is the
// actual chain a user would follow through their sources.
func (g *ImportGraph) FirstCycle() []string {
	g.lock.RLock()
	defer g.lock.RUnlock()

	visited := make(map[string]struct{})
	visiting := make([]string, 0, len(g.nodes))

	var dfs func(node string) []string
	dfs = func(node string) []string {
		if idx := slices.Index(visiting, node); idx >= 0 {
			return append(slices.Clone(visiting[idx:]), node)
		}
		if _, ok := visited[node]; ok {
			return nil
		}
		visiting = append(visiting, node)
		defer func() { visiting = visiting[:len(visiting)-1] }()

		visited[node] = struct{}{}
		for neighbor := range g.edges[node] {
			if cycle := dfs(neighbor); len(cycle) > 0 {
				return cycle
			}
		}
		return nil
	}

	keys := make([]string, 0, len(g.nodes))
	for node := range g.nodes {
		keys = append(keys, node)
	}
	slices.Sort(keys) // deterministic reporting
	for _, node := range keys {
		if cycle := dfs(node); len(cycle) > 0 {
			return cycle
		}
	}
	return nil
}

// LoadOrder returns modules in dependency order (imported before importer),
// or ErrCycle when no such order exists.
func (g *ImportGraph) LoadOrder() ([]string, error) {
	if cycle := g.FirstCycle(); len(cycle) > 0 {
		return nil, ErrCycle{Path: cycle}
	}

	g.lock.RLock()
	defer g.lock.RUnlock()

	visited := make(map[string]struct{})
	order := make([]string, 0, len(g.nodes))

	var dfs func(node string)
	dfs = func(node string) {
		if _, ok := visited[node]; ok {
			return
		}
		visited[node] = struct{}{}
		for neighbor := range g.edges[node] {
			dfs(neighbor)
		}
		order = append(order, node)
	}

	keys := make([]string, 0, len(g.nodes))
	for node := range g.nodes {
		keys = append(keys, node)
	}
	slices.Sort(keys)
	for _, node := range keys {
		dfs(node)
	}
	return order, nil
}
