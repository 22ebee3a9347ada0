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
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/tokens"
)

// SourceInfo records which directive and syntax form produced a variable.
type SourceInfo struct {
	Directive    string
	Syntax       string
	Interpolated bool
}

// Internal holds implementation-private captures. Shadow env and module env
// captures are typed loosely to keep the value model free of runtime
// dependencies; the runtime owns the concrete types.
type Internal struct {
	CapturedShadowEnvs any
	CapturedModuleEnv  any
	IsSystem           bool
	McpTool            string
}

// Variable bundles a named value with its metadata. Variables are immutable
// once published into an environment; re-binding a name replaces the entry.
type Variable struct {
	Name     string
	Type     Kind
	Value    any
	Source   SourceInfo
	DefSite  tokens.Range
	Security security.Descriptor
	Internal Internal
}

// NewVariable builds a variable, classifying the value.
func NewVariable(name string, value any, src SourceInfo, site tokens.Range) *Variable {
	return &Variable{
		Name:     name,
		Type:     KindOf(value),
		Value:    value,
		Source:   src,
		DefSite:  site,
		Security: security.NewDescriptor(),
	}
}

// WithSecurity returns the variable with the descriptor merged in.
func (v *Variable) WithSecurity(d security.Descriptor) *Variable {
	v.Security = v.Security.Union(d)
	return v
}

// Clone copies the variable so a new binding can diverge without touching
// the published one.
func (v *Variable) Clone() *Variable {
	out := *v
	out.Security = v.Security.Clone()
	return &out
}
