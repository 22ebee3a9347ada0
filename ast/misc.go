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

package ast

import "github.com/mlld-sh/mlld/tokens"

// CommentDirective is `/comment ...` — evaluated to nothing.
type CommentDirective struct {
	Text string
	Rng  tokens.Range
}

func (d *CommentDirective) directiveNode()         {}
func (d *CommentDirective) Kind() string           { return "comment" }
func (d *CommentDirective) Subtype() string        { return "" }
func (d *CommentDirective) String() string         { return "/comment" }
func (d *CommentDirective) Position() tokens.Range { return d.Rng }

// EnvDirective binds a named scoped environment of tools:
// `/env @name with { tools: [@a, @b] }`. The result is an object whose
// entries are the named executables.
type EnvDirective struct {
	Name  string
	Tools []string
	Rng   tokens.Range
}

func (d *EnvDirective) directiveNode()         {}
func (d *EnvDirective) Kind() string           { return "env" }
func (d *EnvDirective) Subtype() string        { return "" }
func (d *EnvDirective) String() string         { return "/env @" + d.Name }
func (d *EnvDirective) Position() tokens.Range { return d.Rng }

// PolicyDirective installs an inline policy configuration.
type PolicyDirective struct {
	Name   string
	Config map[string]any
	Rng    tokens.Range
}

func (d *PolicyDirective) directiveNode()         {}
func (d *PolicyDirective) Kind() string           { return "policy" }
func (d *PolicyDirective) Subtype() string        { return "" }
func (d *PolicyDirective) String() string         { return "/policy " + d.Name }
func (d *PolicyDirective) Position() tokens.Range { return d.Rng }
