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

// VarDirective is `/var @name = <expr>`.
type VarDirective struct {
	Name   string
	Value  Expression
	Labels []string
	Rng    tokens.Range
}

func (d *VarDirective) directiveNode()         {}
func (d *VarDirective) Kind() string           { return "var" }
func (d *VarDirective) Subtype() string        { return "" }
func (d *VarDirective) String() string         { return "/var @" + d.Name }
func (d *VarDirective) Position() tokens.Range { return d.Rng }

// PathDirective is `/path @name = "<path>"`; the value is normalized
// against the current file's directory at bind time.
type PathDirective struct {
	Name  string
	Value Expression
	Rng   tokens.Range
}

func (d *PathDirective) directiveNode()         {}
func (d *PathDirective) Kind() string           { return "path" }
func (d *PathDirective) Subtype() string        { return "" }
func (d *PathDirective) String() string         { return "/path @" + d.Name }
func (d *PathDirective) Position() tokens.Range { return d.Rng }
