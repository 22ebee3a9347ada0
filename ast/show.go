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

// ShowDirective emits a value to the document (and mirrors it to stdout in
// streaming mode).
type ShowDirective struct {
	Value Expression
	Rng   tokens.Range
}

func (d *ShowDirective) directiveNode()         {}
func (d *ShowDirective) Kind() string           { return "show" }
func (d *ShowDirective) Subtype() string        { return "" }
func (d *ShowDirective) String() string         { return "/show " + d.Value.String() }
func (d *ShowDirective) Position() tokens.Range { return d.Rng }

// OutputDirective is `/output <expr> to "path"`.
type OutputDirective struct {
	Value  Expression
	Target Expression
	Append bool
	Rng    tokens.Range
}

func (d *OutputDirective) directiveNode() {}
func (d *OutputDirective) Kind() string   { return "output" }

func (d *OutputDirective) Subtype() string {
	if d.Append {
		return "append"
	}
	return "overwrite"
}

func (d *OutputDirective) String() string         { return "/output ... to " + d.Target.String() }
func (d *OutputDirective) Position() tokens.Range { return d.Rng }
