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

// ForDirective is `/for [parallel[(n[,rate])]] @x in @coll => action`.
// Action is a Directive (side-effecting form) or an Expression (collection
// form, which yields an array of per-iteration values).
type ForDirective struct {
	VarName    string
	Collection Expression
	Action     Node

	Parallel bool
	Cap      int     // max concurrent bodies; 0 means the global limit
	Rate     float64 // operations per second; 0 means unpaced

	// Into, when set, binds the collection-form result to a variable.
	Into string

	Rng tokens.Range
}

func (d *ForDirective) directiveNode() {}
func (d *ForDirective) Kind() string   { return "for" }

func (d *ForDirective) Subtype() string {
	if d.Parallel {
		return "parallel"
	}
	return "sequential"
}

func (d *ForDirective) String() string         { return "/for @" + d.VarName }
func (d *ForDirective) Position() tokens.Range { return d.Rng }
