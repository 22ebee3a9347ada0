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

// WhenBranch is one `cond => action` arm.
type WhenBranch struct {
	Cond   Expression
	Action Node
}

// WhenDirective is `/when <cond> [first] [ ...arms ]`. With First set only
// the first matching arm fires; otherwise every matching arm does.
type WhenDirective struct {
	Cond     Expression // optional outer gate
	First    bool
	Branches []WhenBranch
	Rng      tokens.Range
}

func (d *WhenDirective) directiveNode() {}
func (d *WhenDirective) Kind() string   { return "when" }

func (d *WhenDirective) Subtype() string {
	if d.First {
		return "first"
	}
	return "all"
}

func (d *WhenDirective) String() string         { return "/when" }
func (d *WhenDirective) Position() tokens.Range { return d.Rng }
