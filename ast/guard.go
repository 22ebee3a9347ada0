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

// GuardClause is one `when` arm of a guard body. Cond is evaluated over
// `@mx`; Allow false means `deny Reason`.
type GuardClause struct {
	Cond   Expression
	Allow  bool
	Reason string
}

// GuardDirective is `/guard @name [before|after op:<kind>] = when [ ... ]`.
type GuardDirective struct {
	Name    string
	Phase   string // "before" (default) or "after"
	Op      string // "op:exe", "op:run", ...
	Clauses []GuardClause
	Rng     tokens.Range
}

func (d *GuardDirective) directiveNode()         {}
func (d *GuardDirective) Kind() string           { return "guard" }
func (d *GuardDirective) Subtype() string        { return d.Phase }
func (d *GuardDirective) String() string         { return "/guard @" + d.Name }
func (d *GuardDirective) Position() tokens.Range { return d.Rng }
