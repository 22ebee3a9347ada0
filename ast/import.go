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

// Import subtypes.
const (
	ImportSelected  = "importSelected"
	ImportNamespace = "importNamespace"
	ImportPolicy    = "importPolicy"
	ImportAll       = "importAll"
)

// ImportName is one requested binding, optionally renamed with `as`.
type ImportName struct {
	Name  string
	Alias string
}

func (n ImportName) Bound() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// ImportDirective covers all import forms:
//
//	/import { a, b as c } from "src"   -> importSelected
//	/import "src" as @ns               -> importNamespace
//	/import policy "src" as @p         -> importPolicy
//	/import { * } from "src"           -> importAll (always rejected)
type ImportDirective struct {
	SubKind string
	Names   []ImportName
	Source  string
	Alias   string

	// ImportType constrains acceptable resolver kinds:
	// module|static|cached|live|local|templates. Empty means unconstrained.
	ImportType string

	// CacheFor is the human duration ("5 minutes") for cached imports.
	CacheFor string

	Rng tokens.Range
}

func (d *ImportDirective) directiveNode()         {}
func (d *ImportDirective) Kind() string           { return "import" }
func (d *ImportDirective) Subtype() string        { return d.SubKind }
func (d *ImportDirective) String() string         { return "/import from " + d.Source }
func (d *ImportDirective) Position() tokens.Range { return d.Rng }

// ExportDirective is `/export { @a, @b }`.
type ExportDirective struct {
	Names []string
	Rng   tokens.Range
}

func (d *ExportDirective) directiveNode()         {}
func (d *ExportDirective) Kind() string           { return "export" }
func (d *ExportDirective) Subtype() string        { return "" }
func (d *ExportDirective) String() string         { return "/export" }
func (d *ExportDirective) Position() tokens.Range { return d.Rng }
