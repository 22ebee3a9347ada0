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

// ExeDirective declares an executable. Exactly one body form is set:
//
//	/exe @f(a, b) = { echo @a }           -> Command
//	/exe @f(a) = js { return a * 2 }      -> Lang + Body
//	/exe @f(x) = ::Hello @x::             -> Template
//	/exe @f = mcp "time/getTime"          -> McpTool
//	/exe @js = { fnA, fnB }               -> ShadowFns (shadow env decl)
type ExeDirective struct {
	Name   string
	Params []string

	Command  Expression
	Lang     string
	Body     string
	Template *TemplateLiteral
	McpTool  string

	// ShadowFns declares a language shadow environment: Name is the
	// language, ShadowFns the executables exposed to its code blocks.
	ShadowFns []string

	// Memoize caches call results by argument hash; TTL optional.
	Memoize    bool
	MemoizeTTL string

	Rng tokens.Range
}

func (d *ExeDirective) directiveNode() {}
func (d *ExeDirective) Kind() string   { return "exe" }

func (d *ExeDirective) Subtype() string {
	switch {
	case len(d.ShadowFns) > 0:
		return "shadow"
	case d.McpTool != "":
		return "mcp"
	case d.Template != nil:
		return "template"
	case d.Lang != "":
		return "code"
	default:
		return "command"
	}
}

func (d *ExeDirective) String() string         { return "/exe @" + d.Name }
func (d *ExeDirective) Position() tokens.Range { return d.Rng }
