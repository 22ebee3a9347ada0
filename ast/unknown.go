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

// UnknownDirective satisfies Directive without matching any of the router's
// type-switch cases. It exists so callers outside this package can exercise
// the "unrecognized directive kind" error path, since directiveNode is
// unexported and otherwise unimplementable from outside the package.
type UnknownDirective struct{}

func (d *UnknownDirective) String() string         { return "/unknown" }
func (d *UnknownDirective) Position() tokens.Range { return tokens.Range{} }
func (d *UnknownDirective) directiveNode()         {}
func (d *UnknownDirective) Kind() string           { return "unknown" }
func (d *UnknownDirective) Subtype() string        { return "" }
