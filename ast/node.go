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

import (
	"github.com/mlld-sh/mlld/tokens"
)

// Node is anything the evaluator can visit.
type Node interface {
	String() string
	Position() tokens.Range
}

// Directive is a top-level statement (`/var`, `/run`, ...). Kind returns the
// router key; Subtype refines it where one kind has several forms.
type Directive interface {
	Node
	directiveNode()
	Kind() string
	Subtype() string
}

// Expression is anything that evaluates to a value.
type Expression interface {
	Node
	expressionNode()
}
