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
	"strconv"
	"strings"

	"github.com/mlld-sh/mlld/tokens"
)

// Field is one step of a field-access chain: an object key or an array
// index.
type Field struct {
	Key     string
	Index   int
	IsIndex bool
}

func (f Field) String() string {
	if f.IsIndex {
		return strconv.Itoa(f.Index)
	}
	return f.Key
}

// VariableRef is `@name` optionally followed by a field chain
// (`@name.a.b.0`).
type VariableRef struct {
	Name   string
	Fields []Field
	Rng    tokens.Range
}

func (r *VariableRef) expressionNode() {}

func (r *VariableRef) String() string {
	var b strings.Builder
	b.WriteString("@")
	b.WriteString(r.Name)
	for _, f := range r.Fields {
		b.WriteString(".")
		b.WriteString(f.String())
	}
	return b.String()
}

func (r *VariableRef) Position() tokens.Range { return r.Rng }

// BinaryExpr covers arithmetic, comparison and logical operators.
type BinaryExpr struct {
	Op    string
	Left  Expression
	Right Expression
	Rng   tokens.Range
}

func (e *BinaryExpr) expressionNode() {}
func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}
func (e *BinaryExpr) Position() tokens.Range { return e.Rng }

type UnaryExpr struct {
	Op      string
	Operand Expression
	Rng     tokens.Range
}

func (e *UnaryExpr) expressionNode()        {}
func (e *UnaryExpr) String() string         { return e.Op + e.Operand.String() }
func (e *UnaryExpr) Position() tokens.Range { return e.Rng }

// CallExpr invokes an executable: `@fn(a, b)`.
type CallExpr struct {
	Target string
	Args   []Expression
	Rng    tokens.Range
}

func (e *CallExpr) expressionNode()        {}
func (e *CallExpr) String() string         { return "@" + e.Target + "(...)" }
func (e *CallExpr) Position() tokens.Range { return e.Rng }

// ForeachExpr is `foreach @fn(@a, @b)`: the cartesian product of the
// argument arrays, one call per tuple.
type ForeachExpr struct {
	Call *CallExpr
	Rng  tokens.Range
}

func (e *ForeachExpr) expressionNode()        {}
func (e *ForeachExpr) String() string         { return "foreach " + e.Call.String() }
func (e *ForeachExpr) Position() tokens.Range { return e.Rng }

// LoaderExpr is `<path>`: load file (or glob) content as a structured
// value.
type LoaderExpr struct {
	Path Expression
	Glob bool
	Rng  tokens.Range
}

func (e *LoaderExpr) expressionNode()        {}
func (e *LoaderExpr) String() string         { return "<" + e.Path.String() + ">" }
func (e *LoaderExpr) Position() tokens.Range { return e.Rng }
