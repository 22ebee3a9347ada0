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
	"strings"

	"github.com/mlld-sh/mlld/tokens"
)

// TemplatePart is either literal text or an interpolated expression.
type TemplatePart struct {
	Text string
	Expr Expression // nil for text parts
}

// TemplateLiteral is `::...::` (double-colon) or `:::...:::`
// (triple-colon) template syntax. Parts alternate freely.
type TemplateLiteral struct {
	Parts  []TemplatePart
	Syntax string // "::" or ":::"
	Rng    tokens.Range
}

func (t *TemplateLiteral) expressionNode() {}

func (t *TemplateLiteral) String() string {
	var b strings.Builder
	b.WriteString(t.Syntax)
	for _, p := range t.Parts {
		if p.Expr != nil {
			b.WriteString(p.Expr.String())
		} else {
			b.WriteString(p.Text)
		}
	}
	b.WriteString(t.Syntax)
	return b.String()
}

func (t *TemplateLiteral) Position() tokens.Range { return t.Rng }
