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

// Builtin pipeline effects.
const (
	BuiltinShow   = "show"
	BuiltinLog    = "log"
	BuiltinOutput = "output"
)

// Stage is one raw pipeline stage: a function reference, a builtin effect,
// or a parallel group of branches. Exactly one of the three is set.
type Stage struct {
	// Call references an executable stage (`| @upper` or `| @rev(x)`).
	Call *CallExpr

	// Builtin is "show", "log" or "output"; Target carries output's path.
	Builtin string
	Target  Expression

	// Group holds the branches of `A || B || C`, in source order.
	Group []*Stage

	Rng tokens.Range
}

func (s *Stage) String() string {
	switch {
	case len(s.Group) > 0:
		parts := make([]string, 0, len(s.Group))
		for _, b := range s.Group {
			parts = append(parts, b.String())
		}
		return strings.Join(parts, " || ")
	case s.Builtin != "":
		return s.Builtin
	case s.Call != nil:
		return s.Call.String()
	default:
		return "<empty stage>"
	}
}

// PipelineExpr is `source | s1 | s2`, sugar for
// `source with { pipeline: [s1, s2] }`. Format is an optional hint
// ("json", "csv", "xml", "text") wrapping each stage's input for lazy
// parsing.
type PipelineExpr struct {
	Source Expression
	Stages []*Stage
	Format string
	Rng    tokens.Range
}

func (p *PipelineExpr) expressionNode() {}

func (p *PipelineExpr) String() string {
	var b strings.Builder
	b.WriteString(p.Source.String())
	for _, s := range p.Stages {
		b.WriteString(" | ")
		b.WriteString(s.String())
	}
	return b.String()
}

func (p *PipelineExpr) Position() tokens.Range { return p.Rng }
