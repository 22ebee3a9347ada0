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

// Document is a parsed mlld source file: markdown prose interleaved with
// directives, in source order, plus any leading frontmatter.
type Document struct {
	Path        string
	Frontmatter map[string]any
	Nodes       []Node
}

// TextNode is a run of markdown prose emitted to the document verbatim.
type TextNode struct {
	Text string
	Rng  tokens.Range
}

func (t *TextNode) String() string         { return t.Text }
func (t *TextNode) Position() tokens.Range { return t.Rng }

// Directives returns the document's directives in source order.
func (d *Document) Directives() []Directive {
	out := make([]Directive, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		if dir, ok := n.(Directive); ok {
			out = append(out, dir)
		}
	}
	return out
}
