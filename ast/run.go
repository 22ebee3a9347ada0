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

// RunDirective executes a command or a language block.
//
//	/run echo hi                 -> Command set (one-shot, no chaining)
//	/run sh { ... }              -> Lang "sh", Body set
//	/run js { ... }              -> Lang "js", Body set
type RunDirective struct {
	Command  Expression // interpolated command line, nil for blocks
	Lang     string
	Body     string
	Pipeline []*Stage // optional trailing `| ...`
	Rng      tokens.Range
}

func (d *RunDirective) directiveNode() {}
func (d *RunDirective) Kind() string   { return "run" }

func (d *RunDirective) Subtype() string {
	if d.Lang != "" {
		return d.Lang
	}
	return "command"
}

func (d *RunDirective) String() string {
	if d.Lang != "" {
		return "/run " + d.Lang + " {...}"
	}
	return "/run"
}

func (d *RunDirective) Position() tokens.Range { return d.Rng }
