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
	"fmt"
	"strconv"

	"github.com/mlld-sh/mlld/tokens"
)

type StringLiteral struct {
	Value string
	Rng   tokens.Range
}

func (l *StringLiteral) expressionNode()        {}
func (l *StringLiteral) String() string         { return strconv.Quote(l.Value) }
func (l *StringLiteral) Position() tokens.Range { return l.Rng }

type NumberLiteral struct {
	Value float64
	Rng   tokens.Range
}

func (l *NumberLiteral) expressionNode()        {}
func (l *NumberLiteral) String() string         { return strconv.FormatFloat(l.Value, 'g', -1, 64) }
func (l *NumberLiteral) Position() tokens.Range { return l.Rng }

type BoolLiteral struct {
	Value bool
	Rng   tokens.Range
}

func (l *BoolLiteral) expressionNode()        {}
func (l *BoolLiteral) String() string         { return strconv.FormatBool(l.Value) }
func (l *BoolLiteral) Position() tokens.Range { return l.Rng }

type NullLiteral struct {
	Rng tokens.Range
}

func (l *NullLiteral) expressionNode()        {}
func (l *NullLiteral) String() string         { return "null" }
func (l *NullLiteral) Position() tokens.Range { return l.Rng }

type ArrayLiteral struct {
	Values []Expression
	Rng    tokens.Range
}

func (l *ArrayLiteral) expressionNode()        {}
func (l *ArrayLiteral) String() string         { return fmt.Sprintf("[%d items]", len(l.Values)) }
func (l *ArrayLiteral) Position() tokens.Range { return l.Rng }

// ObjectEntry preserves source order; object keys are unique and
// case-sensitive.
type ObjectEntry struct {
	Key   string
	Value Expression
}

type ObjectLiteral struct {
	Entries []ObjectEntry
	Rng     tokens.Range
}

func (l *ObjectLiteral) expressionNode()        {}
func (l *ObjectLiteral) String() string         { return fmt.Sprintf("{%d keys}", len(l.Entries)) }
func (l *ObjectLiteral) Position() tokens.Range { return l.Rng }

// RetryLiteral is the `retry` keyword, legal only as a pipeline stage
// outcome.
type RetryLiteral struct {
	Rng tokens.Range
}

func (l *RetryLiteral) expressionNode()        {}
func (l *RetryLiteral) String() string         { return "retry" }
func (l *RetryLiteral) Position() tokens.Range { return l.Rng }
