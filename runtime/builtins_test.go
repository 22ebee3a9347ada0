// SPDX-License-Identifier: Apache-2.0
//
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

package runtime

import (
	"context"
	"testing"

	"github.com/mlld-sh/mlld/values"
	"github.com/stretchr/testify/suite"
)

type BuiltinsTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *BuiltinsTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func TestBuiltinsTestSuite(t *testing.T) {
	suite.Run(t, new(BuiltinsTestSuite))
}

func (s *BuiltinsTestSuite) TestJSONParsesText() {
	out, err := BuiltinJSON(s.ctx, []any{`{"a": [1, 2]}`})
	s.Require().NoError(err)
	sv := out.(*values.StructuredValue)
	data := sv.Data().(map[string]any)
	s.Equal([]any{1.0, 2.0}, data["a"])
}

func (s *BuiltinsTestSuite) TestJSONSerializesCompound() {
	out, err := BuiltinJSON(s.ctx, []any{[]any{"x", 1.0}})
	s.Require().NoError(err)
	s.Equal(`["x",1]`, out)
}

func (s *BuiltinsTestSuite) TestCSV() {
	out, err := BuiltinCSV(s.ctx, []any{"a,b\nc,d\n"})
	s.Require().NoError(err)
	rows := out.(*values.StructuredValue).Data().([]any)
	s.Len(rows, 2)
	s.Equal([]any{"a", "b"}, rows[0])
}

func (s *BuiltinsTestSuite) TestCaseTransforms() {
	up, _ := BuiltinUpper(s.ctx, []any{"abc"})
	s.Equal("ABC", up)
	low, _ := BuiltinLower(s.ctx, []any{"ABC"})
	s.Equal("abc", low)
	trimmed, _ := BuiltinTrim(s.ctx, []any{"  x  "})
	s.Equal("x", trimmed)
}

func (s *BuiltinsTestSuite) TestJoin() {
	out, err := BuiltinJoin(s.ctx, []any{[]any{"a", "b", "c"}, "-"})
	s.Require().NoError(err)
	s.Equal("a-b-c", out)

	out, err = BuiltinJoin(s.ctx, []any{[]any{"a", "b"}})
	s.Require().NoError(err)
	s.Equal("a,b", out)
}

func (s *BuiltinsTestSuite) TestLines() {
	out, err := BuiltinLines(s.ctx, []any{"one\ntwo\n"})
	s.Require().NoError(err)
	s.Equal([]any{"one", "two"}, out)

	empty, _ := BuiltinLines(s.ctx, []any{""})
	s.Equal([]any{}, empty)
}

func (s *BuiltinsTestSuite) TestIncludes() {
	yes, _ := BuiltinIncludes(s.ctx, []any{[]any{"a", "b"}, "b"})
	s.Equal(true, yes)
	no, _ := BuiltinIncludes(s.ctx, []any{[]any{"a", "b"}, "z"})
	s.Equal(false, no)
	sub, _ := BuiltinIncludes(s.ctx, []any{"haystack", "stack"})
	s.Equal(true, sub)
}
