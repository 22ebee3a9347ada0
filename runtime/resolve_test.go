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

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
	"github.com/stretchr/testify/suite"
)

type ResolveTestSuite struct {
	suite.Suite
	ctx context.Context
	h   *harness
}

func (s *ResolveTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.h = newHarness(s.T())
}

func TestResolveTestSuite(t *testing.T) {
	suite.Run(t, new(ResolveTestSuite))
}

func (s *ResolveTestSuite) structured() *values.StructuredValue {
	return values.NewStructured("json", `{"a": 1}`, map[string]any{"a": 1.0}, values.Metadata{Source: "load-content"})
}

func (s *ResolveTestSuite) TestDisplayUnwrapsToTextView() {
	s.h.bindValue("doc", s.structured())
	out, err := s.h.interp.resolveRef(s.ctx, s.h.env, ref("doc"), resolveDisplay)
	s.Require().NoError(err)
	s.Equal(`{"a": 1}`, out)
}

func (s *ResolveTestSuite) TestFieldAccessUnwrapsToDataView() {
	s.h.bindValue("doc", s.structured())
	out, err := s.h.interp.resolveRef(s.ctx, s.h.env, ref("doc", ast.Field{Key: "a"}), resolveFieldAccess)
	s.Require().NoError(err)
	s.Equal(1.0, out)
}

func (s *ResolveTestSuite) TestDisplayMissingIsEmptyString() {
	out, err := s.h.interp.resolveRef(s.ctx, s.h.env, ref("ghost"), resolveDisplay)
	s.Require().NoError(err)
	s.Equal("", out)
}

func (s *ResolveTestSuite) TestFieldAccessMissingErrorsInStrictMode() {
	_, err := s.h.interp.resolveRef(s.ctx, s.h.env, ref("ghost"), resolveFieldAccess)
	s.Require().Error(err)
	s.Equal(xerr.CodeVariableNotFound, xerr.CodeOf(err))
}

func (s *ResolveTestSuite) TestPermissiveModeYieldsUndefined() {
	h := newHarness(s.T(), WithPermissiveFieldAccess())
	out, err := h.interp.resolveRef(s.ctx, h.env, ref("ghost"), resolveFieldAccess)
	s.Require().NoError(err)
	s.True(values.IsUndefined(out))
}

func (s *ResolveTestSuite) TestEqualityMissingIsUndefined() {
	out, err := s.h.interp.resolveRef(s.ctx, s.h.env, ref("ghost"), resolveEquality)
	s.Require().NoError(err)
	s.True(values.IsUndefined(out))

	// undefined equals nothing, not even undefined
	s.False(equalValues(out, out))
	s.False(equalValues(out, nil))
}

func (s *ResolveTestSuite) TestArrayIndexTraversal() {
	s.h.bindValue("xs", []any{"zero", "one", "two"})
	out, err := s.h.interp.resolveRef(s.ctx, s.h.env, ref("xs", ast.Field{Index: 1, IsIndex: true}), resolveFieldAccess)
	s.Require().NoError(err)
	s.Equal("one", out)
}

func (s *ResolveTestSuite) TestOutOfRangeIndexStrict() {
	s.h.bindValue("xs", []any{"zero"})
	_, err := s.h.interp.resolveRef(s.ctx, s.h.env, ref("xs", ast.Field{Index: 9, IsIndex: true}), resolveFieldAccess)
	s.Require().Error(err)
	s.Equal(xerr.CodeFieldNotFound, xerr.CodeOf(err))
}

func (s *ResolveTestSuite) TestNestedObjectTraversal() {
	inner := values.ObjectFrom("b", []any{10.0, 20.0})
	outer := values.ObjectFrom("a", inner)
	s.h.bindValue("o", outer)

	out, err := s.h.interp.resolveRef(s.ctx, s.h.env,
		ref("o", ast.Field{Key: "a"}, ast.Field{Key: "b"}, ast.Field{Index: 1, IsIndex: true}),
		resolveFieldAccess)
	s.Require().NoError(err)
	s.Equal(20.0, out)
}

func (s *ResolveTestSuite) TestPipelineInputKeepsRawValue() {
	sv := s.structured()
	s.h.bindValue("doc", sv)
	out, err := s.h.interp.resolveRef(s.ctx, s.h.env, ref("doc"), resolvePipelineInput)
	s.Require().NoError(err)
	s.Same(sv, out)
}

func (s *ResolveTestSuite) TestInterpolationInTemplate() {
	s.h.bindValue("name", "world")
	tpl := &ast.TemplateLiteral{Syntax: "::", Parts: []ast.TemplatePart{
		{Text: "Hello "}, {Expr: ref("name")}, {Text: "!"},
	}}
	out, err := s.h.interp.interpolate(s.ctx, s.h.env, tpl)
	s.Require().NoError(err)
	s.Equal("Hello world!", out)
}
