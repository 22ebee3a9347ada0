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

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
	"github.com/stretchr/testify/suite"
)

type ImportTestSuite struct {
	suite.Suite
	ctx context.Context
	h   *harness
}

func (s *ImportTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.h = newHarness(s.T())
}

func TestImportTestSuite(t *testing.T) {
	suite.Run(t, new(ImportTestSuite))
}

// module `m.mld`: /var @x = "hi" ; /export { @x }
func (s *ImportTestSuite) moduleM() *ast.Document {
	return &ast.Document{Nodes: []ast.Node{
		&ast.VarDirective{Name: "x", Value: str("hi")},
		&ast.ExportDirective{Names: []string{"x"}},
	}}
}

// Selected import + show renders the imported value.
func (s *ImportTestSuite) TestSelectedImportAndShow() {
	path := s.h.addModule(s.T(), "m.mld", s.moduleM())

	doc := &ast.Document{Path: s.h.env.FilePath(), Nodes: []ast.Node{
		&ast.ImportDirective{SubKind: ast.ImportSelected, Names: []ast.ImportName{{Name: "x"}}, Source: path},
		&ast.ShowDirective{Value: ref("x")},
	}}
	result, err := s.h.interp.EvalDocument(s.ctx, doc, s.h.env)
	s.Require().NoError(err)
	s.Equal("hi\n", result.Document)
}

func (s *ImportTestSuite) TestSelectedImportRename() {
	path := s.h.addModule(s.T(), "m.mld", s.moduleM())

	d := &ast.ImportDirective{
		SubKind: ast.ImportSelected,
		Names:   []ast.ImportName{{Name: "x", Alias: "y"}},
		Source:  path,
	}
	_, err := s.h.interp.evalImport(s.ctx, s.h.env, d)
	s.Require().NoError(err)

	v, ok := s.h.env.Get("y")
	s.Require().True(ok)
	s.Equal("hi", v.Value)
	_, ok = s.h.env.Get("x")
	s.False(ok)
}

func (s *ImportTestSuite) TestSelectedNameMissing() {
	path := s.h.addModule(s.T(), "m.mld", s.moduleM())

	d := &ast.ImportDirective{
		SubKind: ast.ImportSelected,
		Names:   []ast.ImportName{{Name: "nope"}},
		Source:  path,
	}
	_, err := s.h.interp.evalImport(s.ctx, s.h.env, d)
	s.Require().Error(err)
	s.Equal(xerr.CodeExportedNameNotFound, xerr.CodeOf(err))
}

func (s *ImportTestSuite) TestWildcardRejected() {
	d := &ast.ImportDirective{SubKind: ast.ImportAll, Source: "anything"}
	_, err := s.h.interp.evalImport(s.ctx, s.h.env, d)
	s.Require().Error(err)
	s.Equal(xerr.CodeWildcardImport, xerr.CodeOf(err))
}

func (s *ImportTestSuite) TestNamespaceImport() {
	path := s.h.addModule(s.T(), "m.mld", s.moduleM())

	d := &ast.ImportDirective{SubKind: ast.ImportNamespace, Source: path, Alias: "m"}
	_, err := s.h.interp.evalImport(s.ctx, s.h.env, d)
	s.Require().NoError(err)

	v, ok := s.h.env.Get("m")
	s.Require().True(ok)
	obj, ok := v.Value.(*values.Object)
	s.Require().True(ok)
	s.Equal(path, obj.Namespace)
	x, _ := obj.Get("x")
	s.Equal("hi", x)
}

// policy module exporting a guard and a policy config
func (s *ImportTestSuite) policyModule(guardName string) *ast.Document {
	return &ast.Document{Nodes: []ast.Node{
		&ast.VarDirective{Name: "policy", Value: &ast.ObjectLiteral{Entries: []ast.ObjectEntry{
			{Key: "labels", Value: &ast.ArrayLiteral{Values: []ast.Expression{str("vetted")}}},
		}}},
		&ast.GuardDirective{
			Name: guardName, Phase: "before", Op: "op:exe",
			Clauses: []ast.GuardClause{{
				Cond: &ast.CallExpr{Target: "includes", Args: []ast.Expression{
					ref("mx", ast.Field{Key: "taint"}), str("src:mcp"),
				}},
				Allow: false, Reason: "MCP blocked",
			}},
		},
		&ast.ExportDirective{Names: []string{"policy"}},
	}}
}

// Collision fails before the second policy's context is applied: the
// first module's guards stay registered, the second's never land.
func (s *ImportTestSuite) TestPolicyCollisionFailsBeforePolicy() {
	pathA := s.h.addModule(s.T(), "a.mld", s.policyModule("guardA"))
	pathB := s.h.addModule(s.T(), "b.mld", s.policyModule("guardB"))

	importA := &ast.ImportDirective{SubKind: ast.ImportPolicy, Source: pathA, Alias: "p"}
	_, err := s.h.interp.evalImport(s.ctx, s.h.env, importA)
	s.Require().NoError(err)

	importB := &ast.ImportDirective{SubKind: ast.ImportPolicy, Source: pathB, Alias: "p"}
	_, err = s.h.interp.evalImport(s.ctx, s.h.env, importB)
	s.Require().Error(err)
	s.Equal(xerr.CodeImportNameConflict, xerr.CodeOf(err))

	_, hasA := s.h.env.Guards().Get("guardA")
	s.True(hasA)
	_, hasB := s.h.env.Guards().Get("guardB")
	s.False(hasB)
}

func (s *ImportTestSuite) TestImportedExecutableKeepsModuleEnv() {
	// module: /var @greeting = "yo" ; /exe @greet() = template ::@greeting::
	mod := &ast.Document{Nodes: []ast.Node{
		&ast.VarDirective{Name: "greeting", Value: str("yo")},
		&ast.ExeDirective{Name: "greet", Template: &ast.TemplateLiteral{
			Syntax: "::",
			Parts:  []ast.TemplatePart{{Expr: ref("greeting")}},
		}},
		&ast.ExportDirective{Names: []string{"greet"}},
	}}
	path := s.h.addModule(s.T(), "greeter.mld", mod)

	d := &ast.ImportDirective{SubKind: ast.ImportSelected, Names: []ast.ImportName{{Name: "greet"}}, Source: path}
	_, err := s.h.interp.evalImport(s.ctx, s.h.env, d)
	s.Require().NoError(err)

	// @greeting is not bound in the importer, but the captured module env
	// resolves it
	out, err := s.h.interp.call(s.ctx, s.h.env, "greet", nil, nil)
	s.Require().NoError(err)
	s.Equal("yo", out)
}

func (s *ImportTestSuite) TestEnvVarImportRequiresAllowList() {
	d := &ast.ImportDirective{
		SubKind: ast.ImportSelected,
		Names:   []ast.ImportName{{Name: "HOME"}},
		Source:  "@input",
	}
	_, err := s.h.interp.evalImport(s.ctx, s.h.env, d)
	s.Require().Error(err)
	s.Equal(xerr.CodePolicyDenied, xerr.CodeOf(err))
}

func (s *ImportTestSuite) TestSelfImportCycle() {
	d := &ast.ImportDirective{
		SubKind: ast.ImportSelected,
		Names:   []ast.ImportName{{Name: "x"}},
		Source:  s.h.env.FilePath(),
	}
	// main.mld importing itself is a cycle
	s.h.addModule(s.T(), "main.mld", s.moduleM())
	_, err := s.h.interp.evalImport(s.ctx, s.h.env, d)
	s.Require().Error(err)
	s.Equal(xerr.CodeImportCycle, xerr.CodeOf(err))
}
