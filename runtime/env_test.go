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
	"testing"

	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/tokens"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
	"github.com/stretchr/testify/suite"
)

type EnvTestSuite struct {
	suite.Suite
	env *Environment
}

func (s *EnvTestSuite) SetupTest() {
	s.env = NewEnvironment("/proj/main.mld", effects.NewBuffer())
}

func TestEnvTestSuite(t *testing.T) {
	suite.Run(t, new(EnvTestSuite))
}

func (s *EnvTestSuite) set(env *Environment, name string, v any) {
	env.Set(name, values.NewVariable(name, v, values.SourceInfo{Directive: "var"}, tokens.Range{}))
}

func (s *EnvTestSuite) TestGetReturnsMostRecentSet() {
	s.set(s.env, "x", "one")
	s.set(s.env, "x", "two")

	v, ok := s.env.Get("x")
	s.True(ok)
	s.Equal("two", v.Value)
}

func (s *EnvTestSuite) TestGetClimbsParents() {
	s.set(s.env, "x", "outer")
	child := s.env.NewChild()
	grandchild := child.NewChild()

	v, ok := grandchild.Get("x")
	s.True(ok)
	s.Equal("outer", v.Value)
}

func (s *EnvTestSuite) TestNearestAncestorWins() {
	s.set(s.env, "x", "outer")
	child := s.env.NewChild()
	s.set(child, "x", "inner")

	v, _ := child.NewChild().Get("x")
	s.Equal("inner", v.Value)
}

func (s *EnvTestSuite) TestChildNeverMutatesParent() {
	child := s.env.NewChild()
	s.set(child, "x", "inner")

	_, ok := s.env.Get("x")
	s.False(ok)
}

func (s *EnvTestSuite) TestMissingName() {
	_, ok := s.env.Get("nope")
	s.False(ok)
}

func (s *EnvTestSuite) TestCaptureModuleObservesOnlySetVars() {
	s.set(s.env, "a", 1.0)
	snap := s.env.CaptureModule()

	s.ElementsMatch([]string{"a"}, snap.Names())

	// later writes to the live env do not appear in the snapshot
	s.set(s.env, "b", 2.0)
	_, ok := snap.Get("b")
	s.False(ok)
}

func (s *EnvTestSuite) TestCaptureModuleFlattensToFileRoot() {
	s.set(s.env, "a", 1.0)
	child := s.env.NewChild()

	snap := child.CaptureModule()
	v, ok := snap.Get("a")
	s.True(ok)
	s.Equal(1.0, v.Value)
}

func (s *EnvTestSuite) TestImportCollisionDifferentSource() {
	s.env.RecordImportBinding("x", "a.mld", tokens.At("main.mld", 1, 1))

	err := s.env.CheckImportCollision("x", "b.mld", tokens.At("main.mld", 2, 1))
	s.Error(err)
	s.Equal(xerr.CodeImportNameConflict, xerr.CodeOf(err))
}

func (s *EnvTestSuite) TestImportSameSourceRebindAllowed() {
	s.env.RecordImportBinding("x", "a.mld", tokens.At("main.mld", 1, 1))
	s.NoError(s.env.CheckImportCollision("x", "a.mld", tokens.At("main.mld", 2, 1)))
}

func (s *EnvTestSuite) TestExportsRecordedOnRoot() {
	child := s.env.NewChild()
	child.RecordExport("a", "b")
	s.Equal([]string{"a", "b"}, s.env.Exports())
}

func (s *EnvTestSuite) TestSecuritySnapshotPropagatesToChildren() {
	s.env.TaintSnapshot(descriptorWithTaint("network"))
	child := s.env.NewChild()
	s.True(child.SecuritySnapshot().Taint.Has("network"))
}
