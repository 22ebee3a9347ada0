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

package dag

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ImportGraphTestSuite struct {
	suite.Suite
	g *ImportGraph
}

func (s *ImportGraphTestSuite) SetupTest() {
	s.g = NewImportGraph()
}

func TestImportGraphTestSuite(t *testing.T) {
	suite.Run(t, new(ImportGraphTestSuite))
}

func (s *ImportGraphTestSuite) TestAcyclicHasNoCycle() {
	s.NoError(s.g.AddImport("main.mld", "a.mld"))
	s.NoError(s.g.AddImport("main.mld", "b.mld"))
	s.NoError(s.g.AddImport("a.mld", "b.mld"))
	s.Nil(s.g.FirstCycle())
}

func (s *ImportGraphTestSuite) TestSelfImportRejected() {
	s.ErrorIs(s.g.AddImport("a.mld", "a.mld"), ErrSelfImport)
}

func (s *ImportGraphTestSuite) TestCycleDetected() {
	s.NoError(s.g.AddImport("a.mld", "b.mld"))
	s.NoError(s.g.AddImport("b.mld", "c.mld"))
	s.NoError(s.g.AddImport("c.mld", "a.mld"))

	cycle := s.g.FirstCycle()
	s.Require().NotEmpty(cycle)
	s.Equal(cycle[0], cycle[len(cycle)-1])
}

func (s *ImportGraphTestSuite) TestLoadOrderDependenciesFirst() {
	s.NoError(s.g.AddImport("main.mld", "util.mld"))
	s.NoError(s.g.AddImport("util.mld", "base.mld"))

	order, err := s.g.LoadOrder()
	s.Require().NoError(err)

	pos := map[string]int{}
	for i, p := range order {
		pos[p] = i
	}
	s.Less(pos["base.mld"], pos["util.mld"])
	s.Less(pos["util.mld"], pos["main.mld"])
}

func (s *ImportGraphTestSuite) TestLoadOrderErrorsOnCycle() {
	s.NoError(s.g.AddImport("a.mld", "b.mld"))
	s.NoError(s.g.AddImport("b.mld", "a.mld"))

	_, err := s.g.LoadOrder()
	var cycleErr ErrCycle
	s.ErrorAs(err, &cycleErr)
	s.NotEmpty(cycleErr.Path)
}
