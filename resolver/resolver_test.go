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

package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlld-sh/mlld/project"
	"github.com/mlld-sh/mlld/xerr"
	"github.com/stretchr/testify/suite"
)

type ResolverTestSuite struct {
	suite.Suite
	ctx context.Context
	dir string
	r   *Resolver
}

func (s *ResolverTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	s.r = New(project.Default(s.dir))
}

func TestResolverTestSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

func (s *ResolverTestSuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *ResolverTestSuite) TestResolveRelativeFile() {
	path := s.write("mods/util.mld", "body")
	res, err := s.r.Resolve(s.ctx, "mods/util.mld", s.dir, "")
	s.Require().NoError(err)
	s.Equal(KindFile, res.Kind)
	s.Equal(path, res.ResolvedPath)
}

func (s *ResolverTestSuite) TestResolveExtensionless() {
	path := s.write("util.mld", "body")
	res, err := s.r.Resolve(s.ctx, "util", s.dir, "")
	s.Require().NoError(err)
	s.Equal(path, res.ResolvedPath)
}

func (s *ResolverTestSuite) TestResolveDirectory() {
	s.write("pkg/a.mld", "a")
	res, err := s.r.Resolve(s.ctx, "pkg", s.dir, "")
	s.Require().NoError(err)
	s.Equal(KindDirectory, res.Kind)
}

func (s *ResolverTestSuite) TestResolveURL() {
	res, err := s.r.Resolve(s.ctx, "https://mods.example/x.mld", s.dir, "")
	s.Require().NoError(err)
	s.Equal(KindURL, res.Kind)
}

func (s *ResolverTestSuite) TestImportTypeGate() {
	s.write("util.mld", "body")

	_, err := s.r.Resolve(s.ctx, "util.mld", s.dir, "static")
	s.NoError(err)

	_, err = s.r.Resolve(s.ctx, "util.mld", s.dir, "cached")
	s.Require().Error(err)
	s.Equal(xerr.CodeImportTypeMismatch, xerr.CodeOf(err))

	_, err = s.r.Resolve(s.ctx, "https://mods.example/x.mld", s.dir, "static")
	s.Require().Error(err)
	s.Equal(xerr.CodeImportTypeMismatch, xerr.CodeOf(err))
}

func (s *ResolverTestSuite) TestNodeModuleResolution() {
	s.write("node_modules/leftpad/index.js", "module.exports = {}")
	res, err := s.r.Resolve(s.ctx, "node:leftpad", filepath.Join(s.dir, "sub"), "")
	s.Require().NoError(err)
	s.Equal(KindNodeModule, res.Kind)
	s.Contains(res.ResolvedPath, "leftpad")
}

func (s *ResolverTestSuite) TestFetchFileContent() {
	s.write("util.mld", "the body")
	res, err := s.r.Resolve(s.ctx, "util.mld", s.dir, "")
	s.Require().NoError(err)

	content, err := s.r.Fetch(s.ctx, res, 0)
	s.Require().NoError(err)
	s.Equal("the body", content)
}

func (s *ResolverTestSuite) TestDirectoryChildren() {
	s.write("pkg/b.mld", "b")
	s.write("pkg/a.mld", "a")
	s.write("pkg/readme.txt", "ignored")

	children, order, err := DirectoryChildren(filepath.Join(s.dir, "pkg"), "mld")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"a", "b"}, order)
	s.Contains(children["a"], "a.mld")
}

func (s *ResolverTestSuite) TestSplitFrontmatter() {
	meta, body, err := SplitFrontmatter("---\nname: util\nversion: 1.2.0\n---\n# Module\n")
	s.Require().NoError(err)
	s.Equal("util", meta["name"])
	s.Equal("# Module\n", body)
}

func (s *ResolverTestSuite) TestSplitFrontmatterAbsent() {
	meta, body, err := SplitFrontmatter("# Plain module\n")
	s.Require().NoError(err)
	s.Nil(meta)
	s.Equal("# Plain module\n", body)
}

func (s *ResolverTestSuite) TestParseCacheDuration() {
	cases := map[string]time.Duration{
		"30 seconds": 30 * time.Second,
		"5 minutes":  5 * time.Minute,
		"2 hours":    2 * time.Hour,
		"1 day":      24 * time.Hour,
		"1 week":     7 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseCacheDuration(in)
		s.Require().NoError(err, in)
		s.Equal(want, got, in)
	}

	_, err := ParseCacheDuration("whenever")
	s.Error(err)
	_, err = ParseCacheDuration("5 fortnights")
	s.Error(err)
}

func (s *ResolverTestSuite) TestSplitConstraint() {
	name, constraint := splitConstraint("@user/mod@^1.2")
	s.Equal("@user/mod", name)
	s.Equal("^1.2", constraint)

	name, constraint = splitConstraint("@user/mod")
	s.Equal("@user/mod", name)
	s.Equal("", constraint)
}

func (s *ResolverTestSuite) TestPickVersion() {
	idx := registryIndex{Versions: map[string]struct {
		URL  string `json:"url"`
		Hash string `json:"hash"`
	}{
		"1.0.0": {}, "1.2.3": {}, "2.0.0": {},
	}}

	best, err := pickVersion(idx, "^1.0")
	s.Require().NoError(err)
	s.Equal("1.2.3", best)

	best, err = pickVersion(idx, "")
	s.Require().NoError(err)
	s.Equal("2.0.0", best)

	_, err = pickVersion(idx, "^3.0")
	s.Error(err)
}
