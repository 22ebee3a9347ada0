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

package lockfile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LockfileTestSuite struct {
	suite.Suite
	path string
	now  time.Time
}

func (s *LockfileTestSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "mlld.lock.json")
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestLockfileTestSuite(t *testing.T) {
	suite.Run(t, new(LockfileTestSuite))
}

func (s *LockfileTestSuite) TestLoadMissingStartsEmpty() {
	f, err := Load(s.path)
	s.Require().NoError(err)
	s.False(f.ImportApproved("https://x", "h", s.now))
}

func (s *LockfileTestSuite) TestImportApprovalRoundTrip() {
	f, err := Load(s.path)
	s.Require().NoError(err)

	s.Require().NoError(f.ApproveImport("https://mods/a.mld", "hash1", "verified", time.Hour, s.now))
	s.True(f.ImportApproved("https://mods/a.mld", "hash1", s.now))

	// persisted: a fresh load sees the approval
	reloaded, err := Load(s.path)
	s.Require().NoError(err)
	s.True(reloaded.ImportApproved("https://mods/a.mld", "hash1", s.now))
}

func (s *LockfileTestSuite) TestImportApprovalIsHashBound() {
	f, _ := Load(s.path)
	s.Require().NoError(f.ApproveImport("https://mods/a.mld", "hash1", "verified", 0, s.now))
	s.False(f.ImportApproved("https://mods/a.mld", "hash2", s.now))
}

func (s *LockfileTestSuite) TestImportApprovalExpires() {
	f, _ := Load(s.path)
	s.Require().NoError(f.ApproveImport("https://mods/a.mld", "h", "verified", time.Minute, s.now))
	s.True(f.ImportApproved("https://mods/a.mld", "h", s.now.Add(30*time.Second)))
	s.False(f.ImportApproved("https://mods/a.mld", "h", s.now.Add(2*time.Minute)))
}

func (s *LockfileTestSuite) TestCommandApproval() {
	f, _ := Load(s.path)
	sig := CommandSignature("echo hi", nil)
	s.False(f.CommandApproved(sig))

	s.Require().NoError(f.ApproveCommand(sig, "reviewed", s.now))
	s.True(f.CommandApproved(sig))

	reloaded, _ := Load(s.path)
	s.True(reloaded.CommandApproved(sig))
}

func (s *LockfileTestSuite) TestCommandSignatureIsStable() {
	s.Equal(CommandSignature("echo hi", nil), CommandSignature("echo hi", nil))
	s.NotEqual(CommandSignature("echo hi", nil), CommandSignature("echo bye", nil))
	s.NotEqual(
		CommandSignature("echo hi", map[string]string{"A": "1"}),
		CommandSignature("echo hi", map[string]string{"A": "2"}),
	)
}

func (s *LockfileTestSuite) TestPolicyRecord() {
	f, _ := Load(s.path)
	s.Require().NoError(f.RecordPolicy("strict", map[string]any{"denied_ops": []any{"op:run"}}))

	reloaded, _ := Load(s.path)
	cfg, ok := reloaded.Policy("strict")
	s.Require().True(ok)
	s.Contains(cfg, "denied_ops")
}
