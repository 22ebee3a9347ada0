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

package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestBody = `schema_version = "1"
name = "demo"
parallel_limit = 4

[permissions]
fs_read = ["/data"]
net = ["example.com"]
env = ["API_KEY"]
`

func TestLoadFindsManifestInParent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mlld.toml"), []byte(manifestBody), 0o644))
	sub := filepath.Join(dir, "docs", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	m, err := Load(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Name)
	assert.Equal(t, 4, m.ParallelLimit)
	assert.Equal(t, []string{"/data"}, m.Permissions.FSRead)
	assert.Equal(t, []string{"API_KEY"}, m.Permissions.Env)
	assert.Equal(t, dir, m.Location)
}

func TestLoadMissingManifest(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestDefaultManifest(t *testing.T) {
	m := Default("/proj/demo")
	assert.Equal(t, "demo", m.Name)
	assert.Equal(t, "/proj/demo", m.Location)
	assert.Contains(t, m.LockFilePath(), "mlld.lock.json")
}
