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
	"runtime"
	"strings"

	"github.com/mlld-sh/mlld/constants"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

var ErrManifestNotFound = errors.New("project manifest not found")

// Manifest is the mlld.toml project file.
type Manifest struct {
	SchemaVersion string `toml:"schema_version"`
	Name          string `toml:"name"`
	Version       string `toml:"version,omitempty"`
	Description   string `toml:"description,omitempty"`

	// ParallelLimit bounds in-flight work across parallel groups and
	// parallel iterators. Zero means the built-in default.
	ParallelLimit int `toml:"parallel_limit,omitempty"`

	Permissions Permissions `toml:"permissions"`
	Resolvers   Resolvers   `toml:"resolvers"`
	Cache       Cache       `toml:"cache"`

	// Location is the directory holding the manifest.
	Location string `toml:"-"`
}

// Permissions restrict what evaluated documents may touch. Reads default to
// the project root; absolute paths need to be listed here.
type Permissions struct {
	FSRead  []string `toml:"fs_read,omitempty"`
	FSWrite []string `toml:"fs_write,omitempty"`
	Net     []string `toml:"net,omitempty"`
	Env     []string `toml:"env,omitempty"`
}

type Resolvers struct {
	Registry    string            `toml:"registry,omitempty"`
	LocalPrefix map[string]string `toml:"local,omitempty"`
}

type Cache struct {
	DefaultTTL string `toml:"default_ttl,omitempty"`
}

// Default returns the manifest used when no mlld.toml exists: everything
// scoped to the given root, no extra permissions.
func Default(root string) *Manifest {
	return &Manifest{SchemaVersion: "1", Name: filepath.Base(root), Location: root}
}

// Load finds and parses the manifest by walking up from root.
func Load(ctx context.Context, root string) (*Manifest, error) {
	path, err := locate(ctx, root)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read project manifest")
	}
	var m Manifest
	if err := toml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "parse project manifest")
	}
	m.Location = filepath.Dir(path)
	return &m, nil
}

// LockFilePath is where this project's approvals live.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Location, constants.LockFileName)
}

func locate(ctx context.Context, root string) (string, error) {
	if len(strings.TrimSpace(root)) == 0 {
		return "", errors.New("root is empty")
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(err, "absolute path to root")
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", errors.Wrap(err, "locate project manifest")
	}
	if !info.IsDir() {
		root = filepath.Dir(root)
	}

	// check here, then walk up until the filesystem root
	for {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		candidate := filepath.Join(root, constants.ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(root)
		if parent == root || parent == "/" || (runtime.GOOS == "windows" && strings.HasSuffix(parent, `:\`)) {
			break
		}
		root = parent
	}

	return "", ErrManifestNotFound
}
