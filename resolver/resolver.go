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

package resolver

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/binaek/perch"
	"github.com/mlld-sh/mlld/constants"
	"github.com/mlld-sh/mlld/project"
	"github.com/mlld-sh/mlld/xerr"
	"github.com/pkg/errors"
)

// Kind classifies what a source spec resolved to.
type Kind string

const (
	KindFile       Kind = "file"
	KindDirectory  Kind = "directory"
	KindURL        Kind = "url"
	KindNodeModule Kind = "node-module"
	KindRegistry   Kind = "registry"
)

// Resolution is the contract the evaluation core consumes: where the module
// lives and which resolver produced the answer.
type Resolution struct {
	Kind         Kind
	ResolvedPath string
	ResolverName string
	PreferLocal  bool

	// ContentHash is filled by Fetch for remote content, used by import
	// approval.
	ContentHash string
}

// allowedKinds gates resolver kinds per import type (spec: a mismatch is
// fatal IMPORT_TYPE_MISMATCH).
var allowedKinds = map[string][]Kind{
	"module":    {KindRegistry, KindNodeModule},
	"static":    {KindFile, KindDirectory},
	"cached":    {KindURL},
	"live":      {KindURL},
	"local":     {KindFile, KindDirectory, KindNodeModule},
	"templates": {KindFile, KindDirectory},
}

// Resolver turns import source specs into resolutions and fetches content.
type Resolver struct {
	manifest *project.Manifest
	cache    *perch.Perch[string]
	client   *http.Client
	registry string
}

type Option func(*Resolver)

// WithHTTPClient swaps the transport, primarily for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithCacheSize resizes the content cache (entries).
func WithCacheSize(n int) Option {
	return func(r *Resolver) { r.cache = perch.New[string](n) }
}

func New(manifest *project.Manifest, opts ...Option) *Resolver {
	registry := manifest.Resolvers.Registry
	if registry == "" {
		registry = os.Getenv(constants.EnvRegistry)
	}
	r := &Resolver{
		manifest: manifest,
		cache:    perch.New[string](1 << 10),
		client:   http.DefaultClient,
		registry: registry,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a source spec to a resolution. Spec forms:
//
//	"./rel/path.mld"  "sub/dir"      -> file or directory
//	"https://..."                    -> url
//	"@user/module[@constraint]"      -> registry
//	"node:left-pad"                  -> node module
func (r *Resolver) Resolve(ctx context.Context, spec, fromDir, importType string) (*Resolution, error) {
	res, err := r.resolve(ctx, spec, fromDir)
	if err != nil {
		return nil, err
	}
	if importType != "" {
		allowed, ok := allowedKinds[importType]
		if !ok {
			return nil, xerr.ErrImportTypeMismatch(importType, string(res.Kind), spec)
		}
		found := false
		for _, k := range allowed {
			if k == res.Kind {
				found = true
				break
			}
		}
		if !found {
			return nil, xerr.ErrImportTypeMismatch(importType, string(res.Kind), spec)
		}
	}
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, spec, fromDir string) (*Resolution, error) {
	switch {
	case strings.HasPrefix(spec, "https://") || strings.HasPrefix(spec, "http://"):
		return &Resolution{Kind: KindURL, ResolvedPath: spec, ResolverName: "url"}, nil

	case strings.HasPrefix(spec, "node:"):
		path, err := r.resolveNodeModule(strings.TrimPrefix(spec, "node:"), fromDir)
		if err != nil {
			return nil, err
		}
		return &Resolution{Kind: KindNodeModule, ResolvedPath: path, ResolverName: "node"}, nil

	case strings.HasPrefix(spec, "@"):
		return r.resolveRegistry(ctx, spec)

	default:
		path := spec
		if !filepath.IsAbs(path) {
			path = filepath.Join(fromDir, spec)
		}
		path = filepath.Clean(path)
		info, err := os.Stat(path)
		if err != nil {
			// allow extension-less references to modules
			if alt := path + "." + constants.ModuleFileExtension; fileExists(alt) {
				return &Resolution{Kind: KindFile, ResolvedPath: alt, ResolverName: "file"}, nil
			}
			return nil, errors.Wrapf(err, "resolve %q", spec)
		}
		if info.IsDir() {
			return &Resolution{Kind: KindDirectory, ResolvedPath: path, ResolverName: "file"}, nil
		}
		return &Resolution{Kind: KindFile, ResolvedPath: path, ResolverName: "file"}, nil
	}
}

// resolveNodeModule walks up from fromDir looking for node_modules/<name>.
func (r *Resolver) resolveNodeModule(name, fromDir string) (string, error) {
	dir := fromDir
	for {
		candidate := filepath.Join(dir, "node_modules", name)
		for _, entry := range []string{candidate, candidate + ".js", candidate + ".ts", filepath.Join(candidate, "index.js"), filepath.Join(candidate, "index.ts")} {
			if fileExists(entry) {
				return entry, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Errorf("node module %q not found from %s", name, fromDir)
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
