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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// registryIndex is the per-module document served by the registry:
// version -> download location + content hash.
type registryIndex struct {
	Versions map[string]struct {
		URL  string `json:"url"`
		Hash string `json:"hash"`
	} `json:"versions"`
}

// resolveRegistry handles `@user/module[@constraint]` specs. Local prefixes
// from the manifest win over the network registry (PreferLocal).
func (r *Resolver) resolveRegistry(ctx context.Context, spec string) (*Resolution, error) {
	name, constraint := splitConstraint(spec)

	// a manifest-local prefix shadows the registry for development
	for prefix, dir := range r.manifest.Resolvers.LocalPrefix {
		if strings.HasPrefix(name, prefix) {
			local, err := r.resolve(ctx, dir+strings.TrimPrefix(name, prefix), r.manifest.Location)
			if err == nil {
				local.ResolverName = "registry-local"
				local.PreferLocal = true
				return local, nil
			}
		}
	}

	if r.registry == "" {
		return nil, errors.Errorf("no registry configured for %q", spec)
	}

	indexURL := fmt.Sprintf("%s/%s.json", strings.TrimSuffix(r.registry, "/"), strings.TrimPrefix(name, "@"))
	body, err := r.httpGet(ctx, indexURL)
	if err != nil {
		return nil, errors.Wrapf(err, "registry index for %q", name)
	}

	var idx registryIndex
	if err := json.Unmarshal([]byte(body), &idx); err != nil {
		return nil, errors.Wrapf(err, "parse registry index for %q", name)
	}

	best, err := pickVersion(idx, constraint)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q", spec)
	}

	entry := idx.Versions[best]
	return &Resolution{
		Kind:         KindRegistry,
		ResolvedPath: entry.URL,
		ResolverName: "registry",
		ContentHash:  entry.Hash,
	}, nil
}

// pickVersion returns the highest version satisfying the constraint.
// An empty constraint means "latest".
func pickVersion(idx registryIndex, constraint string) (string, error) {
	if len(idx.Versions) == 0 {
		return "", errors.New("registry lists no versions")
	}

	var c *semver.Constraints
	if constraint != "" {
		parsed, err := semver.NewConstraint(constraint)
		if err != nil {
			return "", errors.Wrapf(err, "bad version constraint %q", constraint)
		}
		c = parsed
	}

	var best *semver.Version
	var bestRaw string
	for raw := range idx.Versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if c != nil && !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = raw
		}
	}
	if best == nil {
		return "", errors.Errorf("no version satisfies %q", constraint)
	}
	return bestRaw, nil
}

// splitConstraint separates "@user/mod@^1.2" into name and constraint.
// The leading @ of the user segment is not a separator.
func splitConstraint(spec string) (string, string) {
	at := strings.LastIndex(spec, "@")
	if at <= 0 {
		return spec, ""
	}
	return spec[:at], spec[at+1:]
}

func (r *Resolver) httpGet(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("GET %s: %s", url, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
