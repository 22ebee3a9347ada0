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
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Fetch returns the module content behind a resolution. URL content goes
// through the TTL cache: live imports pass ttl 0 (no caching), cached
// imports pass their declared duration.
func (r *Resolver) Fetch(ctx context.Context, res *Resolution, ttl time.Duration) (string, error) {
	switch res.Kind {
	case KindFile, KindNodeModule:
		b, err := os.ReadFile(res.ResolvedPath)
		if err != nil {
			return "", errors.Wrap(err, "read module")
		}
		return string(b), nil

	case KindURL, KindRegistry:
		content, _, err := r.cache.Get(ctx, res.ResolvedPath, ttl, func(ctx context.Context, key string) (string, error) {
			return r.httpGet(ctx, key)
		})
		if err != nil {
			return "", err
		}
		sum := sha256.Sum256([]byte(content))
		res.ContentHash = hex.EncodeToString(sum[:])
		return content, nil

	case KindDirectory:
		return "", errors.New("directories have no content; enumerate children instead")

	default:
		return "", errors.Errorf("unsupported resolution kind %q", res.Kind)
	}
}

// HashContent is the content address used for import approval of local
// files.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// SplitFrontmatter separates a leading YAML frontmatter block from the
// module body. Absent frontmatter yields a nil map.
func SplitFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, "---\n") {
		return nil, content, nil
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, content, nil
	}
	block := rest[:end]
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, "", errors.Wrap(err, "parse frontmatter")
	}
	return meta, body, nil
}

// ParseCacheDuration understands the small human grammar used by cached
// imports: "30 seconds", "5 minutes", "2 hours", "1 day", "1 week".
func ParseCacheDuration(s string) (time.Duration, error) {
	fields := strings.Fields(strings.TrimSpace(strings.ToLower(s)))
	if len(fields) != 2 {
		return 0, errors.Errorf("bad cache duration %q", s)
	}
	var n int
	for _, r := range fields[0] {
		if r < '0' || r > '9' {
			return 0, errors.Errorf("bad cache duration %q", s)
		}
		n = n*10 + int(r-'0')
	}
	unit := strings.TrimSuffix(fields[1], "s")
	switch unit {
	case "second", "sec":
		return time.Duration(n) * time.Second, nil
	case "minute", "min":
		return time.Duration(n) * time.Minute, nil
	case "hour":
		return time.Duration(n) * time.Hour, nil
	case "day":
		return time.Duration(n) * 24 * time.Hour, nil
	case "week":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Errorf("bad cache duration unit %q", fields[1])
	}
}

// DirectoryChildren lists a directory's importable children (module files),
// stem -> path, for namespace assembly.
func DirectoryChildren(dir, ext string) (map[string]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read module directory")
	}
	out := map[string]string{}
	order := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, "."+ext) {
			continue
		}
		stem := strings.TrimSuffix(name, "."+ext)
		out[stem] = dir + string(os.PathSeparator) + name
		order = append(order, stem)
	}
	return out, order, nil
}
