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

package security

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/mlld-sh/mlld/lockfile"
	"github.com/mlld-sh/mlld/project"
	"github.com/mlld-sh/mlld/tokens"
	"github.com/mlld-sh/mlld/xerr"
)

// Context scopes one side-effecting operation for the manager.
type Context struct {
	File      string
	Location  tokens.Range
	Directive string
	Trust     string
	TTL       time.Duration
	Labels    []string
}

// PathMode distinguishes read from write checks.
type PathMode string

const (
	PathRead  PathMode = "read"
	PathWrite PathMode = "write"
)

// Prompter asks the user to approve an operation the static layers could
// not decide. The CLI installs an interactive one; the API default refuses.
type Prompter interface {
	Approve(ctx context.Context, what, detail string) (bool, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, what, detail string) (bool, error)

func (f PrompterFunc) Approve(ctx context.Context, what, detail string) (bool, error) {
	return f(ctx, what, detail)
}

// DenyAll is the non-interactive default.
var DenyAll = PrompterFunc(func(context.Context, string, string) (bool, error) {
	return false, nil
})

// Manager gates every side-effecting operation: command execution, path
// access, URL fetches and import approvals. It consults, in order, the
// static analyzers, the policy context, the lock file, and finally the user
// prompt. It holds no guard registry and does not evaluate guards.
type Manager struct {
	manifest *project.Manifest
	lock     *lockfile.File
	prompter Prompter
	now      func() time.Time
}

type ManagerOption func(*Manager)

func WithPrompter(p Prompter) ManagerOption {
	return func(m *Manager) { m.prompter = p }
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(manifest *project.Manifest, lock *lockfile.File, opts ...ManagerOption) *Manager {
	m := &Manager{manifest: manifest, lock: lock, prompter: DenyAll, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ClassifyCommand rejects one-shot commands that smuggle control flow.
// Multi-line and chained shells must go through `sh { ... }` blocks where
// the whole body is approved as a unit.
func ClassifyCommand(command string) error {
	for _, marker := range []string{"&&", "||", ";", "`", "$(", "|&", "\n"} {
		if strings.Contains(command, marker) {
			return xerr.ErrPolicyDenied("op:run",
				"one-shot commands cannot chain ("+marker+"); use a sh block")
		}
	}
	return nil
}

// CheckCommand validates a one-shot command against the classifier, the
// policy allow-list, prior approvals and finally the prompt.
func (m *Manager) CheckCommand(ctx context.Context, sc Context, policy *PolicyConfig, command string, env map[string]string) error {
	if err := ClassifyCommand(command); err != nil {
		return err
	}

	if policy.DeniesOp(OpRun) {
		return xerr.ErrPolicyDenied(OpRun, "command execution is denied by policy "+policy.Name)
	}
	word := firstWord(command)
	if !policy.AllowsCommand(word) {
		return xerr.ErrPolicyDenied(OpRun, "command "+word+" is not in the policy allow-list")
	}

	sig := lockfile.CommandSignature(command, env)
	if m.lock != nil && m.lock.CommandApproved(sig) {
		return nil
	}

	ok, err := m.prompter.Approve(ctx, "run command", command)
	if err != nil {
		return err
	}
	if !ok {
		return xerr.ErrPolicyDenied(OpRun, "command was not approved")
	}
	if m.lock != nil {
		if err := m.lock.ApproveCommand(sig, "approved interactively", m.now()); err != nil {
			return err
		}
	}
	slog.DebugContext(ctx, "security.command.approved", slog.String("command", word))
	return nil
}

// CheckPath validates filesystem access. Reads default to the project root;
// anything else must be allow-listed. Writes must fall under a write root,
// or under the project root when no write roots are configured.
func (m *Manager) CheckPath(ctx context.Context, sc Context, path string, mode PathMode) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return xerr.ErrPathAccessDenied(path, string(mode))
	}

	roots := m.manifest.Permissions.FSWrite
	if mode == PathRead {
		roots = append([]string{m.manifest.Location}, m.manifest.Permissions.FSRead...)
	} else if len(roots) == 0 {
		// without explicit write roots, writing stays inside the project
		roots = []string{m.manifest.Location}
	}

	for _, root := range roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if abs == rootAbs || strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
			return nil
		}
	}
	return xerr.ErrPathAccessDenied(path, string(mode))
}

// CheckURL validates a fetch against the net allow-list (host suffixes).
func (m *Manager) CheckURL(ctx context.Context, sc Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return xerr.ErrPathAccessDenied(raw, "fetch")
	}
	if u.Scheme != "https" {
		return xerr.ErrPolicyDenied("op:import", "only https URLs may be fetched")
	}
	if len(m.manifest.Permissions.Net) == 0 {
		return nil
	}
	for _, allowed := range m.manifest.Permissions.Net {
		if u.Host == allowed || strings.HasSuffix(u.Host, "."+allowed) {
			return nil
		}
	}
	return xerr.ErrPathAccessDenied(raw, "fetch")
}

// ApproveImport checks the lock file for a standing approval of (url, hash),
// falling back to the prompt. Approvals are persisted with the context TTL.
func (m *Manager) ApproveImport(ctx context.Context, sc Context, rawURL, hash string, advisories []string) error {
	if m.lock != nil && m.lock.ImportApproved(rawURL, hash, m.now()) {
		return nil
	}
	detail := rawURL
	if len(advisories) > 0 {
		detail += " (advisories: " + strings.Join(advisories, ", ") + ")"
	}
	ok, err := m.prompter.Approve(ctx, "approve import", detail)
	if err != nil {
		return err
	}
	if !ok {
		return xerr.ErrImportNotApproved(rawURL)
	}
	if m.lock != nil {
		trust := sc.Trust
		if trust == "" {
			trust = "session"
		}
		if err := m.lock.ApproveImport(rawURL, hash, trust, sc.TTL, m.now()); err != nil {
			return err
		}
	}
	return nil
}

// PinPolicy records a policy configuration in the lock file.
func (m *Manager) PinPolicy(name string, config map[string]any) error {
	if m.lock == nil {
		return nil
	}
	return m.lock.RecordPolicy(name, config)
}

// EnvAllowed reports whether an environment variable may be imported via
// `/import { X } from @input`.
func (m *Manager) EnvAllowed(name string) bool {
	for _, allowed := range m.manifest.Permissions.Env {
		if allowed == name {
			return true
		}
	}
	return false
}

// TaintFor returns the taint tags an operation stamps on its result.
func TaintFor(op string) []string {
	switch op {
	case OpRun:
		return []string{TaintCommandOutput}
	case OpImport:
		return []string{TaintNetwork}
	default:
		return nil
	}
}

func firstWord(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
