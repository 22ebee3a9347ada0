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

package xerr

import (
	"context"

	"github.com/mlld-sh/mlld/tokens"
	"github.com/pkg/errors"
)

func ErrUnknownDirective(kind string) error {
	return New(CodeUnknownDirective, "unknown directive kind %q", kind)
}

func ErrHookAborted(reason string) error {
	return New(CodeHookAborted, "aborted by pre-hook: %s", reason)
}

func ErrVariableNotFound(name string) error {
	return New(CodeVariableNotFound, "variable @%s is not defined", name)
}

func ErrFieldNotFound(name, field string) error {
	return New(CodeFieldNotFound, "@%s has no field %q", name, field)
}

// ErrImportNameConflict reports both binding sites so the user can see which
// import wins. The conflict is raised before any policy context is applied.
func ErrImportNameConflict(name, source, prior string, where, with tokens.Range) error {
	e := New(CodeImportNameConflict,
		"name %q from %q collides with an earlier import from %q (first bound at %s)",
		name, source, prior, with.String())
	return e.WithLocation(where)
}

func ErrImportTypeMismatch(importType, resolverKind, source string) error {
	return New(CodeImportTypeMismatch,
		"import type %q cannot be satisfied by resolver kind %q for %q",
		importType, resolverKind, source)
}

func ErrExportedNameNotFound(name, module string) error {
	return New(CodeExportedNameNotFound, "%q is not exported by module %q", name, module)
}

func ErrImportExportMissing(module string) error {
	return New(CodeImportExportMissing, "module %q exports nothing", module)
}

// ErrWildcardImport is the fixed rejection for `/import { * }`.
func ErrWildcardImport() error {
	return New(CodeWildcardImport, "wildcard imports are not supported; list the names you need or use a namespace import")
}

func ErrCommandFailed(command string, exitCode int, stderr string) error {
	return New(CodeCommandFailed, "command %q exited with code %d: %s", command, exitCode, stderr)
}

func ErrTimeout(what string) error {
	return New(CodeTimeout, "%s exceeded its time budget", what)
}

func ErrCancelled(what string) error {
	return New(CodeCancelled, "%s was cancelled", what)
}

func ErrPolicyDenied(op, reason string) error {
	return New(CodePolicyDenied, "policy denied %s: %s", op, reason)
}

func ErrGuardDenied(guard, reason string) error {
	return New(CodeGuardDenied, "%s", reason).withGuard(guard)
}

func (e *Error) withGuard(guard string) *Error {
	if guard != "" {
		e.Message = e.Message + " (guard " + guard + ")"
	}
	return e
}

func ErrPathAccessDenied(path, mode string) error {
	return New(CodePathAccessDenied, "%s access to %q is not permitted", mode, path)
}

func ErrImportNotApproved(url string) error {
	return New(CodeImportNotApproved, "import of %q has not been approved", url)
}

func ErrInvalidRetry(reason string) error {
	return New(CodeInvalidRetry, "%s", reason)
}

func ErrParallelBranchFailed(branch int, cause error) error {
	return Wrap(cause, CodeParallelBranchFailed, "parallel branch %d failed", branch)
}

func ErrImportCycle(chain []string) error {
	return New(CodeImportCycle, "circular import: %s", joinChain(chain))
}

func joinChain(chain []string) string {
	out := ""
	for i, c := range chain {
		if i > 0 {
			out += " -> "
		}
		out += c
	}
	return out
}

// FromContext converts a context failure into the matching taxonomy error.
func FromContext(ctx context.Context, what string) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ErrTimeout(what)
	case context.Canceled:
		return ErrCancelled(what)
	default:
		return nil
	}
}

// ExitCode maps an evaluation error to the process exit code contract:
// success 0, user cancellation 130, guard/pipeline denial 2, anything else 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case CodeCancelled:
		return 130
	case CodeGuardDenied, CodePolicyDenied:
		return 2
	default:
		return 1
	}
}

// Internal marks invariant violations. The directive trace is mandatory for
// these, so callers go through the router rather than returning it raw.
func Internal(format string, args ...any) error {
	return errors.WithStack(New(CodeInternal, format, args...))
}
