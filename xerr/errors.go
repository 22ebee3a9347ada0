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

package xerr

import (
	"fmt"
	"strings"

	"github.com/mlld-sh/mlld/tokens"
	"github.com/pkg/errors"
)

// Code identifies an error class across the taxonomy. Codes are stable and
// surfaced verbatim on the API boundary.
type Code string

const (
	CodeUnknownDirective      Code = "UNKNOWN_DIRECTIVE"
	CodeHookAborted           Code = "HOOK_ABORTED"
	CodeVariableNotFound      Code = "VARIABLE_NOT_FOUND"
	CodeFieldNotFound         Code = "FIELD_NOT_FOUND"
	CodeImportNameConflict    Code = "IMPORT_NAME_CONFLICT"
	CodeImportTypeMismatch    Code = "IMPORT_TYPE_MISMATCH"
	CodeExportedNameNotFound  Code = "EXPORTED_NAME_NOT_FOUND"
	CodeImportExportMissing   Code = "IMPORT_EXPORT_MISSING"
	CodeWildcardImport        Code = "WILDCARD_IMPORT"
	CodeCommandFailed         Code = "COMMAND_EXECUTION_FAILED"
	CodeTimeout               Code = "TIMEOUT"
	CodeCancelled             Code = "CANCELLED"
	CodePolicyDenied          Code = "POLICY_DENIED"
	CodeGuardDenied           Code = "GUARD_DENIED"
	CodePathAccessDenied      Code = "PATH_ACCESS_DENIED"
	CodeImportNotApproved     Code = "IMPORT_NOT_APPROVED"
	CodeInvalidRetry          Code = "INVALID_RETRY"
	CodeParallelBranchFailed  Code = "PARALLEL_BRANCH_FAILED"
	CodeImportCycle           Code = "IMPORT_CYCLE"
	CodeInternal              Code = "INTERNAL"
)

// Error is the structured error every evaluator failure is wrapped into
// before it crosses the directive router. Trace frames are attached
// innermost-first by the router on unwind.
type Error struct {
	Code     Code
	Message  string
	Location *tokens.Range
	Trace    []string
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Location != nil {
		fmt.Fprintf(&b, " at %s", e.Location.String())
	}
	if len(e.Trace) > 0 {
		fmt.Fprintf(&b, " (in %s)", strings.Join(e.Trace, " <- "))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a bare taxonomy error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a taxonomy code to an underlying cause.
func Wrap(cause error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithLocation returns the error with a source location attached.
func (e *Error) WithLocation(rng tokens.Range) *Error {
	e.Location = &rng
	return e
}

// AttachTrace appends directive frames. Frames already present are kept; the
// router calls this once per unwound frame so chains read innermost-first.
func AttachTrace(err error, frame string) error {
	var xe *Error
	if errors.As(err, &xe) {
		xe.Trace = append(xe.Trace, frame)
		return err
	}
	wrapped := Wrap(err, CodeInternal, "%s", err.Error())
	wrapped.Trace = []string{frame}
	return wrapped
}

// CodeOf extracts the taxonomy code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
