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

package values

import (
	"github.com/mlld-sh/mlld/trinary"
)

// Runtime values are plain Go values:
//   - bool, float64, string (numbers are always float64)
//   - Path (a string with path semantics)
//   - []any (arrays, insertion ordered)
//   - *Object (ordered string-keyed maps)
//   - *StructuredValue (loader / structured-exec results)
//   - *Executable, *Template
//   - nil and Undefined

// Path is a bound filesystem path. It displays as its string form but keeps
// its identity for type guards.
type Path string

// Kind is the type discriminator carried by variables.
type Kind string

const (
	KindText       Kind = "text"
	KindPath       Kind = "path"
	KindNumber     Kind = "number"
	KindBool       Kind = "boolean"
	KindNull       Kind = "null"
	KindArray      Kind = "array"
	KindObject     Kind = "object"
	KindExecutable Kind = "executable"
	KindTemplate   Kind = "template"
	KindStructured Kind = "structured"
	KindImported   Kind = "imported"
)

// KindOf classifies a runtime value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil, *undefined:
		return KindNull
	case bool:
		return KindBool
	case float64, int, int64:
		return KindNumber
	case Path:
		return KindPath
	case string:
		return KindText
	case []any, *LazyArray:
		return KindArray
	case *Object:
		return KindObject
	case *Executable:
		return KindExecutable
	case *Template:
		return KindTemplate
	case *StructuredValue:
		return KindStructured
	default:
		return KindText
	}
}

// Helpers:

func AsBool(v any) bool { b, _ := v.(bool); return b }

func AsNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}

func AsString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case Path:
		return string(t)
	default:
		return ""
	}
}

func IsTruthy(v any) bool {
	if sv, ok := v.(*StructuredValue); ok {
		return trinary.IsTruthy(sv.Data())
	}
	return trinary.IsTruthy(v)
}

func IsUndefined(v any) bool {
	return v == Undefined
}

type undefined struct{}

// Undefined is the miss marker: distinct from null, never equal to anything
// in equality contexts.
var Undefined = &undefined{}

func (u *undefined) String() string { return "undefined" }
