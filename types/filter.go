/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
)

// QueryFilter describes a WHERE clause schema and its argument values.
// Positional filters use `?` placeholders; named filters use `:name`.
type QueryFilter struct {
	Schema string
	Args   []interface{}
	Named  map[string]interface{}
}

// NewQueryFilter creates a new query filter with schema and positional args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{Schema: schema, Args: args}
}

// NewNamedQueryFilter creates a filter whose schema refers to params by
// `:name`.
func NewNamedQueryFilter(schema string, params map[string]interface{}) *QueryFilter {
	return &QueryFilter{Schema: schema, Named: params}
}

// Compile returns the schema with positional placeholders and the ordered
// argument list. Named parameters are rewritten to `?`; quoted literals and
// `::` casts are left alone. A named slice is expanded for `IN (:name)`.
func (f *QueryFilter) Compile() (string, []interface{}, error) {
	if f.Named == nil {
		return f.Schema, f.Args, nil
	}
	if len(f.Args) > 0 {
		return "", nil, fmt.Errorf("filter mixes positional and named parameters")
	}

	var (
		out   strings.Builder
		args  []interface{}
		quote rune
	)
	src := []rune(f.Schema)
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if quote != 0 {
			out.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '\'' || ch == '"':
			quote = ch
			out.WriteRune(ch)
		case ch == ':' && i+1 < len(src) && src[i+1] == ':':
			out.WriteString("::")
			i++
		case ch == ':' && i+1 < len(src) && isIdentStart(src[i+1]):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			name := string(src[i+1 : j])
			v, ok := f.Named[name]
			if !ok {
				return "", nil, fmt.Errorf("no value bound for parameter :%s", name)
			}
			out.WriteByte('?')
			args = append(args, namedArg(v))
			i = j - 1
		default:
			out.WriteRune(ch)
		}
	}
	return out.String(), args, nil
}

func namedArg(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		return bun.In(v)
	}
	return v
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
