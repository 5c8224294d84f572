/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
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

package store

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Item is a single row: attribute name to value. Values are one of
// nil, bool, int64, *apd.Decimal, string, Binary, Set, []interface{}
// (list) or map[string]interface{} (document).
type Item map[string]interface{}

// Binary is a binary attribute value.
type Binary []byte

// Set is an unordered collection of scalars of one type (numbers,
// strings or binaries). Element order is preserved for display only.
type Set []interface{}

// Contains reports whether the set holds v.
func (s Set) Contains(v interface{}) bool {
	for _, e := range s {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// Add returns the set with v added, if not already present.
func (s Set) Add(v interface{}) Set {
	if s.Contains(v) {
		return s
	}
	return append(s, v)
}

// Remove returns the set without v.
func (s Set) Remove(v interface{}) Set {
	out := make(Set, 0, len(s))
	for _, e := range s {
		if !Equal(e, v) {
			out = append(out, e)
		}
	}
	return out
}

// Copy returns a deep copy of the item. Nested lists and documents are
// copied; scalars are shared.
func (i Item) Copy() Item {
	out := make(Item, len(i))
	for k, v := range i {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Set:
		return append(Set(nil), t...)
	case []interface{}:
		out := make([]interface{}, len(t))
		for j, e := range t {
			out[j] = copyValue(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case Binary:
		return append(Binary(nil), t...)
	default:
		return v
	}
}

// ToDecimal converts a numeric value to a decimal. Returns false for
// non-numeric values.
func ToDecimal(v interface{}) (*apd.Decimal, bool) {
	switch n := v.(type) {
	case int64:
		return apd.New(n, 0), true
	case *apd.Decimal:
		return n, true
	}
	return nil, false
}

// IsNumber reports whether v is a numeric value.
func IsNumber(v interface{}) bool {
	_, ok := ToDecimal(v)
	return ok
}

// Compare orders two scalar values of the same kind. Numbers compare
// numerically across int64 and decimal, strings and binaries
// lexicographically by byte. Comparing values of different kinds is an
// error.
func Compare(a, b interface{}) (int, error) {
	if da, ok := ToDecimal(a); ok {
		if db, ok := ToDecimal(b); ok {
			return da.Cmp(db), nil
		}
		return 0, fmt.Errorf("cannot compare number with %T", b)
	}
	switch ta := a.(type) {
	case string:
		if tb, ok := b.(string); ok {
			return strings.Compare(ta, tb), nil
		}
	case Binary:
		if tb, ok := b.(Binary); ok {
			return bytes.Compare(ta, tb), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

// Equal reports deep equality of two values, with numeric equality
// across int64 and decimal.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if da, ok := ToDecimal(a); ok {
		db, ok := ToDecimal(b)
		return ok && da.Cmp(db) == 0
	}
	switch ta := a.(type) {
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case Binary:
		tb, ok := b.(Binary)
		return ok && bytes.Equal(ta, tb)
	case Set:
		tb, ok := b.(Set)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for _, e := range ta {
			if !tb.Contains(e) {
				return false
			}
		}
		return true
	case []interface{}:
		tb, ok := b.([]interface{})
		if !ok || len(ta) != len(tb) {
			return false
		}
		for j := range ta {
			if !Equal(ta[j], tb[j]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		tb, ok := b.(map[string]interface{})
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, e := range ta {
			ev, present := tb[k]
			if !present || !Equal(e, ev) {
				return false
			}
		}
		return true
	}
	return false
}

// AttributeTypeOf returns the single-letter type code of a scalar key
// value: "S", "N" or "B". Returns "" for non-key types.
func AttributeTypeOf(v interface{}) string {
	switch v.(type) {
	case string:
		return "S"
	case int64, *apd.Decimal:
		return "N"
	case Binary:
		return "B"
	}
	return ""
}
