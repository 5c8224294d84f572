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

/*
Literal resolution.

Every literal token becomes a typed Go value:

	123               int64
	4.5, 1e9          *apd.Decimal (never a binary float)
	'text'            string
	b'bytes'          Binary
	TRUE, FALSE       bool
	NULL              nil
	(1, 2), ()        Set
	[1, 'a']          []interface{}
	{'k': 1}          map[string]interface{}

Numbers with a fraction or exponent stay exact decimals; converting them
through float64 would corrupt values a number-keyed table must round
trip unchanged.
*/

package dql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"dql/internal/store"
)

// Binary and Set mirror the store's value types; the language and the
// backend share one value domain.
type (
	Binary = store.Binary
	Set    = store.Set
)

// decCtx is the arithmetic context for all decimal math.
var decCtx = apd.BaseContext.WithPrecision(38)

// ParseNumber resolves a numeric literal. Plain integer spellings
// become int64; anything with a fraction or exponent becomes an exact
// decimal.
func ParseNumber(text string) (interface{}, error) {
	if !strings.ContainsAny(text, ".eE") {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		// Out of int64 range; fall through to decimal.
	}
	d, _, err := apd.NewFromString(text)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// FormatValue renders a value as a DQL literal. The output parses back
// to an equal value, which DUMP SCHEMA and expression round trips rely
// on.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(t, 10)
	case *apd.Decimal:
		return t.Text('f')
	case string:
		return quoteString(t)
	case Binary:
		return "b" + quoteString(string(t))
	case Set:
		if len(t) == 0 {
			return "()"
		}
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = FormatValue(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = quoteString(k) + ": " + FormatValue(t[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case time.Time:
		return "TIMESTAMP(" + quoteString(t.Format(time.RFC3339Nano)) + ")"
	case Interval:
		return "INTERVAL " + quoteString(t.String())
	}
	// Values outside the literal domain should not reach here from
	// parsed statements.
	return fmt.Sprintf("%v", v)
}

// normalizeStoreValue converts a language-side value into the store's
// value domain: timestamps become epoch-seconds decimals, containers
// are normalized elementwise.
func normalizeStoreValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return ToEpoch(t)
	case Set:
		out := make(Set, len(t))
		for i, e := range t {
			out[i] = normalizeStoreValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeStoreValue(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalizeStoreValue(e)
		}
		return out
	}
	return v
}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
