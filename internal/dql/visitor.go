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
Expression rendering visitors.

Expression trees render themselves through a Visitor, which decides how
field names and values appear in the output text. The Encoder produces
store-safe placeholder text: reserved or oddly-spelled field names
become #fN (memoized, so one field always gets one placeholder) and
every value becomes a fresh :vN, even when equal values repeat. The
DummyVisitor renders fields verbatim and values as DQL literals, giving
human-readable text that parses back to the same expression.
*/

package dql

import (
	"fmt"
	"strings"
	"unicode"
)

// Visitor renders field names and values into expression text.
type Visitor interface {
	// GetField returns the expression spelling for a document path.
	GetField(field string) string
	// GetValue returns the expression spelling for a value.
	GetValue(value interface{}) string
}

// Encoder is the store-facing Visitor. It accumulates the attribute
// name and value substitution maps alongside the rendered text.
type Encoder struct {
	fields    map[string]string // raw name -> placeholder
	names     map[string]string // placeholder -> raw name
	values    map[string]interface{}
	nextValue int
}

// NewEncoder creates an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		fields: map[string]string{},
		names:  map[string]string{},
		values: map[string]interface{}{},
	}
}

// GetField encodes a document path. Each name segment that is a
// reserved word or not a plain identifier is replaced with a #fN
// placeholder; index segments pass through.
func (e *Encoder) GetField(field string) string {
	var sb strings.Builder
	for i, seg := range splitFieldPath(field) {
		if seg.index {
			sb.WriteString(seg.text)
			continue
		}
		if i > 0 && !seg.index {
			sb.WriteByte('.')
		}
		sb.WriteString(e.encodeName(seg.text))
	}
	return sb.String()
}

func (e *Encoder) encodeName(name string) string {
	if !fieldNeedsEncoding(name) {
		return name
	}
	if ph, ok := e.fields[name]; ok {
		return ph
	}
	ph := fmt.Sprintf("#f%d", len(e.fields)+1)
	e.fields[name] = ph
	e.names[ph] = name
	return ph
}

// GetValue encodes a value as a fresh :vN placeholder. Values are never
// shared between placeholders; constraints like "a = 1 AND b = 1" bind
// two entries.
func (e *Encoder) GetValue(value interface{}) string {
	e.nextValue++
	ph := fmt.Sprintf(":v%d", e.nextValue)
	e.values[ph] = value
	return ph
}

// AttributeNames returns the placeholder-to-name map, or nil when no
// field needed encoding.
func (e *Encoder) AttributeNames() map[string]string {
	if len(e.names) == 0 {
		return nil
	}
	return e.names
}

// ExpressionValues returns the placeholder-to-value map, or nil when no
// value was encoded.
func (e *Encoder) ExpressionValues() map[string]interface{} {
	if len(e.values) == 0 {
		return nil
	}
	return e.values
}

// DummyVisitor renders fields verbatim and values as DQL literals.
type DummyVisitor struct{}

func (DummyVisitor) GetField(field string) string { return field }

func (DummyVisitor) GetValue(value interface{}) string { return FormatValue(value) }

type fieldSegment struct {
	text  string
	index bool // "[N]" segment
}

// splitFieldPath splits "foo.bar[0]" into name and index segments.
func splitFieldPath(path string) []fieldSegment {
	var segs []fieldSegment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			i++
		case '[':
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				segs = append(segs, fieldSegment{text: path[i:], index: true})
				return segs
			}
			segs = append(segs, fieldSegment{text: path[i : i+j+1], index: true})
			i += j + 1
		default:
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			segs = append(segs, fieldSegment{text: path[i:j]})
			i = j
		}
	}
	return segs
}

// fieldNeedsEncoding reports whether a name segment must be encoded:
// reserved words and anything that is not a plain identifier.
func fieldNeedsEncoding(name string) bool {
	if keywords[strings.ToUpper(name)] {
		return true
	}
	for i, r := range name {
		if unicode.IsLetter(r) || r == '_' {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return true
	}
	return name == ""
}
