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
Condition expression evaluator.

The engine hands the store a rendered filter expression - placeholder
text like "(#f1 > :v1 AND begins_with(#f2, :v2))" plus the name and
value substitution maps - rather than a structured predicate tree. The
store parses and evaluates the expression itself, exactly as a real
wide-column backend does. Supported syntax:

	condition     := operand comparator operand
	               | operand BETWEEN operand AND operand
	               | operand IN (operand, ...)
	               | function
	               | condition AND condition
	               | condition OR condition
	               | NOT condition
	               | ( condition )
	comparator    := = | <> | < | <= | > | >=
	function      := attribute_exists(path) | attribute_not_exists(path)
	               | begins_with(path, operand) | contains(path, operand)
	               | attribute_type(path, operand)
	operand       := path | :value | size(path)

Missing attributes make any comparison false, never an error. Type
mismatches in comparisons are likewise false.
*/

package store

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvalExpression evaluates a rendered condition expression against an
// item. A nil expression matches everything.
func EvalExpression(expr *Expression, item Item) (bool, error) {
	if expr == nil || strings.TrimSpace(expr.Text) == "" {
		return true, nil
	}
	p := &condParser{expr: expr, item: item}
	p.toks = tokenizeCondition(expr.Text)
	res, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos < len(p.toks) {
		return false, fmt.Errorf("condition expression: trailing input at %q", p.toks[p.pos])
	}
	return res, nil
}

// condOperand is an evaluated operand: a value plus whether the
// attribute it named was present on the item.
type condOperand struct {
	value interface{}
	found bool
}

type condParser struct {
	expr *Expression
	item Item
	toks []string
	pos  int
}

// tokenizeCondition splits expression text into words, placeholders and
// punctuation. Placeholders never contain spaces so a simple scanner
// suffices.
func tokenizeCondition(text string) []string {
	var toks []string
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == '(' || c == ')' || c == ',':
			toks = append(toks, string(c))
			i++
		case c == '<' || c == '>':
			if i+1 < len(text) && (text[i+1] == '=' || text[i+1] == '>') {
				toks = append(toks, text[i:i+2])
				i += 2
			} else {
				toks = append(toks, string(c))
				i++
			}
		case c == '=':
			toks = append(toks, "=")
			i++
		default:
			j := i
			for j < len(text) && !unicode.IsSpace(rune(text[j])) &&
				!strings.ContainsRune("(),<>=", rune(text[j])) {
				j++
			}
			toks = append(toks, text[i:j])
			i = j
		}
	}
	return toks
}

func (p *condParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *condParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *condParser) expect(tok string) error {
	if got := p.next(); !strings.EqualFold(got, tok) {
		return fmt.Errorf("condition expression: expected %q, got %q", tok, got)
	}
	return nil
}

func (p *condParser) parseOr() (bool, error) {
	res, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for strings.EqualFold(p.peek(), "OR") {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		res = res || rhs
	}
	return res, nil
}

func (p *condParser) parseAnd() (bool, error) {
	res, err := p.parseUnary()
	if err != nil {
		return false, err
	}
	for strings.EqualFold(p.peek(), "AND") {
		p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		res = res && rhs
	}
	return res, nil
}

func (p *condParser) parseUnary() (bool, error) {
	if strings.EqualFold(p.peek(), "NOT") {
		p.next()
		res, err := p.parseUnary()
		return !res, err
	}
	return p.parsePrimary()
}

func (p *condParser) parsePrimary() (bool, error) {
	tok := p.peek()
	if tok == "(" {
		p.next()
		res, err := p.parseOr()
		if err != nil {
			return false, err
		}
		return res, p.expect(")")
	}
	if isBoolFunction(tok) {
		return p.parseFunction()
	}

	left, err := p.parseOperand()
	if err != nil {
		return false, err
	}
	op := p.next()
	switch {
	case strings.EqualFold(op, "BETWEEN"):
		low, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		if err := p.expect("AND"); err != nil {
			return false, err
		}
		high, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		return compareOperands(left, low, ">=") && compareOperands(left, high, "<="), nil
	case strings.EqualFold(op, "IN"):
		if err := p.expect("("); err != nil {
			return false, err
		}
		match := false
		for {
			cand, err := p.parseOperand()
			if err != nil {
				return false, err
			}
			if left.found && cand.found && Equal(left.value, cand.value) {
				match = true
			}
			if p.peek() != "," {
				break
			}
			p.next()
		}
		return match, p.expect(")")
	case op == "=" || op == "<>" || op == "<" || op == "<=" || op == ">" || op == ">=":
		right, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		return compareOperands(left, right, op), nil
	}
	return false, fmt.Errorf("condition expression: unexpected operator %q", op)
}

func isBoolFunction(tok string) bool {
	switch strings.ToLower(tok) {
	case "attribute_exists", "attribute_not_exists", "begins_with",
		"contains", "attribute_type":
		return true
	}
	return false
}

func (p *condParser) parseFunction() (bool, error) {
	name := strings.ToLower(p.next())
	if err := p.expect("("); err != nil {
		return false, err
	}
	target, err := p.parseOperand()
	if err != nil {
		return false, err
	}
	var arg condOperand
	if name != "attribute_exists" && name != "attribute_not_exists" {
		if err := p.expect(","); err != nil {
			return false, err
		}
		arg, err = p.parseOperand()
		if err != nil {
			return false, err
		}
	}
	if err := p.expect(")"); err != nil {
		return false, err
	}

	switch name {
	case "attribute_exists":
		return target.found, nil
	case "attribute_not_exists":
		return !target.found, nil
	case "begins_with":
		if !target.found || !arg.found {
			return false, nil
		}
		if s, ok := target.value.(string); ok {
			prefix, ok := arg.value.(string)
			return ok && strings.HasPrefix(s, prefix), nil
		}
		if b, ok := target.value.(Binary); ok {
			prefix, ok := arg.value.(Binary)
			return ok && bytes.HasPrefix(b, prefix), nil
		}
		return false, nil
	case "contains":
		if !target.found || !arg.found {
			return false, nil
		}
		switch t := target.value.(type) {
		case string:
			sub, ok := arg.value.(string)
			return ok && strings.Contains(t, sub), nil
		case Set:
			return t.Contains(arg.value), nil
		case []interface{}:
			for _, e := range t {
				if Equal(e, arg.value) {
					return true, nil
				}
			}
		}
		return false, nil
	case "attribute_type":
		if !target.found {
			return false, nil
		}
		code, ok := arg.value.(string)
		return ok && typeCode(target.value) == code, nil
	}
	return false, fmt.Errorf("condition expression: unknown function %q", name)
}

// parseOperand evaluates a path, a value placeholder or size(path).
func (p *condParser) parseOperand() (condOperand, error) {
	tok := p.next()
	if strings.EqualFold(tok, "size") && p.peek() == "(" {
		p.next()
		target, err := p.parseOperand()
		if err != nil {
			return condOperand{}, err
		}
		if err := p.expect(")"); err != nil {
			return condOperand{}, err
		}
		if !target.found {
			return condOperand{}, nil
		}
		switch t := target.value.(type) {
		case string:
			return condOperand{value: int64(len(t)), found: true}, nil
		case Binary:
			return condOperand{value: int64(len(t)), found: true}, nil
		case Set:
			return condOperand{value: int64(len(t)), found: true}, nil
		case []interface{}:
			return condOperand{value: int64(len(t)), found: true}, nil
		case map[string]interface{}:
			return condOperand{value: int64(len(t)), found: true}, nil
		}
		return condOperand{}, nil
	}
	if strings.HasPrefix(tok, ":") {
		v, ok := p.expr.Values[tok]
		if !ok {
			return condOperand{}, fmt.Errorf("condition expression: unbound value %s", tok)
		}
		return condOperand{value: v, found: true}, nil
	}
	if tok == "" || tok == "(" || tok == ")" || tok == "," {
		return condOperand{}, fmt.Errorf("condition expression: expected operand, got %q", tok)
	}
	v, found := p.resolvePath(tok)
	return condOperand{value: v, found: found}, nil
}

// resolvePath walks a document path like "#f1.sub[0]" through the item.
// Placeholder segments are substituted from the Names map.
func (p *condParser) resolvePath(path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(p.item)
	for _, seg := range splitPath(path) {
		if seg.index >= 0 {
			list, ok := cur.([]interface{})
			if !ok || seg.index >= len(list) {
				return nil, false
			}
			cur = list[seg.index]
			continue
		}
		name := seg.name
		if strings.HasPrefix(name, "#") {
			if sub, ok := p.expr.Names[name]; ok {
				name = sub
			}
		}
		doc, ok := cur.(map[string]interface{})
		if !ok {
			if it, isItem := cur.(Item); isItem {
				doc = map[string]interface{}(it)
			} else {
				return nil, false
			}
		}
		cur, ok = doc[name]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

type pathSegment struct {
	name  string
	index int // -1 for name segments
}

func splitPath(path string) []pathSegment {
	var segs []pathSegment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			i++
		case '[':
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				segs = append(segs, pathSegment{name: path[i:], index: -1})
				return segs
			}
			n, err := strconv.Atoi(path[i+1 : i+j])
			if err != nil {
				n = -1
			}
			segs = append(segs, pathSegment{index: n})
			i += j + 1
		default:
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			segs = append(segs, pathSegment{name: path[i:j], index: -1})
			i = j
		}
	}
	return segs
}

func compareOperands(a, b condOperand, op string) bool {
	if !a.found || !b.found {
		return false
	}
	if op == "=" {
		return Equal(a.value, b.value)
	}
	if op == "<>" {
		return !Equal(a.value, b.value)
	}
	c, err := Compare(a.value, b.value)
	if err != nil {
		return false
	}
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func typeCode(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return "BOOL"
	case string:
		return "S"
	case Binary:
		return "B"
	case []interface{}:
		return "L"
	case map[string]interface{}:
		return "M"
	case Set:
		if len(t) == 0 {
			return "SS"
		}
		switch AttributeTypeOf(t[0]) {
		case "N":
			return "NS"
		case "B":
			return "BS"
		default:
			return "SS"
		}
	}
	if IsNumber(v) {
		return "N"
	}
	return ""
}
