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
Package dql implements the DQL query language: lexer, parser, typed
statement tree, expression model, index planner and execution engine for
wide-column key/value tables.

The Lexer is the first stage of the pipeline. It transforms a raw DQL
string into a stream of tokens that the Parser consumes.

Lexical Analysis Process:
=========================

	Input: "SELECT * FROM forum WHERE userid = 'abc'"

	Output Tokens:
	  1. {TokenKeyword, "SELECT"}
	  2. {TokenStar, "*"}
	  3. {TokenKeyword, "FROM"}
	  4. {TokenIdent, "forum"}
	  5. {TokenKeyword, "WHERE"}
	  6. {TokenIdent, "userid"}
	  7. {TokenEqual, "="}
	  8. {TokenString, "abc"}
	  9. {TokenEOF, ""}

Every token records the byte offset where it starts, so syntax errors can
be rendered with a caret under the offending position.

Identifier Rules:
=================

Identifiers start with a letter or underscore and can contain letters,
digits and underscores. Document paths are lexed as a single identifier:
dots select into maps and [N] selects into lists, so "foo.bar[0].baz" is
one TokenIdent. A '[' that is not immediately followed by digits and ']'
is not part of a path; it starts a list literal.

Literals:
=========

	'single quoted' or "double quoted" strings (backslash escapes)
	123, -4.5, 1e9          numbers (sign handled by the parser)
	b'\x01binary'           binary strings
	TRUE, FALSE, NULL       keywords

Comments run from "--" to end of line. Statements are separated with ";".
*/
package dql

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a lexical token.
type TokenType int

// Token type constants.
const (
	TokenEOF        TokenType = iota // End of input
	TokenIllegal                     // Unrecognized character
	TokenIdent                       // Identifier or document path
	TokenString                      // String literal ('hello')
	TokenNumber                      // Numeric literal (123, 4.5, 1e9)
	TokenBinary                      // Binary literal (b'..')
	TokenKeyword                     // DQL keyword (SELECT, FROM, etc.)
	TokenComma                       // Comma (,)
	TokenLParen                      // Left parenthesis (()
	TokenRParen                      // Right parenthesis ())
	TokenLBracket                    // Left bracket ([)
	TokenRBracket                    // Right bracket (])
	TokenLBrace                      // Left brace ({)
	TokenRBrace                      // Right brace (})
	TokenSemicolon                   // Statement separator (;)
	TokenColon                       // Map key separator (:)
	TokenEqual                       // Equals sign (=)
	TokenNotEqual                    // Not equal (!= or <>)
	TokenLessThan                    // Less than (<)
	TokenGreaterThan                 // Greater than (>)
	TokenLessEqual                   // Less than or equal (<=)
	TokenGreaterEqual                // Greater than or equal (>=)
	TokenPlus                        // Plus (+)
	TokenMinus                       // Minus (-)
	TokenStar                        // Asterisk (*)
	TokenSlash                       // Slash (/)
	TokenAddAssign                   // Add-assign (+=)
	TokenSubAssign                   // Subtract-assign (-=)
	TokenShiftLeft                   // Set-add (<<)
	TokenShiftRight                  // Set-remove (>>)
)

// Token represents a single lexical unit from the input.
type Token struct {
	Type  TokenType // The category of this token
	Value string    // The literal value from the input
	Pos   int       // Byte offset of the first character
}

// keywords holds the reserved words of the language, uppercase.
var keywords = map[string]bool{
	// Actions
	"SELECT": true, "SCAN": true, "COUNT": true, "INSERT": true,
	"UPDATE": true, "DELETE": true, "CREATE": true, "DROP": true,
	"ALTER": true, "DUMP": true, "EXPLAIN": true, "ANALYZE": true,
	// Clauses
	"FROM": true, "INTO": true, "WHERE": true, "FILTER": true,
	"USING": true, "LIMIT": true, "ORDER": true, "BY": true,
	"ASC": true, "DESC": true, "VALUES": true, "KEYS": true,
	"CONSISTENT": true, "RETURNS": true,
	// Boolean operators and predicates
	"AND": true, "OR": true, "NOT": true, "IN": true, "BETWEEN": true,
	"IS": true, "BEGINS": true, "WITH": true, "CONTAINS": true,
	// Literal keywords
	"NULL": true, "TRUE": true, "FALSE": true, "INTERVAL": true,
	// DDL
	"TABLE": true, "SCHEMA": true, "INDEX": true, "GLOBAL": true,
	"ALL": true, "INCLUDE": true, "HASH": true, "RANGE": true,
	"KEY": true, "THROUGHPUT": true, "IF": true, "EXISTS": true,
	"STRING": true, "NUMBER": true, "BINARY": true,
	// Update clauses
	"SET": true, "ADD": true, "REMOVE": true,
	// RETURNS arguments
	"NONE": true, "OLD": true, "NEW": true, "UPDATED": true,
}

// Lexer transforms an input string into a stream of tokens.
//
// The Lexer is stateful - each call to NextToken() advances the
// position in the input string.
type Lexer struct {
	input string // The DQL input string
	pos   int    // Current position in the input
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken advances the lexer and returns the next token.
//
// Token recognition order:
//  1. Skip whitespace and "--" comments
//  2. Check for end of input (return TokenEOF)
//  3. Check for binary literal (b'..')
//  4. Check for identifier/keyword (starts with letter or underscore)
//  5. Check for number (starts with digit, or '.' followed by digit)
//  6. Check for string literal (starts with ' or ")
//  7. Check for multi-character operators (<=, >=, <>, !=, <<, >>, +=, -=)
//  8. Check for single-character tokens
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]

	// Binary literal: b'...' or B"...".
	if (ch == 'b' || ch == 'B') && l.pos+1 < len(l.input) &&
		(l.input[l.pos+1] == '\'' || l.input[l.pos+1] == '"') {
		l.pos++
		lit, ok := l.readQuoted()
		if !ok {
			return Token{Type: TokenIllegal, Value: l.input[start:], Pos: start}
		}
		return Token{Type: TokenBinary, Value: lit, Pos: start}
	}

	// Identifier, keyword, or document path.
	if unicode.IsLetter(rune(ch)) || ch == '_' {
		lit := l.readPath()
		upper := strings.ToUpper(lit)
		if keywords[upper] {
			return Token{Type: TokenKeyword, Value: upper, Pos: start}
		}
		return Token{Type: TokenIdent, Value: lit, Pos: start}
	}

	// Number: digits with optional fraction and exponent. The parser
	// applies any leading sign.
	if unicode.IsDigit(rune(ch)) || (ch == '.' && l.pos+1 < len(l.input) &&
		unicode.IsDigit(rune(l.input[l.pos+1]))) {
		return Token{Type: TokenNumber, Value: l.readNumber(), Pos: start}
	}

	// String literal: single or double quoted.
	if ch == '\'' || ch == '"' {
		lit, ok := l.readQuoted()
		if !ok {
			return Token{Type: TokenIllegal, Value: l.input[start:], Pos: start}
		}
		return Token{Type: TokenString, Value: lit, Pos: start}
	}

	// Multi-character operators (check before single-character).
	if tok, ok := l.readOperator(); ok {
		tok.Pos = start
		return tok
	}

	// Single-character tokens.
	l.pos++
	switch ch {
	case ',':
		return Token{Type: TokenComma, Value: ",", Pos: start}
	case '(':
		return Token{Type: TokenLParen, Value: "(", Pos: start}
	case ')':
		return Token{Type: TokenRParen, Value: ")", Pos: start}
	case '[':
		return Token{Type: TokenLBracket, Value: "[", Pos: start}
	case ']':
		return Token{Type: TokenRBracket, Value: "]", Pos: start}
	case '{':
		return Token{Type: TokenLBrace, Value: "{", Pos: start}
	case '}':
		return Token{Type: TokenRBrace, Value: "}", Pos: start}
	case ';':
		return Token{Type: TokenSemicolon, Value: ";", Pos: start}
	case ':':
		return Token{Type: TokenColon, Value: ":", Pos: start}
	case '=':
		return Token{Type: TokenEqual, Value: "=", Pos: start}
	case '*':
		return Token{Type: TokenStar, Value: "*", Pos: start}
	case '/':
		return Token{Type: TokenSlash, Value: "/", Pos: start}
	}

	return Token{Type: TokenIllegal, Value: string(ch), Pos: start}
}

// readOperator consumes multi-character operators and the +, -, <, >, !
// families. Returns ok=false when the current character starts none of
// them.
func (l *Lexer) readOperator() (Token, bool) {
	ch := l.input[l.pos]
	next := byte(0)
	if l.pos+1 < len(l.input) {
		next = l.input[l.pos+1]
	}

	switch ch {
	case '<':
		switch next {
		case '=':
			l.pos += 2
			return Token{Type: TokenLessEqual, Value: "<="}, true
		case '>':
			l.pos += 2
			return Token{Type: TokenNotEqual, Value: "<>"}, true
		case '<':
			l.pos += 2
			return Token{Type: TokenShiftLeft, Value: "<<"}, true
		}
		l.pos++
		return Token{Type: TokenLessThan, Value: "<"}, true
	case '>':
		switch next {
		case '=':
			l.pos += 2
			return Token{Type: TokenGreaterEqual, Value: ">="}, true
		case '>':
			l.pos += 2
			return Token{Type: TokenShiftRight, Value: ">>"}, true
		}
		l.pos++
		return Token{Type: TokenGreaterThan, Value: ">"}, true
	case '!':
		if next == '=' {
			l.pos += 2
			return Token{Type: TokenNotEqual, Value: "!="}, true
		}
	case '+':
		if next == '=' {
			l.pos += 2
			return Token{Type: TokenAddAssign, Value: "+="}, true
		}
		l.pos++
		return Token{Type: TokenPlus, Value: "+"}, true
	case '-':
		if next == '=' {
			l.pos += 2
			return Token{Type: TokenSubAssign, Value: "-="}, true
		}
		l.pos++
		return Token{Type: TokenMinus, Value: "-"}, true
	}
	return Token{}, false
}

// readPath consumes an identifier, including any ".name" and "[N]" path
// segments attached to it.
func (l *Lexer) readPath() string {
	start := l.pos
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || c == '_' || c == '.' {
			l.pos++
			continue
		}
		if c == '[' {
			// Only a [digits] run extends the path; anything else is a
			// list literal and belongs to the next token.
			j := l.pos + 1
			for j < len(l.input) && unicode.IsDigit(rune(l.input[j])) {
				j++
			}
			if j > l.pos+1 && j < len(l.input) && l.input[j] == ']' {
				l.pos = j + 1
				continue
			}
		}
		break
	}
	return l.input[start:l.pos]
}

// readNumber consumes an unsigned number with optional fraction and
// exponent.
func (l *Lexer) readNumber() string {
	start := l.pos
	for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		if l.pos+1 < len(l.input) && unicode.IsDigit(rune(l.input[l.pos+1])) {
			l.pos++
			for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
				l.pos++
			}
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		j := l.pos + 1
		if j < len(l.input) && (l.input[j] == '+' || l.input[j] == '-') {
			j++
		}
		if j < len(l.input) && unicode.IsDigit(rune(l.input[j])) {
			l.pos = j
			for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
				l.pos++
			}
		}
	}
	return l.input[start:l.pos]
}

// readQuoted consumes a quoted string starting at the current position
// and returns its unescaped contents. Both quote characters are
// supported; backslash escapes the quote character and itself.
func (l *Lexer) readQuoted() (string, bool) {
	quote := l.input[l.pos]
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\\' && l.pos+1 < len(l.input) {
			esc := l.input[l.pos+1]
			if esc == quote || esc == '\\' {
				sb.WriteByte(esc)
				l.pos += 2
				continue
			}
		}
		if c == quote {
			l.pos++
			return sb.String(), true
		}
		sb.WriteByte(c)
		l.pos++
	}
	return "", false
}

// skipWhitespace advances past whitespace and "--" line comments.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		if unicode.IsSpace(rune(l.input[l.pos])) {
			l.pos++
			continue
		}
		if l.input[l.pos] == '-' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '-' {
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}
