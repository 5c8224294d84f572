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
The Parser is a recursive-descent parser over the Lexer's token stream.
It produces fully resolved Statement values: literals become typed
values, identifiers in value position resolve through the session
scope, and WHERE clauses become constraint trees.

Parsing Process:
================

	Input:  "SELECT * FROM forum WHERE userid = 'abc' AND ts > 100"

	Output: &SelectStatement{
	            Table:     "forum",
	            Selection: &SelectionExpression{All: true},
	            Where:     (userid = 'abc' AND ts > 100),
	        }

Statement Types:
================

	SELECT, SCAN, COUNT      read statements
	INSERT, UPDATE, DELETE   write statements
	CREATE, DROP, ALTER      table DDL
	DUMP SCHEMA              schema export
	EXPLAIN, ANALYZE         wrappers around any of the above

Because identifiers resolve during parsing, a Parser needs the session
scope; an identifier naming no variable is a fatal error before any
store call happens.
*/

package dql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dql/internal/store"
)

// Parser builds typed statements from DQL text.
type Parser struct {
	lexer *Lexer
	input string
	scope *Scope
	cur   Token
	peek  Token
}

// NewParser creates a Parser for one statement. The scope resolves
// identifiers in value position; a nil scope behaves as an empty one.
func NewParser(input string, scope *Scope) *Parser {
	if scope == nil {
		scope = NewScope()
	}
	p := &Parser{lexer: NewLexer(input), input: input, scope: scope}
	p.next()
	p.next()
	return p
}

// Parse parses a single statement, consuming an optional trailing
// semicolon. Input after the statement is a syntax error.
func Parse(input string, scope *Scope) (Statement, error) {
	p := NewParser(input, scope)
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenSemicolon {
		p.next()
	}
	if p.cur.Type != TokenEOF {
		return nil, p.unexpected("end of statement", p.cur)
	}
	return stmt, nil
}

// ParseValue parses a standalone value literal, resolving identifiers
// against the scope. The shell uses it for \set assignments.
func ParseValue(input string, scope *Scope) (interface{}, error) {
	p := NewParser(input, scope)
	val, err := p.parseValueExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, p.unexpected("end of input", p.cur)
	}
	return val, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) describe(tok Token) string {
	if tok.Type == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", tok.Value)
}

// unexpected reports tok as unexpected input. An illegal token opening
// with a quote is an unterminated string: the lexer flags those as one
// token running to the end of the input.
func (p *Parser) unexpected(expected string, tok Token) *Error {
	if tok.Type == TokenIllegal && openingQuote(tok.Value) {
		return UnclosedString(tok.Pos)
	}
	return UnexpectedToken(tok.Pos, expected, p.describe(tok))
}

func openingQuote(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == 'b' || s[0] == 'B' {
		s = s[1:]
	}
	return s != "" && (s[0] == '\'' || s[0] == '"')
}

func (p *Parser) curIsKeyword(kw string) bool {
	return p.cur.Type == TokenKeyword && p.cur.Value == kw
}

func (p *Parser) acceptKeyword(kw string) bool {
	if p.curIsKeyword(kw) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.unexpected(kw, p.cur)
	}
	return nil
}

func (p *Parser) expect(t TokenType, what string) (Token, error) {
	if p.cur.Type != t {
		return Token{}, p.unexpected(what, p.cur)
	}
	tok := p.cur
	p.next()
	return tok, nil
}

// fieldName consumes a document path. Reserved words are allowed as
// field names; their original spelling is recovered from the input.
func (p *Parser) fieldName() (string, error) {
	switch p.cur.Type {
	case TokenIdent:
		name := p.cur.Value
		p.next()
		return name, nil
	case TokenKeyword:
		raw := p.input[p.cur.Pos : p.cur.Pos+len(p.cur.Value)]
		p.next()
		return raw, nil
	}
	return "", p.unexpected("field name", p.cur)
}

// tableName consumes a table name.
func (p *Parser) tableName() (string, error) {
	tok, err := p.expect(TokenIdent, "table name")
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// indexName consumes an index name, quoted or bare.
func (p *Parser) indexName() (string, error) {
	if p.cur.Type == TokenString || p.cur.Type == TokenIdent {
		name := p.cur.Value
		p.next()
		return name, nil
	}
	return "", p.unexpected("index name", p.cur)
}

func (p *Parser) intLiteral(what string) (int, error) {
	tok, err := p.expect(TokenNumber, what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.Value)
	if err != nil {
		return 0, InvalidLiteral(tok.Pos, tok.Value, "expected an integer")
	}
	return n, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	if p.cur.Type != TokenKeyword {
		return nil, p.unexpected("a statement", p.cur)
	}
	switch p.cur.Value {
	case "SELECT":
		return p.parseSelect()
	case "SCAN":
		return p.parseScan()
	case "COUNT":
		return p.parseCount()
	case "INSERT":
		return p.parseInsert()
	case "UPDATE":
		return p.parseUpdate()
	case "DELETE":
		return p.parseDelete()
	case "CREATE":
		return p.parseCreate()
	case "DROP":
		return p.parseDrop()
	case "ALTER":
		return p.parseAlter()
	case "DUMP":
		return p.parseDump()
	case "EXPLAIN":
		p.next()
		target, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &ExplainStatement{Target: target}, nil
	case "ANALYZE":
		p.next()
		target, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &AnalyzeStatement{Target: target}, nil
	}
	return nil, p.unexpected("a statement", p.cur)
}

// ============================================================================
// Read statements
// ============================================================================

func (p *Parser) parseSelect() (Statement, error) {
	p.next() // SELECT
	stmt := &SelectStatement{}
	stmt.Consistent = p.acceptKeyword("CONSISTENT")

	sel, err := p.parseSelection()
	if err != nil {
		return nil, err
	}
	stmt.Selection = sel

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	if stmt.Table, err = p.tableName(); err != nil {
		return nil, err
	}

	if p.acceptKeyword("WHERE") {
		stmt.Where, stmt.KeysIn, err = p.parseWhereBody()
		if err != nil {
			return nil, err
		}
	}

	for {
		switch {
		case p.curIsKeyword("USING"):
			p.next()
			if stmt.Using, err = p.indexName(); err != nil {
				return nil, err
			}
		case p.curIsKeyword("LIMIT"):
			p.next()
			if stmt.Limit, err = p.intLiteral("limit"); err != nil {
				return nil, err
			}
		case p.curIsKeyword("SCAN"):
			p.next()
			if err := p.expectKeyword("LIMIT"); err != nil {
				return nil, err
			}
			if stmt.ScanLimit, err = p.intLiteral("scan limit"); err != nil {
				return nil, err
			}
		case p.curIsKeyword("ORDER"):
			p.next()
			if err := p.expectKeyword("BY"); err != nil {
				return nil, err
			}
			if stmt.OrderBy, err = p.fieldName(); err != nil {
				return nil, err
			}
		case p.curIsKeyword("ASC"):
			p.next()
			stmt.Desc = false
		case p.curIsKeyword("DESC"):
			p.next()
			stmt.Desc = true
		default:
			return stmt, p.validateSelect(stmt)
		}
	}
}

// validateSelect enforces the WHERE KEYS IN restrictions: the key list
// fetches whole items, so no index, limit or projection applies.
func (p *Parser) validateSelect(stmt *SelectStatement) error {
	if len(stmt.KeysIn) == 0 {
		return nil
	}
	if stmt.Using != "" {
		return NewValidationError("WHERE KEYS IN cannot be combined with USING")
	}
	if stmt.Limit != 0 || stmt.ScanLimit != 0 {
		return NewValidationError("WHERE KEYS IN cannot be combined with LIMIT")
	}
	if !stmt.Selection.All {
		return NewValidationError("WHERE KEYS IN requires SELECT *")
	}
	return nil
}

func (p *Parser) parseScan() (Statement, error) {
	p.next() // SCAN
	stmt := &ScanStatement{}
	var err error
	if stmt.Table, err = p.tableName(); err != nil {
		return nil, err
	}
	if p.acceptKeyword("FILTER") {
		if stmt.Filter, err = p.parseConstraintOr(); err != nil {
			return nil, err
		}
	}
	for {
		switch {
		case p.curIsKeyword("LIMIT"):
			p.next()
			if stmt.Limit, err = p.intLiteral("limit"); err != nil {
				return nil, err
			}
		case p.curIsKeyword("SCAN"):
			p.next()
			if err := p.expectKeyword("LIMIT"); err != nil {
				return nil, err
			}
			if stmt.ScanLimit, err = p.intLiteral("scan limit"); err != nil {
				return nil, err
			}
		case p.curIsKeyword("USING"):
			p.next()
			if stmt.Using, err = p.indexName(); err != nil {
				return nil, err
			}
		default:
			return stmt, nil
		}
	}
}

func (p *Parser) parseCount() (Statement, error) {
	p.next() // COUNT
	stmt := &CountStatement{}
	stmt.Consistent = p.acceptKeyword("CONSISTENT")
	var err error
	if stmt.Table, err = p.tableName(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	if stmt.Where, err = p.parseConstraintOr(); err != nil {
		return nil, err
	}
	if p.acceptKeyword("USING") {
		if stmt.Using, err = p.indexName(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// ============================================================================
// Write statements
// ============================================================================

func (p *Parser) parseInsert() (Statement, error) {
	p.next() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.tableName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return nil, err
	}

	first, err := p.fieldName()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == TokenEqual {
		return p.parseInsertPairs(table, first)
	}
	return p.parseInsertValues(table, first)
}

// parseInsertPairs parses the "(a=1, b='x'), (a=2)" form. The opening
// paren and first field name are already consumed.
func (p *Parser) parseInsertPairs(table, firstField string) (Statement, error) {
	stmt := &InsertStatement{Table: table}
	field := firstField
	for {
		item := store.Item{}
		for {
			if _, err := p.expect(TokenEqual, "="); err != nil {
				return nil, err
			}
			val, err := p.parseValueExpr()
			if err != nil {
				return nil, err
			}
			item[field] = normalizeStoreValue(val)
			if p.cur.Type != TokenComma {
				break
			}
			p.next()
			var err2 error
			if field, err2 = p.fieldName(); err2 != nil {
				return nil, err2
			}
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		stmt.Items = append(stmt.Items, item)
		if p.cur.Type != TokenComma {
			return stmt, nil
		}
		p.next()
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return nil, err
		}
		var err error
		if field, err = p.fieldName(); err != nil {
			return nil, err
		}
	}
}

// parseInsertValues parses the "(a, b) VALUES (1, 'x'), (2, 'y')"
// form. The opening paren and first attribute name are already
// consumed.
func (p *Parser) parseInsertValues(table, firstField string) (Statement, error) {
	attrs := []string{firstField}
	for p.cur.Type == TokenComma {
		p.next()
		name, err := p.fieldName()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, name)
	}
	if _, err := p.expect(TokenRParen, ")"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}

	stmt := &InsertStatement{Table: table}
	for {
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return nil, err
		}
		item := store.Item{}
		for i := 0; ; i++ {
			val, err := p.parseValueExpr()
			if err != nil {
				return nil, err
			}
			if i >= len(attrs) {
				return nil, NewValidationError(fmt.Sprintf(
					"INSERT row has more than %d values", len(attrs)))
			}
			item[attrs[i]] = normalizeStoreValue(val)
			if p.cur.Type != TokenComma {
				if i != len(attrs)-1 {
					return nil, NewValidationError(fmt.Sprintf(
						"INSERT row has %d values for %d attributes", i+1, len(attrs)))
				}
				break
			}
			p.next()
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		stmt.Items = append(stmt.Items, item)
		if p.cur.Type != TokenComma {
			return stmt, nil
		}
		p.next()
	}
}

func (p *Parser) parseUpdate() (Statement, error) {
	p.next() // UPDATE
	stmt := &UpdateStatement{Returns: store.ReturnNone}
	var err error
	if stmt.Table, err = p.tableName(); err != nil {
		return nil, err
	}

	var clauses []UpdateClause
	for {
		switch {
		case p.curIsKeyword("SET"):
			p.next()
			if clauses, err = p.parseSetClauses(clauses); err != nil {
				return nil, err
			}
		case p.curIsKeyword("REMOVE"):
			p.next()
			for {
				field, err := p.fieldName()
				if err != nil {
					return nil, err
				}
				clauses = append(clauses, UpdateClause{Op: UpdateRemove, Field: field})
				if p.cur.Type != TokenComma {
					break
				}
				p.next()
			}
		case p.curIsKeyword("ADD"):
			p.next()
			if clauses, err = p.parseAddDeleteClauses(clauses, UpdateAdd); err != nil {
				return nil, err
			}
		case p.curIsKeyword("DELETE"):
			p.next()
			if clauses, err = p.parseAddDeleteClauses(clauses, UpdateDelete); err != nil {
				return nil, err
			}
		default:
			if len(clauses) == 0 {
				return nil, p.unexpected("SET, REMOVE, ADD or DELETE", p.cur)
			}
			if stmt.Update, err = NewUpdateExpression(clauses); err != nil {
				return nil, err
			}
			return p.parseUpdateTail(stmt)
		}
	}
}

func (p *Parser) parseUpdateTail(stmt *UpdateStatement) (Statement, error) {
	var err error
	if p.acceptKeyword("WHERE") {
		if stmt.Where, stmt.KeysIn, err = p.parseWhereBody(); err != nil {
			return nil, err
		}
	}
	if p.acceptKeyword("USING") {
		if stmt.Using, err = p.indexName(); err != nil {
			return nil, err
		}
	}
	if p.acceptKeyword("RETURNS") {
		if stmt.Returns, err = p.parseReturns(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseReturns() (string, error) {
	switch {
	case p.acceptKeyword("NONE"):
		return store.ReturnNone, nil
	case p.acceptKeyword("ALL"):
		if p.acceptKeyword("OLD") {
			return store.ReturnAllOld, nil
		}
		if p.acceptKeyword("NEW") {
			return store.ReturnAllNew, nil
		}
	case p.acceptKeyword("UPDATED"):
		if p.acceptKeyword("OLD") {
			return store.ReturnUpdatedOld, nil
		}
		if p.acceptKeyword("NEW") {
			return store.ReturnUpdatedNew, nil
		}
	}
	return "", p.unexpected("NONE, ALL OLD, ALL NEW, UPDATED OLD or UPDATED NEW", p.cur)
}

// parseSetClauses parses the assignment list of a SET clause. The
// compound operators map onto ADD and DELETE actions here.
func (p *Parser) parseSetClauses(clauses []UpdateClause) ([]UpdateClause, error) {
	for {
		field, err := p.fieldName()
		if err != nil {
			return nil, err
		}
		opTok := p.cur
		switch opTok.Type {
		case TokenEqual:
			p.next()
			rhs, err := p.parseUpdateRHS()
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, UpdateClause{Op: UpdateSet, Field: field, Expr: rhs})
		case TokenAddAssign, TokenSubAssign:
			p.next()
			val, err := p.parseValueExpr()
			if err != nil {
				return nil, err
			}
			if val == nil {
				return nil, NewValidationError(
					fmt.Sprintf("cannot %s NULL to field '%s'", opTok.Value, field))
			}
			val = normalizeStoreValue(val)
			if opTok.Type == TokenSubAssign {
				if val, err = NegateNumber(val); err != nil {
					return nil, err
				}
			}
			clauses = append(clauses, UpdateClause{Op: UpdateAdd, Field: field, Value: val})
		case TokenShiftLeft, TokenShiftRight:
			p.next()
			val, err := p.parseValueExpr()
			if err != nil {
				return nil, err
			}
			op := UpdateAdd
			if opTok.Type == TokenShiftRight {
				op = UpdateDelete
			}
			clauses = append(clauses, UpdateClause{
				Op: op, Field: field, Value: CoerceToSet(normalizeStoreValue(val))})
		default:
			return nil, p.unexpected("=, +=, -=, << or >>", opTok)
		}
		if p.cur.Type != TokenComma {
			return clauses, nil
		}
		p.next()
	}
}

func (p *Parser) parseAddDeleteClauses(clauses []UpdateClause, op string) ([]UpdateClause, error) {
	for {
		field, err := p.fieldName()
		if err != nil {
			return nil, err
		}
		val, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		val = normalizeStoreValue(val)
		if op == UpdateDelete {
			val = CoerceToSet(val)
		}
		clauses = append(clauses, UpdateClause{Op: op, Field: field, Value: val})
		if p.cur.Type != TokenComma {
			return clauses, nil
		}
		p.next()
	}
}

func (p *Parser) parseDelete() (Statement, error) {
	p.next() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	stmt := &DeleteStatement{}
	var err error
	if stmt.Table, err = p.tableName(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	if stmt.Where, stmt.KeysIn, err = p.parseWhereBody(); err != nil {
		return nil, err
	}
	if p.acceptKeyword("USING") {
		if stmt.Using, err = p.indexName(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// ============================================================================
// DDL statements
// ============================================================================

func (p *Parser) parseCreate() (Statement, error) {
	p.next() // CREATE
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	stmt := &CreateStatement{}
	if p.acceptKeyword("IF") {
		if err := p.expectKeyword("NOT"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		stmt.IfNotExists = true
	}
	name, err := p.tableName()
	if err != nil {
		return nil, err
	}
	desc := &store.TableDescription{Name: name}
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return nil, err
	}

	attrTypes := map[string]string{}
	for {
		if p.curIsKeyword("THROUGHPUT") {
			p.next()
			if desc.Throughput, err = p.parseThroughput(); err != nil {
				return nil, err
			}
		} else if err := p.parseAttrDeclaration(desc, attrTypes); err != nil {
			return nil, err
		}
		if p.cur.Type == TokenComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRParen, ")"); err != nil {
		return nil, err
	}

	for p.acceptKeyword("GLOBAL") {
		gsi, err := p.parseGlobalIndex(attrTypes)
		if err != nil {
			return nil, err
		}
		desc.GlobalIndexes = append(desc.GlobalIndexes, *gsi)
	}

	if desc.HashKey.Name == "" {
		return nil, NewValidationError("table must declare exactly one HASH KEY")
	}
	stmt.Description = desc
	return stmt, nil
}

// parseAttrDeclaration parses one "name TYPE [key or index spec]"
// entry of a CREATE TABLE attribute list.
func (p *Parser) parseAttrDeclaration(desc *store.TableDescription, attrTypes map[string]string) error {
	name, err := p.fieldName()
	if err != nil {
		return err
	}
	dataType, err := p.parseDataType()
	if err != nil {
		return err
	}
	attrTypes[name] = dataType
	attr := store.AttributeInfo{Name: name, Type: dataType}

	switch {
	case p.curIsKeyword("HASH"):
		p.next()
		if err := p.expectKeyword("KEY"); err != nil {
			return err
		}
		if desc.HashKey.Name != "" {
			return NewValidationError("table must declare exactly one HASH KEY")
		}
		desc.HashKey = attr
	case p.curIsKeyword("RANGE"):
		p.next()
		if err := p.expectKeyword("KEY"); err != nil {
			return err
		}
		if desc.RangeKey != nil {
			return NewValidationError("table must declare at most one RANGE KEY")
		}
		desc.RangeKey = &attr
	case p.curIsKeyword("ALL") || p.curIsKeyword("KEYS") ||
		p.curIsKeyword("INCLUDE") || p.curIsKeyword("INDEX"):
		projection, err := p.parseProjection()
		if err != nil {
			return err
		}
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return err
		}
		idxName, err := p.indexName()
		if err != nil {
			return err
		}
		lsi := store.LocalIndex{Name: idxName, RangeKey: attr, Projection: projection}
		if p.cur.Type == TokenComma {
			p.next()
			if lsi.Includes, err = p.parseIncludeList(); err != nil {
				return err
			}
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return err
		}
		desc.LocalIndexes = append(desc.LocalIndexes, lsi)
	}
	return nil
}

func (p *Parser) parseDataType() (string, error) {
	switch {
	case p.acceptKeyword("STRING"):
		return store.TypeString, nil
	case p.acceptKeyword("NUMBER"):
		return store.TypeNumber, nil
	case p.acceptKeyword("BINARY"):
		return store.TypeBinary, nil
	}
	return "", p.unexpected("STRING, NUMBER or BINARY", p.cur)
}

// parseProjection consumes an optional ALL/KEYS/INCLUDE projection
// keyword and the INDEX keyword that follows.
func (p *Parser) parseProjection() (string, error) {
	projection := store.ProjectAll
	switch {
	case p.acceptKeyword("ALL"):
	case p.acceptKeyword("KEYS"):
		projection = store.ProjectKeysOnly
	case p.acceptKeyword("INCLUDE"):
		projection = store.ProjectInclude
	}
	if err := p.expectKeyword("INDEX"); err != nil {
		return "", err
	}
	return projection, nil
}

func (p *Parser) parseIncludeList() ([]string, error) {
	if _, err := p.expect(TokenLBracket, "["); err != nil {
		return nil, err
	}
	var includes []string
	for {
		tok, err := p.expect(TokenString, "attribute name")
		if err != nil {
			return nil, err
		}
		includes = append(includes, tok.Value)
		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokenRBracket, "]"); err != nil {
		return nil, err
	}
	return includes, nil
}

func (p *Parser) parseThroughput() (store.ThroughputInfo, error) {
	var tp store.ThroughputInfo
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return tp, err
	}
	read, err := p.intLiteral("read throughput")
	if err != nil {
		return tp, err
	}
	if _, err := p.expect(TokenComma, ","); err != nil {
		return tp, err
	}
	write, err := p.intLiteral("write throughput")
	if err != nil {
		return tp, err
	}
	if _, err := p.expect(TokenRParen, ")"); err != nil {
		return tp, err
	}
	return store.ThroughputInfo{Read: int64(read), Write: int64(write)}, nil
}

// parseGlobalIndex parses "[ALL|KEYS|INCLUDE] INDEX ('name', hash
// [TYPE][, range [TYPE]][, [includes]][, THROUGHPUT (r, w)])". Key
// types fall back to the table's attribute declarations.
func (p *Parser) parseGlobalIndex(attrTypes map[string]string) (*store.GlobalIndex, error) {
	projection, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokenString, "index name")
	if err != nil {
		return nil, err
	}
	gsi := &store.GlobalIndex{Name: nameTok.Value, Projection: projection}
	if _, err := p.expect(TokenComma, ","); err != nil {
		return nil, err
	}
	if gsi.HashKey, err = p.parseIndexKey(attrTypes); err != nil {
		return nil, err
	}

	for p.cur.Type == TokenComma {
		p.next()
		switch {
		case p.curIsKeyword("THROUGHPUT"):
			p.next()
			if gsi.Throughput, err = p.parseThroughput(); err != nil {
				return nil, err
			}
		case p.cur.Type == TokenLBracket:
			if gsi.Includes, err = p.parseIncludeList(); err != nil {
				return nil, err
			}
		default:
			if gsi.RangeKey != nil {
				return nil, p.unexpected("THROUGHPUT or include list", p.cur)
			}
			rk, err := p.parseIndexKey(attrTypes)
			if err != nil {
				return nil, err
			}
			gsi.RangeKey = &rk
		}
	}
	if _, err := p.expect(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return gsi, nil
}

func (p *Parser) parseIndexKey(attrTypes map[string]string) (store.AttributeInfo, error) {
	name, err := p.fieldName()
	if err != nil {
		return store.AttributeInfo{}, err
	}
	if p.curIsKeyword("STRING") || p.curIsKeyword("NUMBER") || p.curIsKeyword("BINARY") {
		dataType, err := p.parseDataType()
		if err != nil {
			return store.AttributeInfo{}, err
		}
		return store.AttributeInfo{Name: name, Type: dataType}, nil
	}
	if dataType, ok := attrTypes[name]; ok {
		return store.AttributeInfo{Name: name, Type: dataType}, nil
	}
	return store.AttributeInfo{}, NewValidationError(fmt.Sprintf(
		"index key '%s' needs a declared type", name))
}

func (p *Parser) parseDrop() (Statement, error) {
	p.next() // DROP
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	stmt := &DropStatement{}
	if p.acceptKeyword("IF") {
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		stmt.IfExists = true
	}
	var err error
	if stmt.Table, err = p.tableName(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseAlter() (Statement, error) {
	p.next() // ALTER
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	stmt := &AlterStatement{}
	var err error
	if stmt.Table, err = p.tableName(); err != nil {
		return nil, err
	}

	switch {
	case p.acceptKeyword("SET"):
		if p.acceptKeyword("INDEX") {
			if stmt.IndexName, err = p.indexName(); err != nil {
				return nil, err
			}
		}
		if err := p.expectKeyword("THROUGHPUT"); err != nil {
			return nil, err
		}
		tp, err := p.parseThroughput()
		if err != nil {
			return nil, err
		}
		if stmt.IndexName != "" {
			stmt.IndexThroughput = &tp
		} else {
			stmt.Throughput = &tp
		}
	case p.acceptKeyword("DROP"):
		if err := p.expectKeyword("INDEX"); err != nil {
			return nil, err
		}
		if stmt.DropIndex, err = p.indexName(); err != nil {
			return nil, err
		}
		if p.acceptKeyword("IF") {
			if err := p.expectKeyword("EXISTS"); err != nil {
				return nil, err
			}
			stmt.IfExists = true
		}
	case p.acceptKeyword("CREATE"):
		if err := p.expectKeyword("GLOBAL"); err != nil {
			return nil, err
		}
		if stmt.CreateIndex, err = p.parseGlobalIndex(nil); err != nil {
			return nil, err
		}
		if p.acceptKeyword("IF") {
			if err := p.expectKeyword("NOT"); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("EXISTS"); err != nil {
				return nil, err
			}
			stmt.IfNotExists = true
		}
	default:
		return nil, p.unexpected("SET, DROP or CREATE", p.cur)
	}
	return stmt, nil
}

func (p *Parser) parseDump() (Statement, error) {
	p.next() // DUMP
	if err := p.expectKeyword("SCHEMA"); err != nil {
		return nil, err
	}
	stmt := &DumpStatement{}
	for p.cur.Type == TokenIdent {
		stmt.Tables = append(stmt.Tables, p.cur.Value)
		p.next()
		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}
	return stmt, nil
}

// ============================================================================
// WHERE clauses and constraints
// ============================================================================

// parseWhereBody parses either a constraint tree or a KEYS IN list.
func (p *Parser) parseWhereBody() (ConstraintExpression, []KeyTuple, error) {
	if p.acceptKeyword("KEYS") {
		if err := p.expectKeyword("IN"); err != nil {
			return nil, nil, err
		}
		tuples, err := p.parseKeyTuples()
		return nil, tuples, err
	}
	where, err := p.parseConstraintOr()
	return where, nil, err
}

func (p *Parser) parseKeyTuples() ([]KeyTuple, error) {
	var tuples []KeyTuple
	for {
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return nil, err
		}
		var tuple KeyTuple
		for {
			val, err := p.parseValueExpr()
			if err != nil {
				return nil, err
			}
			tuple = append(tuple, normalizeStoreValue(val))
			if p.cur.Type != TokenComma {
				break
			}
			p.next()
		}
		if len(tuple) > 2 {
			return nil, NewValidationError("a key has at most a hash and a range value")
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		tuples = append(tuples, tuple)
		if p.cur.Type != TokenComma {
			return tuples, nil
		}
		p.next()
	}
}

func (p *Parser) parseConstraintOr() (ConstraintExpression, error) {
	left, err := p.parseConstraintAnd()
	if err != nil {
		return nil, err
	}
	pieces := []ConstraintExpression{left}
	for p.acceptKeyword("OR") {
		right, err := p.parseConstraintAnd()
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, right)
	}
	return Or(pieces...), nil
}

func (p *Parser) parseConstraintAnd() (ConstraintExpression, error) {
	left, err := p.parseConstraintUnary()
	if err != nil {
		return nil, err
	}
	pieces := []ConstraintExpression{left}
	for p.acceptKeyword("AND") {
		right, err := p.parseConstraintUnary()
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, right)
	}
	return And(pieces...), nil
}

func (p *Parser) parseConstraintUnary() (ConstraintExpression, error) {
	if p.acceptKeyword("NOT") {
		child, err := p.parseConstraintUnary()
		if err != nil {
			return nil, err
		}
		return NewInvert(child), nil
	}
	if p.cur.Type == TokenLParen {
		p.next()
		inner, err := p.parseConstraintOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseConstraintPrimary()
}

// constraint predicate functions by lowercase name.
var constraintFunctions = map[string]bool{
	"attribute_exists":     true,
	"attribute_not_exists": true,
	"begins_with":          true,
	"contains":             true,
	"attribute_type":       true,
	"size":                 true,
}

func (p *Parser) parseConstraintPrimary() (ConstraintExpression, error) {
	if p.cur.Type == TokenIdent && p.peek.Type == TokenLParen &&
		constraintFunctions[strings.ToLower(p.cur.Value)] {
		return p.parseConstraintFunction()
	}

	field, err := p.fieldName()
	if err != nil {
		return nil, err
	}
	switch {
	case p.acceptKeyword("BETWEEN"):
		low, err := p.parseConstraintValue()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AND"); err != nil {
			return nil, err
		}
		high, err := p.parseConstraintValue()
		if err != nil {
			return nil, err
		}
		return NewBetweenConstraint(field, low, high), nil
	case p.acceptKeyword("IN"):
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return nil, err
		}
		var values []interface{}
		for {
			val, err := p.parseConstraintValue()
			if err != nil {
				return nil, err
			}
			values = append(values, val)
			if p.cur.Type != TokenComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return NewInConstraint(field, values), nil
	case p.acceptKeyword("IS"):
		if p.acceptKeyword("NOT") {
			if err := p.expectKeyword("NULL"); err != nil {
				return nil, err
			}
			return NewFunctionConstraint("attribute_exists", field), nil
		}
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return NewFunctionConstraint("attribute_not_exists", field), nil
	case p.acceptKeyword("BEGINS"):
		if err := p.expectKeyword("WITH"); err != nil {
			return nil, err
		}
		val, err := p.parseConstraintValue()
		if err != nil {
			return nil, err
		}
		return NewFunctionConstraint2("begins_with", field, val), nil
	case p.acceptKeyword("CONTAINS"):
		val, err := p.parseConstraintValue()
		if err != nil {
			return nil, err
		}
		return NewFunctionConstraint2("contains", field, val), nil
	case p.acceptKeyword("NOT"):
		if err := p.expectKeyword("CONTAINS"); err != nil {
			return nil, err
		}
		val, err := p.parseConstraintValue()
		if err != nil {
			return nil, err
		}
		return NewInvert(NewFunctionConstraint2("contains", field, val)), nil
	}

	op, err := p.comparisonOperator()
	if err != nil {
		return nil, err
	}
	val, err := p.parseConstraintOperand()
	if err != nil {
		return nil, err
	}
	return NewOperatorConstraint(field, op, val), nil
}

// parseConstraintOperand parses the right side of a comparison. A bare
// identifier resolves against the scope when a variable of that name is
// bound, and otherwise names another attribute of the row. An
// identifier opening a function call or an arithmetic expression stays
// in value position.
func (p *Parser) parseConstraintOperand() (interface{}, error) {
	if p.cur.Type == TokenIdent && !p.peekOpensValueExpr() {
		if _, ok := p.scope.Get(p.cur.Value); !ok {
			field, err := p.fieldName()
			if err != nil {
				return nil, err
			}
			return FieldReference{Name: field}, nil
		}
	}
	return p.parseConstraintValue()
}

func (p *Parser) peekOpensValueExpr() bool {
	switch p.peek.Type {
	case TokenLParen, TokenPlus, TokenMinus, TokenStar, TokenSlash:
		return true
	}
	return false
}

func (p *Parser) parseConstraintFunction() (ConstraintExpression, error) {
	name := strings.ToLower(p.cur.Value)
	p.next()
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return nil, err
	}
	field, err := p.fieldName()
	if err != nil {
		return nil, err
	}

	switch name {
	case "attribute_exists", "attribute_not_exists":
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return NewFunctionConstraint(name, field), nil
	case "size":
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		op, err := p.comparisonOperator()
		if err != nil {
			return nil, err
		}
		val, err := p.parseConstraintValue()
		if err != nil {
			return nil, err
		}
		return NewSizeConstraint(field, op, val), nil
	case "attribute_type":
		if _, err := p.expect(TokenComma, ","); err != nil {
			return nil, err
		}
		code, err := p.parseTypeCode()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return NewFunctionConstraint2(name, field, code), nil
	default: // begins_with, contains
		if _, err := p.expect(TokenComma, ","); err != nil {
			return nil, err
		}
		val, err := p.parseConstraintValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return NewFunctionConstraint2(name, field, val), nil
	}
}

func (p *Parser) parseTypeCode() (string, error) {
	if p.cur.Type == TokenString {
		code := p.cur.Value
		p.next()
		return code, nil
	}
	dataType, err := p.parseDataType()
	if err != nil {
		return "", p.unexpected("STRING, NUMBER, BINARY or a type code", p.cur)
	}
	return dataType, nil
}

func (p *Parser) comparisonOperator() (string, error) {
	switch p.cur.Type {
	case TokenEqual, TokenNotEqual, TokenLessThan, TokenLessEqual,
		TokenGreaterThan, TokenGreaterEqual:
		op := p.cur.Value
		p.next()
		return op, nil
	}
	return "", p.unexpected("a comparison operator", p.cur)
}

func (p *Parser) parseConstraintValue() (interface{}, error) {
	val, err := p.parseValueExpr()
	if err != nil {
		return nil, err
	}
	return normalizeStoreValue(val), nil
}

// ============================================================================
// Selections
// ============================================================================

func (p *Parser) parseSelection() (*SelectionExpression, error) {
	if p.cur.Type == TokenStar {
		p.next()
		return &SelectionExpression{All: true}, nil
	}
	if p.curIsKeyword("COUNT") && p.peek.Type == TokenLParen {
		p.next()
		p.next()
		if _, err := p.expect(TokenStar, "*"); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return &SelectionExpression{Count: true}, nil
	}

	sel := &SelectionExpression{}
	for {
		node, err := p.parseSelectNode()
		if err != nil {
			return nil, err
		}
		col := NamedSelection{Expr: node}
		if p.acceptKeyword("AS") {
			if col.Alias, err = p.fieldName(); err != nil {
				return nil, err
			}
		}
		sel.Columns = append(sel.Columns, col)
		if p.cur.Type != TokenComma {
			return sel, nil
		}
		p.next()
	}
}

// parseUpdateRHS parses the right-hand side of a SET assignment: a
// selection expression extended with the SET functions.
func (p *Parser) parseUpdateRHS() (SelectionNode, error) {
	return p.parseSelectNode()
}

func (p *Parser) parseSelectNode() (SelectionNode, error) {
	left, err := p.parseSelectTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := byte('+')
		if p.cur.Type == TokenMinus {
			op = '-'
		}
		p.next()
		right, err := p.parseSelectTerm()
		if err != nil {
			return nil, err
		}
		left = &ArithSelection{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseSelectTerm() (SelectionNode, error) {
	left, err := p.parseSelectFactor()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenStar || p.cur.Type == TokenSlash {
		op := byte('*')
		if p.cur.Type == TokenSlash {
			op = '/'
		}
		p.next()
		right, err := p.parseSelectFactor()
		if err != nil {
			return nil, err
		}
		left = &ArithSelection{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseSelectFactor() (SelectionNode, error) {
	switch p.cur.Type {
	case TokenLParen:
		p.next()
		node, err := p.parseSelectNode()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return node, nil
	case TokenMinus:
		// A leading minus only negates a numeric literal.
		p.next()
		tok, err := p.expect(TokenNumber, "a number")
		if err != nil {
			return nil, err
		}
		val, err := ParseNumber("-" + tok.Value)
		if err != nil {
			return nil, InvalidLiteral(tok.Pos, tok.Value, err.Error())
		}
		return &ValueSelection{Value: val}, nil
	case TokenNumber, TokenString, TokenBinary, TokenLBracket, TokenLBrace:
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &ValueSelection{Value: val}, nil
	case TokenKeyword:
		switch p.cur.Value {
		case "TRUE", "FALSE", "NULL", "INTERVAL":
			val, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			return &ValueSelection{Value: val}, nil
		}
	case TokenIdent:
		if p.peek.Type == TokenLParen {
			return p.parseSelectFunction()
		}
		path := p.cur.Value
		p.next()
		return &FieldSelection{Path: path}, nil
	}
	// Reserved words can still be field paths in selections.
	if p.cur.Type == TokenKeyword {
		field, err := p.fieldName()
		if err != nil {
			return nil, err
		}
		return &FieldSelection{Path: field}, nil
	}
	return nil, p.unexpected("an expression", p.cur)
}

func (p *Parser) parseSelectFunction() (SelectionNode, error) {
	name := strings.ToLower(p.cur.Value)
	pos := p.cur.Pos
	p.next() // name
	p.next() // (

	switch name {
	case "now", "utcnow":
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return &NowSelection{UTC: name == "utcnow"}, nil
	case "timestamp", "ts", "utctimestamp", "utcts":
		arg, err := p.parseSelectNode()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		utc := name == "utctimestamp" || name == "utcts"
		return &TimestampSelection{Arg: arg, UTC: utc}, nil
	case "if_not_exists":
		field, err := p.fieldName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenComma, ","); err != nil {
			return nil, err
		}
		def, err := p.parseSelectNode()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return &IfNotExistsSelection{Field: field, Default: def}, nil
	case "list_append":
		left, err := p.parseSelectNode()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenComma, ","); err != nil {
			return nil, err
		}
		right, err := p.parseSelectNode()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return &ListAppendSelection{Left: left, Right: right}, nil
	}
	return nil, NewSyntaxError(pos, fmt.Sprintf("unknown function %q", name))
}

// ============================================================================
// Values
// ============================================================================

// parseValueExpr parses a value with optional additive arithmetic,
// folded eagerly: "NOW() - INTERVAL '1 h'" is a concrete timestamp by
// the time the statement exists.
func (p *Parser) parseValueExpr() (interface{}, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := byte('+')
		if p.cur.Type == TokenMinus {
			op = '-'
		}
		pos := p.cur.Pos
		p.next()
		right, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		folded, err := applyArith(op, left, right)
		if err != nil {
			return nil, NewSyntaxError(pos, err.Error())
		}
		left = folded
	}
	return left, nil
}

// parseValue parses a single literal, variable reference or timestamp
// function call.
func (p *Parser) parseValue() (interface{}, error) {
	tok := p.cur
	switch tok.Type {
	case TokenNumber:
		p.next()
		val, err := ParseNumber(tok.Value)
		if err != nil {
			return nil, InvalidLiteral(tok.Pos, tok.Value, err.Error())
		}
		return val, nil
	case TokenMinus, TokenPlus:
		p.next()
		numTok, err := p.expect(TokenNumber, "a number")
		if err != nil {
			return nil, err
		}
		text := numTok.Value
		if tok.Type == TokenMinus {
			text = "-" + text
		}
		val, err := ParseNumber(text)
		if err != nil {
			return nil, InvalidLiteral(numTok.Pos, numTok.Value, err.Error())
		}
		return val, nil
	case TokenString:
		p.next()
		return tok.Value, nil
	case TokenBinary:
		p.next()
		return Binary(tok.Value), nil
	case TokenKeyword:
		switch tok.Value {
		case "TRUE":
			p.next()
			return true, nil
		case "FALSE":
			p.next()
			return false, nil
		case "NULL":
			p.next()
			return nil, nil
		case "INTERVAL":
			p.next()
			str, err := p.expect(TokenString, "an interval string")
			if err != nil {
				return nil, err
			}
			iv, err := ParseInterval(str.Value)
			if err != nil {
				return nil, InvalidLiteral(str.Pos, str.Value, err.Error())
			}
			return iv, nil
		}
	case TokenLParen:
		return p.parseSetLiteral()
	case TokenLBracket:
		return p.parseListLiteral()
	case TokenLBrace:
		return p.parseMapLiteral()
	case TokenIdent:
		if p.peek.Type == TokenLParen {
			return p.parseValueFunction()
		}
		p.next()
		val, ok := p.scope.Get(tok.Value)
		if !ok {
			return nil, UnknownVariable(tok.Pos, tok.Value)
		}
		return val, nil
	}
	return nil, p.unexpected("a value", tok)
}

// parseValueFunction resolves NOW()/TIMESTAMP() calls eagerly in value
// position.
func (p *Parser) parseValueFunction() (interface{}, error) {
	name := strings.ToLower(p.cur.Value)
	pos := p.cur.Pos
	p.next() // name
	p.next() // (

	switch name {
	case "now", "utcnow":
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		if name == "utcnow" {
			return time.Now().UTC(), nil
		}
		return time.Now(), nil
	case "timestamp", "ts", "utctimestamp", "utcts":
		arg, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		utc := name == "utctimestamp" || name == "utcts"
		ts, err := ParseTimestamp(arg, utc)
		if err != nil {
			return nil, NewSyntaxError(pos, err.Error())
		}
		return ts, nil
	}
	return nil, NewSyntaxError(pos, fmt.Sprintf("unknown function %q", name))
}

func (p *Parser) parseSetLiteral() (interface{}, error) {
	p.next() // (
	if p.cur.Type == TokenRParen {
		p.next()
		return Set{}, nil
	}
	var set Set
	for {
		val, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		set = append(set, val)
		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return set, nil
}

func (p *Parser) parseListLiteral() (interface{}, error) {
	p.next() // [
	list := []interface{}{}
	if p.cur.Type == TokenRBracket {
		p.next()
		return list, nil
	}
	for {
		val, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, val)
		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokenRBracket, "]"); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseMapLiteral() (interface{}, error) {
	p.next() // {
	doc := map[string]interface{}{}
	if p.cur.Type == TokenRBrace {
		p.next()
		return doc, nil
	}
	for {
		var key string
		switch p.cur.Type {
		case TokenString, TokenIdent:
			key = p.cur.Value
			p.next()
		default:
			return nil, p.unexpected("a map key", p.cur)
		}
		if _, err := p.expect(TokenColon, ":"); err != nil {
			return nil, err
		}
		val, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		doc[key] = val
		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokenRBrace, "}"); err != nil {
		return nil, err
	}
	return doc, nil
}
