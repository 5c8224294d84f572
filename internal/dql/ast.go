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
Typed statement tree.

The Parser produces one node per statement kind. Literals are already
resolved to typed values and WHERE clauses to constraint trees by the
time a statement exists; the engine never re-inspects source text.

The Statement interface uses a marker method so the executor's type
switch is exhaustive over this package's types.
*/

package dql

import "dql/internal/store"

// Statement is a parsed, resolved DQL statement.
type Statement interface {
	statementNode()
}

// KeyTuple is one (hash[, range]) key from a WHERE KEYS IN clause.
// Key attribute names come from the table schema at execution.
type KeyTuple []interface{}

// SelectStatement reads rows through an index.
type SelectStatement struct {
	Table      string
	Selection  *SelectionExpression
	Where      ConstraintExpression
	KeysIn     []KeyTuple
	Using      string
	Consistent bool
	Limit      int
	ScanLimit  int
	OrderBy    string
	Desc       bool
}

// ScanStatement walks a whole table or global index.
type ScanStatement struct {
	Table     string
	Filter    ConstraintExpression
	Using     string
	Limit     int
	ScanLimit int
}

// CountStatement counts rows matching a constraint.
type CountStatement struct {
	Table      string
	Where      ConstraintExpression
	Using      string
	Consistent bool
}

// InsertStatement writes full items.
type InsertStatement struct {
	Table string
	Items []store.Item
}

// UpdateStatement mutates the rows matching a constraint or key list.
type UpdateStatement struct {
	Table   string
	Update  *UpdateExpression
	Where   ConstraintExpression
	KeysIn  []KeyTuple
	Using   string
	Returns string
}

// DeleteStatement removes the rows matching a constraint or key list.
type DeleteStatement struct {
	Table  string
	Where  ConstraintExpression
	KeysIn []KeyTuple
	Using  string
}

// CreateStatement creates a table.
type CreateStatement struct {
	Description *store.TableDescription
	IfNotExists bool
}

// DropStatement drops a table.
type DropStatement struct {
	Table    string
	IfExists bool
}

// AlterStatement changes throughput or global indexes. Exactly one of
// the action fields is set.
type AlterStatement struct {
	Table           string
	Throughput      *store.ThroughputInfo
	IndexName       string
	IndexThroughput *store.ThroughputInfo
	CreateIndex     *store.GlobalIndex
	IfNotExists     bool
	DropIndex       string
	IfExists        bool
}

// DumpStatement emits round-trippable CREATE statements.
type DumpStatement struct {
	Tables []string
}

// ExplainStatement captures the store calls a statement would issue
// without running them.
type ExplainStatement struct {
	Target Statement
}

// AnalyzeStatement runs a statement and reports consumed capacity.
type AnalyzeStatement struct {
	Target Statement
}

func (*SelectStatement) statementNode()  {}
func (*ScanStatement) statementNode()    {}
func (*CountStatement) statementNode()   {}
func (*InsertStatement) statementNode()  {}
func (*UpdateStatement) statementNode()  {}
func (*DeleteStatement) statementNode()  {}
func (*CreateStatement) statementNode()  {}
func (*DropStatement) statementNode()    {}
func (*AlterStatement) statementNode()   {}
func (*DumpStatement) statementNode()    {}
func (*ExplainStatement) statementNode() {}
func (*AnalyzeStatement) statementNode() {}
