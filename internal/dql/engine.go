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
Statement execution.

The Engine drives a TableStore from parsed statements. Reads go
through the planner; writes decompose into per-item store calls, with
UPDATE evaluating its SET expressions against each row before writing.
Table metadata is cached between statements and invalidated by DDL.

Scans are the expensive degenerate case, so SELECT and COUNT refuse to
fall back to one unless the session opts in through AllowSelectScan.
SCAN statements and write statements always may scan: the first is
explicit, the second needs the rows either way.
*/

package dql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"dql/internal/cache"
	"dql/internal/logging"
	"dql/internal/metrics"
	"dql/internal/store"
)

// Engine executes DQL statements against a table store.
type Engine struct {
	store   store.TableStore
	scope   *Scope
	schemas *cache.SchemaCache
	logger  *logging.Logger

	// AllowSelectScan permits SELECT and COUNT statements to fall back
	// to a table scan when no index serves their constraints.
	AllowSelectScan bool
}

// NewEngine creates an Engine over a table store with a fresh session
// scope.
func NewEngine(ts store.TableStore) *Engine {
	return &Engine{
		store:   ts,
		scope:   NewScope(),
		schemas: cache.New(cache.DefaultConfig()),
		logger:  logging.NewLogger("engine"),
	}
}

// Scope returns the session scope. Shell commands bind variables here.
func (e *Engine) Scope() *Scope { return e.scope }

// Store returns the underlying table store.
func (e *Engine) Store() store.TableStore { return e.store }

// Result is the outcome of one statement. SELECT and SCAN results hold
// their rows behind an iterator so the store's pagination stays lazy:
// stream them with Each, or call Drain to materialize Items. Count and
// ScannedCount are known once the stream has been consumed. Statements
// that must see every row before answering (COUNT, client-side ORDER
// BY over a scan, UPDATE ... RETURNS) arrive already materialized.
type Result struct {
	Kind         string       // statement kind, e.g. "SELECT"
	Columns      []string     // ordered output columns, when explicit
	Items        []store.Item // result rows, once materialized
	Count        int          // matched rows, for reads
	ScannedCount int          // rows examined before filtering
	Affected     int          // rows written or deleted
	Message      string       // DDL and DUMP output
	Plan         []string     // EXPLAIN output
	Capacity     []metrics.CapacityUsage

	rows store.ItemIterator // pending row stream, nil once consumed
}

// Lazy reports whether rows are still pending behind the iterator.
func (r *Result) Lazy() bool { return r.rows != nil }

// Each streams the result's rows through fn, fetching store pages as
// needed. Materialized results replay Items. Count and ScannedCount
// are filled in when a pending stream ends.
func (r *Result) Each(fn func(store.Item) error) error {
	if r.rows == nil {
		for _, item := range r.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		return nil
	}
	it := r.rows
	r.rows = nil
	n := 0
	for it.Next() {
		n++
		if err := fn(it.Item()); err != nil {
			return err
		}
	}
	r.Count = n
	r.ScannedCount = it.ScannedCount()
	if err := it.Err(); err != nil {
		return WrapStoreError(err)
	}
	return nil
}

// Drain materializes a pending row stream into Items. A result without
// one is returned unchanged.
func (r *Result) Drain() error {
	if r.rows == nil {
		return nil
	}
	it := r.rows
	r.rows = nil
	items, scanned, err := drain(it)
	if err != nil {
		return err
	}
	r.Items = items
	r.Count = len(items)
	r.ScannedCount = scanned
	return nil
}

// StatementKind names a statement for display and metrics.
func StatementKind(stmt Statement) string {
	switch s := stmt.(type) {
	case *SelectStatement:
		return "SELECT"
	case *ScanStatement:
		return "SCAN"
	case *CountStatement:
		return "COUNT"
	case *InsertStatement:
		return "INSERT"
	case *UpdateStatement:
		return "UPDATE"
	case *DeleteStatement:
		return "DELETE"
	case *CreateStatement:
		return "CREATE"
	case *DropStatement:
		return "DROP"
	case *AlterStatement:
		return "ALTER"
	case *DumpStatement:
		return "DUMP"
	case *ExplainStatement:
		return "EXPLAIN " + StatementKind(s.Target)
	case *AnalyzeStatement:
		return "ANALYZE " + StatementKind(s.Target)
	}
	return "UNKNOWN"
}

// Execute parses and executes one statement.
func (e *Engine) Execute(ctx context.Context, input string) (*Result, error) {
	stmt, err := Parse(input, e.scope)
	if err != nil {
		metrics.Get().RecordStatementError()
		return nil, err
	}
	return e.ExecuteStatement(ctx, stmt)
}

// ExecuteStatement executes a parsed statement.
func (e *Engine) ExecuteStatement(ctx context.Context, stmt Statement) (*Result, error) {
	kind := StatementKind(stmt)
	start := time.Now()
	res, err := e.run(ctx, stmt)
	elapsed := time.Since(start)

	if err != nil {
		metrics.Get().RecordStatementError()
		e.logger.Debug("Statement failed", "kind", kind, "error", err,
			"duration_ms", fmt.Sprintf("%.2f", float64(elapsed.Microseconds())/1000.0))
		return nil, err
	}
	metrics.Get().RecordStatement(kind, elapsed)
	res.Kind = kind
	e.logger.Debug("Statement executed", "kind", kind,
		"count", res.Count, "scanned", res.ScannedCount, "affected", res.Affected,
		"duration_ms", fmt.Sprintf("%.2f", float64(elapsed.Microseconds())/1000.0))
	return res, nil
}

func (e *Engine) run(ctx context.Context, stmt Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *SelectStatement:
		return e.execSelect(ctx, s)
	case *ScanStatement:
		return e.execScan(ctx, s)
	case *CountStatement:
		return e.execCount(ctx, s)
	case *InsertStatement:
		return e.execInsert(ctx, s)
	case *UpdateStatement:
		return e.execUpdate(ctx, s)
	case *DeleteStatement:
		return e.execDelete(ctx, s)
	case *CreateStatement:
		return e.execCreate(ctx, s)
	case *DropStatement:
		return e.execDrop(ctx, s)
	case *AlterStatement:
		return e.execAlter(ctx, s)
	case *DumpStatement:
		return e.execDump(ctx, s)
	case *ExplainStatement:
		return e.execExplain(ctx, s)
	case *AnalyzeStatement:
		return e.execAnalyze(ctx, s)
	}
	return nil, NewEngineError(fmt.Sprintf("unsupported statement %T", stmt))
}

// TableMeta resolves table metadata, serving repeats from the schema
// cache.
func (e *Engine) TableMeta(ctx context.Context, table string) (*TableMeta, error) {
	if desc, ok := e.schemas.Get(table); ok {
		return NewTableMeta(desc), nil
	}
	desc, err := e.store.DescribeTable(ctx, table)
	if err != nil {
		if errors.Is(err, store.ErrTableNotFound) {
			return nil, TableNotFound(table)
		}
		return nil, WrapStoreError(err)
	}
	e.schemas.Set(desc)
	return NewTableMeta(desc), nil
}

// ListTables lists the store's tables.
func (e *Engine) ListTables(ctx context.Context) ([]string, error) {
	tables, err := e.store.ListTables(ctx)
	if err != nil {
		return nil, WrapStoreError(err)
	}
	return tables, nil
}

// ============================================================================
// Reads
// ============================================================================

func (e *Engine) execSelect(ctx context.Context, stmt *SelectStatement) (*Result, error) {
	meta, err := e.TableMeta(ctx, stmt.Table)
	if err != nil {
		return nil, err
	}

	if len(stmt.KeysIn) > 0 {
		keys, err := keyItems(meta, stmt.KeysIn)
		if err != nil {
			return nil, err
		}
		it, err := e.store.BatchGet(ctx, stmt.Table, keys, stmt.Consistent)
		if err != nil {
			return nil, WrapStoreError(err)
		}
		return e.readResult(it, stmt.Selection)
	}

	plan, err := BuildPlan(stmt.Where, meta, stmt.Using, e.AllowSelectScan)
	if err != nil {
		return nil, err
	}
	opts := planOptions{
		limit:      stmt.Limit,
		scanLimit:  stmt.ScanLimit,
		consistent: stmt.Consistent,
		orderBy:    stmt.OrderBy,
		desc:       stmt.Desc,
	}

	// A client-side sort over a scan needs the full row set; everything
	// else streams.
	if plan.Kind == PlanScan && stmt.OrderBy != "" {
		items, scanned, err := e.runPlan(ctx, stmt.Table, plan, opts)
		if err != nil {
			return nil, err
		}
		res := &Result{Count: len(items), ScannedCount: scanned}
		if stmt.Selection.Count {
			return res, nil
		}
		if !stmt.Selection.All {
			res.Columns = stmt.Selection.Keys()
			for i, item := range items {
				items[i] = stmt.Selection.Convert(item)
			}
		}
		res.Items = items
		return res, nil
	}

	it, err := e.openPlan(ctx, stmt.Table, plan, opts)
	if err != nil {
		return nil, err
	}
	return e.readResult(it, stmt.Selection)
}

// readResult wraps a row stream as a lazy result, applying any column
// selection per row as it is yielded. COUNT(*) consumes the stream on
// the spot: its answer is the count.
func (e *Engine) readResult(it store.ItemIterator, sel *SelectionExpression) (*Result, error) {
	if sel != nil && sel.Count {
		items, scanned, err := drain(it)
		if err != nil {
			return nil, err
		}
		return &Result{Count: len(items), ScannedCount: scanned}, nil
	}
	res := &Result{}
	if sel != nil && !sel.All {
		res.Columns = sel.Keys()
		it = &projectIterator{ItemIterator: it, sel: sel}
	}
	res.rows = it
	return res, nil
}

// projectIterator applies a column selection to each row as it is
// yielded.
type projectIterator struct {
	store.ItemIterator
	sel *SelectionExpression
}

func (it *projectIterator) Item() store.Item {
	return it.sel.Convert(it.ItemIterator.Item())
}

func (e *Engine) execScan(ctx context.Context, stmt *ScanStatement) (*Result, error) {
	meta, err := e.TableMeta(ctx, stmt.Table)
	if err != nil {
		return nil, err
	}
	idx, err := ScanIndex(meta, stmt.Using)
	if err != nil {
		return nil, err
	}
	it, err := e.store.Scan(ctx, &store.ScanInput{
		Table:     stmt.Table,
		Index:     storeIndexName(*idx),
		Filter:    filterExpression(stmt.Filter),
		Limit:     stmt.Limit,
		ScanLimit: stmt.ScanLimit,
	})
	if err != nil {
		return nil, WrapStoreError(err)
	}
	return e.readResult(it, nil)
}

func (e *Engine) execCount(ctx context.Context, stmt *CountStatement) (*Result, error) {
	meta, err := e.TableMeta(ctx, stmt.Table)
	if err != nil {
		return nil, err
	}
	plan, err := BuildPlan(stmt.Where, meta, stmt.Using, e.AllowSelectScan)
	if err != nil {
		return nil, err
	}
	items, scanned, err := e.runPlan(ctx, stmt.Table, plan, planOptions{
		consistent: stmt.Consistent,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Count: len(items), ScannedCount: scanned}, nil
}

// planOptions carries the per-statement knobs of a planned read.
type planOptions struct {
	limit      int
	scanLimit  int
	consistent bool
	orderBy    string
	desc       bool
}

// openPlan opens the row stream of an access plan. Query plans pass
// ORDER BY through to the store; a scan delivers items in storage
// order, so scan callers needing an order sort after draining.
func (e *Engine) openPlan(ctx context.Context, table string, plan *Plan, opts planOptions) (store.ItemIterator, error) {
	var it store.ItemIterator
	var err error
	switch plan.Kind {
	case PlanQuery:
		if opts.orderBy != "" && opts.orderBy != plan.Index.RangeKey {
			return nil, NewValidationError(fmt.Sprintf(
				"ORDER BY %s does not match the range key of index '%s'",
				opts.orderBy, plan.Index.Name))
		}
		it, err = e.store.Query(ctx, &store.QueryInput{
			Table:      table,
			Index:      storeIndexName(plan.Index),
			Key:        plan.Key,
			Filter:     filterExpression(plan.Filter),
			Limit:      opts.limit,
			ScanLimit:  opts.scanLimit,
			Consistent: opts.consistent,
			Desc:       opts.desc,
		})
	default:
		e.logger.Warn("No index serves the constraints, falling back to a scan",
			"table", table)
		it, err = e.store.Scan(ctx, &store.ScanInput{
			Table:     table,
			Index:     storeIndexName(plan.Index),
			Filter:    filterExpression(plan.Filter),
			Limit:     opts.limit,
			ScanLimit: opts.scanLimit,
		})
	}
	if err != nil {
		return nil, WrapStoreError(err)
	}
	return it, nil
}

// runPlan executes an access plan to completion, sorting scan output
// client-side when ordering was requested.
func (e *Engine) runPlan(ctx context.Context, table string, plan *Plan, opts planOptions) ([]store.Item, int, error) {
	it, err := e.openPlan(ctx, table, plan, opts)
	if err != nil {
		return nil, 0, err
	}
	items, scanned, err := drain(it)
	if err != nil {
		return nil, 0, err
	}
	if plan.Kind == PlanScan && opts.orderBy != "" {
		sortItems(items, opts.orderBy, opts.desc)
	}
	return items, scanned, nil
}

// ============================================================================
// Writes
// ============================================================================

func (e *Engine) execInsert(ctx context.Context, stmt *InsertStatement) (*Result, error) {
	if _, err := e.TableMeta(ctx, stmt.Table); err != nil {
		return nil, err
	}
	for i, item := range stmt.Items {
		if err := e.store.PutItem(ctx, stmt.Table, item); err != nil {
			return nil, PartialWriteError(i, err)
		}
	}
	return &Result{Affected: len(stmt.Items)}, nil
}

func (e *Engine) execUpdate(ctx context.Context, stmt *UpdateStatement) (*Result, error) {
	meta, err := e.TableMeta(ctx, stmt.Table)
	if err != nil {
		return nil, err
	}
	rows, err := e.collectTargetRows(ctx, meta, stmt.Where, stmt.KeysIn, stmt.Using)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for _, row := range rows {
		actions, err := stmt.Update.Actions(row, e.scope)
		if err != nil {
			return nil, err
		}
		out, err := e.store.UpdateItem(ctx, &store.UpdateItemInput{
			Table:   stmt.Table,
			Key:     primaryKeyOf(meta, row),
			Actions: actions,
			Returns: stmt.Returns,
		})
		if err != nil {
			return nil, PartialWriteError(res.Affected, err)
		}
		res.Affected++
		if stmt.Returns != store.ReturnNone {
			res.Items = append(res.Items, out)
		}
	}
	return res, nil
}

func (e *Engine) execDelete(ctx context.Context, stmt *DeleteStatement) (*Result, error) {
	meta, err := e.TableMeta(ctx, stmt.Table)
	if err != nil {
		return nil, err
	}
	rows, err := e.collectTargetRows(ctx, meta, stmt.Where, stmt.KeysIn, stmt.Using)
	if err != nil {
		return nil, err
	}
	deleted := 0
	for _, row := range rows {
		if err := e.store.DeleteItem(ctx, stmt.Table, primaryKeyOf(meta, row)); err != nil {
			return nil, PartialWriteError(deleted, err)
		}
		deleted++
	}
	return &Result{Affected: deleted}, nil
}

// collectTargetRows resolves the rows a write statement addresses.
// Writes read consistently and may always scan: they need the current
// rows either way.
func (e *Engine) collectTargetRows(ctx context.Context, meta *TableMeta,
	where ConstraintExpression, keysIn []KeyTuple, using string) ([]store.Item, error) {

	if len(keysIn) > 0 {
		keys, err := keyItems(meta, keysIn)
		if err != nil {
			return nil, err
		}
		it, err := e.store.BatchGet(ctx, meta.Name, keys, true)
		if err != nil {
			return nil, WrapStoreError(err)
		}
		rows, _, err := drain(it)
		return rows, err
	}
	plan, err := BuildPlan(where, meta, using, true)
	if err != nil {
		return nil, err
	}
	rows, _, err := e.runPlan(ctx, meta.Name, plan, planOptions{consistent: true})
	return rows, err
}

// ============================================================================
// DDL
// ============================================================================

func (e *Engine) execCreate(ctx context.Context, stmt *CreateStatement) (*Result, error) {
	err := e.store.CreateTable(ctx, stmt.Description)
	if err != nil {
		if errors.Is(err, store.ErrTableExists) {
			if stmt.IfNotExists {
				return &Result{Message: fmt.Sprintf(
					"table '%s' already exists, skipped", stmt.Description.Name)}, nil
			}
			return nil, NewEngineError(fmt.Sprintf(
				"table '%s' already exists", stmt.Description.Name))
		}
		return nil, WrapStoreError(err)
	}
	e.schemas.Invalidate(stmt.Description.Name)
	return &Result{Message: fmt.Sprintf("table '%s' created", stmt.Description.Name)}, nil
}

func (e *Engine) execDrop(ctx context.Context, stmt *DropStatement) (*Result, error) {
	err := e.store.DeleteTable(ctx, stmt.Table)
	if err != nil {
		if errors.Is(err, store.ErrTableNotFound) {
			if stmt.IfExists {
				return &Result{Message: fmt.Sprintf(
					"table '%s' does not exist, skipped", stmt.Table)}, nil
			}
			return nil, TableNotFound(stmt.Table)
		}
		return nil, WrapStoreError(err)
	}
	e.schemas.Invalidate(stmt.Table)
	return &Result{Message: fmt.Sprintf("table '%s' dropped", stmt.Table)}, nil
}

func (e *Engine) execAlter(ctx context.Context, stmt *AlterStatement) (*Result, error) {
	in := &store.UpdateTableInput{
		Table:           stmt.Table,
		Throughput:      stmt.Throughput,
		IndexName:       stmt.IndexName,
		IndexThroughput: stmt.IndexThroughput,
		CreateIndex:     stmt.CreateIndex,
		DropIndex:       stmt.DropIndex,
	}
	err := e.store.UpdateTable(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTableNotFound):
			return nil, TableNotFound(stmt.Table)
		case errors.Is(err, store.ErrIndexExists) && stmt.IfNotExists:
			return &Result{Message: fmt.Sprintf(
				"index '%s' already exists, skipped", stmt.CreateIndex.Name)}, nil
		case errors.Is(err, store.ErrIndexNotFound) && stmt.IfExists:
			return &Result{Message: fmt.Sprintf(
				"index '%s' does not exist, skipped", stmt.DropIndex)}, nil
		}
		return nil, WrapStoreError(err)
	}
	e.schemas.Invalidate(stmt.Table)
	return &Result{Message: fmt.Sprintf("table '%s' altered", stmt.Table)}, nil
}

func (e *Engine) execDump(ctx context.Context, stmt *DumpStatement) (*Result, error) {
	tables := stmt.Tables
	if len(tables) == 0 {
		var err error
		if tables, err = e.ListTables(ctx); err != nil {
			return nil, err
		}
	}
	schemas := make([]string, 0, len(tables))
	for _, table := range tables {
		meta, err := e.TableMeta(ctx, table)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, meta.Schema())
	}
	return &Result{Message: strings.Join(schemas, "\n")}, nil
}

// ============================================================================
// EXPLAIN and ANALYZE
// ============================================================================

func (e *Engine) execExplain(ctx context.Context, stmt *ExplainStatement) (*Result, error) {
	rec := newRecordingStore(e.store)
	sub := &Engine{
		store:           rec,
		scope:           e.scope,
		schemas:         e.schemas,
		logger:          e.logger,
		AllowSelectScan: e.AllowSelectScan,
	}
	if _, err := sub.run(ctx, stmt.Target); err != nil {
		return nil, err
	}
	return &Result{Plan: rec.Calls()}, nil
}

func (e *Engine) execAnalyze(ctx context.Context, stmt *AnalyzeStatement) (*Result, error) {
	recorder, ok := e.store.(store.CapacitySettable)
	if !ok {
		res, err := e.run(ctx, stmt.Target)
		if err != nil {
			return nil, err
		}
		res.Message = "store does not report consumed capacity"
		return res, nil
	}
	collector := metrics.NewCapacityCollector()
	recorder.SetCapacityRecorder(collector)
	defer recorder.SetCapacityRecorder(nil)

	res, err := e.run(ctx, stmt.Target)
	if err != nil {
		return nil, err
	}
	// Capacity is recorded as rows are examined, so the stream must be
	// consumed before the snapshot.
	if err := res.Drain(); err != nil {
		return nil, err
	}
	res.Capacity = collector.Snapshot()
	return res, nil
}

// ============================================================================
// Helpers
// ============================================================================

// storeIndexName maps a query index to the store's index naming, where
// the primary key is the empty name.
func storeIndexName(idx QueryIndex) string {
	if idx.IsPrimary() {
		return ""
	}
	return idx.Name
}

// filterExpression renders a constraint tree as a store filter
// expression.
func filterExpression(c ConstraintExpression) *store.Expression {
	if c == nil {
		return nil
	}
	enc := NewEncoder()
	text := c.Build(enc)
	return &store.Expression{
		Text:   text,
		Names:  enc.AttributeNames(),
		Values: enc.ExpressionValues(),
	}
}

// keyItems resolves WHERE KEYS IN tuples against the table's key
// schema. Tuples are positional: hash value first, range value second
// for tables with a range key.
func keyItems(meta *TableMeta, tuples []KeyTuple) ([]store.Item, error) {
	keyLen := 1
	if meta.RangeKey != nil {
		keyLen = 2
	}
	keys := make([]store.Item, 0, len(tuples))
	for _, tuple := range tuples {
		if len(tuple) != keyLen {
			return nil, NewValidationError(fmt.Sprintf(
				"table '%s' keys have %d values, got %d", meta.Name, keyLen, len(tuple)))
		}
		key := store.Item{meta.HashKey.Name: tuple[0]}
		if keyLen == 2 {
			key[meta.RangeKey.Name] = tuple[1]
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// primaryKeyOf extracts an item's primary key attributes.
func primaryKeyOf(meta *TableMeta, item store.Item) store.Item {
	key := store.Item{meta.HashKey.Name: item[meta.HashKey.Name]}
	if meta.RangeKey != nil {
		key[meta.RangeKey.Name] = item[meta.RangeKey.Name]
	}
	return key
}

// drain exhausts an iterator into a slice.
func drain(it store.ItemIterator) ([]store.Item, int, error) {
	var items []store.Item
	for it.Next() {
		items = append(items, it.Item())
	}
	if err := it.Err(); err != nil {
		return nil, it.ScannedCount(), WrapStoreError(err)
	}
	return items, it.ScannedCount(), nil
}

// sortItems orders items by one attribute. Missing attributes sort
// last; incomparable pairs keep their relative order.
func sortItems(items []store.Item, field string, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aok := items[i][field]
		b, bok := items[j][field]
		if !aok || !bok {
			return aok && !bok
		}
		c, err := store.Compare(a, b)
		if err != nil {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
