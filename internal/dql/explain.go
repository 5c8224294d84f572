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
EXPLAIN support.

EXPLAIN runs its target statement against a recording decorator of the
real store: reads and writes are captured as one line each instead of
executing, while metadata lookups pass through so planning sees the
real schema. Reads return no items, so a write statement driven by a
query records the read it would issue and nothing else; planning
errors surface exactly as they would without EXPLAIN.
*/

package dql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"dql/internal/store"
)

// recordingStore captures the store calls a statement would make.
type recordingStore struct {
	inner store.TableStore
	calls []string
}

func newRecordingStore(inner store.TableStore) *recordingStore {
	return &recordingStore{inner: inner}
}

// Calls returns the recorded call lines in order.
func (r *recordingStore) Calls() []string { return r.calls }

func (r *recordingStore) record(format string, args ...interface{}) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recordingStore) ListTables(ctx context.Context) ([]string, error) {
	return r.inner.ListTables(ctx)
}

func (r *recordingStore) DescribeTable(ctx context.Context, table string) (*store.TableDescription, error) {
	return r.inner.DescribeTable(ctx, table)
}

func (r *recordingStore) CreateTable(ctx context.Context, desc *store.TableDescription) error {
	r.record("CreateTable: table=%s", desc.Name)
	return nil
}

func (r *recordingStore) DeleteTable(ctx context.Context, table string) error {
	r.record("DeleteTable: table=%s", table)
	return nil
}

func (r *recordingStore) UpdateTable(ctx context.Context, in *store.UpdateTableInput) error {
	switch {
	case in.CreateIndex != nil:
		r.record("UpdateTable: table=%s create-index=%s", in.Table, in.CreateIndex.Name)
	case in.DropIndex != "":
		r.record("UpdateTable: table=%s drop-index=%s", in.Table, in.DropIndex)
	case in.IndexThroughput != nil:
		r.record("UpdateTable: table=%s index=%s throughput=(%d, %d)",
			in.Table, in.IndexName, in.IndexThroughput.Read, in.IndexThroughput.Write)
	default:
		r.record("UpdateTable: table=%s throughput=(%d, %d)",
			in.Table, in.Throughput.Read, in.Throughput.Write)
	}
	return nil
}

func (r *recordingStore) Query(ctx context.Context, in *store.QueryInput) (store.ItemIterator, error) {
	line := fmt.Sprintf("Query: table=%s index=%s key=(%s)",
		in.Table, indexOrPrimary(in.Index), keyConditionText(in.Key))
	line += filterSuffix(in.Filter)
	if in.Limit > 0 {
		line += fmt.Sprintf(" limit=%d", in.Limit)
	}
	if in.ScanLimit > 0 {
		line += fmt.Sprintf(" scan-limit=%d", in.ScanLimit)
	}
	if in.Consistent {
		line += " consistent=true"
	}
	if in.Desc {
		line += " order=desc"
	}
	r.calls = append(r.calls, line)
	return emptyIterator{}, nil
}

func (r *recordingStore) Scan(ctx context.Context, in *store.ScanInput) (store.ItemIterator, error) {
	line := fmt.Sprintf("Scan: table=%s index=%s", in.Table, indexOrPrimary(in.Index))
	line += filterSuffix(in.Filter)
	if in.Limit > 0 {
		line += fmt.Sprintf(" limit=%d", in.Limit)
	}
	if in.ScanLimit > 0 {
		line += fmt.Sprintf(" scan-limit=%d", in.ScanLimit)
	}
	r.calls = append(r.calls, line)
	return emptyIterator{}, nil
}

func (r *recordingStore) BatchGet(ctx context.Context, table string, keys []store.Item, consistent bool) (store.ItemIterator, error) {
	r.record("BatchGet: table=%s keys=%d consistent=%t", table, len(keys), consistent)
	return emptyIterator{}, nil
}

func (r *recordingStore) PutItem(ctx context.Context, table string, item store.Item) error {
	r.record("PutItem: table=%s", table)
	return nil
}

func (r *recordingStore) UpdateItem(ctx context.Context, in *store.UpdateItemInput) (store.Item, error) {
	r.record("UpdateItem: table=%s actions=%d returns=%s", in.Table, len(in.Actions), in.Returns)
	return nil, nil
}

func (r *recordingStore) DeleteItem(ctx context.Context, table string, key store.Item) error {
	r.record("DeleteItem: table=%s", table)
	return nil
}

// keyConditionText renders a key condition with literal values.
func keyConditionText(k store.KeyCondition) string {
	text := k.HashField + " = " + FormatValue(k.HashValue)
	if k.RangeOp == "" {
		return text
	}
	switch k.RangeOp {
	case store.RangeBetween:
		return fmt.Sprintf("%s AND %s BETWEEN %s AND %s", text, k.RangeField,
			FormatValue(k.RangeValues[0]), FormatValue(k.RangeValues[1]))
	case store.RangeBeginsWith:
		return fmt.Sprintf("%s AND begins_with(%s, %s)", text, k.RangeField,
			FormatValue(k.RangeValues[0]))
	default:
		return fmt.Sprintf("%s AND %s %s %s", text, k.RangeField,
			k.RangeOp, FormatValue(k.RangeValues[0]))
	}
}

func filterSuffix(expr *store.Expression) string {
	if expr == nil {
		return ""
	}
	// Substitute placeholders back for readability. Longest first, so
	// :v1 never clips :v10.
	subst := map[string]string{}
	for ph, name := range expr.Names {
		subst[ph] = name
	}
	for ph, value := range expr.Values {
		subst[ph] = FormatValue(value)
	}
	placeholders := make([]string, 0, len(subst))
	for ph := range subst {
		placeholders = append(placeholders, ph)
	}
	sort.Slice(placeholders, func(i, j int) bool {
		return len(placeholders[i]) > len(placeholders[j])
	})
	text := expr.Text
	for _, ph := range placeholders {
		text = strings.ReplaceAll(text, ph, subst[ph])
	}
	return " filter=(" + text + ")"
}

func indexOrPrimary(index string) string {
	if index == "" {
		return PrimaryIndexName
	}
	return index
}

// emptyIterator yields nothing.
type emptyIterator struct{}

func (emptyIterator) Next() bool { return false }

func (emptyIterator) Item() store.Item { return nil }

func (emptyIterator) Err() error { return nil }

func (emptyIterator) ScannedCount() int { return 0 }
