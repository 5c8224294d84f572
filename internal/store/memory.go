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
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/apd/v3"
)

// MemoryStore is an in-memory TableStore. Items are kept sorted by
// primary key; index queries sort a filtered view on demand. It is safe
// for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	tables   map[string]*memTable
	recorder CapacityRecorder
}

type memTable struct {
	desc  *TableDescription
	items []Item
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: map[string]*memTable{}}
}

// SetCapacityRecorder installs a sink for consumed-capacity accounting.
func (m *MemoryStore) SetCapacityRecorder(r CapacityRecorder) {
	m.mu.Lock()
	m.recorder = r
	m.mu.Unlock()
}

func (m *MemoryStore) record(table, index, op string, read, write float64) {
	if m.recorder != nil {
		m.recorder.RecordCapacity(table, index, op, read, write)
	}
}

// ListTables returns all table names, sorted.
func (m *MemoryStore) ListTables(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DescribeTable returns a copy of the table's description.
func (m *MemoryStore) DescribeTable(ctx context.Context, table string) (*TableDescription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[table]
	if !ok {
		return nil, ErrTableNotFound
	}
	return copyDescription(t.desc), nil
}

// CreateTable registers a new table.
func (m *MemoryStore) CreateTable(ctx context.Context, desc *TableDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[desc.Name]; ok {
		return ErrTableExists
	}
	d := copyDescription(desc)
	d.Status = "ACTIVE"
	d.ItemCount = 0
	d.Size = 0
	m.tables[desc.Name] = &memTable{desc: d}
	return nil
}

// DeleteTable removes a table and its items.
func (m *MemoryStore) DeleteTable(ctx context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; !ok {
		return ErrTableNotFound
	}
	delete(m.tables, table)
	return nil
}

// UpdateTable alters throughput or global indexes.
func (m *MemoryStore) UpdateTable(ctx context.Context, in *UpdateTableInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[in.Table]
	if !ok {
		return ErrTableNotFound
	}
	switch {
	case in.Throughput != nil:
		t.desc.Throughput = *in.Throughput
	case in.IndexThroughput != nil:
		for i := range t.desc.GlobalIndexes {
			if t.desc.GlobalIndexes[i].Name == in.IndexName {
				t.desc.GlobalIndexes[i].Throughput = *in.IndexThroughput
				return nil
			}
		}
		return ErrIndexNotFound
	case in.CreateIndex != nil:
		for i := range t.desc.GlobalIndexes {
			if t.desc.GlobalIndexes[i].Name == in.CreateIndex.Name {
				return ErrIndexExists
			}
		}
		t.desc.GlobalIndexes = append(t.desc.GlobalIndexes, *in.CreateIndex)
	case in.DropIndex != "":
		for i := range t.desc.GlobalIndexes {
			if t.desc.GlobalIndexes[i].Name == in.DropIndex {
				t.desc.GlobalIndexes = append(t.desc.GlobalIndexes[:i],
					t.desc.GlobalIndexes[i+1:]...)
				return nil
			}
		}
		return ErrIndexNotFound
	}
	return nil
}

// indexSchema is the resolved key schema and projection of the index a
// read goes through.
type indexSchema struct {
	hashField  string
	rangeField string
	project    func(Item) Item
	scannable  bool
}

func (m *MemoryStore) resolveIndex(t *memTable, name string) (*indexSchema, error) {
	desc := t.desc
	if name == "" {
		s := &indexSchema{hashField: desc.HashKey.Name, scannable: true,
			project: func(it Item) Item { return it.Copy() }}
		if desc.RangeKey != nil {
			s.rangeField = desc.RangeKey.Name
		}
		return s, nil
	}
	for _, lsi := range desc.LocalIndexes {
		if lsi.Name == name {
			return &indexSchema{
				hashField:  desc.HashKey.Name,
				rangeField: lsi.RangeKey.Name,
				project: projection(desc, lsi.Projection, lsi.Includes,
					lsi.RangeKey.Name),
			}, nil
		}
	}
	for _, gsi := range desc.GlobalIndexes {
		if gsi.Name == name {
			s := &indexSchema{hashField: gsi.HashKey.Name, scannable: true}
			keys := []string{gsi.HashKey.Name}
			if gsi.RangeKey != nil {
				s.rangeField = gsi.RangeKey.Name
				keys = append(keys, gsi.RangeKey.Name)
			}
			s.project = projection(desc, gsi.Projection, gsi.Includes, keys...)
			return s, nil
		}
	}
	return nil, ErrIndexNotFound
}

// projection narrows an item to the attributes an index materializes.
func projection(desc *TableDescription, class string, includes []string, indexKeys ...string) func(Item) Item {
	if class == "" || class == ProjectAll {
		return func(it Item) Item { return it.Copy() }
	}
	keep := map[string]bool{desc.HashKey.Name: true}
	if desc.RangeKey != nil {
		keep[desc.RangeKey.Name] = true
	}
	for _, k := range indexKeys {
		keep[k] = true
	}
	if class == ProjectInclude {
		for _, k := range includes {
			keep[k] = true
		}
	}
	return func(it Item) Item {
		out := make(Item, len(keep))
		for k := range keep {
			if v, ok := it[k]; ok {
				out[k] = copyValue(v)
			}
		}
		return out
	}
}

// Query returns items matching a key condition on one index, in range
// key order.
func (m *MemoryStore) Query(ctx context.Context, in *QueryInput) (ItemIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[in.Table]
	if !ok {
		return nil, ErrTableNotFound
	}
	schema, err := m.resolveIndex(t, in.Index)
	if err != nil {
		return nil, err
	}
	if in.Key.HashField != schema.hashField {
		return nil, fmt.Errorf("hash key condition on %q does not match index key %q",
			in.Key.HashField, schema.hashField)
	}

	var matched []Item
	for _, it := range t.items {
		hv, ok := it[schema.hashField]
		if !ok || !Equal(hv, in.Key.HashValue) {
			continue
		}
		if in.Key.RangeOp != "" {
			rv, ok := it[in.Key.RangeField]
			if !ok || !rangeMatches(rv, in.Key.RangeOp, in.Key.RangeValues) {
				continue
			}
		} else if schema.rangeField != "" && in.Index != "" {
			// Sparse index: items without the index range key are
			// invisible to it.
			if _, ok := it[schema.rangeField]; !ok {
				continue
			}
		}
		matched = append(matched, schema.project(it))
	}
	if schema.rangeField != "" {
		sortByField(matched, schema.rangeField, in.Desc)
	}

	rcu := 0.5
	if in.Consistent {
		rcu = 1.0
	}
	rec := m.recorder
	table, index := in.Table, in.Index
	return &memIterator{
		items:     matched,
		filter:    in.Filter,
		limit:     in.Limit,
		scanLimit: in.ScanLimit,
		onExamine: func() {
			if rec != nil {
				rec.RecordCapacity(table, index, "Query", rcu, 0)
			}
		},
	}, nil
}

// Scan walks every item of the table or of a global index.
func (m *MemoryStore) Scan(ctx context.Context, in *ScanInput) (ItemIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[in.Table]
	if !ok {
		return nil, ErrTableNotFound
	}
	schema, err := m.resolveIndex(t, in.Index)
	if err != nil {
		return nil, err
	}
	if !schema.scannable {
		return nil, fmt.Errorf("index %q cannot be scanned", in.Index)
	}
	var items []Item
	for _, it := range t.items {
		if in.Index != "" {
			// A global index only materializes items carrying its keys.
			if _, ok := it[schema.hashField]; !ok {
				continue
			}
			if schema.rangeField != "" {
				if _, ok := it[schema.rangeField]; !ok {
					continue
				}
			}
		}
		items = append(items, schema.project(it))
	}
	rec := m.recorder
	table, index := in.Table, in.Index
	return &memIterator{
		items:     items,
		filter:    in.Filter,
		limit:     in.Limit,
		scanLimit: in.ScanLimit,
		onExamine: func() {
			if rec != nil {
				rec.RecordCapacity(table, index, "Scan", 0.5, 0)
			}
		},
	}, nil
}

// BatchGet fetches items by full primary key. Missing keys are skipped.
func (m *MemoryStore) BatchGet(ctx context.Context, table string, keys []Item, consistent bool) (ItemIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[table]
	if !ok {
		return nil, ErrTableNotFound
	}
	rcu := 0.5
	if consistent {
		rcu = 1.0
	}
	var items []Item
	for _, key := range keys {
		if it := t.find(key); it != nil {
			items = append(items, it.Copy())
		}
		m.record(table, "", "BatchGet", rcu, 0)
	}
	return &memIterator{items: items}, nil
}

// PutItem writes a full item, replacing any existing item with the same
// primary key.
func (m *MemoryStore) PutItem(ctx context.Context, table string, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	if err := t.checkKey(item); err != nil {
		return err
	}
	stored := item.Copy()
	if old := t.find(item); old != nil {
		t.replace(old, stored)
	} else {
		t.insert(stored)
	}
	m.record(table, "", "PutItem", 0, 1)
	return nil
}

// UpdateItem applies update actions to one item, creating it when
// absent. The returned item honors the Returns argument and is nil for
// ReturnNone.
func (m *MemoryStore) UpdateItem(ctx context.Context, in *UpdateItemInput) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[in.Table]
	if !ok {
		return nil, ErrTableNotFound
	}
	if err := t.checkKey(in.Key); err != nil {
		return nil, err
	}

	item := t.find(in.Key)
	var old Item
	if item == nil {
		item = in.Key.Copy()
		t.insert(item)
	} else {
		old = item.Copy()
	}
	for _, act := range in.Actions {
		if err := applyAction(item, act); err != nil {
			return nil, err
		}
	}
	m.record(in.Table, "", "UpdateItem", 0, 1)

	switch in.Returns {
	case ReturnAllOld:
		return old, nil
	case ReturnAllNew:
		return item.Copy(), nil
	case ReturnUpdatedOld:
		return updatedSubset(old, in.Actions), nil
	case ReturnUpdatedNew:
		return updatedSubset(item, in.Actions), nil
	}
	return nil, nil
}

// DeleteItem removes the item with the given primary key. Deleting a
// missing item is not an error.
func (m *MemoryStore) DeleteItem(ctx context.Context, table string, key Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	if err := t.checkKey(key); err != nil {
		return err
	}
	if it := t.find(key); it != nil {
		t.remove(it)
	}
	m.record(table, "", "DeleteItem", 0, 1)
	return nil
}

func applyAction(item Item, act UpdateAction) error {
	switch act.Kind {
	case ActionSet:
		if act.Value == nil {
			delete(item, act.Field)
		} else {
			item[act.Field] = copyValue(act.Value)
		}
	case ActionAdd:
		cur, exists := item[act.Field]
		if !exists {
			item[act.Field] = copyValue(act.Value)
			return nil
		}
		if set, ok := act.Value.(Set); ok {
			curSet, ok := cur.(Set)
			if !ok {
				return fmt.Errorf("ADD of a set to non-set attribute %q", act.Field)
			}
			for _, e := range set {
				curSet = curSet.Add(e)
			}
			item[act.Field] = curSet
			return nil
		}
		sum, err := addNumbers(cur, act.Value)
		if err != nil {
			return fmt.Errorf("ADD to attribute %q: %w", act.Field, err)
		}
		item[act.Field] = sum
	case ActionDelete:
		cur, exists := item[act.Field]
		if !exists {
			return nil
		}
		curSet, ok := cur.(Set)
		if !ok {
			return fmt.Errorf("DELETE from non-set attribute %q", act.Field)
		}
		del, ok := act.Value.(Set)
		if !ok {
			return fmt.Errorf("DELETE from attribute %q needs a set operand", act.Field)
		}
		for _, e := range del {
			curSet = curSet.Remove(e)
		}
		if len(curSet) == 0 {
			delete(item, act.Field)
		} else {
			item[act.Field] = curSet
		}
	case ActionRemove:
		delete(item, act.Field)
	}
	return nil
}

func addNumbers(a, b interface{}) (interface{}, error) {
	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			return ia + ib, nil
		}
	}
	da, ok := ToDecimal(a)
	if !ok {
		return nil, fmt.Errorf("%T is not a number", a)
	}
	db, ok := ToDecimal(b)
	if !ok {
		return nil, fmt.Errorf("%T is not a number", b)
	}
	var out apd.Decimal
	if _, err := apd.BaseContext.WithPrecision(38).Add(&out, da, db); err != nil {
		return nil, err
	}
	return &out, nil
}

func updatedSubset(item Item, actions []UpdateAction) Item {
	if item == nil {
		return nil
	}
	out := Item{}
	for _, act := range actions {
		if v, ok := item[act.Field]; ok {
			out[act.Field] = copyValue(v)
		}
	}
	return out
}

func (t *memTable) checkKey(item Item) error {
	hv, ok := item[t.desc.HashKey.Name]
	if !ok {
		return fmt.Errorf("item is missing hash key %q", t.desc.HashKey.Name)
	}
	if AttributeTypeOf(hv) != t.desc.HashKey.Type {
		return fmt.Errorf("hash key %q must be of type %s", t.desc.HashKey.Name,
			t.desc.HashKey.Type)
	}
	if t.desc.RangeKey != nil {
		rv, ok := item[t.desc.RangeKey.Name]
		if !ok {
			return fmt.Errorf("item is missing range key %q", t.desc.RangeKey.Name)
		}
		if AttributeTypeOf(rv) != t.desc.RangeKey.Type {
			return fmt.Errorf("range key %q must be of type %s", t.desc.RangeKey.Name,
				t.desc.RangeKey.Type)
		}
	}
	return nil
}

// sameKey reports whether two items share a primary key.
func sameKey(desc *TableDescription, a, b Item) bool {
	if !Equal(a[desc.HashKey.Name], b[desc.HashKey.Name]) {
		return false
	}
	if desc.RangeKey != nil {
		return Equal(a[desc.RangeKey.Name], b[desc.RangeKey.Name])
	}
	return true
}

// find returns the stored item with the same primary key, or nil.
func (t *memTable) find(key Item) Item {
	for _, it := range t.items {
		if sameKey(t.desc, it, key) {
			return it
		}
	}
	return nil
}

func (t *memTable) insert(item Item) {
	t.items = append(t.items, item)
	hash := t.desc.HashKey.Name
	rangeField := ""
	if t.desc.RangeKey != nil {
		rangeField = t.desc.RangeKey.Name
	}
	sort.SliceStable(t.items, func(i, j int) bool {
		if c, err := Compare(t.items[i][hash], t.items[j][hash]); err == nil && c != 0 {
			return c < 0
		}
		if rangeField != "" {
			c, err := Compare(t.items[i][rangeField], t.items[j][rangeField])
			return err == nil && c < 0
		}
		return false
	})
	t.desc.ItemCount++
	t.desc.Size += itemSize(item)
}

func (t *memTable) replace(old, item Item) {
	for i := range t.items {
		if sameKey(t.desc, t.items[i], old) {
			t.desc.Size += itemSize(item) - itemSize(t.items[i])
			t.items[i] = item
			return
		}
	}
}

func (t *memTable) remove(item Item) {
	for i := range t.items {
		if sameKey(t.desc, t.items[i], item) {
			t.desc.Size -= itemSize(t.items[i])
			t.desc.ItemCount--
			t.items = append(t.items[:i], t.items[i+1:]...)
			return
		}
	}
}

// itemSize is a rough stored-size estimate used for table statistics.
func itemSize(item Item) int64 {
	var n int64
	for k, v := range item {
		n += int64(len(k)) + valueSize(v)
	}
	return n
}

func valueSize(v interface{}) int64 {
	switch t := v.(type) {
	case string:
		return int64(len(t))
	case Binary:
		return int64(len(t))
	case Set:
		var n int64
		for _, e := range t {
			n += valueSize(e)
		}
		return n
	case []interface{}:
		var n int64
		for _, e := range t {
			n += valueSize(e)
		}
		return n
	case map[string]interface{}:
		var n int64
		for k, e := range t {
			n += int64(len(k)) + valueSize(e)
		}
		return n
	default:
		return 8
	}
}

func rangeMatches(v interface{}, op string, args []interface{}) bool {
	switch op {
	case RangeEQ:
		return Equal(v, args[0])
	case RangeBeginsWith:
		if s, ok := v.(string); ok {
			prefix, ok := args[0].(string)
			return ok && len(s) >= len(prefix) && s[:len(prefix)] == prefix
		}
		return false
	case RangeBetween:
		lo, err1 := Compare(v, args[0])
		hi, err2 := Compare(v, args[1])
		return err1 == nil && err2 == nil && lo >= 0 && hi <= 0
	}
	c, err := Compare(v, args[0])
	if err != nil {
		return false
	}
	switch op {
	case RangeLT:
		return c < 0
	case RangeLE:
		return c <= 0
	case RangeGT:
		return c > 0
	case RangeGE:
		return c >= 0
	}
	return false
}

func sortByField(items []Item, field string, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		c, err := Compare(items[i][field], items[j][field])
		if err != nil {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func copyDescription(d *TableDescription) *TableDescription {
	out := *d
	if d.RangeKey != nil {
		rk := *d.RangeKey
		out.RangeKey = &rk
	}
	out.LocalIndexes = append([]LocalIndex(nil), d.LocalIndexes...)
	out.GlobalIndexes = append([]GlobalIndex(nil), d.GlobalIndexes...)
	for i := range out.GlobalIndexes {
		if out.GlobalIndexes[i].RangeKey != nil {
			rk := *out.GlobalIndexes[i].RangeKey
			out.GlobalIndexes[i].RangeKey = &rk
		}
	}
	return &out
}

// memIterator pages through a pre-computed result slice, applying the
// filter expression and limits lazily.
type memIterator struct {
	items     []Item
	filter    *Expression
	limit     int
	scanLimit int
	onExamine func()

	pos      int
	scanned  int
	returned int
	cur      Item
	err      error
}

func (it *memIterator) Next() bool {
	for it.pos < len(it.items) {
		if it.limit > 0 && it.returned >= it.limit {
			return false
		}
		if it.scanLimit > 0 && it.scanned >= it.scanLimit {
			return false
		}
		item := it.items[it.pos]
		it.pos++
		it.scanned++
		if it.onExamine != nil {
			it.onExamine()
		}
		ok, err := EvalExpression(it.filter, item)
		if err != nil {
			it.err = err
			return false
		}
		if !ok {
			continue
		}
		it.cur = item
		it.returned++
		return true
	}
	return false
}

func (it *memIterator) Item() Item        { return it.cur }
func (it *memIterator) Err() error        { return it.err }
func (it *memIterator) ScannedCount() int { return it.scanned }
