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
Query planning.

The planner turns a constraint tree plus table metadata into an access
plan: which index to drive, the key condition it serves, and the
residual filter. Index choice is deterministic: candidates are
enumerated primary key first, then local indexes, then global indexes
in schema order, and the first index whose hash key the constraints can
serve wins. Candidates whose range key is also served are preferred
over those matched on hash alone.

When nothing matches, the plan degrades to a table scan, which the
caller gates: interactive SELECTs refuse to scan unless the session
opts in, while SCAN statements always scan.
*/

package dql

import (
	"dql/internal/store"
)

// PlanKind separates index queries from scans.
type PlanKind int

const (
	PlanQuery PlanKind = iota
	PlanScan
)

// Plan is a resolved access path: the index to drive, the key
// condition for query plans, and the residual filter evaluated
// store-side.
type Plan struct {
	Kind   PlanKind
	Index  QueryIndex
	Key    store.KeyCondition
	Filter ConstraintExpression
}

// matchingIndexes lists the indexes the constraints can query, in
// precedence order.
func matchingIndexes(c ConstraintExpression, meta *TableMeta) []QueryIndex {
	if c == nil {
		return nil
	}
	return meta.GetMatchingIndexes(c.PossibleHashFields(), c.PossibleRangeFields())
}

// SelectIndex picks the index for a constraint tree. A USING clause
// pins the choice and fails when the constraints cannot serve that
// index's keys; otherwise the first matching index in precedence order
// wins. Returns nil when no index matches and the statement should
// fall back to a scan.
func SelectIndex(c ConstraintExpression, meta *TableMeta, using string) (*QueryIndex, error) {
	if using != "" {
		idx, ok := meta.GetIndex(using)
		if !ok {
			return nil, NewValidationError(
				"no index named '" + using + "' on table '" + meta.Name + "'")
		}
		for _, m := range matchingIndexes(c, meta) {
			if m.Name == using {
				return &idx, nil
			}
		}
		return nil, IndexKeyMismatch(using)
	}
	matches := matchingIndexes(c, meta)
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// BuildPlan plans a constrained read. When no index matches, allowScan
// decides between a table scan and a planning error.
func BuildPlan(c ConstraintExpression, meta *TableMeta, using string, allowScan bool) (*Plan, error) {
	idx, err := SelectIndex(c, meta, using)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		if !allowScan {
			return nil, NoIndexAvailable(meta.Name)
		}
		return &Plan{Kind: PlanScan, Index: meta.QueryIndexes()[0], Filter: c}, nil
	}
	query, filter := SplitForIndex(c, idx)
	key, err := ExtractKeyCondition(query, idx)
	if err != nil {
		return nil, err
	}
	return &Plan{Kind: PlanQuery, Index: *idx, Key: key, Filter: filter}, nil
}

// ScanIndex resolves the target of an explicit scan. Local indexes
// have no storage of their own to walk, so they cannot be scanned.
func ScanIndex(meta *TableMeta, using string) (*QueryIndex, error) {
	if using == "" {
		primary := meta.QueryIndexes()[0]
		return &primary, nil
	}
	idx, ok := meta.GetIndex(using)
	if !ok {
		return nil, NewValidationError(
			"no index named '" + using + "' on table '" + meta.Name + "'")
	}
	if !idx.Scannable {
		return nil, IndexNotScannable(using)
	}
	return &idx, nil
}

// ExtractKeyCondition converts the query side of a split constraint
// into the store's key condition form. The constraints arrive already
// filtered by SplitForIndex, so every piece serves one of the index's
// keys.
func ExtractKeyCondition(query ConstraintExpression, idx *QueryIndex) (store.KeyCondition, error) {
	key := store.KeyCondition{}
	pieces := []ConstraintExpression{query}
	if conj, ok := query.(*Conjunction); ok {
		pieces = conj.Pieces
	}
	for _, p := range pieces {
		switch t := p.(type) {
		case *OperatorConstraint:
			if t.Field == idx.HashKey && t.Operator == OpEQ && key.HashField == "" {
				key.HashField = t.Field
				key.HashValue = t.Value
				continue
			}
			if t.Field == idx.RangeKey && key.RangeOp == "" {
				key.RangeField = t.Field
				key.RangeOp = rangeOpOf(t.Operator)
				key.RangeValues = []interface{}{t.Value}
				continue
			}
		case *BetweenConstraint:
			if t.Field == idx.RangeKey && key.RangeOp == "" {
				key.RangeField = t.Field
				key.RangeOp = store.RangeBetween
				key.RangeValues = []interface{}{t.Low, t.High}
				continue
			}
		case *FunctionConstraint:
			if t.Name == "begins_with" && t.Field == idx.RangeKey && key.RangeOp == "" {
				key.RangeField = t.Field
				key.RangeOp = store.RangeBeginsWith
				key.RangeValues = []interface{}{t.Operand}
				continue
			}
		}
		return key, NewEngineError("constraint cannot serve a key condition: " + ConstraintString(p))
	}
	if key.HashField == "" {
		return key, NewEngineError("key condition is missing a hash key constraint")
	}
	return key, nil
}

func rangeOpOf(op string) string {
	switch op {
	case OpEQ:
		return store.RangeEQ
	case OpLT:
		return store.RangeLT
	case OpLE:
		return store.RangeLE
	case OpGT:
		return store.RangeGT
	case OpGE:
		return store.RangeGE
	}
	return op
}
