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

package shell

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/olekukonko/tablewriter"

	"dql/internal/dql"
	"dql/internal/metrics"
	"dql/internal/store"
)

// renderer turns statement results into terminal output. The format
// modes mirror the config setting: "column" is a bordered grid,
// "expanded" is one attribute per line, "csv" and "json" are machine
// formats, and "smart" picks column or expanded based on how wide the
// rows are relative to the terminal.
type renderer struct {
	out    io.Writer
	format string
}

// render prints one statement result. elapsed is shown when timing is
// enabled.
func (r *renderer) render(res *dql.Result, elapsed time.Duration, timing bool) {
	switch {
	case len(res.Plan) > 0:
		r.renderPlan(res)
	case res.Message != "":
		fmt.Fprintln(r.out, res.Message)
	case res.Items != nil || res.Columns != nil:
		r.renderItems(res)
	case res.Affected > 0 || isWriteKind(res.Kind):
		r.renderAffected(res)
	default:
		r.renderCount(res)
	}

	if len(res.Capacity) > 0 {
		r.renderCapacity(res.Capacity)
	}

	if timing {
		fmt.Fprintln(r.out, dimmed(fmt.Sprintf("Time: %.3f ms",
			float64(elapsed.Microseconds())/1000.0)))
	}
}

func isWriteKind(kind string) bool {
	switch kind {
	case "INSERT", "UPDATE", "DELETE":
		return true
	}
	return strings.HasPrefix(kind, "ANALYZE ") && isWriteKind(strings.TrimPrefix(kind, "ANALYZE "))
}

func (r *renderer) renderPlan(res *dql.Result) {
	fmt.Fprintln(r.out, highlight("Access plan:"))
	for i, line := range res.Plan {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, line)
	}
}

func (r *renderer) renderCount(res *dql.Result) {
	fmt.Fprintf(r.out, "Count: %d", res.Count)
	if res.ScannedCount > res.Count {
		fmt.Fprintf(r.out, " %s", dimmed(fmt.Sprintf("(scanned %d)", res.ScannedCount)))
	}
	fmt.Fprintln(r.out)
}

func (r *renderer) renderAffected(res *dql.Result) {
	// UPDATE ... RETURNS delivers rows alongside the affected count.
	if len(res.Items) > 0 {
		r.renderItems(res)
	}
	if res.Affected == 1 {
		fmt.Fprintln(r.out, success("1 row affected"))
	} else {
		fmt.Fprintln(r.out, success(fmt.Sprintf("%d rows affected", res.Affected)))
	}
}

func (r *renderer) renderItems(res *dql.Result) {
	columns := res.Columns
	if columns == nil {
		columns = unionColumns(res.Items)
	}

	if len(res.Items) == 0 {
		fmt.Fprintln(r.out, dimmed("(0 rows)"))
		return
	}

	format := r.format
	if format == "smart" {
		if rowsFit(columns, res.Items, terminalWidth()) {
			format = "column"
		} else {
			format = "expanded"
		}
	}

	switch format {
	case "expanded":
		r.renderExpanded(columns, res.Items)
	case "csv":
		r.renderCSV(columns, res.Items)
	case "json":
		r.renderJSON(res.Items)
	default:
		r.renderColumns(columns, res.Items)
	}

	if format != "csv" && format != "json" {
		if len(res.Items) == 1 {
			fmt.Fprintln(r.out, dimmed("(1 row)"))
		} else {
			fmt.Fprintln(r.out, dimmed(fmt.Sprintf("(%d rows)", len(res.Items))))
		}
	}
}

func (r *renderer) renderColumns(columns []string, items []store.Item) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, item := range items {
		table.Append(cellValues(columns, item))
	}
	table.Render()
}

func (r *renderer) renderExpanded(columns []string, items []store.Item) {
	for i, item := range items {
		fmt.Fprintln(r.out, dimmed(fmt.Sprintf("-[ RECORD %d ]-", i+1)))
		for _, col := range columns {
			v, ok := item[col]
			if !ok {
				continue
			}
			fmt.Fprintf(r.out, "%s %s\n", highlight(fmt.Sprintf("%-20s |", col)), dql.FormatValue(v))
		}
	}
}

func (r *renderer) renderCSV(columns []string, items []store.Item) {
	w := csv.NewWriter(r.out)
	w.Write(columns)
	for _, item := range items {
		w.Write(cellValues(columns, item))
	}
	w.Flush()
}

func (r *renderer) renderJSON(items []store.Item) {
	converted := make([]map[string]interface{}, len(items))
	for i, item := range items {
		row := make(map[string]interface{}, len(item))
		for k, v := range item {
			row[k] = jsonValue(v)
		}
		converted[i] = row
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	enc.Encode(converted)
}

func (r *renderer) renderCapacity(usages []metrics.CapacityUsage) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Table", "Index", "Op", "Read", "Write"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	var readTotal, writeTotal float64
	for _, u := range usages {
		table.Append([]string{u.Table, u.Index, u.Op,
			formatCapacity(u.Read), formatCapacity(u.Write)})
		readTotal += u.Read
		writeTotal += u.Write
	}
	table.SetFooter([]string{"", "", "Total",
		formatCapacity(readTotal), formatCapacity(writeTotal)})
	fmt.Fprintln(r.out, highlight("Consumed capacity:"))
	table.Render()
}

func formatCapacity(units float64) string {
	return fmt.Sprintf("%.1f", units)
}

// cellValues renders an item's values for one table or CSV row. Absent
// attributes render empty, which keeps them distinguishable from an
// explicit NULL.
func cellValues(columns []string, item store.Item) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		if v, ok := item[col]; ok {
			row[i] = dql.FormatValue(v)
		}
	}
	return row
}

// unionColumns collects every attribute name appearing in the items,
// sorted for stable output.
func unionColumns(items []store.Item) []string {
	seen := map[string]bool{}
	for _, item := range items {
		for k := range item {
			seen[k] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

// rowsFit estimates whether a column rendering fits the terminal.
func rowsFit(columns []string, items []store.Item, width int) bool {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, item := range items {
		for i, col := range columns {
			if v, ok := item[col]; ok {
				if n := len(dql.FormatValue(v)); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}
	total := 1
	for _, w := range widths {
		total += w + 3 // padding and border per column
	}
	return total <= width
}

// jsonValue converts a store value into something encoding/json can
// represent faithfully. Decimals become raw numbers, binary becomes
// base64, sets become sorted arrays.
func jsonValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *apd.Decimal:
		return json.RawMessage(val.Text('f'))
	case store.Binary:
		return base64.StdEncoding.EncodeToString(val)
	case store.Set:
		members := make([]interface{}, len(val))
		for i, member := range val {
			members[i] = jsonValue(member)
		}
		return members
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = jsonValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = jsonValue(item)
		}
		return out
	default:
		return v
	}
}
