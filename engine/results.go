package engine

import (
	"github.com/google/uuid"
	"github.com/on-the-ground/calcgraph_go/engine/cache"
	"github.com/on-the-ground/calcgraph_go/engine/result"
	"github.com/on-the-ground/calcgraph_go/engine/trace"
	"github.com/rickb777/date/v2/timespan"
)

// ResultItem is the outcome of one cell with the call graph recorded for it.
// CallGraph is nil unless the cell was traced.
type ResultItem struct {
	Result    result.Result
	CallGraph *trace.CallGraph
}

// Timings records when each stage of a cycle ran.
type Timings struct {
	Cycle          timespan.TimeSpan
	Initialization timespan.TimeSpan
	Execution      timespan.TimeSpan
	ResultsBuild   timespan.TimeSpan
}

// Results is the immutable outcome of one cycle: a row per input with an
// item per column, plus an item per non-portfolio output.
type Results struct {
	cycleID     uuid.UUID
	viewName    string
	columnNames []string
	inputs      []any
	rows        [][]ResultItem
	outputNames []string
	outputs     map[string]ResultItem
	timings     Timings
	cacheStats  cache.Stats
}

func (r *Results) CycleID() uuid.UUID { return r.cycleID }
func (r *Results) ViewName() string   { return r.viewName }
func (r *Results) Timings() Timings   { return r.timings }

// CacheStats returns the cycle cache activity.
func (r *Results) CacheStats() cache.Stats { return r.cacheStats }

// ColumnNames returns the column names in column order.
func (r *Results) ColumnNames() []string {
	return append([]string(nil), r.columnNames...)
}

// Inputs returns the input rows in row order.
func (r *Results) Inputs() []any {
	return append([]any(nil), r.inputs...)
}

func (r *Results) RowCount() int    { return len(r.rows) }
func (r *Results) ColumnCount() int { return len(r.columnNames) }

// Item returns the item at row and column.
func (r *Results) Item(row, column int) (ResultItem, bool) {
	if row < 0 || row >= len(r.rows) || column < 0 || column >= len(r.rows[row]) {
		return ResultItem{}, false
	}
	return r.rows[row][column], true
}

// ItemAt returns the item of a cell.
func (r *Results) ItemAt(cell Cell) (ResultItem, bool) {
	return r.Item(cell.Row, cell.Column)
}

// Row returns the items of one input row in column order.
func (r *Results) Row(row int) []ResultItem {
	if row < 0 || row >= len(r.rows) {
		return nil
	}
	return append([]ResultItem(nil), r.rows[row]...)
}

// OutputNames returns the non-portfolio output names in configuration order.
func (r *Results) OutputNames() []string {
	return append([]string(nil), r.outputNames...)
}

// Output returns the item of a non-portfolio output.
func (r *Results) Output(name string) (ResultItem, bool) {
	item, ok := r.outputs[name]
	return item, ok
}

// Len returns the number of cells: rows by columns plus outputs.
func (r *Results) Len() int {
	return len(r.rows)*len(r.columnNames) + len(r.outputs)
}

type resultBuilder struct {
	results *Results
}

func newResultBuilder(cycleID uuid.UUID, viewName string, columnNames []string, inputs []any, outputNames []string) *resultBuilder {
	rows := make([][]ResultItem, len(inputs))
	for i := range rows {
		rows[i] = make([]ResultItem, len(columnNames))
	}
	return &resultBuilder{results: &Results{
		cycleID:     cycleID,
		viewName:    viewName,
		columnNames: columnNames,
		inputs:      inputs,
		rows:        rows,
		outputNames: outputNames,
		outputs:     make(map[string]ResultItem, len(outputNames)),
	}}
}

func (b *resultBuilder) addPortfolio(cell Cell, item ResultItem) {
	b.results.rows[cell.Row][cell.Column] = item
}

func (b *resultBuilder) addOutput(name string, item ResultItem) {
	b.results.outputs[name] = item
}

func (b *resultBuilder) build(timings Timings, stats cache.Stats) *Results {
	r := b.results
	r.timings = timings
	r.cacheStats = stats
	b.results = nil
	return r
}
