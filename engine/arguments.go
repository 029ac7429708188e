package engine

import (
	"time"

	"github.com/on-the-ground/calcgraph_go/engine/config"
	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/marketdata"
	"github.com/on-the-ground/calcgraph_go/engine/trace"
)

// Cell locates one portfolio result.
type Cell struct {
	Row    int
	Column int
}

// CycleArguments are the per-run settings of a calculation cycle.
type CycleArguments struct {
	ValuationTime time.Time
	// ValuationTimes overrides ValuationTime for a column or non-portfolio
	// output, keyed by its name.
	ValuationTimes map[string]time.Time

	MarketData       marketdata.CycleFactory
	CacheInvalidator function.CacheInvalidator

	// FunctionArguments have the lowest precedence; view configuration
	// overrides them.
	FunctionArguments config.FunctionModelConfig

	TraceType        trace.Type
	CellTraceTypes   map[Cell]trace.Type
	OutputTraceTypes map[string]trace.Type
}

// ValuationTimeFor returns the valuation time of the named column or output.
func (a CycleArguments) ValuationTimeFor(name string) time.Time {
	if t, ok := a.ValuationTimes[name]; ok {
		return t
	}
	return a.ValuationTime
}

// TraceTypeFor returns the trace type of a portfolio cell.
func (a CycleArguments) TraceTypeFor(cell Cell) trace.Type {
	if t, ok := a.CellTraceTypes[cell]; ok {
		return t
	}
	return a.TraceType
}

// TraceTypeForOutput returns the trace type of a non-portfolio output.
func (a CycleArguments) TraceTypeForOutput(name string) trace.Type {
	if t, ok := a.OutputTraceTypes[name]; ok {
		return t
	}
	return a.TraceType
}
