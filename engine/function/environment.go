package function

import (
	"time"

	"github.com/on-the-ground/calcgraph_go/engine/marketdata"
)

// CacheInvalidator is told which external data a calculation depended on so
// that cached results can be dropped when that data changes.
type CacheInvalidator interface {
	Register(dependency string)
}

// NopInvalidator ignores all registrations.
type NopInvalidator struct{}

func (NopInvalidator) Register(string) {}

// Environment is the per-cell execution environment handed to every function.
type Environment interface {
	ValuationTime() time.Time
	MarketDataFactory() marketdata.CycleFactory
	CacheInvalidator() CacheInvalidator
	// Scenario returns the scenario arguments that apply to the output being calculated.
	Scenario() Arguments
}

// Env is the engine's Environment implementation.
type Env struct {
	valuationTime time.Time
	marketData    marketdata.CycleFactory
	invalidator   CacheInvalidator
	scenario      Arguments
}

var _ Environment = Env{}

// NewEnv builds an environment. A nil invalidator is replaced by NopInvalidator.
func NewEnv(valuationTime time.Time, marketData marketdata.CycleFactory, invalidator CacheInvalidator) Env {
	if invalidator == nil {
		invalidator = NopInvalidator{}
	}
	return Env{
		valuationTime: valuationTime,
		marketData:    marketData,
		invalidator:   invalidator,
	}
}

// WithScenario returns a copy of the environment carrying the given scenario arguments.
func (e Env) WithScenario(scenario Arguments) Env {
	e.scenario = scenario
	return e
}

// CacheKey renders the parts of the environment that change a function's result.
func (e Env) CacheKey() string {
	return e.valuationTime.UTC().Format(time.RFC3339Nano) + "|" + e.scenario.String()
}

func (e Env) ValuationTime() time.Time                   { return e.valuationTime }
func (e Env) MarketDataFactory() marketdata.CycleFactory { return e.marketData }
func (e Env) CacheInvalidator() CacheInvalidator         { return e.invalidator }
func (e Env) Scenario() Arguments                        { return e.scenario }
