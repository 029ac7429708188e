// Package marketdata defines the per-cycle market data contract handed to
// functions through their Environment. Sourcing the data is the caller's job.
package marketdata

import (
	"errors"
	"fmt"
)

var ErrMissingData = errors.New("market data not available")

// Source resolves market data values by identifier.
type Source interface {
	Value(id string) (any, error)
}

// CycleFactory supplies the market data sources for one calculation cycle.
type CycleFactory interface {
	PrimarySource() Source
}

// StaticSource serves values from a fixed map.
type StaticSource map[string]any

func (s StaticSource) Value(id string) (any, error) {
	v, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingData, id)
	}
	return v, nil
}

// StaticFactory always returns the same source.
type StaticFactory struct {
	Source Source
}

func (f StaticFactory) PrimarySource() Source {
	return f.Source
}
