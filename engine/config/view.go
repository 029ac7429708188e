// Package config describes what a view calculates: its columns, its
// non-portfolio outputs, the function arguments configured for them and the
// scenario to apply. It also loads engine settings from the environment.
package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/on-the-ground/calcgraph_go/engine/function"
	"go.uber.org/multierr"
)

// ViewConfig is the declarative definition of a view.
type ViewConfig struct {
	Name                string
	Columns             []ViewColumn
	NonPortfolioOutputs []NonPortfolioOutput
	// DefaultConfig applies to every column and output unless overridden.
	DefaultConfig FunctionModelConfig
	Scenario      ScenarioDefinition
}

// ViewColumn calculates one output for every portfolio row.
type ViewColumn struct {
	Name       string
	OutputName string
	Config     FunctionModelConfig
	// TypeConfigs overrides Config for rows of a particular input type.
	TypeConfigs map[reflect.Type]FunctionModelConfig
}

// ConfigFor returns the column's configuration for rows of inputType.
func (c ViewColumn) ConfigFor(inputType reflect.Type) FunctionModelConfig {
	if override, ok := c.TypeConfigs[inputType]; ok {
		return override.MergedWith(c.Config)
	}
	return c.Config
}

// NonPortfolioOutput is calculated once per cycle, not per row.
type NonPortfolioOutput struct {
	Name       string
	OutputName string
	Config     FunctionModelConfig
	// Input is handed to the output's function as is.
	Input any
}

var (
	ErrMissingName   = errors.New("missing name")
	ErrMissingOutput = errors.New("missing output name")
	ErrDuplicateName = errors.New("duplicate name")
)

// Validate reports every problem with the view definition.
func (v ViewConfig) Validate() error {
	var err error
	if v.Name == "" {
		err = multierr.Append(err, fmt.Errorf("view: %w", ErrMissingName))
	}

	seen := make(map[string]struct{}, len(v.Columns)+len(v.NonPortfolioOutputs))
	check := func(kind string, idx int, name, output string) {
		if name == "" {
			err = multierr.Append(err, fmt.Errorf("%s %d: %w", kind, idx, ErrMissingName))
		} else if _, dup := seen[name]; dup {
			err = multierr.Append(err, fmt.Errorf("%s %q: %w", kind, name, ErrDuplicateName))
		} else {
			seen[name] = struct{}{}
		}
		if output == "" {
			err = multierr.Append(err, fmt.Errorf("%s %q: %w", kind, name, ErrMissingOutput))
		}
	}
	for i, c := range v.Columns {
		check("column", i, c.Name, c.OutputName)
	}
	for i, o := range v.NonPortfolioOutputs {
		check("output", i, o.Name, o.OutputName)
	}
	return err
}

// ColumnNames returns the column names in order.
func (v ViewConfig) ColumnNames() []string {
	names := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		names[i] = c.Name
	}
	return names
}

// ScenarioDefinition holds the scenario arguments of a view. Common
// arguments apply everywhere; PerOutput adds arguments for one column or
// non-portfolio output, keyed by its name.
type ScenarioDefinition struct {
	Common    function.Arguments
	PerOutput map[string]function.Arguments
}

// Filter returns the scenario arguments that apply to name.
func (s ScenarioDefinition) Filter(name string) function.Arguments {
	return s.Common.MergedWith(s.PerOutput[name])
}
