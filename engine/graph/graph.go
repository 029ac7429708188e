// Package graph maps a view's columns and outputs to the functions that
// calculate them.
//
// A Resolver turns a config.ViewConfig into a Graph. The Graph holds
// undecorated functions; decoration happens in the engine.
package graph

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/on-the-ground/calcgraph_go/engine/config"
	"github.com/on-the-ground/calcgraph_go/engine/function"
	"go.uber.org/multierr"
)

// Resolver builds the function graph for a view.
type Resolver interface {
	Resolve(ctx context.Context, view config.ViewConfig) (*Graph, error)
}

type typedFunction struct {
	inputType reflect.Type
	fn        function.Function
}

// Graph holds, per column, the function for each input type, and per
// non-portfolio output, its single function.
type Graph struct {
	columns map[string][]typedFunction
	outputs map[string]function.Function
	models  *ModelIndex
}

// FunctionFor returns the function calculating column for an input of
// inputType. An exact type match wins; otherwise the first registered
// interface type that inputType implements, in type-name order.
func (g *Graph) FunctionFor(column string, inputType reflect.Type) (function.Function, bool) {
	if inputType == nil {
		return nil, false
	}
	candidates := g.columns[column]
	for _, c := range candidates {
		if c.inputType == inputType {
			return c.fn, true
		}
	}
	for _, c := range candidates {
		if c.inputType.Kind() == reflect.Interface && inputType.Implements(c.inputType) {
			return c.fn, true
		}
	}
	return nil, false
}

// OutputFunction returns the function of a non-portfolio output.
func (g *Graph) OutputFunction(name string) (function.Function, bool) {
	fn, ok := g.outputs[name]
	return fn, ok
}

// Models returns the graph's model index.
func (g *Graph) Models() *ModelIndex {
	return g.models
}

// StaticResolver resolves outputs from functions registered up front.
// Register every function before calling Resolve.
type StaticResolver struct {
	byOutput map[string][]typedFunction
}

var _ Resolver = (*StaticResolver)(nil)

// NewStaticResolver returns an empty resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{byOutput: make(map[string][]typedFunction)}
}

// Register makes fn the implementation of output for inputs of inputType.
// A nil inputType registers fn for non-portfolio use of output.
func (r *StaticResolver) Register(output string, inputType reflect.Type, fn function.Function) *StaticResolver {
	fns := r.byOutput[output]
	for i, existing := range fns {
		if existing.inputType == inputType {
			fns[i].fn = fn
			return r
		}
	}
	r.byOutput[output] = append(fns, typedFunction{inputType: inputType, fn: fn})
	return r
}

// Register makes fn the implementation of output for inputs of type In.
func Register[In any](r *StaticResolver, output string, fn function.Function) *StaticResolver {
	return r.Register(output, reflect.TypeFor[In](), fn)
}

// RegisterOutput makes fn the implementation of a non-portfolio output.
func (r *StaticResolver) RegisterOutput(output string, fn function.Function) *StaticResolver {
	return r.Register(output, nil, fn)
}

// Resolve builds the graph for view. Every column output needs at least one
// registered function and every non-portfolio output exactly its own.
func (r *StaticResolver) Resolve(ctx context.Context, view config.ViewConfig) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	models, err := newModelIndex()
	if err != nil {
		return nil, err
	}
	g := &Graph{
		columns: make(map[string][]typedFunction, len(view.Columns)),
		outputs: make(map[string]function.Function, len(view.NonPortfolioOutputs)),
		models:  models,
	}

	var errs error
	for _, col := range view.Columns {
		var fns []typedFunction
		for _, tf := range r.byOutput[col.OutputName] {
			if tf.inputType != nil {
				fns = append(fns, tf)
			}
		}
		if len(fns) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("column %q: no function for output %q", col.Name, col.OutputName))
			continue
		}
		sort.Slice(fns, func(i, j int) bool { return fns[i].inputType.String() < fns[j].inputType.String() })
		g.columns[col.Name] = fns

		records := make([]*FunctionModel, len(fns))
		for i, tf := range fns {
			records[i] = newFunctionModel(col.Name, tf.inputType, col.OutputName, tf.fn)
		}
		errs = multierr.Append(errs, models.insert(portfolioTable, records...))
	}

	for _, out := range view.NonPortfolioOutputs {
		fn, ok := r.outputFunction(out.OutputName)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("output %q: no non-portfolio function for output %q", out.Name, out.OutputName))
			continue
		}
		g.outputs[out.Name] = fn
		errs = multierr.Append(errs, models.insert(outputTable, newFunctionModel(out.Name, reflect.TypeOf(out.Input), out.OutputName, fn)))
	}

	if errs != nil {
		return nil, fmt.Errorf("resolving view %q: %w", view.Name, errs)
	}
	return g, nil
}

func (r *StaticResolver) outputFunction(output string) (function.Function, bool) {
	for _, tf := range r.byOutput[output] {
		if tf.inputType == nil {
			return tf.fn, true
		}
	}
	return nil, false
}
