package config

import (
	"reflect"

	"github.com/on-the-ground/calcgraph_go/engine/function"
)

// FunctionModelConfig holds function arguments keyed by the type they are
// configured for: a function's declaring type or its implementation type.
// The zero value is empty and ready to use.
type FunctionModelConfig struct {
	args map[reflect.Type]function.Arguments
}

// With returns a copy of c with args configured for t, merged over any
// arguments already configured for t.
func (c FunctionModelConfig) With(t reflect.Type, args function.Arguments) FunctionModelConfig {
	out := c.clone(1)
	out.args[t] = out.args[t].MergedWith(args)
	return out
}

// WithArgs configures args for the type T.
func WithArgs[T any](c FunctionModelConfig, args map[string]any) FunctionModelConfig {
	return c.With(reflect.TypeFor[T](), function.NewArguments(args))
}

// Arguments returns the arguments configured for t.
func (c FunctionModelConfig) Arguments(t reflect.Type) function.Arguments {
	return c.args[t]
}

// IsEmpty reports whether nothing is configured.
func (c FunctionModelConfig) IsEmpty() bool {
	return len(c.args) == 0
}

// MergedWith combines c with fallback. For each type the argument sets are
// merged and c wins when both name the same argument.
func (c FunctionModelConfig) MergedWith(fallback FunctionModelConfig) FunctionModelConfig {
	if fallback.IsEmpty() {
		return c
	}
	if c.IsEmpty() {
		return fallback
	}
	out := fallback.clone(len(c.args))
	for t, args := range c.args {
		out.args[t] = out.args[t].MergedWith(args)
	}
	return out
}

// ArgumentsFor returns the arguments for fn: those configured for its
// declaring type, overridden by those configured for its implementation type.
func (c FunctionModelConfig) ArgumentsFor(fn function.Function) function.Arguments {
	return c.args[fn.DeclaringType()].MergedWith(c.args[fn.ImplementationType()])
}

func (c FunctionModelConfig) clone(extra int) FunctionModelConfig {
	out := FunctionModelConfig{args: make(map[reflect.Type]function.Arguments, len(c.args)+extra)}
	for t, a := range c.args {
		out.args[t] = a
	}
	return out
}
