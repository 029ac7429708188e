package function

import (
	"context"
	"reflect"
)

// Invokable is anything the engine can call for a cell.
type Invokable interface {
	Invoke(ctx context.Context, env Environment, input any, args Arguments) (any, error)
}

// InvokeFunc adapts a plain function to Invokable.
type InvokeFunc func(ctx context.Context, env Environment, input any, args Arguments) (any, error)

func (f InvokeFunc) Invoke(ctx context.Context, env Environment, input any, args Arguments) (any, error) {
	return f(ctx, env, input, args)
}

// Function is an Invokable with identity metadata.
type Function interface {
	Invokable

	// ID identifies the function instance; equal IDs share cache entries.
	ID() string
	Name() string
	DeclaringType() reflect.Type
	ImplementationType() reflect.Type
	// Cacheable reports whether results of this function may be memoized.
	Cacheable() bool
}

type function struct {
	id            string
	name          string
	declaringType reflect.Type
	implType      reflect.Type
	cacheable     bool
	invoke        InvokeFunc
}

// Option customises a Function built by For or New.
type Option func(*function)

// WithID overrides the default identity (implementation type and name).
func WithID(id string) Option {
	return func(f *function) { f.id = id }
}

// NonCacheable marks the function so its results are never memoized.
func NonCacheable() Option {
	return func(f *function) { f.cacheable = false }
}

// New builds a Function from explicit metadata.
func New(name string, declaringType, implType reflect.Type, invoke InvokeFunc, opts ...Option) Function {
	f := &function{
		name:          name,
		declaringType: declaringType,
		implType:      implType,
		cacheable:     true,
		invoke:        invoke,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.id == "" {
		f.id = typeName(implType) + "." + name
	}
	return f
}

// For builds a Function whose declaring type is D and whose implementation
// type is the dynamic type of receiver.
//
//	pv := function.For[PresentValueFn]("presentValue", impl, impl.PresentValue)
func For[D any](name string, receiver any, invoke InvokeFunc, opts ...Option) Function {
	return New(name, reflect.TypeFor[D](), reflect.TypeOf(receiver), invoke, opts...)
}

func (f *function) Invoke(ctx context.Context, env Environment, input any, args Arguments) (any, error) {
	return f.invoke(ctx, env, input, args)
}

func (f *function) ID() string                       { return f.id }
func (f *function) Name() string                     { return f.name }
func (f *function) DeclaringType() reflect.Type      { return f.declaringType }
func (f *function) ImplementationType() reflect.Type { return f.implType }
func (f *function) Cacheable() bool                  { return f.cacheable }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
