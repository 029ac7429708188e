package function

import (
	"fmt"
	"sort"
	"strings"

	"github.com/on-the-ground/calcgraph_go/shared/helper"
)

// Arguments is an immutable set of named function arguments.
type Arguments struct {
	values map[string]any
}

// NewArguments copies kv into a new argument set.
func NewArguments(kv map[string]any) Arguments {
	if len(kv) == 0 {
		return Arguments{}
	}
	values := make(map[string]any, len(kv))
	for k, v := range kv {
		values[k] = v
	}
	return Arguments{values: values}
}

// Get returns the argument value for name.
func (a Arguments) Get(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// ArgAs returns the named argument asserted to T. It reports false when the
// argument is missing or has another type.
func ArgAs[T any](a Arguments, name string) (T, bool) {
	return helper.GetTypedValueOf2[T](func() (any, bool) { return a.Get(name) })
}

// Len returns the number of arguments.
func (a Arguments) Len() int {
	return len(a.values)
}

// Names returns the argument names in sorted order.
func (a Arguments) Names() []string {
	names := make([]string, 0, len(a.values))
	for k := range a.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MergedWith returns a new argument set containing a and every set in others.
// When a name appears more than once the value merged last wins.
func (a Arguments) MergedWith(others ...Arguments) Arguments {
	size := len(a.values)
	for _, o := range others {
		size += len(o.values)
	}
	if size == 0 {
		return Arguments{}
	}
	merged := make(map[string]any, size)
	for k, v := range a.values {
		merged[k] = v
	}
	for _, o := range others {
		for k, v := range o.values {
			merged[k] = v
		}
	}
	return Arguments{values: merged}
}

// String renders the arguments canonically: sorted by name, name=value joined by commas.
// Equal argument sets always render identically.
func (a Arguments) String() string {
	var sb strings.Builder
	for i, name := range a.Names() {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%v", name, a.values[name])
	}
	return sb.String()
}
