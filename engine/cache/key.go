package cache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/on-the-ground/calcgraph_go/engine/function"
)

// Keyer lets an input control how it is rendered into an InvocationKey.
// Inputs without it are rendered field by field.
type Keyer interface {
	CacheKey() string
}

// InvocationKey identifies one function call: the function, its declaring
// type, the environment, the input and the arguments. It is a comparable
// value; equal calls produce equal keys.
type InvocationKey struct {
	FunctionID string
	Declaring  string
	Env        string
	Input      string
	Args       string
}

// NewKey builds the key for invoking fn in env with input and args.
// Environments that implement Keyer contribute their key; others are ignored.
func NewKey(fn function.Function, env function.Environment, input any, args function.Arguments) InvocationKey {
	declaring := "<nil>"
	if t := fn.DeclaringType(); t != nil {
		declaring = t.String()
	}
	return InvocationKey{
		FunctionID: fn.ID(),
		Declaring:  declaring,
		Env:        describeEnv(env),
		Input:      describeInput(input),
		Args:       args.String(),
	}
}

const keySep = "\x1f"

func (k InvocationKey) String() string {
	return strings.Join([]string{k.FunctionID, k.Declaring, k.Env, k.Input, k.Args}, keySep)
}

// Hash returns a 64-bit digest of the key.
func (k InvocationKey) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(k.FunctionID)
	_, _ = d.WriteString(keySep)
	_, _ = d.WriteString(k.Declaring)
	_, _ = d.WriteString(keySep)
	_, _ = d.WriteString(k.Env)
	_, _ = d.WriteString(keySep)
	_, _ = d.WriteString(k.Input)
	_, _ = d.WriteString(keySep)
	_, _ = d.WriteString(k.Args)
	return d.Sum64()
}

func describeInput(input any) string {
	switch in := input.(type) {
	case nil:
		return "<nil>"
	case Keyer:
		return fmt.Sprintf("%T:%s", in, in.CacheKey())
	default:
		// display text is not identity; render every field
		return fmt.Sprintf("%T:%#v", in, in)
	}
}

func describeEnv(env function.Environment) string {
	if k, ok := env.(Keyer); ok {
		return k.CacheKey()
	}
	return ""
}
