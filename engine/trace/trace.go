// Package trace records the call tree executed for one cell.
//
// A Tracer is created per task with the Type requested for that cell and is
// carried in the task's context. The tracing decorator opens a Call for every
// decorated invocation; nested invocations made with the returned context
// become children of that call. A call answered from the cache is marked and
// has no children.
package trace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/result"
)

// Type selects how much detail a Tracer records.
type Type int

const (
	// None records nothing.
	None Type = iota
	// TimingsOnly records the call tree with durations.
	TimingsOnly
	// Full also records inputs, arguments and results.
	Full
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case TimingsOnly:
		return "timings"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Call is one node of the call tree.
type Call struct {
	FunctionID string
	Name       string
	Input      string
	Args       string
	Result     string
	Duration   time.Duration
	FromCache  bool
	Children   []*Call

	tracer  *Tracer
	started time.Time
}

// Tracer accumulates the call tree of one task.
type Tracer struct {
	typ   Type
	mu    sync.Mutex
	roots []*Call
}

// New creates a tracer of the given type.
func New(typ Type) *Tracer {
	return &Tracer{typ: typ}
}

// Type returns the tracer's detail level.
func (t *Tracer) Type() Type {
	if t == nil {
		return None
	}
	return t.typ
}

type tracerKey struct{}

type callKey struct{}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t *Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer attached to ctx, or nil.
func FromContext(ctx context.Context) *Tracer {
	t, _ := ctx.Value(tracerKey{}).(*Tracer)
	return t
}

// CurrentCall returns the innermost open call in ctx, or nil.
func CurrentCall(ctx context.Context) *Call {
	c, _ := ctx.Value(callKey{}).(*Call)
	return c
}

// Start opens a call for fn. It returns the context nested calls must use and
// the call, which the caller must End. With a nil or None tracer it returns ctx
// unchanged and a nil call; all Call methods accept a nil receiver.
func (t *Tracer) Start(ctx context.Context, fn function.Function, input any, args function.Arguments) (context.Context, *Call) {
	if t == nil || t.typ == None {
		return ctx, nil
	}
	c := &Call{
		FunctionID: fn.ID(),
		Name:       fn.Name(),
		tracer:     t,
		started:    time.Now(),
	}
	if t.typ == Full {
		c.Input = fmt.Sprintf("%v", input)
		c.Args = args.String()
	}

	t.mu.Lock()
	if parent := CurrentCall(ctx); parent != nil && parent.tracer == t {
		parent.Children = append(parent.Children, c)
	} else {
		t.roots = append(t.roots, c)
	}
	t.mu.Unlock()

	return context.WithValue(ctx, callKey{}, c), c
}

// MarkCacheHit flags the call as answered from the cache.
func (c *Call) MarkCacheHit() {
	if c == nil {
		return
	}
	c.tracer.mu.Lock()
	c.FromCache = true
	c.tracer.mu.Unlock()
}

// End closes the call.
func (c *Call) End(res result.Result) {
	if c == nil {
		return
	}
	d := time.Since(c.started)
	c.tracer.mu.Lock()
	defer c.tracer.mu.Unlock()
	c.Duration = d
	if c.tracer.typ == Full {
		c.Result = res.String()
	}
}

// CallGraph is an immutable snapshot of a task's call tree.
type CallGraph struct {
	Root *Call
}

// CallGraph snapshots the recorded tree. It returns nil when nothing was
// recorded. If several top-level calls were made only the first is the root;
// the rest are appended as its siblings under a synthetic root.
func (t *Tracer) CallGraph() *CallGraph {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch len(t.roots) {
	case 0:
		return nil
	case 1:
		return &CallGraph{Root: t.roots[0].clone()}
	default:
		root := &Call{Name: "<task>"}
		for _, r := range t.roots {
			root.Children = append(root.Children, r.clone())
			root.Duration += r.Duration
		}
		return &CallGraph{Root: root}
	}
}

func (c *Call) clone() *Call {
	cp := &Call{
		FunctionID: c.FunctionID,
		Name:       c.Name,
		Input:      c.Input,
		Args:       c.Args,
		Result:     c.Result,
		Duration:   c.Duration,
		FromCache:  c.FromCache,
	}
	if len(c.Children) > 0 {
		cp.Children = make([]*Call, len(c.Children))
		for i, child := range c.Children {
			cp.Children[i] = child.clone()
		}
	}
	return cp
}

// String renders the tree, one call per line, children indented.
func (g *CallGraph) String() string {
	if g == nil || g.Root == nil {
		return ""
	}
	var sb strings.Builder
	render(&sb, g.Root, 0)
	return sb.String()
}

func render(sb *strings.Builder, c *Call, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(c.Name)
	if c.Input != "" {
		sb.WriteString("(" + c.Input + ")")
	}
	if c.Args != "" {
		sb.WriteString(" [" + c.Args + "]")
	}
	if c.FromCache {
		sb.WriteString(" <cached>")
	}
	fmt.Fprintf(sb, " %s", c.Duration)
	if c.Result != "" {
		sb.WriteString(" -> " + c.Result)
	}
	sb.WriteByte('\n')
	for _, child := range c.Children {
		render(sb, child, depth+1)
	}
}
