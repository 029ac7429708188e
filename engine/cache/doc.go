// Package cache memoizes function invocations for the duration of one
// calculation cycle.
//
// A Provider hands out a fresh Cache per cycle. The engine wraps that cache in
// a Scope and binds the scope to each task's context with Attach; the caching
// decorator finds it again with FromContext. Releasing the binding when the
// task ends makes any context that outlives the task fall back to direct
// invocation, so entries can never leak into another cycle.
package cache
