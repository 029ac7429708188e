// Package function defines the contract between the engine and the calculation
// functions it executes.
//
// A Function is an Invokable plus the identity metadata the engine needs for
// caching and argument lookup: a name, the declaring type (usually the
// interface the function satisfies) and the implementation type (the concrete
// receiver). Functions never see how they are decorated; tracing, caching,
// metrics and error conversion are layered on by the engine.
package function
