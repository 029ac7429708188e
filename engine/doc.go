// Package engine runs calculation cycles for a view.
//
// A View pairs a view configuration with the function graph resolved for it.
// Each call to Run is one cycle: the view resolves a function for every cell
// (column by input row, plus each non-portfolio output), wraps it in the
// configured decorator chain, runs one task per cell on the worker pool and
// returns the completed Results.
//
// Every cycle gets its own cache from the configured cache.Provider. Tasks
// carry that cache in their context so nested function calls share it, and
// release it when they finish. Per-cell problems become failed results;
// only infrastructure problems, such as a closed pool, are returned as errors.
//
//	view, err := engine.NewView(ctx, engine.Params{
//		Config:        viewConfig,
//		Resolver:      resolver,
//		CacheProvider: cache.MemoryProvider{},
//		Services:      proxy.AllServices,
//		Inputs:        positions,
//	})
//	...
//	results, err := view.Run(ctx, engine.CycleArguments{ValuationTime: now})
package engine
