package proxy

import (
	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/metrics"
	"go.uber.org/zap"
)

// Chain is the decorator stack of one view, built from a Services set.
// Functions are decorated in a fixed order, outermost first: tracing,
// caching, metrics, exception wrapping.
type Chain struct {
	services Services
	decorate Decorator
}

// NewChain builds the chain for services. Metrics needs a registry; when
// registry is nil the metrics service is dropped with a warning.
func NewChain(services Services, registry *metrics.Registry, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	if services.Has(Metrics) && registry == nil {
		logger.Warn("metrics service requested without a registry, disabling it")
		services &^= Metrics
	}

	var decorators []Decorator
	if services.Has(Tracing) {
		decorators = append(decorators, WithTracing())
	}
	if services.Has(Caching) {
		decorators = append(decorators, WithCaching())
	}
	if services.Has(Metrics) {
		decorators = append(decorators, WithMetrics(registry))
	}
	if services.Has(ExceptionWrapping) {
		decorators = append(decorators, WithExceptionWrapping(logger))
	}
	logger.Debug("decorator chain built", zap.Stringer("services", services))

	return &Chain{services: services, decorate: Compose(decorators...)}
}

// Services returns the enabled services.
func (c *Chain) Services() Services {
	return c.services
}

// Decorate wraps fn in the chain. Functions this chain already decorated are
// returned as they are.
func (c *Chain) Decorate(fn function.Function) function.Function {
	if d, ok := fn.(*decorated); ok && d.chain == c {
		return fn
	}
	out := c.decorate(fn)
	if d, ok := out.(*decorated); ok {
		return &decorated{Function: d, invoke: d.Invoke, chain: c}
	}
	return out
}
