package graph_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/on-the-ground/calcgraph_go/engine/config"
	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/graph"
	"github.com/on-the-ground/calcgraph_go/engine/portfolio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type presentValue interface{}

type equityPV struct{}

type securityPV struct{}

type fxRate struct{}

func fn(name string, receiver any) function.Function {
	return function.For[presentValue](name, receiver, nil)
}

func newResolver() *graph.StaticResolver {
	r := graph.NewStaticResolver()
	graph.Register[portfolio.Equity](r, "presentValue", fn("presentValue", equityPV{}))
	graph.Register[portfolio.Security](r, "presentValue", fn("presentValue", securityPV{}))
	r.RegisterOutput("fxRate", fn("fxRate", fxRate{}))
	return r
}

func view() config.ViewConfig {
	return config.ViewConfig{
		Name:                "risk",
		Columns:             []config.ViewColumn{{Name: "PV", OutputName: "presentValue"}},
		NonPortfolioOutputs: []config.NonPortfolioOutput{{Name: "EURUSD", OutputName: "fxRate", Input: "EUR/USD"}},
	}
}

func TestStaticResolver_ResolvesByInputType(t *testing.T) {
	g, err := newResolver().Resolve(context.Background(), view())
	require.NoError(t, err)

	got, ok := g.FunctionFor("PV", reflect.TypeFor[portfolio.Equity]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[equityPV](), got.ImplementationType())

	// Bond has no exact registration but implements Security
	got, ok = g.FunctionFor("PV", reflect.TypeFor[portfolio.Bond]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[securityPV](), got.ImplementationType())

	_, ok = g.FunctionFor("PV", reflect.TypeFor[portfolio.Position]())
	assert.False(t, ok)
	_, ok = g.FunctionFor("Delta", reflect.TypeFor[portfolio.Equity]())
	assert.False(t, ok)
	_, ok = g.FunctionFor("PV", nil)
	assert.False(t, ok)

	out, ok := g.OutputFunction("EURUSD")
	require.True(t, ok)
	assert.Equal(t, "fxRate", out.Name())
}

func TestStaticResolver_RegisterReplaces(t *testing.T) {
	r := newResolver()
	graph.Register[portfolio.Equity](r, "presentValue", fn("presentValueV2", equityPV{}))

	g, err := r.Resolve(context.Background(), view())
	require.NoError(t, err)
	got, _ := g.FunctionFor("PV", reflect.TypeFor[portfolio.Equity]())
	assert.Equal(t, "presentValueV2", got.Name())
}

func TestStaticResolver_ReportsEveryMissingOutput(t *testing.T) {
	v := view()
	v.Columns = append(v.Columns, config.ViewColumn{Name: "Delta", OutputName: "delta"})
	v.NonPortfolioOutputs = append(v.NonPortfolioOutputs, config.NonPortfolioOutput{Name: "Curve", OutputName: "curve"})

	_, err := newResolver().Resolve(context.Background(), v)
	require.Error(t, err)
	assert.ErrorContains(t, err, `column "Delta"`)
	assert.ErrorContains(t, err, `output "Curve"`)
}

func TestStaticResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newResolver().Resolve(ctx, view())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModelIndex_Queries(t *testing.T) {
	g, err := newResolver().Resolve(context.Background(), view())
	require.NoError(t, err)
	models := g.Models()

	m, ok := models.ForColumn("PV", reflect.TypeFor[portfolio.Equity]())
	require.True(t, ok)
	assert.Equal(t, "presentValue", m.Output)
	assert.Equal(t, "graph_test.presentValue", m.DeclaringType)
	assert.Equal(t, "graph_test.equityPV", m.ImplementationType)

	assert.Len(t, models.ColumnModels("PV"), 2)
	assert.Empty(t, models.ColumnModels("Delta"))

	out, ok := models.ForOutput("EURUSD")
	require.True(t, ok)
	assert.Equal(t, "string", out.InputType)
	assert.Equal(t, "fxRate", out.FunctionName)

	_, ok = models.ForOutput("Curve")
	assert.False(t, ok)
}
