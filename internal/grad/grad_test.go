package grad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/numeric"
)

// buildScalarChain wires a scalar latent through every scalar operator:
//
//	0: CONSTANT 1
//	1: CONSTANT 2
//	2: DISTRIBUTION_NORMAL(0, 1)
//	3: SAMPLE(2)              target x
//	4: MULTIPLY(3, 3)         x^2
//	5: EXP(4)                 e^(x^2)
//	6: LOG(5)                 x^2 again
//	7: ADD(6, 1)              x^2 + 2
//	8: SUBTRACT(7, 3)         x^2 + 2 - x
//	9: NEGATE(8)
//	10: LOGISTIC(3)
func buildScalarChain(t *testing.T) (*graph.Graph, graph.NodeID, []graph.NodeID) {
	t.Helper()
	b := graph.NewBuilder()
	c1 := b.AddConstant(1)
	c2 := b.AddConstant(2)
	d, err := b.AddOperator(graph.OpDistNormal, c1, c2)
	require.NoError(t, err)
	x, err := b.AddOperator(graph.OpSample, d)
	require.NoError(t, err)
	sq, err := b.AddOperator(graph.OpMultiply, x, x)
	require.NoError(t, err)
	e, err := b.AddOperator(graph.OpExp, sq)
	require.NoError(t, err)
	l, err := b.AddOperator(graph.OpLog, e)
	require.NoError(t, err)
	a, err := b.AddOperator(graph.OpAdd, l, c2)
	require.NoError(t, err)
	s, err := b.AddOperator(graph.OpSubtract, a, x)
	require.NoError(t, err)
	_, err = b.AddOperator(graph.OpNegate, s)
	require.NoError(t, err)
	_, err = b.AddOperator(graph.OpLogistic, x)
	require.NoError(t, err)

	g, err := b.Build()
	require.NoError(t, err)

	det, sto := g.Affected(x)
	assert.Equal(t, []graph.NodeID{x}, sto)
	return g, x, det
}

func setScalarTarget(t *testing.T, g *graph.Graph, x graph.NodeID, v float64) {
	t.Helper()
	g.Node(x).Value.SetFloat(v)
	require.NoError(t, g.EvalAll())
}

func TestSeedAndPropagate_ScalarChainRules(t *testing.T) {
	g, x, det := buildScalarChain(t)
	assert.Equal(t, []graph.NodeID{4, 5, 6, 7, 8, 9, 10}, det)

	v := 0.6
	setScalarTarget(t, g, x, v)
	require.NoError(t, SeedAndPropagate(g, x, det))

	assert.Equal(t, 1.0, g.Node(x).Grad1)
	assert.Equal(t, 0.0, g.Node(x).Grad2)

	// x^2
	assert.InDelta(t, 2*v, g.Node(4).Grad1, 1e-12)
	assert.InDelta(t, 2.0, g.Node(4).Grad2, 1e-12)

	// e^(x^2)
	ex := math.Exp(v * v)
	assert.InDelta(t, 2*v*ex, g.Node(5).Grad1, 1e-12)
	assert.InDelta(t, (2+4*v*v)*ex, g.Node(5).Grad2, 1e-12)

	// log(e^(x^2)) recovers x^2 derivatives
	assert.InDelta(t, 2*v, g.Node(6).Grad1, 1e-12)
	assert.InDelta(t, 2.0, g.Node(6).Grad2, 1e-12)

	// x^2 + 2
	assert.InDelta(t, 2*v, g.Node(7).Grad1, 1e-12)
	assert.InDelta(t, 2.0, g.Node(7).Grad2, 1e-12)

	// x^2 + 2 - x
	assert.InDelta(t, 2*v-1, g.Node(8).Grad1, 1e-12)
	assert.InDelta(t, 2.0, g.Node(8).Grad2, 1e-12)

	// negation
	assert.InDelta(t, 1-2*v, g.Node(9).Grad1, 1e-12)
	assert.InDelta(t, -2.0, g.Node(9).Grad2, 1e-12)

	// logistic
	s := 1 / (1 + math.Exp(-v))
	assert.InDelta(t, s*(1-s), g.Node(10).Grad1, 1e-12)
	assert.InDelta(t, s*(1-s)*(1-2*s), g.Node(10).Grad2, 1e-12)
}

func TestSeedAndPropagate_MatchesFiniteDifferences(t *testing.T) {
	g, x, det := buildScalarChain(t)
	v := 0.6
	const h = 1e-5

	eval := func(at float64, id graph.NodeID) float64 {
		g.Node(x).Value.SetFloat(at)
		require.NoError(t, g.EvalAll())
		return g.Node(id).Value.Float()
	}

	setScalarTarget(t, g, x, v)
	require.NoError(t, SeedAndPropagate(g, x, det))

	for _, id := range det {
		want1 := g.Node(id).Grad1
		want2 := g.Node(id).Grad2
		up := eval(v+h, id)
		down := eval(v-h, id)
		mid := eval(v, id)
		assert.InDelta(t, (up-down)/(2*h), want1, 1e-5, "first derivative of node %d", id)
		assert.InDelta(t, (up-2*mid+down)/(h*h), want2, 1e-3, "second derivative of node %d", id)
	}
}

func TestSeedAndPropagate_StaleTargetDetected(t *testing.T) {
	g, x, det := buildScalarChain(t)
	setScalarTarget(t, g, x, 0.5)
	require.NoError(t, SeedAndPropagate(g, x, det))

	// A different target while x is still marked means a missing Clear.
	err := SeedAndPropagate(g, graph.NodeID(4), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still active")

	// After Clear the same graph seeds cleanly again.
	Clear(g, x, det)
	require.NoError(t, SeedAndPropagate(g, graph.NodeID(4), nil))
	Clear(g, graph.NodeID(4), nil)
}

func TestClear_ZeroesEverything(t *testing.T) {
	g, x, det := buildScalarChain(t)
	setScalarTarget(t, g, x, 0.5)
	require.NoError(t, SeedAndPropagate(g, x, det))

	Clear(g, x, det)

	_, active := g.ActiveTarget()
	assert.False(t, active)
	for id := graph.NodeID(0); int(id) < g.Len(); id++ {
		n := g.Node(id)
		assert.Zero(t, n.Grad1, "node %d grad1", id)
		assert.Zero(t, n.Grad2, "node %d grad2", id)
		assert.True(t, n.JGrad1.IsScalar(), "node %d jgrad1 cleared", id)
		assert.True(t, n.JGrad2.IsScalar(), "node %d jgrad2 cleared", id)
	}
}

// buildSimplexChain wires a dirichlet latent read out through INDEX:
//
//	0: CONSTANT 1.5
//	1: CONSTANT 2.5
//	2: CONSTANT 3.5
//	3: DISTRIBUTION_DIRICHLET(0, 1, 2)
//	4: SAMPLE(3)            target simplex
//	5: CONSTANT 1           selector
//	6: INDEX(4, 5)
//	7: LOG(6)
func buildSimplexChain(t *testing.T) (*graph.Graph, graph.NodeID, []graph.NodeID) {
	t.Helper()
	b := graph.NewBuilder()
	a0 := b.AddConstant(1.5)
	a1 := b.AddConstant(2.5)
	a2 := b.AddConstant(3.5)
	d, err := b.AddOperator(graph.OpDistDirichlet, a0, a1, a2)
	require.NoError(t, err)
	y, err := b.AddOperator(graph.OpSample, d)
	require.NoError(t, err)
	sel := b.AddConstant(1)
	idx, err := b.AddOperator(graph.OpIndex, y, sel)
	require.NoError(t, err)
	_, err = b.AddOperator(graph.OpLog, idx)
	require.NoError(t, err)

	g, err := b.Build()
	require.NoError(t, err)
	det, _ := g.Affected(y)
	assert.Equal(t, []graph.NodeID{6, 7}, det)
	return g, y, det
}

func TestSeedAndPropagate_SimplexJacobianThroughIndex(t *testing.T) {
	g, y, det := buildSimplexChain(t)
	n := g.Node(y)

	// Unconstrained gamma draws x = (1, 2, 3), sum 6, value y = x/6.
	n.Unconstrained = numeric.Matrix(mat.NewDense(3, 1, []float64{1, 2, 3}))
	n.RefreshSimplexValue()
	require.NoError(t, g.EvalAll())

	// Jacobian of y with respect to coordinate k=1 of x.
	sum := 6.0
	j1 := mat.NewDense(3, 1, []float64{-1 / (sum * sum), 1/sum - 2/(sum*sum), -3 / (sum * sum)})
	var j2 mat.Dense
	j2.Scale(-2/sum, j1)
	n.JGrad1 = numeric.Matrix(j1)
	n.JGrad2 = numeric.Matrix(&j2)

	require.NoError(t, SeedAndPropagate(g, y, det))

	// INDEX forwards coefficient 1 of the jacobian.
	wantG1 := 1/sum - 2/(sum*sum)
	wantG2 := -2 / sum * wantG1
	assert.InDelta(t, wantG1, g.Node(6).Grad1, 1e-12)
	assert.InDelta(t, wantG2, g.Node(6).Grad2, 1e-12)

	// LOG(y_1) with y_1 = 1/3.
	y1 := 1.0 / 3.0
	assert.InDelta(t, wantG1/y1, g.Node(7).Grad1, 1e-12)
	assert.InDelta(t, wantG2/y1-wantG1*wantG1/(y1*y1), g.Node(7).Grad2, 1e-12)

	// Simplex seeding must not install scalar seeds on the target.
	assert.Zero(t, n.Grad1)
	assert.Zero(t, n.Grad2)

	Clear(g, y, det)
	assert.True(t, n.JGrad1.IsScalar())
}

func TestSeedAndPropagate_IndexOfInactiveSimplexIsZero(t *testing.T) {
	g, y, det := buildSimplexChain(t)
	n := g.Node(y)
	n.Unconstrained = numeric.Matrix(mat.NewDense(3, 1, []float64{1, 2, 3}))
	n.RefreshSimplexValue()
	require.NoError(t, g.EvalAll())

	// No jacobian loaded: the cleared accumulators read as zero.
	require.NoError(t, SeedAndPropagate(g, y, det))
	assert.Zero(t, g.Node(6).Grad1)
	assert.Zero(t, g.Node(6).Grad2)
	Clear(g, y, det)
}

func TestSnapshot_RestoreIsExact(t *testing.T) {
	g, x, det := buildScalarChain(t)
	setScalarTarget(t, g, x, 0.6)

	snap := Save(g, det)

	before := make([]float64, len(det))
	for i, id := range det {
		before[i] = g.Node(id).Value.Float()
	}

	setScalarTarget(t, g, x, -1.9)
	snap.Restore(g)

	for i, id := range det {
		assert.Equal(t, before[i], g.Node(id).Value.Float(), "node %d must restore exactly", id)
	}
}

func TestSnapshot_RestoreMatrixDeepCopies(t *testing.T) {
	g, y, _ := buildSimplexChain(t)
	n := g.Node(y)
	n.Unconstrained = numeric.Matrix(mat.NewDense(3, 1, []float64{1, 2, 3}))
	n.RefreshSimplexValue()

	snap := Save(g, []graph.NodeID{y})
	orig := numeric.View(&n.Value).VectorData()

	numeric.View(&n.Value).SetAtVec(0, 0.9)
	snap.Restore(g)
	assert.Equal(t, orig, numeric.View(&n.Value).VectorData())

	// Restoring twice still works on independent payloads.
	numeric.View(&n.Value).SetAtVec(1, 0.9)
	snap.Restore(g)
	assert.Equal(t, orig, numeric.View(&n.Value).VectorData())
}
