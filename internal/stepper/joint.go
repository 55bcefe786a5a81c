package stepper

import (
	"fmt"

	"github.com/minibayes/minibayes/internal/dist"
	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/numeric"
)

// jointAndGrads folds the dependent stochastic set into the three numbers a
// proposal needs: the joint log-probability over sto and the first and
// second derivative of that log-probability with respect to the target
// coordinate.
//
// The target's own prior term is supplied by targetTerm, because it differs
// between steppers: the scalar stepper uses the target distribution's value
// derivatives, the simplex stepper the closed-form gamma term of the
// coordinate being stepped. Every other stochastic node contributes its
// log-probability plus the parameter chain rule, combining the distribution's
// parameter derivatives with the propagated derivatives of each parameter
// node. Parameters untouched by the target carry zero derivatives and drop
// out on their own.
func jointAndGrads(
	g *graph.Graph,
	target graph.NodeID,
	sto []graph.NodeID,
	targetTerm func() (lp, g1, g2 float64),
) (logProb, grad1, grad2 float64, err error) {
	for _, id := range sto {
		if id == target {
			lp, g1, g2 := targetTerm()
			logProb += lp
			grad1 += g1
			grad2 += g2
			continue
		}

		n := g.Node(id)
		d, derr := dist.ForNode(g, n.Parents[0])
		if derr != nil {
			return 0, 0, 0, fmt.Errorf("stochastic node %d: %w", id, derr)
		}

		var value numeric.DualValue
		if n.Op == graph.OpSample {
			value = n.Value
		} else {
			value = g.Node(n.Parents[1]).Value
		}
		logProb += d.LogProb(value)

		pg := d.ParamGradient(value)
		params := g.Node(n.Parents[0]).Parents
		for i, pi := range params {
			pn := g.Node(pi)
			if pn.Grad1 == 0 && pn.Grad2 == 0 {
				continue
			}
			grad1 += pg.D1[i] * pn.Grad1
			grad2 += pg.D1[i] * pn.Grad2
			for j, pj := range params {
				grad2 += pg.D2[i][j] * pn.Grad1 * g.Node(pj).Grad1
			}
		}
	}
	return logProb, grad1, grad2, nil
}

// scalarTargetTerm builds the targetTerm closure for a scalar sample: the
// log-density and value derivatives of its own distribution at the current
// value.
func scalarTargetTerm(g *graph.Graph, target graph.NodeID) (func() (float64, float64, float64), error) {
	n := g.Node(target)
	d, err := dist.ForNode(g, n.Parents[0])
	if err != nil {
		return nil, err
	}
	sd, ok := d.(dist.ScalarDistribution)
	if !ok {
		return nil, fmt.Errorf("node %d: %s has no value derivatives", target, g.DistOp(target))
	}
	return func() (float64, float64, float64) {
		x := n.Value.Float()
		lp := sd.LogProb(n.Value)
		g1, g2 := sd.ValueGradient(x)
		return lp, g1, g2
	}, nil
}
