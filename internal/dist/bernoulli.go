package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/minibayes/minibayes/internal/numeric"
)

// Bernoulli is the bernoulli distribution with success probability P.
// Its support is discrete, so it implements Distribution but not
// ScalarDistribution: a bernoulli sample is never a stepping target.
type Bernoulli struct {
	P float64
}

// Support implements Distribution.
func (Bernoulli) Support() Support { return SupportBoolean }

// NumParams implements Distribution.
func (Bernoulli) NumParams() int { return 1 }

// Valid implements Distribution.
func (d Bernoulli) Valid() bool {
	return d.P > 0 && d.P < 1
}

// LogProb implements Distribution. The value must be 0 or 1.
func (d Bernoulli) LogProb(v numeric.DualValue) float64 {
	x := v.Float()
	if x != 0 && x != 1 {
		return math.Inf(-1)
	}
	// The degenerate edges stay well-defined: an impossible outcome is
	// -inf, a certain one is 0.
	switch d.P {
	case 0:
		if x == 0 {
			return 0
		}
		return math.Inf(-1)
	case 1:
		if x == 1 {
			return 0
		}
		return math.Inf(-1)
	}
	if !d.Valid() {
		return math.Inf(-1)
	}
	return distuv.Bernoulli{P: d.P}.LogProb(x)
}

// Sample implements Distribution.
func (d Bernoulli) Sample(rng *rand.Rand) numeric.DualValue {
	return numeric.Scalar(distuv.Bernoulli{P: d.P, Src: rng}.Rand())
}

// ParamGradient implements Distribution. The single parameter is p.
func (d Bernoulli) ParamGradient(v numeric.DualValue) ParamGrad {
	pg := zeroGrad(1)
	x := v.Float()
	if !d.Valid() || (x != 0 && x != 1) {
		return pg
	}
	q := 1 - d.P
	pg.D1[0] = x/d.P - (1-x)/q
	pg.D2[0][0] = -x/(d.P*d.P) - (1-x)/(q*q)
	return pg
}
