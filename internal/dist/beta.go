package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/minibayes/minibayes/internal/numeric"
)

// Beta is the beta distribution with shape parameters Alpha and Beta.
type Beta struct {
	Alpha, Beta float64
}

// Support implements Distribution.
func (Beta) Support() Support { return SupportUnit }

// NumParams implements Distribution.
func (Beta) NumParams() int { return 2 }

// Valid implements Distribution.
func (d Beta) Valid() bool {
	return d.Alpha > 0 && d.Beta > 0 && !math.IsInf(d.Alpha, 0) && !math.IsInf(d.Beta, 0)
}

// LogProb implements Distribution.
func (d Beta) LogProb(v numeric.DualValue) float64 {
	x := v.Float()
	if !d.Valid() || x <= 0 || x >= 1 {
		return math.Inf(-1)
	}
	return distuv.Beta{Alpha: d.Alpha, Beta: d.Beta}.LogProb(x)
}

// Sample implements Distribution.
func (d Beta) Sample(rng *rand.Rand) numeric.DualValue {
	return numeric.Scalar(distuv.Beta{Alpha: d.Alpha, Beta: d.Beta, Src: rng}.Rand())
}

// ValueGradient implements ScalarDistribution.
func (d Beta) ValueGradient(x float64) (g1, g2 float64) {
	if !d.Valid() || x <= 0 || x >= 1 {
		return 0, 0
	}
	g1 = (d.Alpha-1)/x - (d.Beta-1)/(1-x)
	g2 = -(d.Alpha-1)/(x*x) - (d.Beta-1)/((1-x)*(1-x))
	return g1, g2
}

// ParamGradient implements Distribution. Parameter order is (alpha, beta).
func (d Beta) ParamGradient(v numeric.DualValue) ParamGrad {
	pg := zeroGrad(2)
	x := v.Float()
	if !d.Valid() || x <= 0 || x >= 1 {
		return pg
	}

	both := mathext.Digamma(d.Alpha + d.Beta)
	pg.D1[0] = math.Log(x) - mathext.Digamma(d.Alpha) + both
	pg.D1[1] = math.Log(1-x) - mathext.Digamma(d.Beta) + both

	tBoth := trigamma(d.Alpha + d.Beta)
	pg.D2[0][0] = -trigamma(d.Alpha) + tBoth
	pg.D2[1][1] = -trigamma(d.Beta) + tBoth
	pg.D2[0][1] = tBoth
	pg.D2[1][0] = tBoth
	return pg
}
