package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/minibayes/minibayes/internal/numeric"
)

// Gamma is the gamma distribution with shape Alpha and rate Rate.
type Gamma struct {
	Alpha, Rate float64
}

// Support implements Distribution.
func (Gamma) Support() Support { return SupportPositive }

// NumParams implements Distribution.
func (Gamma) NumParams() int { return 2 }

// Valid implements Distribution.
func (d Gamma) Valid() bool {
	return d.Alpha > 0 && d.Rate > 0 && !math.IsInf(d.Alpha, 0) && !math.IsInf(d.Rate, 0)
}

// LogProb implements Distribution.
func (d Gamma) LogProb(v numeric.DualValue) float64 {
	x := v.Float()
	if !d.Valid() || x <= 0 {
		return math.Inf(-1)
	}
	return distuv.Gamma{Alpha: d.Alpha, Beta: d.Rate}.LogProb(x)
}

// Sample implements Distribution.
func (d Gamma) Sample(rng *rand.Rand) numeric.DualValue {
	return numeric.Scalar(distuv.Gamma{Alpha: d.Alpha, Beta: d.Rate, Src: rng}.Rand())
}

// ValueGradient implements ScalarDistribution.
func (d Gamma) ValueGradient(x float64) (g1, g2 float64) {
	if !d.Valid() || x <= 0 {
		return 0, 0
	}
	return (d.Alpha-1)/x - d.Rate, -(d.Alpha - 1) / (x * x)
}

// ParamGradient implements Distribution. Parameter order is (alpha, rate).
func (d Gamma) ParamGradient(v numeric.DualValue) ParamGrad {
	pg := zeroGrad(2)
	x := v.Float()
	if !d.Valid() || x <= 0 {
		return pg
	}

	pg.D1[0] = math.Log(d.Rate) - mathext.Digamma(d.Alpha) + math.Log(x)
	pg.D1[1] = d.Alpha/d.Rate - x

	pg.D2[0][0] = -trigamma(d.Alpha)
	pg.D2[1][1] = -d.Alpha / (d.Rate * d.Rate)
	pg.D2[0][1] = 1 / d.Rate
	pg.D2[1][0] = pg.D2[0][1]
	return pg
}
