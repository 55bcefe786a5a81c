package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/minibayes/minibayes/internal/numeric"
)

// Normal is the normal distribution with mean Mu and standard deviation
// Sigma.
type Normal struct {
	Mu, Sigma float64
}

// Support implements Distribution.
func (Normal) Support() Support { return SupportReal }

// NumParams implements Distribution.
func (Normal) NumParams() int { return 2 }

// Valid implements Distribution.
func (d Normal) Valid() bool {
	return d.Sigma > 0 && !math.IsInf(d.Mu, 0) && !math.IsNaN(d.Mu) && !math.IsNaN(d.Sigma)
}

// LogProb implements Distribution.
func (d Normal) LogProb(v numeric.DualValue) float64 {
	if !d.Valid() {
		return math.Inf(-1)
	}
	return distuv.Normal{Mu: d.Mu, Sigma: d.Sigma}.LogProb(v.Float())
}

// Sample implements Distribution.
func (d Normal) Sample(rng *rand.Rand) numeric.DualValue {
	return numeric.Scalar(distuv.Normal{Mu: d.Mu, Sigma: d.Sigma, Src: rng}.Rand())
}

// ValueGradient implements ScalarDistribution.
func (d Normal) ValueGradient(x float64) (g1, g2 float64) {
	if !d.Valid() {
		return 0, 0
	}
	v := d.Sigma * d.Sigma
	return -(x - d.Mu) / v, -1 / v
}

// ParamGradient implements Distribution. Parameter order is (mu, sigma).
func (d Normal) ParamGradient(v numeric.DualValue) ParamGrad {
	pg := zeroGrad(2)
	if !d.Valid() {
		return pg
	}
	x := v.Float()
	diff := x - d.Mu
	s2 := d.Sigma * d.Sigma
	s3 := s2 * d.Sigma
	s4 := s2 * s2

	pg.D1[0] = diff / s2
	pg.D1[1] = -1/d.Sigma + diff*diff/s3

	pg.D2[0][0] = -1 / s2
	pg.D2[1][1] = 1/s2 - 3*diff*diff/s4
	pg.D2[0][1] = -2 * diff / s3
	pg.D2[1][0] = pg.D2[0][1]
	return pg
}
