package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/minibayes/minibayes/internal/numeric"
)

// Dirichlet is the dirichlet distribution with concentration vector Alpha.
// Values are column vectors on the probability simplex. It never acts as a
// ScalarDistribution; the simplex stepper handles dirichlet targets through
// their gamma decomposition instead.
type Dirichlet struct {
	Alpha []float64
}

// Support implements Distribution.
func (Dirichlet) Support() Support { return SupportSimplex }

// NumParams implements Distribution.
func (d Dirichlet) NumParams() int { return len(d.Alpha) }

// Valid implements Distribution.
func (d Dirichlet) Valid() bool {
	if len(d.Alpha) < 2 {
		return false
	}
	for _, a := range d.Alpha {
		if !(a > 0) || math.IsInf(a, 0) {
			return false
		}
	}
	return true
}

// LogProb implements Distribution. The density is evaluated in closed form
// so invalid parameters and off-simplex values degrade to negative infinity
// instead of panicking.
func (d Dirichlet) LogProb(v numeric.DualValue) float64 {
	if !d.Valid() {
		return math.Inf(-1)
	}
	y := numeric.View(&v).VectorData()
	if len(y) != len(d.Alpha) {
		return math.Inf(-1)
	}

	lp := 0.0
	sum := 0.0
	for k, a := range d.Alpha {
		if y[k] <= 0 {
			return math.Inf(-1)
		}
		lp += (a - 1) * math.Log(y[k])
		lp -= lgamma(a)
		sum += a
	}
	return lp + lgamma(sum)
}

// Sample implements Distribution, drawing through distmv.
func (d Dirichlet) Sample(rng *rand.Rand) numeric.DualValue {
	y := distmv.NewDirichlet(d.Alpha, rng).Rand(nil)
	return numeric.Matrix(mat.NewDense(len(y), 1, y))
}

// SampleGammas draws the positive coordinates of the gamma decomposition:
// independent Gamma(alpha_k, 1) variables whose normalization is a
// dirichlet draw. The simplex stepper keeps these as the unconstrained
// representation.
func (d Dirichlet) SampleGammas(rng *rand.Rand) numeric.DualValue {
	x := make([]float64, len(d.Alpha))
	for k, a := range d.Alpha {
		x[k] = Gamma{Alpha: a, Rate: 1}.Sample(rng).Float()
	}
	return numeric.Matrix(mat.NewDense(len(x), 1, x))
}

// ParamGradient implements Distribution. Parameter order matches Alpha.
func (d Dirichlet) ParamGradient(v numeric.DualValue) ParamGrad {
	n := len(d.Alpha)
	pg := zeroGrad(n)
	if !d.Valid() {
		return pg
	}
	y := numeric.View(&v).VectorData()
	if len(y) != n {
		return pg
	}

	total := floats.Sum(d.Alpha)
	dgTotal := mathext.Digamma(total)
	tgTotal := trigamma(total)
	for k := range d.Alpha {
		if y[k] <= 0 {
			return zeroGrad(n)
		}
		pg.D1[k] = math.Log(y[k]) - mathext.Digamma(d.Alpha[k]) + dgTotal
		for j := range d.Alpha {
			pg.D2[k][j] = tgTotal
		}
		pg.D2[k][k] -= trigamma(d.Alpha[k])
	}
	return pg
}
