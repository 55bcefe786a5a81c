package proposer

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/minibayes/minibayes/internal/dist"
)

// Proposer is a single-use proposal distribution over one scalar
// coordinate.
type Proposer interface {
	// Sample draws a candidate value through the shared random source.
	Sample(rng *rand.Rand) float64

	// LogProb evaluates the proposal log-density at x.
	LogProb(x float64) float64
}

// DegeneracyError reports that no proposal could be built at this point:
// the derivatives are non-finite or the value lies outside the support.
type DegeneracyError struct {
	Support dist.Support
	Value   float64
	Grad1   float64
	Grad2   float64
}

// Error implements the error interface.
func (e *DegeneracyError) Error() string {
	return fmt.Sprintf("non-concave local approximation: support=%s value=%g grad1=%g grad2=%g",
		e.Support, e.Value, e.Grad1, e.Grad2)
}

// IsDegeneracy reports whether err is a proposal degeneracy.
// Uses errors.As to handle wrapped errors.
func IsDegeneracy(err error) bool {
	var de *DegeneracyError
	return errors.As(err, &de)
}

// NormalProposer proposes from Normal(Mu, Sigma).
type NormalProposer struct {
	Mu, Sigma float64
}

// Sample implements Proposer.
func (p NormalProposer) Sample(rng *rand.Rand) float64 {
	return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma, Src: rng}.Rand()
}

// LogProb implements Proposer.
func (p NormalProposer) LogProb(x float64) float64 {
	return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma}.LogProb(x)
}

// GammaProposer proposes from Gamma(Shape, Rate).
type GammaProposer struct {
	Shape, Rate float64
}

// Sample implements Proposer.
func (p GammaProposer) Sample(rng *rand.Rand) float64 {
	return distuv.Gamma{Alpha: p.Shape, Beta: p.Rate, Src: rng}.Rand()
}

// LogProb implements Proposer.
func (p GammaProposer) LogProb(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return distuv.Gamma{Alpha: p.Shape, Beta: p.Rate}.LogProb(x)
}

// BetaProposer proposes from Beta(Alpha, Beta).
type BetaProposer struct {
	Alpha, Beta float64
}

// Sample implements Proposer.
func (p BetaProposer) Sample(rng *rand.Rand) float64 {
	return distuv.Beta{Alpha: p.Alpha, Beta: p.Beta, Src: rng}.Rand()
}

// LogProb implements Proposer.
func (p BetaProposer) LogProb(x float64) float64 {
	if x <= 0 || x >= 1 {
		return math.Inf(-1)
	}
	return distuv.Beta{Alpha: p.Alpha, Beta: p.Beta}.LogProb(x)
}

// NMC builds the Newton proposal for a coordinate with the given support,
// current value, and local log-density derivatives.
//
// The closed forms match the log-density's first and second derivative at
// the value:
//
//	real:     Normal(value - grad1/grad2, sqrt(-1/grad2))   needs grad2 < 0
//	positive: Gamma(1 - value^2*grad2, -value*grad2 - grad1) needs both > 0
//	unit:     Beta(1 + value^2*(grad1 - (1-value)*grad2),
//	               1 - (1-value)^2*(grad1 + value*grad2))    needs both > 0
//
// Outside those regions the conservative fallback centered at the current
// value is used instead: Normal(value, 1), Gamma(1, 1/value), Beta(1, 1).
func NMC(support dist.Support, value, grad1, grad2 float64) (Proposer, error) {
	if !finite(value) || !finite(grad1) || !finite(grad2) {
		return nil, &DegeneracyError{Support: support, Value: value, Grad1: grad1, Grad2: grad2}
	}

	switch support {
	case dist.SupportReal:
		if grad2 < 0 {
			return NormalProposer{
				Mu:    value - grad1/grad2,
				Sigma: math.Sqrt(-1 / grad2),
			}, nil
		}
		return NormalProposer{Mu: value, Sigma: 1}, nil

	case dist.SupportPositive:
		if value <= 0 {
			return nil, &DegeneracyError{Support: support, Value: value, Grad1: grad1, Grad2: grad2}
		}
		shape := 1 - value*value*grad2
		rate := -value*grad2 - grad1
		if shape > 0 && rate > 0 {
			return GammaProposer{Shape: shape, Rate: rate}, nil
		}
		return GammaProposer{Shape: 1, Rate: 1 / value}, nil

	case dist.SupportUnit:
		if value <= 0 || value >= 1 {
			return nil, &DegeneracyError{Support: support, Value: value, Grad1: grad1, Grad2: grad2}
		}
		comp := 1 - value
		alpha := 1 + value*value*(grad1-comp*grad2)
		beta := 1 - comp*comp*(grad1+value*grad2)
		if alpha > 0 && beta > 0 {
			return BetaProposer{Alpha: alpha, Beta: beta}, nil
		}
		return BetaProposer{Alpha: 1, Beta: 1}, nil

	default:
		return nil, &DegeneracyError{Support: support, Value: value, Grad1: grad1, Grad2: grad2}
	}
}

func finite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}
