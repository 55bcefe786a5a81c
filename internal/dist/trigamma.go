package dist

import "math"

// lgamma returns log|Gamma(x)|, discarding the sign term since every
// argument here is positive.
func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// trigamma returns the derivative of the digamma function at x > 0.
// gonum's mathext exports Digamma but not its derivative, so this uses the
// standard recurrence to shift the argument into the asymptotic range and
// then the Bernoulli-number series.
func trigamma(x float64) float64 {
	if math.IsNaN(x) || x <= 0 {
		return math.NaN()
	}

	// psi'(x) = psi'(x+1) + 1/x^2
	acc := 0.0
	for x < 6 {
		acc += 1 / (x * x)
		x++
	}

	inv := 1 / x
	inv2 := inv * inv
	series := inv + inv2/2 + inv*inv2*(1.0/6.0) -
		inv*inv2*inv2*(1.0/30.0) +
		inv*inv2*inv2*inv2*(1.0/42.0) -
		inv*inv2*inv2*inv2*inv2*(1.0/30.0)
	return acc + series
}
