package harness

import (
	"fmt"
	"math"
	"strings"
)

// ExpectationError is returned when a moment expectation fails.
// It includes the observed moments to help debug the failure.
type ExpectationError struct {
	Query     string   // Query label for categorization
	Quantity  string   // "mean" or "stddev"
	Expected  float64  // Expected moment value
	Tolerance float64  // Allowed absolute deviation
	Actual    float64  // Observed moment value
	Summaries []Moment // Full moment table for debugging context
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: query %s %s\n", e.Query, e.Quantity)
	fmt.Fprintf(&buf, "  Expected: %v within %v\n", e.Expected, e.Tolerance)
	fmt.Fprintf(&buf, "  Actual: %v\n", e.Actual)

	fmt.Fprintf(&buf, "\nAll moments:\n")
	for _, m := range e.Summaries {
		fmt.Fprintf(&buf, "  [%d] mean=%v stddev=%v\n", m.Query, m.Mean, m.StdDev)
	}

	return buf.String()
}

// EvaluateExpectations checks every moment expectation against the
// reported summaries. Returns a slice of failure messages, one per
// expectation that does not hold.
func EvaluateExpectations(summaries []Moment, expects []MomentExpectation) []string {
	byQuery := make(map[int]Moment, len(summaries))
	for _, m := range summaries {
		byQuery[m.Query] = m
	}

	var failures []string
	for i, e := range expects {
		m, ok := byQuery[e.Query]
		if !ok {
			failures = append(failures, fmt.Sprintf(
				"expect[%d]: query %d not declared by the graph", i, e.Query))
			continue
		}

		if err := checkMoment(e.Query, "mean", e.Mean, e.Tolerance, m.Mean, summaries); err != nil {
			failures = append(failures, err.Error())
		}
		if e.StdDev != nil {
			if err := checkMoment(e.Query, "stddev", *e.StdDev, e.StdDevTolerance, m.StdDev, summaries); err != nil {
				failures = append(failures, err.Error())
			}
		}
	}

	return failures
}

// checkMoment compares one observed moment against its expectation.
// NaN never satisfies a bound, so a degenerate chain fails loudly
// instead of slipping through the comparison.
func checkMoment(query int, quantity string, expected, tolerance, actual float64, summaries []Moment) error {
	if math.IsNaN(actual) || math.Abs(actual-expected) > tolerance {
		return &ExpectationError{
			Query:     fmt.Sprintf("%d", query),
			Quantity:  quantity,
			Expected:  expected,
			Tolerance: tolerance,
			Actual:    actual,
			Summaries: summaries,
		}
	}
	return nil
}
