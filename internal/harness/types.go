package harness

// TraceMove is one accept/reject decision in the chain trace.
// Field order matches the engine's reporting order so a serialized
// trace reads like the chain ran.
type TraceMove struct {
	Iteration  int     `json:"iteration"`
	Node       int     `json:"node"`
	Coordinate int     `json:"coordinate"`
	Old        float64 `json:"old"`
	New        float64 `json:"new"`
	LogRatio   float64 `json:"log_ratio"`
	Accepted   bool    `json:"accepted"`
}

// Moment is the reported posterior moment pair for one query.
type Moment struct {
	Query  int     `json:"query"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every moment expectation holds.
	Pass bool `json:"pass"`

	// ScenarioName identifies the executed scenario.
	ScenarioName string `json:"scenario_name"`

	// Moves contains every accept/reject decision in order.
	// Used for determinism checks and golden comparison.
	Moves []TraceMove `json:"moves"`

	// Summaries holds the post-burn-in moments per query.
	Summaries []Moment `json:"summaries"`

	// Failures contains expectation failure messages.
	// Empty if Pass is true.
	Failures []string `json:"failures,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult(scenarioName string) *Result {
	return &Result{
		Pass:         true,
		ScenarioName: scenarioName,
		Moves:        []TraceMove{},
		Summaries:    []Moment{},
		Failures:     []string{},
	}
}

// AddFailure adds an expectation failure and marks the result as failed.
func (r *Result) AddFailure(msg string) {
	r.Failures = append(r.Failures, msg)
	r.Pass = false
}
