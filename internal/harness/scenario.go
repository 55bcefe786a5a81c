package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance check: sample a graph document with a fixed
// seed and pin the posterior moments of its queries.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Graph is the path to the graph document to sample.
	// Relative paths resolve against the scenario file location
	// (see LoadScenarioWithBasePath).
	Graph string `yaml:"graph"`

	// Seed fixes the chain's random source.
	// If zero, the engine's default seed is used, keeping golden trace
	// comparison deterministic either way.
	Seed uint64 `yaml:"seed,omitempty"`

	// Iterations is the number of posterior draws to collect.
	Iterations int `yaml:"iterations"`

	// BurnIn is the number of sweeps to run before collecting.
	// Burn-in draws are part of the trace but excluded from the moments.
	BurnIn int `yaml:"burn_in,omitempty"`

	// Expect lists the posterior moment expectations to check.
	Expect []MomentExpectation `yaml:"expect"`
}

// MomentExpectation pins the posterior moments of one query.
type MomentExpectation struct {
	// Query is the query index the expectation applies to.
	Query int `yaml:"query"`

	// Mean is the expected posterior mean.
	Mean float64 `yaml:"mean"`

	// Tolerance is the allowed absolute deviation from Mean.
	Tolerance float64 `yaml:"tolerance"`

	// StdDev is the expected posterior standard deviation.
	// If nil, the standard deviation is not checked.
	StdDev *float64 `yaml:"stddev,omitempty"`

	// StdDevTolerance is the allowed absolute deviation from StdDev.
	// Required when StdDev is set.
	StdDevTolerance float64 `yaml:"stddev_tolerance,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. The graph path is
// taken as written, so it must be absolute or relative to the working
// directory. Errors cover a missing file, malformed YAML, unknown fields
// (typos), and missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, joining
// a relative graph path onto basePath. Suites pass their project root here
// so scenario files can name graphs by repository-relative path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields (catches typos like "expects:" vs "expect:")
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// The graph path must be resolved before validation stats it.
	if scenario.Graph != "" && !filepath.IsAbs(scenario.Graph) && basePath != "" {
		scenario.Graph = filepath.Join(basePath, scenario.Graph)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Graph == "" {
		return fmt.Errorf("graph is required")
	}
	if _, err := os.Stat(s.Graph); os.IsNotExist(err) {
		return fmt.Errorf("graph file not found: %s", s.Graph)
	}

	if s.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive")
	}
	if s.BurnIn < 0 {
		return fmt.Errorf("burn_in must be non-negative")
	}

	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}
	for i, e := range s.Expect {
		if err := validateExpectation(i, &e); err != nil {
			return err
		}
	}

	return nil
}

// validateExpectation validates a single moment expectation.
func validateExpectation(index int, e *MomentExpectation) error {
	if e.Query < 0 {
		return fmt.Errorf("expect[%d]: query must be non-negative", index)
	}
	if e.Tolerance <= 0 {
		return fmt.Errorf("expect[%d]: tolerance must be positive", index)
	}
	if e.StdDev != nil && e.StdDevTolerance <= 0 {
		return fmt.Errorf("expect[%d]: stddev_tolerance must be positive when stddev is set", index)
	}
	return nil
}
