package harness

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ScenarioFailure represents a failed scenario in a suite run.
type ScenarioFailure struct {
	ScenarioName string `json:"scenario_name"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// SuiteResult contains results from running a scenario directory.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// RunSuite runs every scenario YAML file in dir and collects a summary.
// Graph paths inside the scenarios resolve relative to basePath.
//
// For each scenario file:
// 1. Load with base path resolution
// 2. Run via harness.Run
// 3. Collect pass/fail and failure details
//
// An empty directory is an error: a suite that silently checks nothing
// would read as a pass.
func RunSuite(dir, basePath string) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	result := &SuiteResult{}
	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenarioWithBasePath(path, basePath)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioName: filepath.Base(path),
				ScenarioPath: path,
				Error:        fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioName: scenario.Name,
				ScenarioPath: path,
				Error:        fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		if !runResult.Pass {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioName: scenario.Name,
				ScenarioPath: path,
				Error:        fmt.Sprintf("expectations failed: %s", strings.Join(runResult.Failures, "; ")),
			})
			continue
		}

		result.Passed++
	}

	return result, nil
}
