package reporting

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/emergent-company/epf-eval/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one provider.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one scenario result.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure lists the behaviors a model did not comply with.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents a run that could not be scored.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit groups results into one suite per provider, in the order
// providers first appear in the run.
func ConvertToJUnit(run *models.EvalRun) *JUnitTestSuites {
	out := &JUnitTestSuites{Name: run.RunID}
	index := map[models.ProviderName]int{}

	for _, r := range run.Results {
		i, ok := index[r.Provider]
		if !ok {
			i = len(out.TestSuites)
			index[r.Provider] = i
			out.TestSuites = append(out.TestSuites, JUnitTestSuite{
				Name:      string(r.Provider),
				Timestamp: run.Timestamp,
				Properties: []JUnitProperty{
					{Name: "run_id", Value: run.RunID},
					{Name: "model", Value: r.Model},
				},
			})
		}
		suite := &out.TestSuites[i]

		tc := convertResult(r)
		suite.Tests++
		suite.Time += tc.Time
		switch {
		case tc.Error != nil:
			suite.Errors++
		case tc.Failure != nil:
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	for _, s := range out.TestSuites {
		out.Tests += s.Tests
		out.Failures += s.Failures
		out.Errors += s.Errors
		out.Time += s.Time
	}
	return out
}

func convertResult(r *models.ScenarioResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      r.ScenarioName,
		Classname: fmt.Sprintf("%s.%s", r.Provider, r.ScenarioID),
		Time:      float64(r.DurationMs) / 1000.0,
	}

	if r.Error != "" {
		tc.Error = &JUnitError{
			Message: r.Error,
			Type:    "ExecutionError",
		}
		return tc
	}

	var failed []models.BehaviorScore
	for _, s := range r.Scores {
		if !s.Passed {
			failed = append(failed, s)
		}
	}
	if len(failed) > 0 {
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: compliance=%s", r.ScenarioName, Percent(r.ComplianceRate())),
			Type:    "ComplianceFailure",
			Body:    formatFailedBehaviors(failed),
		}
	}
	return tc
}

func formatFailedBehaviors(failed []models.BehaviorScore) string {
	var b strings.Builder
	for _, s := range failed {
		fmt.Fprintf(&b, "[FAIL] %s (weight=%.1f): %s\n", s.Behavior, s.Weight, s.Evidence)
	}
	return b.String()
}

// FormatJUnit renders JUnit XML with the standard header.
func FormatJUnit(run *models.EvalRun) ([]byte, error) {
	data, err := xml.MarshalIndent(ConvertToJUnit(run), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JUnit XML: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}
