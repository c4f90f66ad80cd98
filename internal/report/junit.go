package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// JUnitTestSuites is the root element of JUnit XML output.
type JUnitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Errors   int              `xml:"errors,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a single test suite within the JUnit output.
type JUnitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      string          `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	Cases     []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single replayed event as a test case.
type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test case failure.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped test case.
type JUnitSkipped struct {
	Message string `xml:"message,attr"`
}

// FormatJUnit writes the report as JUnit XML to the given writer.
// The scenarioFile parameter is used as the classname attribute. A zero
// timestamp defaults to the current time.
func FormatJUnit(w io.Writer, r *Report, scenarioFile string, timestamp time.Time) error {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	failures := 0
	skipped := 0
	cases := make([]JUnitTestCase, len(r.Events))

	for i, ev := range r.Events {
		tc := JUnitTestCase{
			Name:      fmt.Sprintf("event %d: %s %s", ev.Index, ev.Kind, ev.Address),
			Classname: scenarioFile,
			Time:      "0.000",
		}
		switch {
		case ev.Skipped:
			skipped++
			tc.Skipped = &JUnitSkipped{Message: "not attempted after abort"}
		case !ev.Passed:
			failures++
			msg := fmt.Sprintf("resolution failed: %s", ev.Reason)
			tc.Failure = &JUnitFailure{
				Message: msg,
				Type:    "ResolutionFailure",
				Content: ev.Detail,
			}
		}
		cases[i] = tc
	}

	elapsed := fmt.Sprintf("%.3f", float64(r.DurationMS)/1000.0)
	suites := JUnitTestSuites{
		Name:     "gui-replay",
		Tests:    r.TotalEvents,
		Failures: failures,
		Errors:   0,
		Time:     elapsed,
		Suites: []JUnitTestSuite{
			{
				Name:      r.Scenario,
				Tests:     r.TotalEvents,
				Failures:  failures,
				Errors:    0,
				Skipped:   skipped,
				Time:      elapsed,
				Timestamp: timestamp.Format(time.RFC3339),
				Cases:     cases,
			},
		},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(suites); err != nil {
		return fmt.Errorf("failed to encode JUnit XML: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
