package report

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/alexisbeaulieu97/lorikeet/internal/model"
)

type junitFailure struct {
	Message string `xml:"message,attr"`
}

type junitTestCase struct {
	XMLName xml.Name      `xml:"testcase"`
	Name    string        `xml:"name,attr"`
	Time    string        `xml:"time,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
}

type junitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	TestCases []junitTestCase `xml:"testcase"`
}

// WriteJUnit emits one <testsuite> with a <testcase> per step; steps that did
// not pass carry a <failure> element with the error message.
func WriteJUnit(w io.Writer, results []model.StepResult) error {
	suite := junitTestSuite{
		Name:  "lorikeet",
		Tests: len(results),
	}

	for _, res := range results {
		testCase := junitTestCase{
			Name: res.Name,
			Time: strconv.FormatFloat(res.Duration.Seconds(), 'f', -1, 64),
		}
		if !res.Pass() {
			suite.Failures++
			message := ""
			if res.Error != nil {
				message = *res.Error
			}
			testCase.Failure = &junitFailure{Message: message}
		}
		suite.TestCases = append(suite.TestCases, testCase)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suite); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
