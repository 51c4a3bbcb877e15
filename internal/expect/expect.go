package expect

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
)

// Evaluate decides pass/fail for the final filtered output. A nil expectation
// always passes; a nil return means the expectation held.
func Evaluate(expectation *config.Expectation, output string) error {
	if expectation == nil {
		return nil
	}

	switch expectation.Type {
	case config.ExpectMatches:
		return evaluateMatches(expectation.Pattern, output)
	case config.ExpectGreaterThan:
		return evaluateGreaterThan(expectation.Value, output)
	case config.ExpectLessThan:
		return evaluateLessThan(expectation.Value, output)
	default:
		return fmt.Errorf("unknown expectation type %q", expectation.Type)
	}
}

func evaluateMatches(pattern, output string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern `%s`: %w", pattern, err)
	}

	if !re.MatchString(output) {
		return fmt.Errorf("Not matched against `%s`", pattern)
	}
	return nil
}

func evaluateGreaterThan(bound float64, output string) error {
	value, err := parseNumeric(output)
	if err != nil {
		return err
	}

	if value <= bound {
		return fmt.Errorf("%s was not greater than %s", formatNumber(value), formatNumber(bound))
	}
	return nil
}

func evaluateLessThan(bound float64, output string) error {
	value, err := parseNumeric(output)
	if err != nil {
		return err
	}

	if value >= bound {
		return fmt.Errorf("%s was not less than %s", formatNumber(value), formatNumber(bound))
	}
	return nil
}

func parseNumeric(output string) (float64, error) {
	value, err := strconv.ParseFloat(output, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse `%s` as a number", output)
	}
	return value, nil
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
