package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	lorikeeterrors "github.com/alexisbeaulieu97/lorikeet/pkg/errors"
)

func TestParsePlanPreservesDeclarationOrder(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
zulu:
  value: z
alpha:
  value: a
mike:
  value: m
`))
	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)
	require.Equal(t, "zulu", plan.Steps[0].Name)
	require.Equal(t, "alpha", plan.Steps[1].Name)
	require.Equal(t, "mike", plan.Steps[2].Name)
}

func TestParsePlanEmptyDocument(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan(nil)
	require.NoError(t, err)
	require.Empty(t, plan.Steps)

	plan, err = ParsePlan([]byte("\n"))
	require.NoError(t, err)
	require.Empty(t, plan.Steps)
}

func TestParsePlanScalarProbeShorthand(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
disk:
  shell: df -h
  matches: "%"
ping:
  http: http://localhost:8000/health
`))
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)

	disk := plan.Steps[0]
	require.NotNil(t, disk.Shell)
	require.Equal(t, "df -h", disk.Shell.Command)
	require.True(t, disk.Shell.GetOutput)
	require.NotNil(t, disk.Expect)
	require.Equal(t, ExpectMatches, disk.Expect.Type)
	require.Equal(t, "%", disk.Expect.Pattern)

	ping := plan.Steps[1]
	require.NotNil(t, ping.HTTP)
	require.Equal(t, "http://localhost:8000/health", ping.HTTP.URL)
	require.Equal(t, 200, ping.HTTP.Status)
	require.True(t, ping.HTTP.VerifySSL)
	require.True(t, ping.HTTP.GetOutput)
}

func TestParsePlanHTTPMapping(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
login:
  http:
    url: https://example.com/login
    method: PUT
    status: 204
    save_cookies: true
    verify_ssl: false
    headers:
      X-Token: abc
    form:
      username: admin
      password: hunter2
`))
	require.NoError(t, err)

	probe := plan.Steps[0].HTTP
	require.NotNil(t, probe)
	require.Equal(t, "PUT", probe.Method)
	require.Equal(t, 204, probe.Status)
	require.True(t, probe.SaveCookies)
	require.False(t, probe.VerifySSL)
	require.Equal(t, "abc", probe.Headers["X-Token"])
	require.Equal(t, "admin", probe.Form["username"])
	require.False(t, probe.BodySet())
}

func TestParsePlanMultipartEntries(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
upload:
  http:
    url: https://example.com/upload
    multipart:
      comment: hello
      attachment:
        file: /tmp/report.txt
`))
	require.NoError(t, err)

	probe := plan.Steps[0].HTTP
	require.Equal(t, "hello", probe.Multipart["comment"].Value)
	require.Equal(t, "/tmp/report.txt", probe.Multipart["attachment"].FilePath)
}

func TestParsePlanRejectsCombinedPayloads(t *testing.T) {
	t.Parallel()

	_, err := ParsePlan([]byte(`
bad:
  http:
    url: https://example.com/
    body: raw
    form:
      a: b
`))
	require.Error(t, err)
	var validationErr *lorikeeterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Message, "mutually exclusive")
}

func TestParsePlanDesugarsShorthandFilters(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
api:
  value: '{"status":"ok"}'
  jmespath: status
  regex: "o."
  do_output: false
`))
	require.NoError(t, err)

	filters := plan.Steps[0].Filters
	require.Len(t, filters, 3)
	require.Equal(t, FilterJMESPath, filters[0].Type)
	require.Equal(t, "status", filters[0].Expr)
	require.Equal(t, FilterRegex, filters[1].Type)
	require.Equal(t, "o.", filters[1].Pattern)
	require.Equal(t, FilterNoOutput, filters[2].Type)
}

func TestParsePlanRegexCaptureGroupShorthand(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
extract:
  value: "version 1.2.3"
  regex:
    matches: 'version (?P<ver>[0-9.]+)'
    group: ver
`))
	require.NoError(t, err)

	filters := plan.Steps[0].Filters
	require.Len(t, filters, 1)
	require.Equal(t, FilterRegex, filters[0].Type)
	require.Equal(t, "ver", filters[0].Group)
}

func TestParsePlanExplicitFilterList(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
chain:
  value: '{"load":"0.25 extra"}'
  filters:
    - jmespath: load
    - regex: '[0-9.]+'
    - nooutput
`))
	require.NoError(t, err)

	filters := plan.Steps[0].Filters
	require.Len(t, filters, 3)
	require.Equal(t, FilterJMESPath, filters[0].Type)
	require.Equal(t, FilterRegex, filters[1].Type)
	require.Equal(t, FilterNoOutput, filters[2].Type)
}

func TestParsePlanRequireScalarOrList(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
a:
  value: x
b:
  value: y
  require: a
c:
  value: z
  require: [a, b]
  required_by: a
`))
	require.NoError(t, err)
	require.Empty(t, plan.Steps[0].Require)
	require.Equal(t, []string{"a"}, plan.Steps[1].Require)
	require.Equal(t, []string{"a", "b"}, plan.Steps[2].Require)
	require.Equal(t, []string{"a"}, plan.Steps[2].RequiredBy)
}

func TestParsePlanRejectsMultipleProbes(t *testing.T) {
	t.Parallel()

	_, err := ParsePlan([]byte(`
confused:
  value: hello
  shell: echo hi
`))
	require.Error(t, err)
	var validationErr *lorikeeterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Message, "more than one probe")
}

func TestParsePlanRejectsMissingProbe(t *testing.T) {
	t.Parallel()

	_, err := ParsePlan([]byte(`
empty:
  matches: anything
`))
	require.Error(t, err)
	var validationErr *lorikeeterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Message, "no probe")
}

func TestParsePlanRejectsMultipleExpectations(t *testing.T) {
	t.Parallel()

	_, err := ParsePlan([]byte(`
greedy:
  value: "5"
  matches: "5"
  greater_than: 1
`))
	require.Error(t, err)
}

func TestParsePlanRejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	_, err := ParsePlan([]byte(`
twice:
  value: a
twice:
  value: b
`))
	require.Error(t, err)
	var validationErr *lorikeeterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Message, "duplicate")
}

func TestParsePlanRejectsUnknownSystemSelector(t *testing.T) {
	t.Parallel()

	_, err := ParsePlan([]byte(`
metric:
  system: cpu_temperature
`))
	require.Error(t, err)
}

func TestParsePlanSystemSelector(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
load:
  system: load_avg_1m
  less_than: 100
`))
	require.NoError(t, err)
	require.NotNil(t, plan.Steps[0].System)
	require.Equal(t, SystemLoadAvg1m, plan.Steps[0].System.Selector)
	require.Equal(t, ExpectLessThan, plan.Steps[0].Expect.Type)
	require.InDelta(t, 100.0, plan.Steps[0].Expect.Value, 0.0001)
}

func TestParsePlanRejectsNegativeRetry(t *testing.T) {
	t.Parallel()

	_, err := ParsePlan([]byte(`
impatient:
  value: hi
  retry_count: -1
`))
	require.Error(t, err)
}

func TestParsePlanStepReference(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
a:
  value: hello
b:
  step: a
  matches: hello
`))
	require.NoError(t, err)
	require.NotNil(t, plan.Steps[1].StepRef)
	require.Equal(t, "a", *plan.Steps[1].StepRef)
}

func TestParsePlanRejectsNonMappingTopLevel(t *testing.T) {
	t.Parallel()

	_, err := ParsePlan([]byte("- just\n- a\n- list\n"))
	require.Error(t, err)
	var parseErr *lorikeeterrors.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseContext(t *testing.T) {
	t.Parallel()

	ctx, err := ParseContext([]byte("env: prod\nhosts:\n  - a\n  - b\n"))
	require.NoError(t, err)

	decoded, ok := ctx.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "prod", decoded["env"])

	empty, err := ParseContext(nil)
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestParsePlanShellMapping(t *testing.T) {
	t.Parallel()

	plan, err := ParsePlan([]byte(`
quiet:
  shell:
    command: systemctl restart app
    get_output: false
`))
	require.NoError(t, err)
	require.Equal(t, "systemctl restart app", plan.Steps[0].Shell.Command)
	require.False(t, plan.Steps[0].Shell.GetOutput)
}
