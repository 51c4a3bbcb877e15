package template

import (
	"strings"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"

	lorikeeterrors "github.com/alexisbeaulieu97/lorikeet/pkg/errors"
)

// Expand renders plan text against the supplied context value. The context is
// the decoded config document and becomes the template's dot; sprig's function
// map provides the usual pipeline helpers. Plans containing no template
// actions pass through unchanged.
func Expand(planText string, context any) (string, error) {
	if !strings.Contains(planText, "{{") {
		return planText, nil
	}

	tmpl, err := texttemplate.New("plan").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(planText)
	if err != nil {
		return "", lorikeeterrors.NewTemplateError(err)
	}

	var rendered strings.Builder
	if err := tmpl.Execute(&rendered, context); err != nil {
		return "", lorikeeterrors.NewTemplateError(err)
	}

	return rendered.String(), nil
}
