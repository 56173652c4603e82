// Package template expands configuration strings and renders named response
// templates. Both use Go templates with the sprig function library.
package template

import (
	"bytes"
	"strings"
	gotemplate "text/template"

	"al.essio.dev/pkg/shellescape"
	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/expr-lang/expr"
	"github.com/samber/lo"

	errUtils "github.com/joat-cli/joat/pkg/errors"
)

// missingKeyOption makes a reference to an undefined variable fail.
const missingKeyOption = "missingkey=error"

// FuncMap returns the functions available to every template: sprig plus
// shell_quote and expr.
func FuncMap() gotemplate.FuncMap {
	return lo.Assign(sprig.TxtFuncMap(), gotemplate.FuncMap{
		"shell_quote": shellescape.Quote,
		"expr":        evalExpr,
	})
}

// Expand renders a one-off template. name identifies the template in errors.
// Strings without actions are returned unchanged.
func Expand(name, text string, data any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	t, err := gotemplate.New(name).Funcs(FuncMap()).Option(missingKeyOption).Parse(text)
	if err != nil {
		return "", errors.Wrapf(errUtils.ErrTemplate, "%s %q: %v", name, text, err)
	}

	var res bytes.Buffer
	if err := t.Execute(&res, data); err != nil {
		return "", errors.Wrapf(errUtils.ErrTemplate, "%s %q: %v", name, text, err)
	}

	return res.String(), nil
}

// evalExpr evaluates an expr-lang expression with env as its environment.
func evalExpr(expression string, env map[string]any) (any, error) {
	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile expression '%s'", expression)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute expression '%s'", expression)
	}

	return result, nil
}
