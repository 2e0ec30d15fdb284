// Package calc provides a plain arithmetic calculator tool backed by the
// expr evaluation engine. The input is restricted to numeric literals and
// arithmetic operators before it is handed to the engine, so the tool can
// never reach variables, functions, or the process environment.
package calc

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/traject"
)

// Tool evaluates arithmetic expressions like "2 + 3 * 4".
type Tool struct{}

// New creates the calc tool.
func New() *Tool {
	return &Tool{}
}

func (t *Tool) Spec() traject.ToolSpec {
	return traject.ToolSpec{
		Name: "calc",
		Description: "Evaluates an arithmetic expression and returns the result. " +
			"Supports +, -, *, /, %, parentheses and decimal numbers. " +
			"Example: calc(expression='(12 + 8) * 3') returns '60'.",
		Parameters: map[string]*traject.Parameter{
			"expression": {
				Type:        traject.TypeString,
				Description: "An arithmetic expression, e.g. '2 + 3' or '(10 - 4) / 2'",
			},
		},
		Required: []string{"expression"},
	}
}

func (t *Tool) Run(ctx context.Context, args map[string]any) (string, error) {
	expression, _ := args["expression"].(string)
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", goerr.Wrap(traject.ErrToolExecution, "no expression provided")
	}

	if err := validate(expression); err != nil {
		return "", err
	}

	out, err := expr.Eval(expression, map[string]any{})
	if err != nil {
		return "", goerr.Wrap(traject.ErrToolExecution, "evaluation failed", goerr.V("cause", err.Error()))
	}

	return fmt.Sprintf("%v", out), nil
}

// validate rejects everything but numeric arithmetic: identifiers would
// reach the engine's environment, dots its member access, brackets its
// collection literals.
func validate(expression string) error {
	for _, ch := range expression {
		switch {
		case unicode.IsDigit(ch) || unicode.IsSpace(ch):
		case strings.ContainsRune("+-*/%().", ch):
		default:
			return goerr.Wrap(traject.ErrToolExecution, fmt.Sprintf("safety violation: character %q is not allowed", ch), goerr.V("expression", expression))
		}
	}
	return nil
}
