// Package pyeval provides a tool that evaluates simple Python-style
// expressions in a hermetic Starlark interpreter. Expressions are screened
// at the syntax-tree level before evaluation, and each invocation runs on
// a fresh thread with a step limit and a wall-clock timeout, so a hostile
// or runaway expression cannot take down the rollout loop.
package pyeval

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/m-mizutani/traject"
)

const (
	DefaultTimeout  = 2 * time.Second
	DefaultMaxSteps = 1_000_000
)

// Builtins callable inside expressions. Everything else is rejected by the
// syntax screen before evaluation.
var allowedCalls = map[string]bool{
	"abs":   true,
	"min":   true,
	"max":   true,
	"int":   true,
	"float": true,
}

var allowedNames = map[string]bool{
	"True":  true,
	"False": true,
	"None":  true,
}

// Rejected lexically before parsing. Statements like "import os" are not
// valid expressions anyway, but screening them here reports a safety
// violation instead of a syntax error.
var forbiddenPatterns = []string{
	"import",
	"exec",
	"eval(",
	"compile(",
	"open(",
	"__",
}

// Tool evaluates a single Python-style expression and returns the result
// as a string. Only literals, arithmetic, and a small whitelist of math
// builtins are allowed: no imports, no attribute access, no variables.
type Tool struct {
	timeout  time.Duration
	maxSteps uint64
}

// Option configures the tool.
type Option func(*Tool)

// WithTimeout sets the wall-clock bound of one evaluation. Default is
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Tool) {
		t.timeout = d
	}
}

// WithMaxSteps caps the Starlark execution steps of one evaluation.
func WithMaxSteps(steps uint64) Option {
	return func(t *Tool) {
		t.maxSteps = steps
	}
}

// New creates the python_eval tool.
func New(options ...Option) *Tool {
	t := &Tool{
		timeout:  DefaultTimeout,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *Tool) Spec() traject.ToolSpec {
	return traject.ToolSpec{
		Name: "python_eval",
		Description: "Evaluates a simple Python expression and returns the result.\n\n" +
			"Use this tool to perform mathematical calculations.\n" +
			"Examples:\n" +
			"- python_eval(code='2 + 3') returns '5'\n" +
			"- python_eval(code='10 * 5') returns '50'\n" +
			"- python_eval(code='100 / 4') returns '25.0'\n\n" +
			"Note: Only basic mathematical operations are supported. No imports or complex operations.",
		Parameters: map[string]*traject.Parameter{
			"code": {
				Type:        traject.TypeString,
				Description: "A simple Python expression to evaluate (e.g., '2 + 3', '10 * 5')",
			},
		},
		Required: []string{"code"},
	}
}

func (t *Tool) Run(ctx context.Context, args map[string]any) (string, error) {
	code, _ := args["code"].(string)
	code = strings.TrimSpace(code)
	if code == "" {
		return "", goerr.Wrap(traject.ErrToolExecution, "no code provided")
	}

	expr, err := screen(code)
	if err != nil {
		return "", err
	}

	return t.evaluate(ctx, expr)
}

// screen parses the expression and rejects anything beyond literal
// arithmetic before it reaches the interpreter.
func screen(code string) (syntax.Expr, error) {
	for _, pattern := range forbiddenPatterns {
		if strings.Contains(code, pattern) {
			return nil, goerr.Wrap(traject.ErrToolExecution,
				fmt.Sprintf("safety violation: forbidden pattern %q", pattern),
				goerr.V("code", code))
		}
	}

	opts := &syntax.FileOptions{}
	expr, err := opts.ParseExpr("python_eval", code, 0)
	if err != nil {
		return nil, goerr.Wrap(traject.ErrToolExecution, "invalid expression syntax", goerr.V("cause", err.Error()))
	}

	var violation string
	syntax.Walk(expr, func(n syntax.Node) bool {
		if violation != "" || n == nil {
			return false
		}
		switch n := n.(type) {
		case *syntax.LoadStmt:
			violation = "imports are not allowed"
		case *syntax.DotExpr:
			violation = "attribute access is not allowed"
		case *syntax.LambdaExpr:
			violation = "lambda expressions are not allowed"
		case *syntax.Comprehension:
			violation = "comprehensions are not allowed"
		case *syntax.CallExpr:
			ident, ok := n.Fn.(*syntax.Ident)
			if !ok || !allowedCalls[ident.Name] {
				violation = "function calls are not allowed beyond the math builtins"
			}
		case *syntax.Ident:
			if !allowedNames[n.Name] && !allowedCalls[n.Name] {
				violation = fmt.Sprintf("name %q is not allowed, use only numbers and basic operations", n.Name)
			}
		}
		return violation == ""
	})

	if violation != "" {
		return nil, goerr.Wrap(traject.ErrToolExecution, "safety violation: "+violation, goerr.V("code", code))
	}

	return expr, nil
}

func (t *Tool) evaluate(ctx context.Context, expr syntax.Expr) (string, error) {
	// Fresh thread and environment per invocation. Cancellation hooks are
	// released on return whether evaluation succeeds, fails, or times out.
	thread := &starlark.Thread{Name: "python_eval"}
	if t.maxSteps > 0 {
		thread.SetMaxExecutionSteps(t.maxSteps)
	}

	var timedOut atomic.Bool
	timer := time.AfterFunc(t.timeout, func() {
		timedOut.Store(true)
		thread.Cancel("timeout")
	})
	defer timer.Stop()

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel("context cancelled")
	})
	defer stop()

	env := starlark.StringDict{}
	for name := range allowedCalls {
		env[name] = starlark.Universe[name]
	}

	val, err := starlark.EvalExprOptions(&syntax.FileOptions{}, thread, expr, env)
	if err != nil {
		if timedOut.Load() {
			return "", goerr.Wrap(traject.ErrToolTimeout, "evaluation timed out", goerr.V("timeout", t.timeout.String()))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", goerr.Wrap(traject.ErrToolExecution, "evaluation failed", goerr.V("cause", err.Error()))
	}

	return render(val), nil
}

func render(val starlark.Value) string {
	if s, ok := starlark.AsString(val); ok {
		return s
	}
	return val.String()
}
