package traject

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultMaxSteps   = 16
	DefaultFinishTool = "finish"
)

type runnerConfig struct {
	maxSteps   int
	finishTool string
	toolNames  []string
	logger     *slog.Logger
}

func (c *runnerConfig) Clone() *runnerConfig {
	return &runnerConfig{
		maxSteps:   c.maxSteps,
		finishTool: c.finishTool,
		// A real copy: per-run WithTools appends must not share a backing
		// array with the base config or with other concurrent episodes.
		toolNames: slices.Clone(c.toolNames),
		logger:    c.logger,
	}
}

func (c *runnerConfig) validate() error {
	if c.maxSteps <= 0 {
		return goerr.New("step budget must be positive", goerr.V("max_steps", c.maxSteps))
	}
	if c.finishTool == "" {
		return goerr.New("terminal tool name must not be empty")
	}
	return nil
}

// RunnerOption configures a Runner at construction or per Run call.
type RunnerOption func(*runnerConfig)

// WithMaxSteps sets the step budget of an episode. One step is one policy
// invocation plus at most one tool execution.
func WithMaxSteps(maxSteps int) RunnerOption {
	return func(c *runnerConfig) {
		c.maxSteps = maxSteps
	}
}

// WithFinishTool sets the name of the designated terminal tool.
func WithFinishTool(name string) RunnerOption {
	return func(c *runnerConfig) {
		c.finishTool = name
	}
}

// WithTools restricts the episode to a subset of the registered tools.
// By default all registered tools are available.
func WithTools(names ...string) RunnerOption {
	return func(c *runnerConfig) {
		c.toolNames = append(c.toolNames, names...)
	}
}

// WithLogger sets the logger for the runner. Default is a discard logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(c *runnerConfig) {
		c.logger = logger
	}
}

// Runner drives episodes: it repeatedly invokes the policy, records one
// transition per invocation, executes requested tools, and appends their
// results as observations until the terminal tool is called or the step
// budget is exhausted. A Runner holds no per-episode state; one instance
// may run many episodes concurrently.
type Runner struct {
	policy   PolicyClient
	registry *Registry
	runnerConfig
}

// NewRunner creates a Runner over an explicitly injected tool registry.
func NewRunner(policy PolicyClient, registry *Registry, options ...RunnerOption) (*Runner, error) {
	if policy == nil {
		return nil, goerr.New("policy client is required")
	}
	if registry == nil {
		return nil, goerr.New("tool registry is required")
	}

	r := &Runner{
		policy:   policy,
		registry: registry,
		runnerConfig: runnerConfig{
			maxSteps:   DefaultMaxSteps,
			finishTool: DefaultFinishTool,
			logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}

	for _, opt := range options {
		opt(&r.runnerConfig)
	}

	if err := r.runnerConfig.validate(); err != nil {
		return nil, err
	}

	for _, name := range r.toolNames {
		if _, err := r.registry.Get(name); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Run executes one episode from the given instruction and returns its
// trajectory. Tool failures never abort the episode; they are surfaced to
// the policy as error observations. Only a failure of the policy
// invocation itself (including cancellation) is fatal, and even then the
// partial trajectory is returned alongside the error.
func (r *Runner) Run(ctx context.Context, instruction []Message, options ...RunnerOption) (*Trajectory, error) {
	cfg := r.runnerConfig.Clone()
	for _, opt := range options {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	tj := newTrajectory()
	logger := cfg.logger.With("traject.trajectory_id", tj.ID)
	ctx = ctxWithLogger(ctx, logger)

	specs, available := r.availableTools(cfg)
	conversation := cloneMessages(instruction)

	logger.Info("starting episode",
		"max_steps", cfg.maxSteps,
		"finish_tool", cfg.finishTool,
		"tools", len(specs),
	)

	for step := 0; step < cfg.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			tj.terminate(TerminationError)
			return tj, goerr.Wrap(ErrPolicyInvocation, "episode cancelled", goerr.V("step", step), goerr.V("cause", err.Error()))
		}

		resp, err := r.policy.Generate(ctx, conversation, specs)
		if err != nil {
			logger.Warn("policy invocation failed", "step", step, "error", err)
			tj.terminate(TerminationError)
			return tj, goerr.Wrap(ErrPolicyInvocation, "generate failed", goerr.V("step", step), goerr.V("cause", err.Error()))
		}

		// One transition per policy invocation, recorded unconditionally
		// before the action is interpreted.
		tr := &Transition{
			Observation:    cloneMessages(conversation),
			Text:           resp.Text,
			PromptTokenIDs: resp.PromptTokenIDs,
			TokenIDs:       resp.TokenIDs,
			LogProbs:       resp.LogProbs,
		}
		tj.record(tr)

		conversation = append(conversation, assistantMessage(resp.Text))

		call := resp.ToolCall
		if call == nil {
			call = ParseToolCall(resp.Text)
		}
		if call == nil {
			if strings.Contains(resp.Text, "<function=") {
				logger.Info("malformed tool call markup", "step", step)
				conversation = append(conversation, toolMessage(
					"ERROR: malformed tool call markup, expected <function=name>\n<parameter=key>value</parameter>\n</function>"))
				continue
			}
			logger.Debug("no tool call in action", "step", step)
			continue
		}
		tr.ToolCall = call

		if call.Name == cfg.finishTool {
			tj.Answer = answerOf(call)
			tj.terminate(TerminationToolFinish)
			logger.Info("episode finished", "answer", tj.Answer, "steps", step+1)
			return tj, nil
		}

		result, err := r.executeTool(ctx, available, call)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				tj.terminate(TerminationError)
				return tj, goerr.Wrap(ErrPolicyInvocation, "episode cancelled during tool execution", goerr.V("step", step), goerr.V("cause", ctxErr.Error()))
			}

			logger.Info("tool execution failed", "tool", call.Name, "error", err)
			conversation = append(conversation, toolMessage("ERROR: "+err.Error()))
			continue
		}

		logger.Debug("tool executed", "tool", call.Name, "result", result)
		conversation = append(conversation, toolMessage(result))
	}

	tj.terminate(TerminationStepLimit)
	logger.Info("episode reached step limit", "max_steps", cfg.maxSteps)
	return tj, nil
}

func (r *Runner) availableTools(cfg *runnerConfig) ([]ToolSpec, map[string]bool) {
	specs := r.registry.Specs()

	if len(cfg.toolNames) > 0 {
		allowed := map[string]bool{}
		for _, name := range cfg.toolNames {
			allowed[name] = true
		}
		filtered := make([]ToolSpec, 0, len(specs))
		for _, spec := range specs {
			if allowed[spec.Name] {
				filtered = append(filtered, spec)
			}
		}
		specs = filtered
	}

	available := make(map[string]bool, len(specs))
	for _, spec := range specs {
		available[spec.Name] = true
	}
	return specs, available
}

func (r *Runner) executeTool(ctx context.Context, available map[string]bool, call *ToolCall) (string, error) {
	if !available[call.Name] {
		return "", goerr.Wrap(ErrUnknownTool, call.Name+" is not available in this episode", goerr.V("tool_name", call.Name))
	}
	return r.registry.Execute(ctx, call.Name, call.Arguments)
}

func answerOf(call *ToolCall) string {
	switch v := call.Arguments["answer"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
