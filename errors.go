package traject

import "errors"

var (
	// Tool-level errors are recovered inside the rollout loop: they are
	// surfaced to the policy as error observations and the episode
	// continues.
	ErrUnknownTool   = errors.New("unknown tool")
	ErrToolTimeout   = errors.New("tool execution timed out")
	ErrToolExecution = errors.New("tool execution failed")

	// ErrPolicyInvocation is fatal to the current episode only. The
	// episode terminates with TerminationError and still yields its
	// partial trajectory.
	ErrPolicyInvocation = errors.New("policy invocation failed")

	// Registration errors are raised at startup, before any episode runs.
	ErrDuplicateTool    = errors.New("duplicate tool name")
	ErrInvalidTool      = errors.New("invalid tool specification")
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotEvaluated is returned when flattening a trajectory whose
	// transitions have no reward attached yet.
	ErrNotEvaluated = errors.New("trajectory is not evaluated")
)
