package traject

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ToolSpec is the declared schema of a tool, advertised to the policy so
// it knows which capabilities are callable and how.
type ToolSpec struct {
	// Name is the unique identifier of the tool within a registry.
	Name string

	// Description tells the policy what the tool does.
	Description string

	// Parameters defines the input parameters the tool accepts.
	Parameters map[string]*Parameter

	// Required lists the parameter names that must be provided.
	Required []string
}

// Validate validates the tool specification.
func (s *ToolSpec) Validate() error {
	eb := goerr.NewBuilder(goerr.V("tool", s.Name))
	if s.Name == "" {
		return eb.Wrap(ErrInvalidTool, "name is required")
	}

	for name, param := range s.Parameters {
		if err := param.Validate(); err != nil {
			return eb.Wrap(err, "invalid parameter", goerr.V("parameter", name))
		}
	}

	for _, req := range s.Required {
		if _, ok := s.Parameters[req]; !ok {
			return eb.Wrap(ErrInvalidTool, "required parameter not declared", goerr.V("parameter", req))
		}
	}

	return nil
}

// ParameterType is the JSON type of a tool parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Parameter is a single input parameter of a tool.
type Parameter struct {
	// Type is the type of the parameter. It must be one of the
	// predefined ParameterType values.
	Type ParameterType

	// Description explains the purpose and expected format of the
	// parameter.
	Description string

	// Enum is the list of allowed values. If set, the value must be one
	// of these.
	Enum []string

	// Properties defines the structure of object type parameters.
	Properties map[string]*Parameter

	// Required lists the required field names when Type is Object.
	Required []string

	// Items defines the element type of array type parameters.
	Items *Parameter

	// Minimum and Maximum define the valid range for number and integer
	// type parameters.
	Minimum *float64
	Maximum *float64
}

// Validate validates the parameter.
func (p *Parameter) Validate() error {
	eb := goerr.NewBuilder(goerr.V("parameter", p))

	if p.Type == "" {
		return eb.Wrap(ErrInvalidParameter, "type is required")
	}

	if p.Type == TypeObject {
		if p.Properties == nil {
			return eb.Wrap(ErrInvalidParameter, "properties is required for object type")
		}
		for _, prop := range p.Properties {
			if err := prop.Validate(); err != nil {
				return eb.Wrap(ErrInvalidParameter, "invalid property")
			}
		}
		for _, req := range p.Required {
			if _, ok := p.Properties[req]; !ok {
				return eb.Wrap(ErrInvalidParameter, "required field not found in properties", goerr.V("field", req))
			}
		}
	}

	if p.Type == TypeArray {
		if p.Items == nil {
			return eb.Wrap(ErrInvalidParameter, "items is required for array type")
		}
		if err := p.Items.Validate(); err != nil {
			return eb.Wrap(ErrInvalidParameter, "invalid items")
		}
	}

	if p.Type == TypeNumber || p.Type == TypeInteger {
		if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
			return eb.Wrap(ErrInvalidParameter, "minimum must be less than or equal to maximum")
		}
	}

	return nil
}

// Tool is the specification and execution of a capability callable by the
// policy. Run returns the string observation appended to the conversation.
// Even if Run returns an error, the episode is not aborted: the error is
// passed back to the policy as an observation.
type Tool interface {
	Spec() ToolSpec
	Run(ctx context.Context, args map[string]any) (string, error)
}

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry maps tool names to callable capabilities. It is constructed at
// startup and passed explicitly into each Runner: registration happens
// once, lookups are concurrent-safe and read-only during episodes.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: map[string]*registeredTool{},
	}
}

// Register adds tools to the registry. It fails with ErrDuplicateTool if a
// name is already present and with ErrInvalidTool if a spec is malformed.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range tools {
		spec := tool.Spec()
		if err := spec.Validate(); err != nil {
			return err
		}
		if _, ok := r.tools[spec.Name]; ok {
			return goerr.Wrap(ErrDuplicateTool, "tool name conflict", goerr.V("tool_name", spec.Name))
		}

		compiled, err := compileArgSchema(&spec)
		if err != nil {
			return goerr.Wrap(err, "failed to compile argument schema", goerr.V("tool_name", spec.Name))
		}

		r.tools[spec.Name] = &registeredTool{
			tool:   tool,
			schema: compiled,
		}
	}

	return nil
}

// Get returns the tool registered under name, or ErrUnknownTool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.tools[name]
	if !ok {
		return nil, goerr.Wrap(ErrUnknownTool, name+" is not registered", goerr.V("tool_name", name))
	}
	return entry.tool, nil
}

// Specs returns the declared schemas of all registered tools.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.tools))
	for _, entry := range r.tools {
		specs = append(specs, entry.tool.Spec())
	}
	return specs
}

// Execute validates args against the tool's declared schema and runs it.
// Validation failures are reported as ErrToolExecution without invoking
// the executor.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return "", goerr.Wrap(ErrUnknownTool, name+" is not registered", goerr.V("tool_name", name))
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := entry.schema.Validate(args); err != nil {
		return "", goerr.Wrap(ErrToolExecution, "invalid arguments", goerr.V("tool_name", name), goerr.V("cause", err.Error()))
	}

	return entry.tool.Run(ctx, args)
}

func compileArgSchema(spec *ToolSpec) (*jsonschema.Schema, error) {
	url := fmt.Sprintf("tool://%s/arguments.json", spec.Name)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, spec.ArgumentsSchema()); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}
