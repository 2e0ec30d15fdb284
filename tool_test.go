package traject_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/traject"
)

type echoTool struct {
	name string
}

func (t *echoTool) Spec() traject.ToolSpec {
	return traject.ToolSpec{
		Name:        t.name,
		Description: "echoes the message argument",
		Parameters: map[string]*traject.Parameter{
			"message": {
				Type:        traject.TypeString,
				Description: "text to echo",
			},
		},
		Required: []string{"message"},
	}
}

func (t *echoTool) Run(ctx context.Context, args map[string]any) (string, error) {
	msg, _ := args["message"].(string)
	return msg, nil
}

type failTool struct{}

func (t *failTool) Spec() traject.ToolSpec {
	return traject.ToolSpec{
		Name:        "fail",
		Description: "always fails",
		Parameters:  map[string]*traject.Parameter{},
	}
}

func (t *failTool) Run(ctx context.Context, args map[string]any) (string, error) {
	return "", errors.New("executor blew up")
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("register and get", func(t *testing.T) {
		registry := traject.NewRegistry()
		gt.NoError(t, registry.Register(&echoTool{name: "echo"}))

		tool, err := registry.Get("echo")
		gt.NoError(t, err)
		gt.Equal(t, "echo", tool.Spec().Name)
	})

	t.Run("duplicate name fails", func(t *testing.T) {
		registry := traject.NewRegistry()
		gt.NoError(t, registry.Register(&echoTool{name: "echo"}))

		err := registry.Register(&echoTool{name: "echo"})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, traject.ErrDuplicateTool))
	})

	t.Run("unknown tool fails", func(t *testing.T) {
		registry := traject.NewRegistry()

		_, err := registry.Get("lookup")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, traject.ErrUnknownTool))
	})

	t.Run("invalid spec fails", func(t *testing.T) {
		registry := traject.NewRegistry()

		err := registry.Register(&echoTool{name: ""})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, traject.ErrInvalidTool))
	})

	t.Run("specs lists all registered tools", func(t *testing.T) {
		registry := traject.NewRegistry()
		gt.NoError(t, registry.Register(&echoTool{name: "echo"}, &failTool{}))

		specs := registry.Specs()
		gt.Equal(t, 2, len(specs))

		names := map[string]bool{}
		for _, spec := range specs {
			names[spec.Name] = true
		}
		gt.True(t, names["echo"])
		gt.True(t, names["fail"])
	})

	t.Run("execute runs the tool", func(t *testing.T) {
		registry := traject.NewRegistry()
		gt.NoError(t, registry.Register(&echoTool{name: "echo"}))

		result, err := registry.Execute(ctx, "echo", map[string]any{"message": "hello"})
		gt.NoError(t, err)
		gt.Equal(t, "hello", result)
	})

	t.Run("execute rejects missing required argument", func(t *testing.T) {
		registry := traject.NewRegistry()
		gt.NoError(t, registry.Register(&echoTool{name: "echo"}))

		_, err := registry.Execute(ctx, "echo", map[string]any{})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, traject.ErrToolExecution))
	})

	t.Run("execute rejects wrong argument type", func(t *testing.T) {
		registry := traject.NewRegistry()
		gt.NoError(t, registry.Register(&echoTool{name: "echo"}))

		_, err := registry.Execute(ctx, "echo", map[string]any{"message": 42})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, traject.ErrToolExecution))
	})

	t.Run("execute propagates executor failure", func(t *testing.T) {
		registry := traject.NewRegistry()
		gt.NoError(t, registry.Register(&failTool{}))

		_, err := registry.Execute(ctx, "fail", nil)
		gt.Error(t, err)
	})
}

func TestToolSpecValidate(t *testing.T) {
	t.Run("required parameter must be declared", func(t *testing.T) {
		spec := traject.ToolSpec{
			Name:       "broken",
			Parameters: map[string]*traject.Parameter{},
			Required:   []string{"missing"},
		}
		gt.Error(t, spec.Validate())
	})

	t.Run("object parameter requires properties", func(t *testing.T) {
		spec := traject.ToolSpec{
			Name: "broken",
			Parameters: map[string]*traject.Parameter{
				"config": {Type: traject.TypeObject},
			},
		}
		err := spec.Validate()
		gt.Error(t, err)
		gt.True(t, errors.Is(err, traject.ErrInvalidParameter))
	})

	t.Run("valid nested spec", func(t *testing.T) {
		spec := traject.ToolSpec{
			Name: "ok",
			Parameters: map[string]*traject.Parameter{
				"items": {
					Type:  traject.TypeArray,
					Items: &traject.Parameter{Type: traject.TypeString},
				},
			},
		}
		gt.NoError(t, spec.Validate())
	})
}
