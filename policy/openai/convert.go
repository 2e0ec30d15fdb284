package openai

import (
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/m-mizutani/traject"
)

func convertMessages(messages []traject.Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case traject.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case traject.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case traject.RoleTool:
			// Tool observations go back as user turns: markup-driven
			// policies have no tool_call_id to reference.
			converted = append(converted, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: "OBSERVATION:\n" + msg.Content,
			})
			continue
		default:
			role = openai.ChatMessageRoleUser
		}

		converted = append(converted, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return converted
}

func convertTools(specs []traject.ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.ArgumentsSchema(),
			},
		})
	}
	return tools
}

func renderPrompt(messages []traject.Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, string(msg.Role)+": "+msg.Content)
	}
	return strings.Join(parts, "\n")
}
