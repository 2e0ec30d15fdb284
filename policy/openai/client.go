// Package openai implements the policy collaborator on top of
// OpenAI-compatible chat completion servers (OpenAI, vLLM, SGLang). These
// are the servers that expose per-token log-probabilities, which the
// training backend needs for policy-gradient updates.
package openai

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"

	"github.com/m-mizutani/traject"
)

const (
	DefaultModel    = "gpt-4o-mini"
	DefaultEncoding = "cl100k_base"
)

// Client is a PolicyClient backed by an OpenAI-compatible server.
type Client struct {
	client *openai.Client

	// model is the model to use for chat completions. It can be
	// overridden using WithModel option.
	model string

	// baseURL is the custom base URL of the server. If empty, the default
	// OpenAI API endpoints are used.
	baseURL string

	// encodingName selects the tokenizer used to derive token ids; chat
	// completion responses carry token strings and logprobs but no ids.
	encodingName string

	temperature float32
	maxTokens   int

	encoding *tiktoken.Tiktoken
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for chat completions.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible server such as a
// local vLLM instance.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float32) Option {
	return func(c *Client) {
		c.temperature = temperature
	}
}

// WithMaxTokens limits the number of tokens generated per invocation.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithEncoding sets the tiktoken encoding used to derive token ids.
func WithEncoding(name string) Option {
	return func(c *Client) {
		c.encodingName = name
	}
}

// New creates a policy client. apiKey may be a placeholder when the
// server does not check it (vLLM).
func New(apiKey string, options ...Option) (*Client, error) {
	c := &Client{
		model:        DefaultModel,
		encodingName: DefaultEncoding,
	}
	for _, opt := range options {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	c.client = openai.NewClientWithConfig(cfg)

	encoding, err := tiktoken.GetEncoding(c.encodingName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load token encoding", goerr.V("encoding", c.encodingName))
	}
	c.encoding = encoding

	return c, nil
}

// Generate invokes the policy once with the conversation state and the
// available tool schemas.
func (c *Client) Generate(ctx context.Context, messages []traject.Message, tools []traject.ToolSpec) (*traject.PolicyResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: convertMessages(messages),
		Tools:    convertTools(tools),
		LogProbs: true,
	}
	if c.temperature > 0 {
		req.Temperature = c.temperature
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion", goerr.V("model", c.model))
	}
	if len(resp.Choices) == 0 {
		return nil, goerr.New("no choices in completion response", goerr.V("model", c.model))
	}
	choice := resp.Choices[0]

	out := &traject.PolicyResponse{
		Text:           choice.Message.Content,
		PromptTokenIDs: c.encoding.Encode(renderPrompt(messages), nil, nil),
	}

	if len(choice.Message.ToolCalls) > 0 {
		call := choice.Message.ToolCalls[0]
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, goerr.Wrap(err, "failed to parse tool call arguments", goerr.V("tool_name", call.Function.Name))
			}
		}
		out.ToolCall = &traject.ToolCall{
			Name:      call.Function.Name,
			Arguments: args,
		}
	}

	// Chat completions return token strings, not ids. Re-encoding each
	// logprob token and keeping its first id keeps TokenIDs aligned
	// one-to-one with LogProbs, at the cost of approximating tokens the
	// local encoding would split differently and dropping tokens it cannot
	// encode at all. Exact ids need an inference server that returns them.
	if choice.LogProbs != nil {
		for _, lp := range choice.LogProbs.Content {
			ids := c.encoding.Encode(lp.Token, nil, nil)
			if len(ids) == 0 {
				continue
			}
			out.TokenIDs = append(out.TokenIDs, ids[0])
			out.LogProbs = append(out.LogProbs, lp.LogProb)
		}
	}

	return out, nil
}
