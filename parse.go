package traject

import (
	"regexp"
	"strings"
)

// Tool invocation markup emitted by plain-text policies:
//
//	<function=finish>
//	<parameter=answer>42</parameter>
//	</function>
var (
	functionRe  = regexp.MustCompile(`(?s)<function=([A-Za-z0-9_]+)>(.*?)</function>`)
	parameterRe = regexp.MustCompile(`(?s)<parameter=([A-Za-z0-9_]+)>(.*?)</parameter>`)
)

// ParseToolCall extracts the first tool invocation from generated text.
// It returns nil when the text contains no invocation. Only the first
// recognized call is honored; anything after it is ignored.
func ParseToolCall(text string) *ToolCall {
	m := functionRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	args := map[string]any{}
	for _, pm := range parameterRe.FindAllStringSubmatch(m[2], -1) {
		args[pm[1]] = strings.TrimSpace(pm[2])
	}

	return &ToolCall{
		Name:      m[1],
		Arguments: args,
	}
}
