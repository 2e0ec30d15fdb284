package traject

// ArgumentsSchema returns the JSON Schema document for the tool's
// arguments object. It is used both to validate arguments before
// execution and to advertise the tool to the policy in the function
// calling format of OpenAI-compatible servers.
func (s *ToolSpec) ArgumentsSchema() map[string]any {
	doc := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
	}

	if len(s.Parameters) > 0 {
		props := make(map[string]any, len(s.Parameters))
		for name, param := range s.Parameters {
			props[name] = parameterSchema(param)
		}
		doc["properties"] = props
	}

	if len(s.Required) > 0 {
		doc["required"] = toAnySlice(s.Required)
	}

	return doc
}

func parameterSchema(p *Parameter) map[string]any {
	doc := map[string]any{
		"type": string(p.Type),
	}

	if p.Description != "" {
		doc["description"] = p.Description
	}

	if p.Type == TypeObject && p.Properties != nil {
		props := make(map[string]any, len(p.Properties))
		for name, prop := range p.Properties {
			props[name] = parameterSchema(prop)
		}
		doc["properties"] = props
		doc["additionalProperties"] = false

		if len(p.Required) > 0 {
			doc["required"] = toAnySlice(p.Required)
		}
	}

	if p.Type == TypeArray && p.Items != nil {
		doc["items"] = parameterSchema(p.Items)
	}

	if p.Enum != nil {
		doc["enum"] = toAnySlice(p.Enum)
	}

	if p.Minimum != nil {
		doc["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		doc["maximum"] = *p.Maximum
	}

	return doc
}

// jsonschema v6 resources are decoded JSON, so nested slices must be
// []any rather than []string.
func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
