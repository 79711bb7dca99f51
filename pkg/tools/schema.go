package tools

import "fmt"

// ToolToSchema renders a Tool's name/description/parameters into the
// function-calling schema shape providers expect.
func ToolToSchema(tool Tool) map[string]any {
	params := tool.Parameters()
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        tool.Name(),
			"description": tool.Description(),
			"parameters":  params,
		},
	}
}

// ValidateArguments checks args against a tool's declared parameter schema,
// enforcing "type": "object" required-field and primitive-type constraints.
// It intentionally covers only what the router needs to reject malformed
// tool calls before Execute runs; it is not a general JSON Schema validator.
func ValidateArguments(tool Tool, args map[string]any) error {
	schema := tool.Parameters()
	if schema == nil {
		return nil
	}
	required, _ := schema["required"].([]string)
	if required == nil {
		if raw, ok := schema["required"].([]any); ok {
			for _, r := range raw {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}
	}
	for _, field := range required {
		if _, ok := args[field]; !ok {
			return fmt.Errorf("missing required argument %q", field)
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for field, value := range args {
		propSchema, ok := props[field].(map[string]any)
		if !ok {
			continue
		}
		wantType, _ := propSchema["type"].(string)
		if wantType == "" {
			continue
		}
		if !matchesJSONType(value, wantType) {
			return fmt.Errorf("argument %q: expected type %q", field, wantType)
		}
	}
	return nil
}

func matchesJSONType(value any, wantType string) bool {
	switch wantType {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	default:
		return true
	}
}
