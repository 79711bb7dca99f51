package providers

import (
	"context"
	"encoding/json"

	"github.com/cortexsh/cortexrun/pkg/providers/protocoltypes"
)

// These aliases make protocoltypes' wire shapes the canonical provider
// vocabulary, the same way each concrete provider package (anthropic,
// openai_sdk) aliases them locally instead of declaring its own copies.
type (
	ToolCall               = protocoltypes.ToolCall
	FunctionCall           = protocoltypes.FunctionCall
	ExtraContent           = protocoltypes.ExtraContent
	GoogleExtra            = protocoltypes.GoogleExtra
	LLMResponse            = protocoltypes.LLMResponse
	UsageInfo              = protocoltypes.UsageInfo
	ContentPart            = protocoltypes.ContentPart
	ImageURL               = protocoltypes.ImageURL
	Message                = protocoltypes.Message
	ToolDefinition         = protocoltypes.ToolDefinition
	ToolFunctionDefinition = protocoltypes.ToolFunctionDefinition
)

// NormalizeToolCall fills whichever ToolCall shape is missing: Name and
// Arguments from Function when empty, and Function from Name and Arguments.
// Arguments is never nil in the result.
func NormalizeToolCall(tc ToolCall) ToolCall {
	if tc.Name == "" && tc.Function != nil {
		tc.Name = tc.Function.Name
	}
	if tc.Arguments == nil && tc.Function != nil && tc.Function.Arguments != "" {
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &tc.Arguments)
	}
	if tc.Arguments == nil {
		tc.Arguments = map[string]interface{}{}
	}
	if tc.Function == nil {
		args, _ := json.Marshal(tc.Arguments)
		tc.Function = &FunctionCall{Name: tc.Name, Arguments: string(args)}
	}
	return tc
}

type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]interface{}) (*LLMResponse, error)
	GetDefaultModel() string
}
