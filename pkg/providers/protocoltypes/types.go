// Package protocoltypes holds the provider-agnostic wire types shared by
// every LLM provider implementation under pkg/providers. Each concrete
// provider package (anthropic, openai_sdk) aliases these types rather than
// declaring its own, so a ToolCall built by one provider's SDK adapter
// round-trips through the conversation history and back out to any other
// provider unchanged.
package protocoltypes

import "encoding/json"

// ToolCall is one function call requested by the model. Name/Arguments and
// Function carry the same data in two shapes (top-level vs. OpenAI-style
// nested function object) because different provider SDKs surface one or
// the other; NormalizeToolCall reconciles them.
type ToolCall struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type,omitempty"`
	Function     *FunctionCall          `json:"function,omitempty"`
	ExtraContent *ExtraContent          `json:"extra_content,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Arguments    map[string]interface{} `json:"arguments,omitempty"`
	// ThoughtSignature carries Gemini 3's opaque reasoning continuation
	// token for a tool call across a turn boundary. Empty for every other
	// provider.
	ThoughtSignature string `json:"-"`
}

// FunctionCall is the OpenAI-style nested function payload of a ToolCall.
type FunctionCall struct {
	Name             string `json:"name"`
	Arguments        string `json:"arguments"`
	ThoughtSignature string `json:"-"`
}

// ExtraContent carries provider-specific side channels that don't fit the
// common ToolCall shape.
type ExtraContent struct {
	Google *GoogleExtra `json:"google,omitempty"`
}

// GoogleExtra holds Gemini-specific extras, currently just the thought
// signature needed to resume multi-turn reasoning.
type GoogleExtra struct {
	ThoughtSignature string `json:"thought_signature,omitempty"`
}

// LLMResponse is a provider's reply to one Chat call.
type LLMResponse struct {
	Content             string          `json:"content"`
	ToolCalls           []ToolCall      `json:"tool_calls,omitempty"`
	FinishReason        string          `json:"finish_reason"`
	Usage               *UsageInfo      `json:"usage,omitempty"`
	RawAssistantMessage json.RawMessage `json:"-"`
}

// UsageInfo is token accounting for one LLMResponse.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ContentPart is one part of a multi-part message (text or image).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an inline or remote image reference.
type ImageURL struct {
	URL string `json:"url"`
}

// Message is one turn in a conversation, in the shape every provider
// adapter converts to and from on the wire.
type Message struct {
	Role          string          `json:"role"`
	Content       string          `json:"content"`
	ContentParts  []ContentPart   `json:"content_parts,omitempty"`
	ToolCalls     []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID    string          `json:"tool_call_id,omitempty"`
	RawAPIMessage json.RawMessage `json:"raw_api_message,omitempty"`
}

// ToolDefinition describes one callable tool to the model.
type ToolDefinition struct {
	Type     string                 `json:"type"`
	Function ToolFunctionDefinition `json:"function"`
}

// ToolFunctionDefinition is the function schema inside a ToolDefinition.
type ToolFunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}
