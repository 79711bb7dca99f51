package common

import "context"

// Tool is the interface every built-in, skill-backed, and MCP-backed tool
// implements. Parameters returns a JSON-Schema-shaped map describing the
// tool's arguments, rendered into the provider's function-calling format by
// the registry.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *ToolResult
}

// ContextualTool is implemented by tools that need to know which
// channel/chat they are being invoked from before Execute runs.
type ContextualTool interface {
	SetContext(channel, chatID string)
}

// AsyncCallback delivers an out-of-band result for a tool whose Execute
// call returned before the work finished.
type AsyncCallback func(result *ToolResult)

// AsyncTool is implemented by tools that may run past the end of the
// current turn and report their result later via callback.
type AsyncTool interface {
	SetCallback(cb AsyncCallback)
}

// ConcurrentSafeTool is implemented by tools whose single shared instance
// may be invoked from multiple goroutines at once. Tools that don't
// implement it are treated as unsafe to share across a parallel batch.
type ConcurrentSafeTool interface {
	SupportsConcurrentExecution() bool
}

// ToolResult is the uniform result every tool returns: text for the model,
// optionally a different summary for a human-facing transcript, and the
// bookkeeping the router/batch executor need.
type ToolResult struct {
	// ForLLM is the content fed back to the model as the tool-role message.
	ForLLM string
	// ForUser is an optional human-facing rendering; when empty, ForLLM is
	// shown to the user too.
	ForUser string
	// Silent suppresses any user-facing echo of this result.
	Silent bool
	// IsError marks this result as a tool failure.
	IsError bool
	// Err is the underlying error, if any, for logging/wrapping.
	Err error
	// Async marks a result that is not yet final; the real outcome arrives
	// later through an AsyncCallback.
	Async bool
	// FilesModified lists workspace-relative paths this tool call wrote,
	// used by the DAG scheduler's file-conflict detection.
	FilesModified []string
	// Metadata carries structured, tool-specific extras (e.g. exit code).
	Metadata map[string]any
}

// WithError attaches err to the result and returns it for chaining.
func (r *ToolResult) WithError(err error) *ToolResult {
	r.Err = err
	r.IsError = true
	return r
}

// WithFilesModified records the workspace-relative paths this call wrote.
func (r *ToolResult) WithFilesModified(paths ...string) *ToolResult {
	r.FilesModified = append(r.FilesModified, paths...)
	return r
}

// WithMetadata attaches a metadata key/value and returns the result.
func (r *ToolResult) WithMetadata(key string, value any) *ToolResult {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}

// NewToolResult builds an ordinary successful result.
func NewToolResult(forLLM string) *ToolResult {
	return &ToolResult{ForLLM: forLLM}
}

// SilentResult builds a successful result that should not be echoed to the
// user.
func SilentResult(forLLM string) *ToolResult {
	return &ToolResult{ForLLM: forLLM, Silent: true}
}

// AsyncResult builds a provisional result whose real outcome will arrive
// later via callback.
func AsyncResult(forLLM string) *ToolResult {
	return &ToolResult{ForLLM: forLLM, Async: true}
}

// ErrorResult builds a failed result from a plain message.
func ErrorResult(message string) *ToolResult {
	return &ToolResult{ForLLM: message, IsError: true}
}

// UserResult builds a result whose user-facing text differs from what the
// model sees; ForLLM is left equal to content unless overridden afterward.
func UserResult(content string) *ToolResult {
	return &ToolResult{ForLLM: content, ForUser: content}
}
