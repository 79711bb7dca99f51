// Package execrunner executes one prompt end to end across many LLM turns
// and tool calls within a global deadline, the kernel's outermost loop.
// The turn loop itself is grounded on pkg/tools/toolloop.go's
// RunToolLoop; this package reshapes it around a stricter ExecOptions/
// ExecResult contract: per-request timeouts, retry/backoff on retriable
// provider errors, enabled/disabled tool filtering, and tracking of files
// modified and commands executed across the whole run.
package execrunner

import (
	"time"

	"github.com/cortexsh/cortexrun/internal/permission"
	"github.com/cortexsh/cortexrun/pkg/providers"
	"github.com/cortexsh/cortexrun/pkg/tools"
)

// ExecOptions configures one end-to-end run.
type ExecOptions struct {
	Prompt  string
	Cwd     string
	Model   string
	// OutputFormat is carried for callers; Run does not read it and always
	// returns the model's final content verbatim in ExecResult.Response.
	OutputFormat string
	// FullAuto skips interactive permission prompts: every side-effecting
	// tool call is treated as pre-approved. Mutually exclusive in effect
	// with a nil Permissions, which also skips checks but for a different
	// reason (no permission manager wired at all, e.g. in tests).
	FullAuto bool
	MaxTurns int
	// TimeoutSecs bounds the whole run; 0 means use the 600s default.
	TimeoutSecs int
	// RequestTimeoutSecs bounds one LLM request; 0 means use the 120s
	// default. Must be strictly shorter than TimeoutSecs in practice, the
	// runner does not enforce that itself.
	RequestTimeoutSecs int
	Sandbox            bool
	SystemPrompt       string
	Streaming          bool
	EnabledTools       []string // nil/empty means all registered tools
	DisabledTools      []string

	// ConversationID identifies this run in logs and keys the loop
	// detector's per-session history. A blank ID gets a generated one.
	ConversationID string
	// Channel/ChatID/SenderID are forwarded into ToolRegistry.ExecuteWithContext.
	Channel, ChatID, SenderID string

	// Permissions, if set, gates every tool call unless FullAuto is set.
	// A nil Permissions skips gating entirely (no manager wired).
	Permissions *permission.Manager

	// StreamWriter is a sink for streamed text deltas. Run does not call
	// it: providers.LLMProvider has only the non-streaming Chat call, so
	// the final text arrives in ExecResult.Response.
	StreamWriter func(delta string)
}

const (
	defaultTimeoutSecs        = 600
	defaultRequestTimeoutSecs = 120
	defaultMaxTurns           = 50
)

func (o ExecOptions) timeout() time.Duration {
	secs := o.TimeoutSecs
	if secs <= 0 {
		secs = defaultTimeoutSecs
	}
	return time.Duration(secs) * time.Second
}

func (o ExecOptions) requestTimeout() time.Duration {
	secs := o.RequestTimeoutSecs
	if secs <= 0 {
		secs = defaultRequestTimeoutSecs
	}
	return time.Duration(secs) * time.Second
}

func (o ExecOptions) maxTurns() int {
	if o.MaxTurns <= 0 {
		return defaultMaxTurns
	}
	return o.MaxTurns
}

// ToolCallRecord is one dispatched tool call, in the order it was issued.
type ToolCallRecord struct {
	ID        string
	Name      string
	Arguments map[string]any
	Success   bool
	Error     string
	Duration  time.Duration
}

// ExecResult is the outcome of a Run call.
type ExecResult struct {
	ConversationID  string
	Response        string
	Turns           int
	FilesModified   []string
	CommandsExecuted []string
	ToolCalls       []ToolCallRecord
	Success         bool
	Error           string
	InputTokens     int
	OutputTokens    int
	TimedOut        bool
	// Messages is the full conversation as it stood when the run ended,
	// so a caller can persist or continue it.
	Messages []providers.Message
}

// Deps bundles the collaborators Run needs beyond ExecOptions: the LLM
// provider and the tool registry calls dispatch through.
type Deps struct {
	Provider providers.LLMProvider
	Tools    *tools.ToolRegistry
	// LoopDetector blocks a turn loop that is repeating the same tool call
	// (or an A/B ping-pong) without making progress. Nil disables the check.
	LoopDetector *tools.LoopDetector
}
