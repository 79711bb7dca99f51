package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cortexsh/cortexrun/pkg/logger"
)

// MaxBatchSize is the most tool calls one Batch invocation may contain.
const MaxBatchSize = 10

// DefaultBatchTimeoutSecs bounds the whole batch if the caller omits
// timeout_secs.
const DefaultBatchTimeoutSecs = 300

// DefaultBatchToolTimeoutSecs bounds one call within the batch if the
// caller omits tool_timeout_secs, so a single slow tool can't eat the
// entire batch budget.
const DefaultBatchToolTimeoutSecs = 60

// batchDisallowedTools may never appear inside a Batch call: Batch itself
// (no recursion) and Agent/subagent spawns, which are heavy enough that
// running several at once defeats the point of a bounded parallel batch.
var batchDisallowedTools = map[string]bool{
	"batch": true,
	"agent": true,
}

// BatchCall is one tool invocation requested inside a Batch call.
type BatchCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// BatchCallResult is the outcome of one BatchCall, tagged with its
// position in the original request so results can be reported in order
// even though they complete out of order.
type BatchCallResult struct {
	Tool       string `json:"tool"`
	Index      int    `json:"index"`
	Success    bool   `json:"success"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// BatchTool executes several tool calls concurrently against the same
// registry, isolating each call's failure from the rest.
type BatchTool struct {
	registry *ToolRegistry
	channel  string
	chatID   string
	senderID string
}

// NewBatchTool builds a Batch meta-tool bound to registry. channel/chatID/
// senderID are forwarded to each inner ExecuteWithContext call exactly as
// the outer router received them.
func NewBatchTool(registry *ToolRegistry, channel, chatID, senderID string) *BatchTool {
	return &BatchTool{registry: registry, channel: channel, chatID: chatID, senderID: senderID}
}

func (t *BatchTool) Name() string { return "Batch" }

func (t *BatchTool) Description() string {
	return "Execute multiple tools in parallel for improved performance. Use this when you need to perform several independent operations simultaneously. Maximum 10 tools per batch. Each tool runs concurrently, significantly reducing total execution time compared to sequential calls. Cannot call Batch or Agent within a batch."
}

func (t *BatchTool) Parameters() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"calls"},
		"properties": map[string]any{
			"calls": map[string]any{
				"type":        "array",
				"minItems":    1,
				"maxItems":    MaxBatchSize,
				"description": "Array of tool calls to execute in parallel (max 10). Each call specifies a tool name and its arguments.",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"tool", "arguments"},
					"properties": map[string]any{
						"tool": map[string]any{
							"type":        "string",
							"description": "The name of the tool to execute (e.g., 'read_file', 'grep')",
						},
						"arguments": map[string]any{
							"type":        "object",
							"description": "Arguments to pass to the tool",
						},
					},
				},
			},
			"timeout_secs": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds for the entire batch (default: 300)",
				"minimum":     1,
				"maximum":     600,
			},
			"tool_timeout_secs": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds for each individual tool call (default: 60). Prevents one slow tool from consuming the whole batch timeout.",
				"minimum":     1,
				"maximum":     300,
			},
		},
	}
}

func (t *BatchTool) parseCalls(raw any) ([]BatchCall, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("calls must be an array")
	}
	calls := make([]BatchCall, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("each call must be an object")
		}
		name, _ := m["tool"].(string)
		if name == "" {
			return nil, fmt.Errorf("each call requires a non-empty tool name")
		}
		args, _ := m["arguments"].(map[string]any)
		calls = append(calls, BatchCall{Tool: name, Arguments: args})
	}
	return calls, nil
}

func (t *BatchTool) validateCalls(calls []BatchCall) error {
	if len(calls) == 0 {
		return fmt.Errorf("batch must contain at least one tool call")
	}
	if len(calls) > MaxBatchSize {
		return fmt.Errorf("batch contains %d calls, but maximum is %d", len(calls), MaxBatchSize)
	}
	for idx, call := range calls {
		if batchDisallowedTools[strings.ToLower(call.Tool)] {
			return fmt.Errorf("tool %q at index %d cannot be called within a batch (recursive or heavy tools are not allowed)", call.Tool, idx)
		}
		if _, ok := t.registry.Get(call.Tool); !ok {
			return fmt.Errorf("unknown tool %q at index %d", call.Tool, idx)
		}
	}
	return nil
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

func (t *BatchTool) Execute(ctx context.Context, args map[string]any) *ToolResult {
	calls, err := t.parseCalls(args["calls"])
	if err != nil {
		return ErrorResult(fmt.Sprintf("invalid Batch arguments: %v", err)).WithError(err)
	}
	if err := t.validateCalls(calls); err != nil {
		return ErrorResult(err.Error()).WithError(err)
	}

	batchTimeout := time.Duration(intArg(args, "timeout_secs", DefaultBatchTimeoutSecs)) * time.Second
	toolTimeout := time.Duration(intArg(args, "tool_timeout_secs", DefaultBatchToolTimeoutSecs)) * time.Second

	batchCtx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	resultCh := make(chan struct{})
	results := make([]BatchCallResult, len(calls))
	var filesModified []string
	var filesMu sync.Mutex

	go func() {
		var wg sync.WaitGroup
		for idx, call := range calls {
			wg.Add(1)
			go func(idx int, call BatchCall) {
				defer wg.Done()
				results[idx] = t.runOne(batchCtx, idx, call, toolTimeout, &filesModified, &filesMu)
			}(idx, call)
		}
		wg.Wait()
		close(resultCh)
	}()

	select {
	case <-resultCh:
	case <-batchCtx.Done():
		return ErrorResult(fmt.Sprintf("batch execution timed out after %ds. Consider using a longer timeout_secs or reducing the number of tools.", int(batchTimeout.Seconds())))
	}

	output, successCount, errorCount := formatBatchResult(results)

	logger.InfoCF("tool", "Batch execution completed", map[string]any{
		"total":   len(results),
		"success": successCount,
		"failed":  errorCount,
	})

	result := NewToolResult(output)
	if len(filesModified) > 0 {
		result.WithFilesModified(filesModified...)
	}
	if errorCount == len(results) {
		return result.WithError(fmt.Errorf("all %d batch calls failed", errorCount))
	}
	return result
}

func (t *BatchTool) runOne(ctx context.Context, idx int, call BatchCall, toolTimeout time.Duration, filesModified *[]string, filesMu *sync.Mutex) BatchCallResult {
	callCtx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan *ToolResult, 1)
	go func() {
		done <- t.registry.ExecuteWithContext(callCtx, call.Tool, call.Arguments, t.channel, t.chatID, t.senderID, nil)
	}()

	select {
	case toolResult := <-done:
		duration := time.Since(start).Milliseconds()
		if toolResult == nil {
			return BatchCallResult{Tool: call.Tool, Index: idx, Success: false, Error: "tool returned no result", DurationMS: duration}
		}
		if len(toolResult.FilesModified) > 0 {
			filesMu.Lock()
			*filesModified = append(*filesModified, toolResult.FilesModified...)
			filesMu.Unlock()
		}
		if toolResult.IsError {
			return BatchCallResult{Tool: call.Tool, Index: idx, Success: false, Error: toolResult.ForLLM, DurationMS: duration}
		}
		return BatchCallResult{Tool: call.Tool, Index: idx, Success: true, Output: toolResult.ForLLM, DurationMS: duration}
	case <-callCtx.Done():
		return BatchCallResult{
			Tool:       call.Tool,
			Index:      idx,
			Success:    false,
			Error:      fmt.Sprintf("tool %q timed out after %ds", call.Tool, int(toolTimeout.Seconds())),
			DurationMS: time.Since(start).Milliseconds(),
		}
	}
}

func formatBatchResult(results []BatchCallResult) (output string, successCount, errorCount int) {
	var totalDuration int64
	for _, r := range results {
		if r.Success {
			successCount++
		} else {
			errorCount++
		}
		totalDuration += r.DurationMS
	}

	var b strings.Builder
	if errorCount == 0 {
		fmt.Fprintf(&b, "Executed %d/%d tools successfully.\n\n", successCount, len(results))
	} else {
		fmt.Fprintf(&b, "Executed %d/%d tools successfully (%d failed).\n\n", successCount, len(results), errorCount)
	}

	b.WriteString("Results:\n")
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n")
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(&b, "[%d] %s (%dms)\n", r.Index+1, r.Tool, r.DurationMS)
			if r.Output != "" {
				preview := r.Output
				truncated := false
				if len(preview) > 300 {
					preview = preview[:300]
					truncated = true
				}
				fmt.Fprintf(&b, "    Output: %s", preview)
				if truncated {
					b.WriteString("...[truncated]")
				}
				b.WriteString("\n")
			}
		} else {
			fmt.Fprintf(&b, "[%d] %s - FAILED (%dms)\n", r.Index+1, r.Tool, r.DurationMS)
			if r.Error != "" {
				fmt.Fprintf(&b, "    Error: %s\n", r.Error)
			}
		}
	}
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Summary: %d succeeded, %d failed\n", successCount, errorCount)

	return b.String(), successCount, errorCount
}
