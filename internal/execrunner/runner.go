package execrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cortexsh/cortexrun/internal/kernelerr"
	"github.com/cortexsh/cortexrun/internal/permission"
	"github.com/cortexsh/cortexrun/pkg/logger"
	"github.com/cortexsh/cortexrun/pkg/providers"
	"github.com/cortexsh/cortexrun/pkg/tools"
)

// shellToolName is the built-in tool whose argument is logged as a
// command executed, per the ExecResult.CommandsExecuted field.
const shellToolName = "exec"

// Run executes opts.Prompt end to end, dispatching tool calls through
// deps.Tools and LLM turns through deps.Provider, within opts' global
// timeout. An empty prompt is rejected with an InvalidInput error and no
// result. Every other run-ending condition is reported on the returned
// ExecResult: running out of turns ends the run with Success=true, while a
// global timeout, a failed LLM call, or a content_filter/error finish
// reason gives Success=false with a message in Error.
func Run(ctx context.Context, opts ExecOptions, deps Deps) (*ExecResult, error) {
	if opts.Prompt == "" {
		return nil, kernelerr.New(kernelerr.InvalidInput, "prompt must not be empty")
	}

	convID := opts.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}
	opts.ConversationID = convID

	runCtx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	result := &ExecResult{ConversationID: convID}

	messages := []providers.Message{
		{Role: "system", Content: buildSystemPrompt(opts)},
		{Role: "user", Content: opts.Prompt},
	}

	toolDefs := filteredToolDefs(deps, opts.EnabledTools, opts.DisabledTools)
	model := opts.Model
	if model == "" && deps.Provider != nil {
		model = deps.Provider.GetDefaultModel()
	}

	maxTurns := opts.maxTurns()
	turn := 0

	logger.InfoCF("execrunner", "run started",
		map[string]any{"conversation_id": convID, "max_turns": maxTurns, "model": model})

runLoop:
	for turn < maxTurns {
		select {
		case <-runCtx.Done():
			logger.WarnCF("execrunner", "global timeout exceeded",
				map[string]any{"conversation_id": convID, "turn": turn})
			result.TimedOut = true
			result.Success = false
			result.Error = "global timeout exceeded"
			result.Turns = turn
			result.Messages = messages
			return result, nil
		default:
		}

		turn++
		logger.DebugCF("execrunner", "turn", map[string]any{"conversation_id": convID, "turn": turn})
		reqCtx, reqCancel := context.WithTimeout(runCtx, opts.requestTimeout())

		response, err := chatWithRetry(reqCtx, providerName(deps.Provider), model, func(c context.Context) (*providers.LLMResponse, error) {
			return deps.Provider.Chat(c, messages, toolDefs, model, map[string]any{})
		})
		reqCancel()

		if err != nil {
			result.Turns = turn
			result.Messages = messages
			if runCtx.Err() != nil {
				logger.WarnCF("execrunner", "global timeout exceeded",
					map[string]any{"conversation_id": convID, "turn": turn})
				result.TimedOut = true
				result.Error = "global timeout exceeded"
				return result, nil
			}
			classified := kernelerr.Classify(err)
			logger.ErrorCF("execrunner", "LLM call failed",
				map[string]any{"conversation_id": convID, "turn": turn, "kind": string(classified.Kind), "error": err.Error()})
			result.Error = classified.Message
			result.Success = false
			return result, nil
		}

		if response.Usage != nil {
			result.InputTokens += response.Usage.PromptTokens
			result.OutputTokens += response.Usage.CompletionTokens
		}

		switch response.FinishReason {
		case "content_filter", "error":
			result.Turns = turn
			result.Messages = messages
			result.Success = false
			result.Error = fmt.Sprintf("provider returned finish_reason=%s", response.FinishReason)
			return result, nil
		case "length", "truncated":
			result.Response = response.Content
			result.Turns = turn
			messages = append(messages, providers.Message{Role: "assistant", Content: response.Content})
			result.Messages = messages
			result.Success = true
			result.Error = "response truncated at max_tokens"
			return result, nil
		}

		if len(response.ToolCalls) == 0 {
			result.Response = response.Content
			messages = append(messages, providers.Message{Role: "assistant", Content: response.Content})
			logger.InfoCF("execrunner", "run finished without further tool calls",
				map[string]any{"conversation_id": convID, "turn": turn})
			break runLoop
		}

		normalized := make([]providers.ToolCall, 0, len(response.ToolCalls))
		for _, tc := range response.ToolCalls {
			normalized = append(normalized, providers.NormalizeToolCall(tc))
		}

		assistantMsg := providers.Message{Role: "assistant", Content: response.Content}
		for _, tc := range normalized {
			argumentsJSON, _ := json.Marshal(tc.Arguments)
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, providers.ToolCall{
				ID:        tc.ID,
				Type:      "function",
				Name:      tc.Name,
				Arguments: tc.Arguments,
				Function:  &providers.FunctionCall{Name: tc.Name, Arguments: string(argumentsJSON)},
			})
		}
		messages = append(messages, assistantMsg)

		for _, tc := range normalized {
			messages = append(messages, dispatchToolCall(runCtx, opts, deps, result, tc))
		}
	}

	result.Turns = turn
	result.Messages = messages
	result.Success = true
	return result, nil
}

// dispatchToolCall runs one permission check (unless bypassed) and one
// tool invocation, recording bookkeeping onto result, and returns the
// tool-role message to append to the conversation.
func dispatchToolCall(ctx context.Context, opts ExecOptions, deps Deps, result *ExecResult, tc providers.ToolCall) providers.Message {
	start := time.Now()

	logger.InfoCF("execrunner", fmt.Sprintf("tool call: %s", tc.Name),
		map[string]any{"conversation_id": opts.ConversationID, "tool": tc.Name})

	if denied := checkToolPermission(opts, tc); denied != nil {
		logger.WarnCF("execrunner", "tool call denied",
			map[string]any{"tool": tc.Name, "reason": denied.Error()})
		result.ToolCalls = append(result.ToolCalls, ToolCallRecord{
			ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments,
			Success: false, Error: denied.Error(), Duration: time.Since(start),
		})
		return providers.Message{Role: "tool", Content: denied.Error(), ToolCallID: tc.ID}
	}

	if deps.LoopDetector != nil {
		loopCtx := tools.WithSessionKey(ctx, opts.ConversationID)
		if err := deps.LoopDetector.BeforeExecute(loopCtx, tc.Name, tc.Arguments); err != nil {
			logger.WarnCF("execrunner", "tool call blocked by loop detector",
				map[string]any{"tool": tc.Name, "reason": err.Error()})
			result.ToolCalls = append(result.ToolCalls, ToolCallRecord{
				ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments,
				Success: false, Error: err.Error(), Duration: time.Since(start),
			})
			return providers.Message{Role: "tool", Content: err.Error(), ToolCallID: tc.ID}
		}
	}

	var toolResult *tools.ToolResult
	if deps.Tools != nil {
		toolResult = deps.Tools.ExecuteWithContext(ctx, tc.Name, tc.Arguments, opts.Channel, opts.ChatID, opts.SenderID, nil)
	} else {
		toolResult = tools.ErrorResult("no tools available")
	}
	if deps.LoopDetector != nil {
		deps.LoopDetector.AfterExecute(tools.WithSessionKey(ctx, opts.ConversationID), tc.Name, tc.Arguments, toolResult)
	}

	record := ToolCallRecord{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments, Duration: time.Since(start)}
	record.Success = !toolResult.IsError
	if toolResult.IsError {
		record.Error = toolResult.ForLLM
		logger.ErrorCF("execrunner", "tool call failed",
			map[string]any{"tool": tc.Name, "error": toolResult.ForLLM})
	}
	result.ToolCalls = append(result.ToolCalls, record)
	result.FilesModified = append(result.FilesModified, toolResult.FilesModified...)
	if tc.Name == shellToolName {
		if cmd, ok := tc.Arguments["command"].(string); ok && cmd != "" {
			result.CommandsExecuted = append(result.CommandsExecuted, cmd)
		}
	}

	contentForLLM := toolResult.ForLLM
	if contentForLLM == "" && toolResult.Err != nil {
		contentForLLM = toolResult.Err.Error()
	}
	return providers.Message{Role: "tool", Content: contentForLLM, ToolCallID: tc.ID}
}

// checkToolPermission gates a side-effecting tool call through the
// permission manager, unless full-auto or no manager is wired. It returns
// nil when the call may proceed.
func checkToolPermission(opts ExecOptions, tc providers.ToolCall) *kernelerr.Error {
	if opts.FullAuto || opts.Permissions == nil {
		return nil
	}

	permCtx := permission.NewContext()
	if tc.Name == shellToolName {
		if cmd, ok := tc.Arguments["command"].(string); ok {
			permCtx = permission.ForCommand(cmd)
		}
	}

	result, err := opts.Permissions.RequestWithPrompt(permission.Prompt{
		Tool:    tc.Name,
		Action:  tc.Name,
		Context: permCtx,
	})
	if err != nil {
		return kernelerr.New(kernelerr.Internal, err.Error())
	}
	if result.NeedsAsking {
		return kernelerr.New(kernelerr.PermissionDenied, fmt.Sprintf("tool %q requires approval and no prompt handler is registered", tc.Name))
	}
	if !result.Granted {
		return kernelerr.FromPermission(result).WithRule(tc.Name)
	}
	return nil
}

func providerName(p providers.LLMProvider) string {
	if p == nil {
		return ""
	}
	return p.GetDefaultModel()
}

// filteredToolDefs returns deps.Tools' provider-facing tool definitions,
// narrowed to enabled (if non-empty) and excluding disabled.
func filteredToolDefs(deps Deps, enabled, disabled []string) []providers.ToolDefinition {
	if deps.Tools == nil {
		return nil
	}
	all := deps.Tools.ToProviderDefs()
	if len(enabled) == 0 && len(disabled) == 0 {
		return all
	}

	enabledSet := toSet(enabled)
	disabledSet := toSet(disabled)

	out := make([]providers.ToolDefinition, 0, len(all))
	for _, def := range all {
		name := def.Function.Name
		if len(enabledSet) > 0 {
			if _, ok := enabledSet[name]; !ok {
				continue
			}
		}
		if _, ok := disabledSet[name]; ok {
			continue
		}
		out = append(out, def)
	}
	return out
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
