package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cortexsh/cortexrun/internal/execrunner"
	"github.com/cortexsh/cortexrun/internal/kernelerr"
	"github.com/cortexsh/cortexrun/internal/permission"
	"github.com/cortexsh/cortexrun/pkg/config"
	"github.com/cortexsh/cortexrun/pkg/mcp"
	"github.com/cortexsh/cortexrun/pkg/providers"
	"github.com/cortexsh/cortexrun/pkg/tools"
)

type execFlags struct {
	prompt        string
	model         string
	cwd           string
	timeoutSecs   int
	maxTurns      int
	fullAuto      bool
	jsonOutput    bool
	enabledTools  []string
	disabledTools []string
}

func newExecCommand(state *cliState) *cobra.Command {
	flags := &execFlags{}

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "run one prompt to completion, headless",
		Long: "exec runs a single prompt through the tool-calling loop to\n" +
			"completion or the run's global timeout, whichever comes first,\n" +
			"and exits with a code describing how it ended.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.prompt == "" && len(args) > 0 {
				flags.prompt = strings.Join(args, " ")
			}
			return runExec(cmd, state, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.prompt, "prompt", "p", "", "prompt to run (or pass as trailing args)")
	cmd.Flags().StringVar(&flags.model, "model", "", "model override (default: config's agents.defaults.model)")
	cmd.Flags().StringVar(&flags.cwd, "cwd", "", "working directory (default: config's workspace)")
	cmd.Flags().IntVar(&flags.timeoutSecs, "timeout", 0, "global timeout in seconds (default: 600)")
	cmd.Flags().IntVar(&flags.maxTurns, "max-turns", 0, "maximum LLM turns (default: 50)")
	cmd.Flags().BoolVar(&flags.fullAuto, "full-auto", false, "skip permission prompts, auto-approve every tool call")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "print the structured result as JSON instead of plain text")
	cmd.Flags().StringSliceVar(&flags.enabledTools, "enable-tool", nil, "restrict to these tools (repeatable)")
	cmd.Flags().StringSliceVar(&flags.disabledTools, "disable-tool", nil, "exclude these tools (repeatable)")

	return cmd
}

func runExec(cmd *cobra.Command, state *cliState, flags *execFlags) error {
	cfg, err := state.load()
	if err != nil {
		return err
	}

	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		return fmt.Errorf("construct provider: %w", err)
	}

	workspace := flags.cwd
	if workspace == "" {
		workspace = cfg.WorkspacePath()
	}

	registry := buildToolRegistry(cfg, workspace, provider)

	var perms *permission.Manager
	if !flags.fullAuto {
		perms = permission.NewManager(permission.DefaultStorePath())
	}

	opts := execrunner.ExecOptions{
		Prompt:        flags.prompt,
		Cwd:           workspace,
		Model:         flags.model,
		FullAuto:      flags.fullAuto,
		TimeoutSecs:   flags.timeoutSecs,
		MaxTurns:      flags.maxTurns,
		EnabledTools:  flags.enabledTools,
		DisabledTools: flags.disabledTools,
		Permissions:   perms,
	}

	result, runErr := execrunner.Run(context.Background(), opts, execrunner.Deps{
		Provider:     provider,
		Tools:        registry,
		LoopDetector: tools.NewLoopDetector(tools.DefaultLoopDetectorConfig()),
	})
	if runErr != nil {
		classified := kernelerr.Classify(runErr)
		fmt.Fprintln(cmd.ErrOrStderr(), classified.Message)
		os.Exit(exitInternalError)
	}

	code := exitCodeForResult(result)
	if flags.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), result.Response)
		if !result.Success {
			fmt.Fprintln(cmd.ErrOrStderr(), result.Error)
		}
	}
	os.Exit(code)
	return nil
}

// exitCodeForResult maps a completed ExecResult to a process exit code per
// the headless-exec contract: timeout, content-filter block, provider
// error, and internal error each get a distinct non-zero code so a caller
// can branch on $? without parsing the JSON body.
func exitCodeForResult(result *execrunner.ExecResult) int {
	if result.Success {
		return exitSuccess
	}
	if result.TimedOut {
		return exitTimeout
	}
	if strings.Contains(result.Error, "content_filter") {
		return exitContentFilter
	}
	if strings.Contains(result.Error, "provider returned finish_reason") ||
		strings.Contains(result.Error, "provider") {
		return exitProviderError
	}
	return exitInternalError
}

func buildToolRegistry(cfg *config.Config, workspace string, provider providers.LLMProvider) *tools.ToolRegistry {
	registry := tools.NewToolRegistry()
	restrict := cfg.Agents.Defaults.RestrictToWorkspace

	registry.Register(tools.NewReadFileTool(workspace, restrict))
	registry.Register(tools.NewWriteFileTool(workspace, restrict))
	registry.Register(tools.NewListDirTool(workspace, restrict))
	registry.Register(tools.NewEditFileTool(workspace, restrict))
	registry.Register(tools.NewAppendFileTool(workspace, restrict))
	registry.Register(tools.NewExecTool(workspace, restrict))
	registry.Register(tools.NewWebFetchTool(50000))

	for _, mcpTool := range loadMCPTools(cfg) {
		registry.Register(mcpTool)
	}

	registry.Register(buildSubagentTool(cfg, workspace, provider, registry.Clone()))

	registry.Register(tools.NewBatchTool(registry, "", "", ""))

	return registry
}

// buildSubagentTool wires the synchronous "subagent" tool up with a
// SubagentManager carrying the same model-fallback chain as the top-level
// run, a JSON-file-backed task ledger for auditing delegated work, and a
// snapshot of the tools registered so far (so a subagent can't spawn
// further subagents it has no depth budget for).
func buildSubagentTool(cfg *config.Config, workspace string, provider providers.LLMProvider, innerTools *tools.ToolRegistry) tools.Tool {
	modelTags := make(map[string][]string, len(cfg.ModelList))
	for _, m := range cfg.ModelList {
		if len(m.Tags) > 0 {
			modelTags[m.Model] = m.Tags
		}
	}
	candidates := providers.ResolveCandidates(providers.ModelConfig{
		Primary:   cfg.Agents.Defaults.Model,
		Fallbacks: cfg.Agents.Defaults.ModelFallbacks,
		Tags:      modelTags,
	}, cfg.Agents.Defaults.Provider)

	paths := config.ResolveRuntimePaths()
	ledger := tools.NewTaskLedger(filepath.Join(paths.HomeDir, "tasks.json"))

	manager := tools.NewSubagentManager(provider, cfg.Agents.Defaults.Model, candidates, workspace, nil)
	manager.SetLedger(ledger)
	manager.SetTools(innerTools)

	return tools.NewSubagentTool(manager)
}

// loadMCPTools connects to every configured MCP server and returns the
// tools they expose. Servers that fail to start are skipped; exec still
// runs with whatever local tools and reachable MCP servers it has.
func loadMCPTools(cfg *config.Config) []tools.Tool {
	if !cfg.Tools.MCP.Enabled || len(cfg.Tools.MCP.Servers) == 0 {
		return nil
	}

	servers := make(map[string]config.MCPServerConfig, len(cfg.Tools.MCP.Servers))
	for _, s := range cfg.Tools.MCP.Servers {
		servers[s.Name] = s
	}
	manager := mcp.NewManager(servers)

	loaded, err := tools.LoadMCPTools(context.Background(), manager, cfg.Tools.MCP)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
	}
	return loaded
}
