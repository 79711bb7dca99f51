package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cortexsh/cortexrun/pkg/config"
)

// cliState holds the config loaded by the root command's PersistentPreRunE,
// the same lazy-load-once shape the teacher's cmd/picoclaw/internal
// helpers use so every subcommand shares one parsed config instead of
// re-reading the file.
type cliState struct {
	configPath string
	cfg        *config.Config
	loaded     bool
}

func (s *cliState) load() (*config.Config, error) {
	if s.loaded {
		return s.cfg, nil
	}
	path := s.configPath
	if path == "" {
		paths := config.ResolveRuntimePaths()
		path = paths.ConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	s.cfg = cfg
	s.loaded = true
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:           "cortexrun",
		Short:         "cortexrun runs an AI coding agent kernel: scheduler, tool router, and exec runner",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       formatVersion(),
	}
	root.PersistentFlags().StringVar(&state.configPath, "config", "", "path to config file (default: resolved runtime path)")

	root.AddCommand(
		newExecCommand(state),
		newSkillsCommand(state),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("cortexrun %s\n", formatVersion())
			build, goVer := formatBuildInfo()
			if build != "" {
				fmt.Printf("  build: %s\n", build)
			}
			fmt.Printf("  go: %s\n", goVer)
			return nil
		},
	}
}
