package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cortexsh/cortexrun/pkg/skills"
)

func newSkillsCommand(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "list and inspect discoverable skills",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var loaded bool
	var loader *skills.SkillsLoader

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := state.load()
		if err != nil {
			return err
		}
		home, err := os.UserHomeDir()
		if err != nil {
			home = ""
		}
		loader = skills.NewSkillsLoader(cfg.WorkspacePath(), home)

		if !loaded {
			cmd.AddCommand(newSkillsListCommand(&loader), newSkillsShowCommand(&loader))
			loaded = true
		}
		return nil
	}

	return cmd
}

func newSkillsListCommand(loader **skills.SkillsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list every skill discoverable from the current workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range (*loader).ListSkills() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", s.Name, s.Source, s.Description)
			}
			return nil
		},
	}
}

func newSkillsShowCommand(loader **skills.SkillsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "print a skill's rendered body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			def, ok := (*loader).GetSkillDefinition(name)
			if !ok {
				return fmt.Errorf("skill %q not found", name)
			}
			body, ok := (*loader).LoadSkill(name)
			if !ok {
				return fmt.Errorf("skill %q not found", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), def.Render(body, nil))
			return nil
		},
	}
}
