package execrunner

import "strings"

const baseSystemPrompt = "You are an autonomous coding agent. Use the available tools to complete the user's request directly; do not ask for confirmation before taking an action you have already been authorized to take."

// buildSystemPrompt assembles the system message per the composition order:
// base instructions, sandbox note, auto-approve note, cwd, then any
// caller-supplied instructions appended last so they can refine but not
// override the preceding ambient rules.
func buildSystemPrompt(opts ExecOptions) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)

	if opts.Sandbox {
		b.WriteString("\n\nYou are running inside a sandboxed environment: filesystem and network access outside the working directory is restricted.")
	}
	if opts.FullAuto {
		b.WriteString("\n\nAll tool calls in this run are pre-approved; do not wait for user confirmation before acting.")
	}
	if opts.Cwd != "" {
		b.WriteString("\n\nWorking directory: " + opts.Cwd)
	}
	if opts.SystemPrompt != "" {
		b.WriteString("\n\n" + opts.SystemPrompt)
	}
	return b.String()
}
