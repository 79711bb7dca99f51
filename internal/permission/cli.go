package permission

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// NewCLIPromptFunc builds a PromptFunc that asks the user on a terminal.
// "y"/"yes" answers Allow at Session scope; anything else (including EOF)
// answers Deny at Once scope, so a declined prompt is re-asked next time
// rather than permanently denying the action.
func NewCLIPromptFunc(reader io.Reader, writer io.Writer) PromptFunc {
	scanner := bufio.NewScanner(reader)
	return func(p Prompt) *PromptResponse {
		desc := p.Context.Description
		if desc == "" {
			desc = p.Action
		}
		fmt.Fprintf(writer, "\n⚠ %s wants to: %s\nAllow? [y/N]: ", p.Tool, desc)

		if !scanner.Scan() {
			return &PromptResponse{Response: Deny, Scope: Once}
		}

		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if answer == "y" || answer == "yes" {
			return &PromptResponse{Response: Allow, Scope: Session}
		}
		return &PromptResponse{Response: Deny, Scope: Once}
	}
}
