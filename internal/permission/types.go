// Package permission implements the kernel's side-effect gate: every tool
// call that can write a file, run a command, hit the network, or load a
// skill is checked here before it runs.
package permission

import (
	"encoding/json"
	"fmt"
	"time"
)

// RiskLevel classifies how much damage a side-effecting action could do.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Response is the outcome of a permission check.
type Response int

const (
	Allow Response = iota
	Ask
	Deny
)

func (r Response) String() string {
	switch r {
	case Allow:
		return "allow"
	case Ask:
		return "ask"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// MarshalJSON writes a Response as its string spelling so permissions.json
// stays readable and editable by hand.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts the string spellings written by MarshalJSON.
func (r *Response) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "allow":
		*r = Allow
	case "ask":
		*r = Ask
	case "deny":
		*r = Deny
	default:
		return fmt.Errorf("permission: unknown response %q", s)
	}
	return nil
}

// Scope controls how long a granted or denied Permission lives.
type Scope int

const (
	// Once applies to a single call and is never stored.
	Once Scope = iota
	// Session is kept in memory only and clears on ClearSession.
	Session
	// Always is persisted to disk and survives process restarts.
	Always
)

func (s Scope) String() string {
	switch s {
	case Once:
		return "once"
	case Session:
		return "session"
	case Always:
		return "always"
	default:
		return "unknown"
	}
}

// MarshalJSON writes a Scope as its string spelling.
func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the string spellings written by MarshalJSON.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "once":
		*s = Once
	case "session":
		*s = Session
	case "always":
		*s = Always
	default:
		return fmt.Errorf("permission: unknown scope %q", str)
	}
	return nil
}

// Permission is a stored grant or denial for a (tool, pattern) pair.
type Permission struct {
	Tool      string    `json:"tool"`
	Pattern   string    `json:"pattern"`
	Response  Response  `json:"response"`
	Scope     Scope     `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPermission builds a Permission stamped with the current time.
func NewPermission(tool, pattern string, response Response, scope Scope) Permission {
	return Permission{
		Tool:      tool,
		Pattern:   pattern,
		Response:  response,
		Scope:     scope,
		CreatedAt: time.Now(),
	}
}

// Context carries the details of one permission check. Fields left at their
// zero value are treated as absent (no command, no file path, and so on).
type Context struct {
	Command     string
	FilePath    string
	RiskLevel   RiskLevel
	SkillName   string
	SkillTool   string
	Description string
}

// NewContext returns an empty Context at the default (low) risk level.
func NewContext() Context {
	return Context{RiskLevel: RiskLow}
}

// WithDescription returns a copy of c with Description set.
func (c Context) WithDescription(desc string) Context {
	c.Description = desc
	return c
}

// ForCommand returns a Context describing a shell command.
func ForCommand(command string) Context {
	return Context{Command: command, RiskLevel: RiskMedium}
}

// ForFile returns a Context describing a filesystem path.
func ForFile(path string) Context {
	return Context{FilePath: path, RiskLevel: RiskMedium}
}

// ForSkill returns a Context describing a skill load/use.
func ForSkill(name string) Context {
	return Context{SkillName: name, RiskLevel: RiskLow}
}

// ForSkillTool returns a Context describing a tool call made from within a
// skill's execution.
func ForSkillTool(skillName, toolName string) Context {
	return Context{SkillName: skillName, SkillTool: toolName, RiskLevel: RiskMedium}
}

// Prompt is handed to a registered callback when a decision resolves to Ask.
type Prompt struct {
	Tool    string
	Action  string
	Pattern string
	Context Context
}

// PromptResponse is what a callback returns for a Prompt.
type PromptResponse struct {
	Response Response
	Scope    Scope
}

// PromptFunc is the callback signature for interactive permission prompts.
// A nil return means the caller could not get an answer (e.g. non-interactive
// session) and the check resolves to CheckResult.NeedsAsking.
type PromptFunc func(Prompt) *PromptResponse

// CheckResult is the outcome of RequestWithPrompt: either a final decision
// (Granted/denied, with the Permission stored if one was) or an indication
// that the caller must ask the user out of band.
type CheckResult struct {
	Granted     bool
	Permission  *Permission
	Reason      string
	NeedsAsking bool
	// Cached reports whether the decision came from an existing grant rather
	// than a fresh prompt response.
	Cached bool
}

// GrantedResult builds a CheckResult for an allowed action.
func GrantedResult(perm *Permission, cached bool) CheckResult {
	return CheckResult{Granted: true, Permission: perm, Cached: cached}
}

// DeniedResult builds a CheckResult for a denied action.
func DeniedResult(perm *Permission, reason string) CheckResult {
	return CheckResult{Granted: false, Permission: perm, Reason: reason}
}

// NeedsAskingResult builds a CheckResult for when no callback could resolve
// an Ask decision.
func NeedsAskingResult() CheckResult {
	return CheckResult{NeedsAsking: true}
}
