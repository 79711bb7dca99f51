package permission

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cortexsh/cortexrun/pkg/config"
)

// ManagerConfig tunes the Manager's behavior independent of any loaded
// config.Config.
type ManagerConfig struct {
	// AutoApproveLowRisk allows Low-risk actions through once nothing else
	// has decided (tier 4 of RequestPermission).
	AutoApproveLowRisk bool
	// UseDefaultPatterns seeds the Manager's Matcher with the built-in
	// safe/dangerous command patterns.
	UseDefaultPatterns bool
	// LoadPersisted reads previously granted Always-scope permissions from
	// disk during Init.
	LoadPersisted bool
}

// DefaultManagerConfig mirrors the kernel's out-of-the-box behavior.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		AutoApproveLowRisk: true,
		UseDefaultPatterns: true,
		LoadPersisted:      true,
	}
}

// patternPermission is one (pattern, response) pair loaded from config,
// pre-sorted by specificity.
type patternPermission struct {
	pattern  string
	response Response
}

// configPermissions is the tier-3 defaults loaded from config.Config's
// Permission section: lower priority than runtime grants and built-in
// patterns, higher priority than auto-approve-low-risk.
type configPermissions struct {
	edit               Response
	webfetch           Response
	doomLoop           Response
	externalDirectory  Response
	bash               []patternPermission
	skill              []patternPermission
	mcp                []patternPermission
}

// Manager is the kernel's single side-effect gate. Every tool that can
// write, execute, fetch, or load untrusted code asks it for a decision
// before acting.
type Manager struct {
	patterns *Matcher
	storage  *Store
	cfg      ManagerConfig

	promptMu sync.RWMutex
	prompt   PromptFunc

	configMu sync.RWMutex
	config   configPermissions
}

// NewManager returns a Manager persisting grants to storagePath.
func NewManager(storagePath string) *Manager {
	return NewManagerWithConfig(storagePath, DefaultManagerConfig())
}

// NewManagerWithConfig returns a Manager with custom ManagerConfig.
func NewManagerWithConfig(storagePath string, cfg ManagerConfig) *Manager {
	var matcher *Matcher
	if cfg.UseDefaultPatterns {
		matcher = NewMatcherWithDefaults()
	} else {
		matcher = NewMatcher()
	}

	return &Manager{
		patterns: matcher,
		storage:  NewStore(storagePath),
		cfg:      cfg,
		config: configPermissions{
			edit:              Ask,
			webfetch:          Ask,
			doomLoop:          Ask,
			externalDirectory: Ask,
		},
	}
}

// SetPromptCallback registers the function invoked when a decision resolves
// to Ask and the caller wants RequestWithPrompt to try to resolve it
// interactively.
func (m *Manager) SetPromptCallback(fn PromptFunc) {
	m.promptMu.Lock()
	defer m.promptMu.Unlock()
	m.prompt = fn
}

// Init loads persisted Always-scope grants from disk, if configured to.
func (m *Manager) Init() error {
	if m.cfg.LoadPersisted {
		return m.storage.Load()
	}
	return nil
}

// LoadFromConfig seeds the Manager's tier-3 config defaults from a loaded
// config.Config. Bash patterns are also mirrored into the pattern matcher
// (at Always scope) so a bash pattern configured by the user behaves
// identically to one added in code.
func (m *Manager) LoadFromConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	perm := cfg.Permission

	level := func(l config.PermissionLevel) Response {
		switch l {
		case config.PermissionLevelAllow:
			return Allow
		case config.PermissionLevelDeny:
			return Deny
		default:
			return Ask
		}
	}

	built := configPermissions{
		edit:              level(perm.Edit),
		webfetch:          level(perm.WebFetch),
		doomLoop:          level(perm.DoomLoop),
		externalDirectory: level(perm.ExternalDirectory),
		bash:              sortBySpecificity(perm.Bash, level),
		skill:             sortBySpecificity(perm.Skill, level),
		mcp:               sortBySpecificity(perm.MCP, level),
	}

	for _, bp := range built.bash {
		risk := RiskLow
		switch bp.response {
		case Deny:
			risk = RiskCritical
		case Ask:
			risk = RiskMedium
		}
		m.patterns.AddCommandPattern(bp.pattern, bp.response, Always, risk)
	}

	m.configMu.Lock()
	m.config = built
	m.configMu.Unlock()
}

// sortBySpecificity converts a pattern->level map into a slice ordered by
// ascending wildcard count (fewer wildcards first), with map iteration
// order broken deterministically by a secondary sort on the pattern text so
// repeated calls produce a stable order.
func sortBySpecificity(patterns map[string]config.PermissionLevel, level func(config.PermissionLevel) Response) []patternPermission {
	out := make([]patternPermission, 0, len(patterns))
	for pattern, lvl := range patterns {
		out = append(out, patternPermission{pattern: pattern, response: level(lvl)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := countWildcards(out[i].pattern), countWildcards(out[j].pattern)
		if wi != wj {
			return wi < wj
		}
		// Tie-break on literal length: a longer fixed prefix narrows more
		// candidates and is treated as more specific (e.g. "npm *" before
		// a bare "*").
		if len(out[i].pattern) != len(out[j].pattern) {
			return len(out[i].pattern) > len(out[j].pattern)
		}
		return out[i].pattern < out[j].pattern
	})
	return out
}

// ConfigPermission returns the tier-3 config default for tool, matching
// action against bash/skill/mcp pattern lists when applicable. The bool is
// false if no config default applies.
func (m *Manager) ConfigPermission(tool, action string) (Response, bool) {
	m.configMu.RLock()
	defer m.configMu.RUnlock()
	cfg := m.config

	switch tool {
	case "edit", "write":
		return cfg.edit, true
	case "webfetch", "fetch", "web":
		return cfg.webfetch, true
	case "doom_loop":
		return cfg.doomLoop, true
	case "external_directory", "external":
		return cfg.externalDirectory, true
	case "bash", "shell":
		return matchPatternList(cfg.bash, action)
	case "skill":
		return matchPatternList(cfg.skill, action)
	case "mcp":
		return matchPatternList(cfg.mcp, action)
	default:
		return Ask, false
	}
}

func matchPatternList(patterns []patternPermission, action string) (Response, bool) {
	for _, p := range patterns {
		if globMatch(p.pattern, action) {
			return p.response, true
		}
	}
	return Ask, false
}

// RequestPermission resolves a decision for (tool, action) following the
// five-tier priority: stored grant, built-in pattern, config default,
// auto-approve-low-risk, then Ask.
func (m *Manager) RequestPermission(tool, action string, ctx Context) Response {
	if resp, ok := m.checkStoredPermission(tool, action, ctx); ok {
		return resp
	}

	if resp, ok := m.checkPatternPermission(tool, ctx); ok {
		return resp
	}

	if resp, ok := m.ConfigPermission(tool, action); ok {
		return resp
	}

	if m.cfg.AutoApproveLowRisk && ctx.RiskLevel == RiskLow {
		return Allow
	}

	return Ask
}

// CheckPermission is a convenience wrapper for callers that only need a
// bool, building a minimal Context from a free-text description.
func (m *Manager) CheckPermission(tool, action string) bool {
	ctx := NewContext().WithDescription(action)
	return m.RequestPermission(tool, action, ctx) == Allow
}

// checkStoredPermission is tier 1: exact match first, then command/path
// pattern matches among permissions already stored for tool.
func (m *Manager) checkStoredPermission(tool, action string, ctx Context) (Response, bool) {
	if perm := m.storage.Check(tool, action); perm != nil {
		return perm.Response, true
	}

	if ctx.Command != "" {
		for _, perm := range m.storage.ListForTool(tool) {
			if matchesCommandPattern(perm.Pattern, ctx.Command) {
				return perm.Response, true
			}
		}
	}

	if ctx.FilePath != "" {
		for _, perm := range m.storage.ListForTool(tool) {
			if matchesPathPattern(perm.Pattern, ctx.FilePath) {
				return perm.Response, true
			}
		}
	}

	return Ask, false
}

// checkPatternPermission is tier 2: the built-in pattern matcher, plus the
// bash/shell dangerous-command safety net.
func (m *Manager) checkPatternPermission(tool string, ctx Context) (Response, bool) {
	if ctx.Command != "" {
		if p := m.patterns.MatchCommand(ctx.Command); p != nil {
			return p.response, true
		}
	}

	if ctx.FilePath != "" {
		if p := m.patterns.MatchPath(ctx.FilePath); p != nil {
			return p.response, true
		}
	}

	if (tool == "bash" || tool == "shell") && ctx.Command != "" {
		if m.patterns.IsDangerousCommand(ctx.Command) {
			return Deny, true
		}
	}

	return Ask, false
}

// GrantPermission stores an Allow for (tool, pattern) at scope.
func (m *Manager) GrantPermission(tool, pattern string, scope Scope) error {
	return m.storage.Grant(NewPermission(tool, pattern, Allow, scope))
}

// DenyPermission stores a Deny for (tool, pattern) at Always scope.
func (m *Manager) DenyPermission(tool, pattern string) error {
	return m.storage.Deny(tool, pattern, Always)
}

// RevokePermission removes any stored grant or denial for (tool, pattern),
// restoring whichever lower-tier decision applied before it existed.
func (m *Manager) RevokePermission(tool, pattern string) error {
	return m.storage.Revoke(tool, pattern)
}

// ListPermissions returns every stored Permission.
func (m *Manager) ListPermissions() []Permission {
	return m.storage.List()
}

// ListPermissionsForTool returns stored Permissions for one tool.
func (m *Manager) ListPermissionsForTool(tool string) []Permission {
	return m.storage.ListForTool(tool)
}

// RequestWithPrompt resolves prompt.Tool/Action/Context through
// RequestPermission; if that resolves to Ask, it defers to the registered
// prompt callback. A non-Once response from the callback is persisted
// before returning.
func (m *Manager) RequestWithPrompt(prompt Prompt) (CheckResult, error) {
	response := m.RequestPermission(prompt.Tool, prompt.Action, prompt.Context)

	switch response {
	case Allow:
		return GrantedResult(nil, true), nil
	case Deny:
		return DeniedResult(nil, "denied by stored permission"), nil
	}

	m.promptMu.RLock()
	cb := m.prompt
	m.promptMu.RUnlock()

	if cb == nil {
		return NeedsAskingResult(), nil
	}

	answer := cb(prompt)
	if answer == nil {
		return NeedsAskingResult(), nil
	}

	if answer.Scope == Once {
		if answer.Response == Allow {
			return GrantedResult(nil, false), nil
		}
		return DeniedResult(nil, "user denied permission"), nil
	}

	perm := NewPermission(prompt.Tool, prompt.Pattern, answer.Response, answer.Scope)
	if err := m.storage.Grant(perm); err != nil {
		return CheckResult{}, err
	}

	if answer.Response == Allow {
		return GrantedResult(&perm, false), nil
	}
	return DeniedResult(&perm, "user denied permission"), nil
}

// CheckBashPermission resolves a decision for a shell command.
func (m *Manager) CheckBashPermission(command string) Response {
	return m.RequestPermission("bash", command, ForCommand(command))
}

// CheckWritePermission resolves a decision for writing a file.
func (m *Manager) CheckWritePermission(path string) Response {
	return m.RequestPermission("write", path, ForFile(path))
}

// CheckEditPermission resolves a decision for editing a file.
func (m *Manager) CheckEditPermission(path string) Response {
	return m.RequestPermission("edit", path, ForFile(path))
}

// AddCommandPattern registers a custom built-in-tier command pattern.
func (m *Manager) AddCommandPattern(pattern string, response Response, scope Scope, risk RiskLevel) {
	m.patterns.AddCommandPattern(pattern, response, scope, risk)
}

// AddPathPattern registers a custom built-in-tier path pattern.
func (m *Manager) AddPathPattern(pattern string, response Response, scope Scope, risk RiskLevel) {
	m.patterns.AddPathPattern(pattern, response, scope, risk)
}

// AddSkillPattern registers a custom built-in-tier skill pattern.
func (m *Manager) AddSkillPattern(pattern string, response Response, scope Scope, risk RiskLevel) {
	m.patterns.AddSkillPattern(pattern, response, scope, risk)
}

// CheckSkillPermission resolves a decision for loading/using a skill.
func (m *Manager) CheckSkillPermission(skillName string) Response {
	return m.RequestPermission("skill", skillName, ForSkill(skillName))
}

// GrantSkillPermission stores an Allow for a skill pattern.
func (m *Manager) GrantSkillPermission(pattern string, scope Scope) error {
	return m.storage.Grant(NewPermission("skill", skillPattern(pattern), Allow, scope))
}

// DenySkillPermission stores a Deny for a skill pattern.
func (m *Manager) DenySkillPermission(pattern string) error {
	return m.storage.Deny("skill", skillPattern(pattern), Always)
}

// CheckSkillToolPermission is the skill-scoped composite check: the skill's
// own permission is checked first, and an explicit Deny there short-circuits
// without ever evaluating the tool. Otherwise the check falls through to a
// "skill_tool" permission keyed on "{skill}:{tool}".
func (m *Manager) CheckSkillToolPermission(skillName, toolName string) Response {
	ctx := ForSkillTool(skillName, toolName).
		WithDescription(fmt.Sprintf("skill %q wants to use tool %q", skillName, toolName))

	if m.CheckSkillPermission(skillName) == Deny {
		return Deny
	}

	action := fmt.Sprintf("%s:%s", skillName, toolName)
	return m.RequestPermission("skill_tool", action, ctx)
}

// IsSkillAllowed reports whether the built-in pattern tier explicitly
// allows skillName.
func (m *Manager) IsSkillAllowed(skillName string) bool {
	return m.patterns.IsSkillAllowed(skillName)
}

// IsSkillDenied reports whether the built-in pattern tier explicitly denies
// skillName.
func (m *Manager) IsSkillDenied(skillName string) bool {
	return m.patterns.IsSkillDenied(skillName)
}

// ClearSession drops in-memory Session-scoped grants, leaving persisted
// Always-scoped grants untouched.
func (m *Manager) ClearSession() {
	m.storage.ClearSession()
}

// ClearAll drops every stored permission, including persisted ones.
func (m *Manager) ClearAll() error {
	return m.storage.ClearAll()
}

// StoragePath returns the path grants are persisted to.
func (m *Manager) StoragePath() string {
	return m.storage.StorePath()
}
