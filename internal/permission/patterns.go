package permission

import (
	"strings"
	"sync"
)

// patternEntry is one default or custom pattern rule held by a Matcher.
type patternEntry struct {
	pattern  string
	response Response
	scope    Scope
	risk     RiskLevel
}

// Matcher holds the built-in and hand-added command/path/skill patterns
// that sit above config defaults in the decision priority: a match here
// resolves the check before config or auto-approve ever run.
//
// Lookups walk entries in insertion order and return the first match, so
// ties between equally-specific patterns favor whichever was registered
// first (defaults are seeded before any caller-added pattern).
type Matcher struct {
	mu       sync.RWMutex
	commands []patternEntry
	paths    []patternEntry
	skills   []patternEntry
}

// NewMatcher returns a Matcher with no patterns registered.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// NewMatcherWithDefaults returns a Matcher seeded with the built-in safe and
// dangerous command patterns.
func NewMatcherWithDefaults() *Matcher {
	m := NewMatcher()
	for _, p := range defaultSafeCommandPatterns {
		m.AddCommandPattern(p, Allow, Always, RiskLow)
	}
	for _, p := range defaultDangerousCommandPatterns {
		m.AddCommandPattern(p, Deny, Always, RiskCritical)
	}
	return m
}

// defaultSafeCommandPatterns are read-only, side-effect-free commands that
// are always allowed regardless of config.
var defaultSafeCommandPatterns = []string{
	"git status",
	"git log*",
	"git diff*",
	"git show*",
	"git branch",
	"ls*",
	"pwd",
	"cat *",
	"head *",
	"tail *",
	"grep *",
	"find * -name *",
	"echo *",
	"which *",
	"go version",
	"go vet*",
	"go test*",
	"npm list*",
	"npm run lint*",
}

// defaultDangerousCommandPatterns are denied at the built-in pattern tier,
// ahead of config defaults and auto-approve. Stored grants are checked
// before this tier, so a stored permission whose pattern matches the
// command still decides it; this tier only catches the broad glob forms
// below.
var defaultDangerousCommandPatterns = []string{
	"rm -rf /*",
	"rm -rf ~*",
	"rm -rf .*",
	"* | sh",
	"* | bash",
	"curl * | sh",
	"curl * | bash",
	"wget * | sh",
	"wget * | bash",
	"mkfs*",
	"dd if=*",
	"chmod -R 777 /*",
	"chmod 777 /*",
	":(){ :|:& };:",
	"sudo rm -rf*",
	"> /dev/sd*",
}

// dangerousSubstrings trips is_dangerous_command for commands that do not
// match a glob above but still carry an unambiguously destructive shape.
var dangerousSubstrings = []string{
	"rm -rf /",
	"mkfs.",
	":(){ :|:& };:",
	"> /dev/sda",
	"dd if=/dev/zero of=/dev/sd",
}

// AddCommandPattern registers a pattern matched against shell command text.
func (m *Matcher) AddCommandPattern(pattern string, response Response, scope Scope, risk RiskLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, patternEntry{pattern, response, scope, risk})
}

// AddPathPattern registers a pattern matched against filesystem paths.
func (m *Matcher) AddPathPattern(pattern string, response Response, scope Scope, risk RiskLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, patternEntry{pattern, response, scope, risk})
}

// AddSkillPattern registers a pattern matched against skill names.
func (m *Matcher) AddSkillPattern(pattern string, response Response, scope Scope, risk RiskLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills = append(m.skills, patternEntry{pattern, response, scope, risk})
}

// MatchCommand returns the first registered command pattern matching cmd.
func (m *Matcher) MatchCommand(cmd string) *patternEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.commands {
		if globMatch(m.commands[i].pattern, cmd) {
			return &m.commands[i]
		}
	}
	return nil
}

// MatchPath returns the first registered path pattern matching path.
func (m *Matcher) MatchPath(path string) *patternEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.paths {
		if globMatch(m.paths[i].pattern, path) {
			return &m.paths[i]
		}
	}
	return nil
}

// IsDangerousCommand reports whether cmd matches a known-destructive shape,
// independent of the registered pattern list. Used specifically for
// bash/shell tool calls as a last-resort safety net.
func (m *Matcher) IsDangerousCommand(cmd string) bool {
	for _, pat := range defaultDangerousCommandPatterns {
		if globMatch(pat, cmd) {
			return true
		}
	}
	for _, sub := range dangerousSubstrings {
		if strings.Contains(cmd, sub) {
			return true
		}
	}
	return false
}

// IsSkillAllowed reports whether a skill pattern explicitly allows name.
func (m *Matcher) IsSkillAllowed(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.skills {
		if globMatch(p.pattern, name) {
			return p.response == Allow
		}
	}
	return false
}

// IsSkillDenied reports whether a skill pattern explicitly denies name.
func (m *Matcher) IsSkillDenied(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.skills {
		if globMatch(p.pattern, name) {
			return p.response == Deny
		}
	}
	return false
}

// skillPattern normalizes a skill name into the pattern form stored for
// "skill" permissions.
func skillPattern(name string) string {
	return name
}

// matchesCommandPattern is the stored-grant counterpart of MatchCommand: it
// tests one specific pattern against one specific command, used when
// walking permissions already granted for a tool.
func matchesCommandPattern(pattern, cmd string) bool {
	return globMatch(pattern, cmd)
}

// matchesPathPattern is the stored-grant counterpart of MatchPath.
func matchesPathPattern(pattern, path string) bool {
	return globMatch(pattern, path)
}

// globMatch reports whether text matches pattern, where '*' matches any
// run of characters (including none) and '?' matches exactly one
// character. Matching is case-sensitive and anchored at both ends.
func globMatch(pattern, text string) bool {
	return globMatchRunes([]rune(pattern), []rune(text))
}

func globMatchRunes(pattern, text []rune) bool {
	var pIdx, tIdx int
	var starIdx = -1
	var matchIdx int

	for tIdx < len(text) {
		switch {
		case pIdx < len(pattern) && (pattern[pIdx] == '?' || pattern[pIdx] == text[tIdx]):
			pIdx++
			tIdx++
		case pIdx < len(pattern) && pattern[pIdx] == '*':
			starIdx = pIdx
			matchIdx = tIdx
			pIdx++
		case starIdx != -1:
			pIdx = starIdx + 1
			matchIdx++
			tIdx = matchIdx
		default:
			return false
		}
	}

	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}

	return pIdx == len(pattern)
}

// countWildcards returns the number of '*' and '?' glob metacharacters in
// pattern, used to rank config patterns by specificity (fewer wildcards
// sort first).
func countWildcards(pattern string) int {
	return strings.Count(pattern, "*") + strings.Count(pattern, "?")
}
