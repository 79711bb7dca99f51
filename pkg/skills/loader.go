// Package skills discovers and renders SKILL.md files found by walking a
// fixed chain of directories relative to the workspace and the user's home
// directory, first hit per name wins.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var skillNamePattern = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

const maxDescriptionLen = 1024

// SkillInfo is the summary of a discovered skill: enough to list and
// describe it without loading its full body.
type SkillInfo struct {
	Name        string
	Description string
	// Source is one of "local" (./SKILL.md), "agents" (.agents/), "agent"
	// (.agent/), "project" (.cortex/skills/), or "global" (~/.cortex/skills/).
	Source string
	Path   string
}

func (s SkillInfo) validate() error {
	if s.Name == "" {
		return fmt.Errorf("skill: name is required")
	}
	if !skillNamePattern.MatchString(s.Name) {
		return fmt.Errorf("skill: name %q must match %s", s.Name, skillNamePattern.String())
	}
	if s.Description == "" {
		return fmt.Errorf("skill: description is required for %q", s.Name)
	}
	if len(s.Description) > maxDescriptionLen {
		return fmt.Errorf("skill: description for %q exceeds %d chars", s.Name, maxDescriptionLen)
	}
	return nil
}

// SkillArg is one entry of a skill's declared argument list.
type SkillArg struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default"`
}

// SkillDefinition is the full frontmatter shape, used when a skill is
// invoked with arguments rather than merely listed.
type SkillDefinition struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Args        []SkillArg `yaml:"args"`
	Tools       []string   `yaml:"tools"`
	Version     string     `yaml:"version"`
	Author      string     `yaml:"author"`
	Tags        []string   `yaml:"tags"`
}

// ValidateArgs fails if any required arg lacks both a provided (non-empty)
// value and a default.
func (d *SkillDefinition) ValidateArgs(args map[string]string) error {
	for _, a := range d.Args {
		if !a.Required {
			continue
		}
		if v, ok := args[a.Name]; ok && v != "" {
			continue
		}
		if a.Default != "" {
			continue
		}
		return fmt.Errorf("skill %q: required arg %q has no provided value and no default", d.Name, a.Name)
	}
	return nil
}

// Render substitutes every declared arg's `{{name}}` placeholder in body:
// the provided value if non-empty, else the arg's default, else "".
func (d *SkillDefinition) Render(body string, args map[string]string) string {
	out := body
	for _, a := range d.Args {
		val := args[a.Name]
		if val == "" {
			val = a.Default
		}
		out = strings.ReplaceAll(out, "{{"+a.Name+"}}", val)
	}
	return out
}

// AllowsTool reports whether name may be invoked while this skill is
// active: an empty Tools list permits everything, otherwise membership is
// case-insensitive.
func (d *SkillDefinition) AllowsTool(name string) bool {
	if len(d.Tools) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, t := range d.Tools {
		if strings.ToLower(t) == lower {
			return true
		}
	}
	return false
}

// searchTier is one entry in the discovery chain: a directory to scan (or,
// when bare is true, a single file path to check directly) and the Source
// label applied to anything found there.
type searchTier struct {
	dir    string
	source string
	bare   bool // true: dir is itself a candidate SKILL.md file, not a directory of skills
}

// SkillsLoader discovers SKILL.md files by walking, in order, `./SKILL.md`,
// `<workspace>/.agents/`, `<workspace>/.agent/`, `<workspace>/.cortex/skills/`,
// then `<home>/.cortex/skills/`. The first directory that has a given skill
// name wins; later tiers never override an earlier hit.
type SkillsLoader struct {
	workspace string
	home      string
}

// NewSkillsLoader builds a loader rooted at the given workspace (current
// working directory of the run) and the user's home directory.
func NewSkillsLoader(workspace, home string) *SkillsLoader {
	return &SkillsLoader{workspace: workspace, home: home}
}

func (l *SkillsLoader) tiers() []searchTier {
	return []searchTier{
		{dir: filepath.Join(l.workspace, "SKILL.md"), source: "local", bare: true},
		{dir: filepath.Join(l.workspace, ".agents"), source: "agents"},
		{dir: filepath.Join(l.workspace, ".agent"), source: "agent"},
		{dir: filepath.Join(l.workspace, ".cortex", "skills"), source: "project"},
		{dir: filepath.Join(l.home, ".cortex", "skills"), source: "global"},
	}
}

// ListSkills returns every discovered skill, deduped by frontmatter name;
// first tier to mention a name wins over every later tier.
func (l *SkillsLoader) ListSkills() []SkillInfo {
	byName := make(map[string]SkillInfo)
	for _, tier := range l.tiers() {
		if tier.bare {
			l.collectBareFile(tier.dir, tier.source, byName)
			continue
		}
		l.collect(tier.dir, tier.source, byName)
	}

	out := make([]SkillInfo, 0, len(byName))
	for _, info := range byName {
		out = append(out, info)
	}
	return out
}

// collectBareFile registers the single skill at path if name isn't already
// claimed by an earlier tier.
func (l *SkillsLoader) collectBareFile(path, source string, byName map[string]SkillInfo) {
	info := l.getSkillMetadata(path)
	if info == nil {
		return
	}
	info.Source = source
	info.Path = path
	if err := info.validate(); err != nil {
		return
	}
	if _, exists := byName[info.Name]; exists {
		return
	}
	byName[info.Name] = *info
}

// collect scans dir for skills in either shape the chain allows: a
// subdirectory holding SKILL.md, or a bare "<name>.md" file.
func (l *SkillsLoader) collect(dir, source string, byName map[string]SkillInfo) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		var skillFile string
		switch {
		case entry.IsDir():
			skillFile = filepath.Join(dir, entry.Name(), "SKILL.md")
		case strings.HasSuffix(entry.Name(), ".md"):
			skillFile = filepath.Join(dir, entry.Name())
		default:
			continue
		}

		info := l.getSkillMetadata(skillFile)
		if info == nil {
			continue
		}
		info.Source = source
		info.Path = skillFile
		if err := info.validate(); err != nil {
			continue
		}
		if _, exists := byName[info.Name]; exists {
			continue
		}
		byName[info.Name] = *info
	}
}

// getSkillMetadata reads a SKILL.md file's frontmatter and returns its
// Name/Description, or nil if the file does not exist or has no usable
// frontmatter.
func (l *SkillsLoader) getSkillMetadata(path string) *SkillInfo {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	content := string(data)
	fm := l.extractFrontmatter(content)
	if fm == "" {
		return nil
	}
	meta := l.parseSimpleYAML(fm)
	return &SkillInfo{
		Name:        meta["name"],
		Description: meta["description"],
	}
}

// GetSkillDefinition loads the full frontmatter (args, tools, version,
// author, tags) for a skill using real YAML parsing, for callers that need
// more than name/description.
func (l *SkillsLoader) GetSkillDefinition(name string) (*SkillDefinition, bool) {
	info, ok := l.findSkill(name)
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, false
	}
	fm := l.extractFrontmatter(string(data))
	if fm == "" {
		return nil, false
	}
	var def SkillDefinition
	if err := yaml.Unmarshal([]byte(fm), &def); err != nil {
		return nil, false
	}
	return &def, true
}

func (l *SkillsLoader) findSkill(name string) (SkillInfo, bool) {
	for _, info := range l.ListSkills() {
		if info.Name == name {
			return info, true
		}
	}
	return SkillInfo{}, false
}

// LoadSkill returns a skill's body content with frontmatter stripped.
func (l *SkillsLoader) LoadSkill(name string) (string, bool) {
	info, ok := l.findSkill(name)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return "", false
	}
	return l.stripFrontmatter(string(data)), true
}

// LoadSkillsForContext concatenates the named skills' bodies under
// "### Skill: <name>" headers, for injection into a system prompt.
func (l *SkillsLoader) LoadSkillsForContext(names []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range names {
		content, ok := l.LoadSkill(name)
		if !ok {
			continue
		}
		b.WriteString("### Skill: ")
		b.WriteString(name)
		b.WriteString("\n\n")
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// BuildSkillsSummary renders every discovered skill as an XML block
// suitable for a system prompt. Returns "" when there are no skills.
func (l *SkillsLoader) BuildSkillsSummary() string {
	return l.BuildSkillsSummaryFiltered(nil)
}

// BuildSkillsSummaryFiltered renders only the named skills; a nil or empty
// filter means "no filtering" and behaves like BuildSkillsSummary.
func (l *SkillsLoader) BuildSkillsSummaryFiltered(names []string) string {
	skills := l.ListSkills()
	if len(skills) == 0 {
		return ""
	}

	var allowed map[string]struct{}
	if len(names) > 0 {
		allowed = make(map[string]struct{}, len(names))
		for _, n := range names {
			allowed[n] = struct{}{}
		}
	}

	var b strings.Builder
	b.WriteString("<skills>\n")
	for _, s := range skills {
		if allowed != nil {
			if _, ok := allowed[s.Name]; !ok {
				continue
			}
		}
		b.WriteString("<skill>\n")
		b.WriteString("<name>" + escapeXML(s.Name) + "</name>\n")
		b.WriteString("<description>" + escapeXML(s.Description) + "</description>\n")
		b.WriteString("</skill>\n")
	}
	b.WriteString("</skills>")
	return b.String()
}

// extractFrontmatter returns the raw YAML body between the leading "---"
// delimiters, preserving the source line endings. Returns "" if content has
// no frontmatter block.
func (l *SkillsLoader) extractFrontmatter(content string) string {
	rest, ok := cutPrefixLine(content, "---")
	if !ok {
		return ""
	}
	end := findDelimiterLine(rest, "---")
	if end < 0 {
		return ""
	}
	return trimTrailingNewline(rest[:end])
}

// trimTrailingNewline removes exactly one trailing line terminator ("\n" or
// "\r\n") from s, if present.
func trimTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	if strings.HasSuffix(s, "\n") {
		return s[:len(s)-1]
	}
	return s
}

// stripFrontmatter returns content with its frontmatter block removed
// entirely, trimmed of surrounding whitespace.
func (l *SkillsLoader) stripFrontmatter(content string) string {
	rest, ok := cutPrefixLine(content, "---")
	if !ok {
		return strings.TrimSpace(content)
	}
	end := findDelimiterLine(rest, "---")
	if end < 0 {
		return strings.TrimSpace(content)
	}
	after := rest[end+len("---"):]
	return strings.TrimSpace(after)
}

// parseSimpleYAML parses a flat "key: value" block, stripping "#" comments
// and unquoting quoted values. It does not handle nested structures; use
// GetSkillDefinition/yaml.v3 for the richer frontmatter shape.
func (l *SkillsLoader) parseSimpleYAML(content string) map[string]string {
	result := make(map[string]string)
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		idx := strings.Index(trimmed, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(trimmed[:idx])
		value := strings.TrimSpace(trimmed[idx+1:])
		value = unquote(value)
		if key != "" {
			result[key] = value
		}
	}
	return result
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// cutPrefixLine checks whether content's first line is exactly delim and
// returns everything after that line (including its line ending).
func cutPrefixLine(content, delim string) (string, bool) {
	normalized := content
	var lineEnd string
	if idx := strings.IndexAny(normalized, "\n"); idx >= 0 {
		firstLine := normalized[:idx]
		if strings.HasSuffix(firstLine, "\r") {
			firstLine = firstLine[:len(firstLine)-1]
			lineEnd = "\r\n"
		} else {
			lineEnd = "\n"
		}
		if firstLine != delim {
			return "", false
		}
		return normalized[idx+1:], true
	}
	_ = lineEnd
	return "", false
}

// findDelimiterLine finds the start offset of a line that is exactly delim,
// scanning line by line from the start of s.
func findDelimiterLine(s, delim string) int {
	offset := 0
	for {
		idx := strings.IndexByte(s[offset:], '\n')
		var line string
		lineStart := offset
		if idx < 0 {
			line = s[offset:]
		} else {
			line = s[offset : offset+idx]
		}
		candidate := strings.TrimSuffix(line, "\r")
		if candidate == delim {
			return lineStart
		}
		if idx < 0 {
			return -1
		}
		offset = offset + idx + 1
	}
}

// escapeXML escapes the three characters that matter inside the simple XML
// fragments this package emits.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
