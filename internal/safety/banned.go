// Package safety decides whether a command line must never be accepted automatically.
package safety

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zjrosen/autoaccept/internal/log"
)

var defaultBannedCommands = []string{
	"rm -rf /",
	"rm -rf ~",
	"rm -rf *",
	"format c:",
	"del /f /s /q",
	"rmdir /s /q",
	":(){:|:&};:", // fork bomb
	"dd if=",
	"mkfs.",
	"> /dev/sda",
	"chmod -R 777 /",
	"sudo rm -rf",
	"shutdown",
	"reboot",
}

// DefaultBannedCommands returns a copy of the built-in pattern list.
func DefaultBannedCommands() []string {
	out := make([]string, len(defaultBannedCommands))
	copy(out, defaultBannedCommands)
	return out
}

// PatternError reports a /regex/flags pattern that does not compile.
// Such patterns still match, literally.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Pattern is one compiled banned-command entry.
type Pattern struct {
	Raw string
	re  *regexp.Regexp
	err error
}

// IsRegex reports whether the raw text has the /body/flags shape.
func IsRegex(raw string) bool {
	return strings.HasPrefix(raw, "/") && strings.LastIndex(raw, "/") > 0
}

// Compile parses raw. A malformed regex yields a literal pattern with Err set.
func Compile(raw string) Pattern {
	p := Pattern{Raw: raw}
	if !IsRegex(raw) {
		return p
	}

	last := strings.LastIndex(raw, "/")
	body := raw[1:last]
	flags := raw[last+1:]
	if flags == "" {
		flags = "i"
	}

	prefix, err := goFlags(flags)
	if err == nil {
		p.re, err = regexp.Compile(prefix + body)
	}
	if err != nil {
		p.err = &PatternError{Pattern: raw, Err: err}
	}
	return p
}

// goFlags translates regex flag letters into an RE2 inline flag group.
// Flags that only affect iteration (g, y) or encoding (u) are accepted and ignored.
func goFlags(flags string) (string, error) {
	var inline strings.Builder
	seen := make(map[rune]bool, len(flags))
	for _, f := range flags {
		if seen[f] {
			return "", fmt.Errorf("duplicate flag %q", f)
		}
		seen[f] = true
		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		case 'g', 'u', 'y', 'd':
		default:
			return "", fmt.Errorf("invalid flag %q", f)
		}
	}
	if inline.Len() == 0 {
		return "", nil
	}
	return "(?" + inline.String() + ")", nil
}

// Err returns the compile error for a malformed regex pattern, or nil.
func (p Pattern) Err() error { return p.err }

// Match reports whether text is covered by this pattern.
func (p Pattern) Match(text string) bool {
	if p.Raw == "" || text == "" {
		return false
	}
	if p.re != nil {
		return p.re.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(p.Raw))
}

// Matcher checks command text against a compiled pattern list.
type Matcher struct {
	patterns []Pattern
}

// NewMatcher compiles raw patterns. Empty entries are skipped.
func NewMatcher(raw []string) *Matcher {
	m := &Matcher{patterns: make([]Pattern, 0, len(raw))}
	for _, r := range raw {
		if r == "" {
			continue
		}
		p := Compile(r)
		if p.err != nil {
			log.Debug(log.CatSafety, "Invalid regex pattern, matching literally", "pattern", r, "error", p.err)
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Patterns returns the raw pattern text in order.
func (m *Matcher) Patterns() []string {
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.Raw
	}
	return out
}

// Match returns the first pattern covering text.
func (m *Matcher) Match(text string) (string, bool) {
	for _, p := range m.patterns {
		if p.Match(text) {
			return p.Raw, true
		}
	}
	return "", false
}

// IsCommandBanned reports whether text matches any of patterns.
func IsCommandBanned(text string, patterns []string) bool {
	pattern, ok := NewMatcher(patterns).Match(text)
	if ok {
		log.Info(log.CatSafety, "Blocked command", "pattern", pattern)
	}
	return ok
}

// Validate returns a *PatternError for regex-shaped entries that do not compile.
func Validate(raw string) error {
	if raw == "" {
		return fmt.Errorf("pattern is empty")
	}
	return Compile(raw).err
}
