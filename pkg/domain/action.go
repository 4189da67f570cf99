package domain

import (
	"regexp"
	"strings"
)

// RegexMarker prefixes action values that are regular expressions.
// Values without it are matched as literal substrings.
const RegexMarker = "regex:"

// PatternKind tells a literal Pattern from a regular expression.
type PatternKind int

const (
	PatternLiteral PatternKind = iota
	PatternRegex
)

func (k PatternKind) String() string {
	if k == PatternRegex {
		return "regex"
	}
	return "literal"
}

// Pattern is a compiled action value. The zero value is an empty literal,
// which matches every line.
type Pattern struct {
	kind    PatternKind
	literal string
	re      *regexp.Regexp
}

// CompilePattern resolves the marker once so matching never re-parses it.
func CompilePattern(value string) (Pattern, error) {
	expr, ok := strings.CutPrefix(value, RegexMarker)
	if !ok {
		return Pattern{kind: PatternLiteral, literal: value}, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, &MatchError{Value: value, Err: err}
	}
	return Pattern{kind: PatternRegex, re: re}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
// Intended for tests and static tables.
func MustCompilePattern(value string) Pattern {
	p, err := CompilePattern(value)
	if err != nil {
		panic(err)
	}
	return p
}

// Kind returns whether the pattern is a literal or a regular expression.
func (p Pattern) Kind() PatternKind { return p.kind }

// Match reports whether line satisfies the pattern anywhere in its body.
func (p Pattern) Match(line string) bool {
	if p.kind == PatternRegex {
		return p.re.MatchString(line)
	}
	return strings.Contains(line, p.literal)
}

// String returns the pattern in its configuration form.
func (p Pattern) String() string {
	if p.kind == PatternRegex {
		return RegexMarker + p.re.String()
	}
	return p.literal
}

// Action is a condition on device output that selects the Transition it
// belongs to.
type Action struct {
	// Source is the label of the connection the output must come from.
	// Empty means any connection.
	Source string `json:"source,omitempty" yaml:"source,omitempty" mapstructure:"source"`
	// Event is descriptive only (e.g. "line").
	Event string `json:"event,omitempty" yaml:"event,omitempty" mapstructure:"event"`
	// Value is the pattern text, optionally prefixed with RegexMarker.
	Value string `json:"value" yaml:"value" mapstructure:"value"`

	Pattern  Pattern `json:"-" yaml:"-" mapstructure:"-"`
	compiled bool
}

// NewAction builds an Action with its pattern already compiled.
func NewAction(source, event, value string) (Action, error) {
	a := Action{Source: source, Event: event, Value: value}
	if err := a.Compile(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// Compile resolves Value into Pattern. It is idempotent.
func (a *Action) Compile() error {
	if a.compiled {
		return nil
	}
	p, err := CompilePattern(a.Value)
	if err != nil {
		return err
	}
	a.Pattern = p
	a.compiled = true
	return nil
}

// Compiled reports whether Compile has succeeded on this action.
func (a *Action) Compiled() bool { return a.compiled }

// Match reports whether line satisfies the action's pattern.
func (a *Action) Match(line string) bool {
	return a.Pattern.Match(line)
}

// MatchEvent is Match restricted to events coming from the action's Source.
func (a *Action) MatchEvent(ev Event) bool {
	if a.Source != "" && ev.Label != a.Source {
		return false
	}
	return a.Pattern.Match(ev.Line())
}
