package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/fbug/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		name  string
		value string
		kind  domain.PatternKind
		line  string
		match bool
	}{
		{"Literal substring", "READY", domain.PatternLiteral, "system READY now", true},
		{"Literal is case sensitive", "READY", domain.PatternLiteral, "ready", false},
		{"Literal is not a regex", "a.c", domain.PatternLiteral, "abc", false},
		{"Regex anchored start", "regex:^ERR", domain.PatternRegex, "ERR: disk", true},
		{"Regex anchored rejects middle", "regex:^ERR", domain.PatternRegex, "an ERR here", false},
		{"Regex unanchored matches anywhere", "regex:ERR", domain.PatternRegex, "an ERR here", true},
		{"Regex class", `regex:login:\s*$`, domain.PatternRegex, "buildroot login: ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := domain.CompilePattern(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, p.Kind())
			assert.Equal(t, tt.match, p.Match(tt.line))
			assert.Equal(t, tt.value, p.String())
		})
	}
}

func TestCompilePattern_InvalidRegex(t *testing.T) {
	_, err := domain.CompilePattern("regex:([")
	require.Error(t, err)

	var me *domain.MatchError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "regex:([", me.Value)
	assert.True(t, errors.Is(err, domain.ErrInvalidPattern))
}

func TestAction_MatchEvent(t *testing.T) {
	a, err := domain.NewAction("UART", "line", "READY")
	require.NoError(t, err)

	assert.True(t, a.MatchEvent(domain.LineEvent("UART", "READY")))
	assert.False(t, a.MatchEvent(domain.LineEvent("CONSOLE", "READY")), "source label must match")

	anySource, err := domain.NewAction("", "line", "READY")
	require.NoError(t, err)
	assert.True(t, anySource.MatchEvent(domain.LineEvent("CONSOLE", "READY")))
}
