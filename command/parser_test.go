package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/delay/command"
)

var actorGrammar = command.Grammar{Root: "delay", AllowSource: true}

func TestParseSet(t *testing.T) {
	in, err := actorGrammar.Parse("delay set foo 10 say   quiet please ")
	require.NoError(t, err)
	assert.Equal(t, command.KindSet, in.Kind)
	assert.Equal(t, "foo", in.ID)
	assert.Equal(t, int64(10), in.Delay)
	assert.Equal(t, "say   quiet please ", in.Command)
	assert.Equal(t, 0, in.Bag.Len())
}

func TestParseSetKeepsLeadingSpaces(t *testing.T) {
	in, err := actorGrammar.Parse("delay set foo 10  say")
	require.NoError(t, err)
	assert.Equal(t, "foo", in.ID)
	assert.Equal(t, int64(10), in.Delay)
	assert.Equal(t, " say", in.Command)

	in, err = actorGrammar.Parse("delay set   bar   3   x")
	require.NoError(t, err)
	assert.Equal(t, "bar", in.ID)
	assert.Equal(t, "  x", in.Command)

	_, err = actorGrammar.Parse("delay set foo 10 ")
	var se *command.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "incomplete command", se.Message)
}

func TestParseModifiersAnyOrder(t *testing.T) {
	lines := []string{
		"delay priority 5 silent true as server set foo 10 say quiet",
		"delay as server silent true priority 5 set foo 10 say quiet",
		"delay silent false priority 9 silent true as self as \"server\" " +
			"priority 5 set foo 10 say quiet",
	}
	for _, line := range lines {
		in, err := actorGrammar.Parse(line)
		require.NoError(t, err, line)
		assert.Equal(t, command.Options{
			Source:   command.SourceServer,
			Priority: 5,
			Silent:   true,
		}, command.ResolveOptions(in.Bag), line)
		assert.Equal(t, "say quiet", in.Command)
	}
}

func TestParseListAndRemove(t *testing.T) {
	in, err := actorGrammar.Parse("/delay list")
	require.NoError(t, err)
	assert.Equal(t, command.KindList, in.Kind)

	in, err = actorGrammar.Parse("delay priority 3 remove greet ")
	require.NoError(t, err)
	assert.Equal(t, command.KindRemove, in.Kind)
	assert.Equal(t, "greet", in.ID)
	assert.Equal(t, "remove", in.Kind.String())
}

func TestParseErrors(t *testing.T) {
	lines := map[string]string{
		"":                                "unknown command",
		"other set a 1 b":                 "unknown command",
		"delay":                           "incomplete command",
		"delay priority 5":                "incomplete command",
		"delay bogus":                     "unknown argument",
		"delay priority high set a 1 b":   "expected integer",
		"delay priority 99999999999 list": "invalid integer",
		"delay silent maybe list":         "invalid bool",
		"delay set a 0 say hi":            "delay must not be less than 1",
		"delay set a -4 say hi":           "delay must not be less than 1",
		"delay set a 5":                   "incomplete command",
		"delay set a 5 ":                  "incomplete command",
		"delay set !bad 5 say":            "expected identifier",
		"delay list now":                  "incorrect argument",
		"delay remove":                    "incomplete command",
		"delay remove a b":                "incorrect argument",
		"delay as \"server list":          "unclosed quoted string",
	}
	for line, msg := range lines {
		_, err := actorGrammar.Parse(line)
		var se *command.SyntaxError
		require.ErrorAs(t, err, &se, line)
		assert.Contains(t, se.Message, msg, line)
		assert.Equal(t, line, se.Input)
	}
}

func TestParseSourceRequiresActor(t *testing.T) {
	g := command.Grammar{Root: "delay"}
	_, err := g.Parse("delay as server set a 1 b")
	var se *command.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "unknown argument", se.Message)
	assert.Equal(t, 6, se.Cursor)
	assert.Contains(t, se.Error(), "at position 6: delay <--[HERE]")
}

func TestParseCustomRoot(t *testing.T) {
	g := command.Grammar{Root: "later"}
	in, err := g.Parse("later set a 1 b")
	require.NoError(t, err)
	assert.Equal(t, "b", in.Command)

	_, err = g.Parse("delay set a 1 b")
	assert.Error(t, err)
}
