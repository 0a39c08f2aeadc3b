package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCmd_ReadsStdin(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("First sentence here. Second sentence here."))
	cmd.SetArgs([]string{"chunk", "--size", "25"})

	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "First sentence here.")
	assert.Contains(t, lines[1], "Second sentence here.")
	assert.Equal(t, "2 chunks, 0 split mid-word", lines[2])
}

func TestChunkCmd_MarksMidWordSplits(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(strings.Repeat("x", 25)))
	cmd.SetArgs([]string{"chunk", "--size", "10", "-"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "!"))
	assert.Contains(t, out.String(), "3 chunks, 3 split mid-word")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", preview("a\n\n b", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
}

func TestParseAmount(t *testing.T) {
	n, err := parseAmount("-5")
	require.NoError(t, err)
	assert.Equal(t, -5, n)
	_, err = parseAmount("0")
	assert.Error(t, err)
	_, err = parseAmount("ten")
	assert.Error(t, err)
}
