package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralph-run/ralph/internal/domain/model/mutation"
)

func TestParse_FullFileBlock(t *testing.T) {
	raw := `I created the file as requested.

<<<FILE: a.txt>>>
hello
<<<END>>>

Done.`

	resp, err := Parse(raw)
	require.NoError(t, err)

	require.Len(t, resp.Mutations, 1)
	m := resp.Mutations[0]
	assert.Equal(t, mutation.KindFullFileReplace, m.Kind)
	assert.Equal(t, "a.txt", m.Path)
	assert.Equal(t, "hello", m.Content)
	assert.False(t, resp.CompletionSignal)
	assert.Contains(t, resp.Commentary, "I created the file as requested.")
}

func TestParse_MultilineContentPreserved(t *testing.T) {
	raw := strings.Join([]string{
		"<<<FILE: pkg/server.go>>>",
		"package pkg",
		"",
		"func Serve() {",
		"\treturn",
		"}",
		"<<<END>>>",
	}, "\n")

	resp, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, resp.Mutations, 1)
	assert.Equal(t, "package pkg\n\nfunc Serve() {\n\treturn\n}", resp.Mutations[0].Content)
}

func TestParse_EditBlock(t *testing.T) {
	raw := `<<<EDIT: main.go>>>
SEARCH:
const version = "1.0"
REPLACE:
const version = "1.1"
<<<END>>>`

	resp, err := Parse(raw)
	require.NoError(t, err)

	require.Len(t, resp.Mutations, 1)
	m := resp.Mutations[0]
	assert.Equal(t, mutation.KindSearchReplaceEdit, m.Kind)
	assert.Equal(t, "main.go", m.Path)
	assert.Equal(t, `const version = "1.0"`, m.SearchText)
	assert.Equal(t, `const version = "1.1"`, m.ReplaceText)
}

func TestParse_OrderedMixedBlocks(t *testing.T) {
	raw := `<<<FILE: new.txt>>>
first
<<<END>>>
<<<EDIT: old.txt>>>
SEARCH:
a
REPLACE:
b
<<<END>>>
<<<FILE: another.txt>>>
third
<<<END>>>`

	resp, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, resp.Mutations, 3)
	assert.Equal(t, "new.txt", resp.Mutations[0].Path)
	assert.Equal(t, "old.txt", resp.Mutations[1].Path)
	assert.Equal(t, "another.txt", resp.Mutations[2].Path)
}

func TestParse_CompletionSentinel(t *testing.T) {
	t.Run("sentinel alone is not a parse error", func(t *testing.T) {
		resp, err := Parse("All stories are done.\nRALPH_BACKLOG_COMPLETE\n")
		require.NoError(t, err)
		assert.True(t, resp.CompletionSignal)
		assert.Empty(t, resp.Mutations)
	})

	t.Run("sentinel alongside mutations", func(t *testing.T) {
		resp, err := Parse(`<<<FILE: last.txt>>>
done
<<<END>>>
RALPH_BACKLOG_COMPLETE`)
		require.NoError(t, err)
		assert.True(t, resp.CompletionSignal)
		assert.Len(t, resp.Mutations, 1)
	})

	t.Run("sentinel inside a file body is content, not a signal", func(t *testing.T) {
		resp, err := Parse(`<<<FILE: notes.md>>>
The marker RALPH_BACKLOG_COMPLETE ends a run.
<<<END>>>`)
		require.NoError(t, err)
		assert.False(t, resp.CompletionSignal)
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty response", ""},
		{"commentary only", "I could not figure out what to change."},
		{"unterminated file block", "<<<FILE: a.txt>>>\ncontent"},
		{"unterminated edit block", "<<<EDIT: a.txt>>>\nSEARCH:\nx\nREPLACE:\ny"},
		{"edit without search", "<<<EDIT: a.txt>>>\nREPLACE:\ny\n<<<END>>>"},
		{"edit without replace", "<<<EDIT: a.txt>>>\nSEARCH:\nx\n<<<END>>>"},
		{"edit with empty search", "<<<EDIT: a.txt>>>\nSEARCH:\nREPLACE:\ny\n<<<END>>>"},
		{"empty path", "<<<FILE: >>>\nx\n<<<END>>>"},
		{"header missing closing", "<<<FILE: a.txt\nx\n<<<END>>>"},
		{"stray end marker", "some text\n<<<END>>>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "expected ErrParse, got %v", err)
		})
	}
}

func TestParse_ReplaceMayBeEmpty(t *testing.T) {
	// Deleting text is a legal edit: empty REPLACE section
	resp, err := Parse(`<<<EDIT: a.txt>>>
SEARCH:
obsolete line
REPLACE:
<<<END>>>`)
	require.NoError(t, err)
	require.Len(t, resp.Mutations, 1)
	assert.Equal(t, "obsolete line", resp.Mutations[0].SearchText)
	assert.Equal(t, "", resp.Mutations[0].ReplaceText)
}
