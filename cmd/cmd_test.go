package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCorpusCommands(t *testing.T) {
	out, err := execute(t, "", "corpus", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok:")

	out, err = execute(t, "", "corpus", "list", "--topic", "quadratic equations")
	require.NoError(t, err)
	assert.Contains(t, out, "quad-001")
	assert.NotContains(t, out, "lin-001")

	out, err = execute(t, "", "corpus", "concepts")
	require.NoError(t, err)
	assert.Contains(t, out, "factoring")

	_, err = execute(t, "", "corpus", "list", "--topic", "calculus", "--difficulty", "0")
	assert.ErrorContains(t, err, "unknown topic")
}

func TestChatArchivesSession(t *testing.T) {
	t.Setenv("MATHGUIDE_LOGGING_LEVEL", "error")
	db := filepath.Join(t.TempDir(), "guide.db")

	out, err := execute(t, "hint\n\n/quit\n",
		"chat", "--db", db, "--session", "chat-test", "--topic", "linear equations")
	require.NoError(t, err)
	assert.Contains(t, out, "New linear equations problem")
	assert.Contains(t, out, "Session chat-test saved")

	out, err = execute(t, "", "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "chat-test")

	out, err = execute(t, "", "history", "llm", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No LLM usage recorded yet.")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "mathguide "), out)
	assert.Equal(t, "mathguide "+buildVersion()+"\n", out)
}
