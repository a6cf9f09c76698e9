package execution_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
)

func newEnv(t *testing.T) *execution.Local {
	t.Helper()
	env, err := execution.NewLocal(t.TempDir())
	require.NoError(t, err)
	return env
}

func TestWriteTextThenReadText(t *testing.T) {
	env := newEnv(t)
	n, err := env.WriteText("nested/dir/a.txt", "hello world")
	require.NoError(t, err)
	require.Equal(t, len("hello world"), n)

	data, err := env.ReadText("nested/dir/a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello world", data)
}

func TestReadFileAppliesOffsetAndLimit(t *testing.T) {
	env := newEnv(t)
	_, err := env.WriteText("lines.txt", "one\ntwo\nthree\nfour\n")
	require.NoError(t, err)

	offset, limit := 2, 2
	out, err := env.ReadFile("lines.txt", &offset, &limit)
	require.NoError(t, err)
	require.Equal(t, "2: two\n3: three", out)
}

func TestFileExistsAndRemove(t *testing.T) {
	env := newEnv(t)
	require.False(t, env.FileExists("gone.txt"))

	_, err := env.WriteText("gone.txt", "x")
	require.NoError(t, err)
	require.True(t, env.FileExists("gone.txt"))

	require.NoError(t, env.Remove("gone.txt"))
	require.False(t, env.FileExists("gone.txt"))

	// removing an already-absent path is not an error
	require.NoError(t, env.Remove("gone.txt"))
}

func TestResolvePathJoinsRelativeAndKeepsAbsolute(t *testing.T) {
	env := newEnv(t)
	require.Equal(t, "/etc/hosts", env.ResolvePath("/etc/hosts"))
	require.Contains(t, env.ResolvePath("sub/file.txt"), env.WorkingDirectory())
}

func TestListDirectorySortedByName(t *testing.T) {
	env := newEnv(t)
	_, err := env.WriteText("b.txt", "b")
	require.NoError(t, err)
	_, err = env.WriteText("a.txt", "a")
	require.NoError(t, err)

	entries, err := env.ListDirectory(".")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a.txt", entries[0].Name)
	require.Equal(t, "b.txt", entries[1].Name)
}

func TestExecCommandCapturesStdoutAndExitCode(t *testing.T) {
	env := newEnv(t)
	result, err := env.ExecCommand(context.Background(), "echo hello", 5000, "", nil)
	require.NoError(t, err)
	require.Contains(t, result.Stdout, "hello")
	require.Equal(t, 0, result.ExitCode)
	require.False(t, result.TimedOut)
}

func TestExecCommandReportsNonZeroExit(t *testing.T) {
	env := newEnv(t)
	result, err := env.ExecCommand(context.Background(), "exit 3", 5000, "", nil)
	require.NoError(t, err)
	require.Equal(t, 3, result.ExitCode)
}
