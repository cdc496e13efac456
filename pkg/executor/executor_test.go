package executor

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealExecutor_ExitCodeIsResult(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	ex := &RealExecutor{}

	res, err := ex.Execute(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo out; exit 3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
	assert.Equal(t, "out", res.Output())
}

func TestRealExecutor_Stdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses cat")
	}
	ex := &RealExecutor{}

	res, err := ex.Execute(context.Background(), Command{Name: "cat", Stdin: "select 1"})
	require.NoError(t, err)
	assert.Equal(t, "select 1", string(res.Stdout))
}

func TestRealExecutor_NotFound(t *testing.T) {
	ex := &RealExecutor{}
	_, err := ex.Execute(context.Background(), Command{Name: "definitely-not-a-binary-upkeep"})
	assert.Error(t, err)
}

func TestResultOutput_JoinsStreams(t *testing.T) {
	res := &Result{Stdout: []byte("a"), Stderr: []byte("b\n")}
	assert.Equal(t, "a\nb", res.Output())
}

func TestDryRunExecutor_Records(t *testing.T) {
	ex := &DryRunExecutor{}
	res, err := ex.Execute(context.Background(), Command{Name: "rm", Args: []string{"-rf", "/tmp/x"}})
	require.NoError(t, err)
	assert.Equal(t, "<dry-run>", string(res.Stdout))
	require.Len(t, ex.Commands, 1)
	assert.Equal(t, "rm -rf /tmp/x", ex.Commands[0].String())
}

func TestReplayExecutor(t *testing.T) {
	rec, err := ParseRecording([]byte(`
commands:
  - argv: [rpm, -q, satellite]
    stdout: "6.2.11\n"
  - argv: [psql]
    stdin: "SELECT 1"
    stdout: "one"
  - argv: [uptime]
    stdout: up
    repeat: true
`))
	require.NoError(t, err)
	ex := NewReplayExecutor(rec)
	ctx := context.Background()

	res, err := ex.Execute(ctx, Command{Name: "rpm", Args: []string{"-q", "satellite"}})
	require.NoError(t, err)
	assert.Equal(t, "6.2.11", res.Output())

	_, err = ex.Execute(ctx, Command{Name: "rpm", Args: []string{"-q", "satellite"}})
	assert.Error(t, err, "single-use entries are consumed")

	_, err = ex.Execute(ctx, Command{Name: "psql", Stdin: "SELECT 2"})
	assert.Error(t, err, "stdin must match")

	for range 2 {
		res, err = ex.Execute(ctx, Command{Name: "uptime"})
		require.NoError(t, err)
		assert.Equal(t, "up", res.Output())
	}
}

func TestParseRecording_RequiresCommands(t *testing.T) {
	_, err := ParseRecording([]byte("commands: []\n"))
	assert.Error(t, err)
}
