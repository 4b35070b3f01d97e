package proc

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellCmd(script string) (string, []string) {
	return "sh", []string{"-c", script}
}

func TestRunCapturesOutput(t *testing.T) {
	name, args := shellCmd(`echo hello; echo oops 1>&2`)

	res, err := Run(context.Background(), name, args)

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestRunNonZeroExit(t *testing.T) {
	name, args := shellCmd(`echo partial; exit 3`)

	res, err := Run(context.Background(), name, args)

	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial\n", res.Stdout)
}

func TestRunWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	name, args := shellCmd(`pwd`)

	res, err := Run(context.Background(), name, args, WithDir(dir))

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, strings.TrimSpace(res.Stdout), dir)
}

func TestRunLaunchFailure(t *testing.T) {
	res, err := Run(context.Background(), "/nonexistent/definitely-not-a-binary", nil)

	require.NoError(t, err)
	assert.Equal(t, ExitUnknown, res.ExitCode)
	assert.Empty(t, res.Stdout)
	assert.NotEmpty(t, res.Stderr)
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	// The backgrounded sleep survives the shell's kill and keeps the output
	// pipe open, so the return bound depends on the reap delay, not just on
	// the deadline.
	name, args := shellCmd(`echo before; sleep 30 & wait`)

	start := time.Now()
	res, err := Run(context.Background(), name, args,
		WithTimeout(200*time.Millisecond),
		WithMaxBufferedLines(10),
	)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, ExitUnknown, res.ExitCode)
	assert.Contains(t, res.Stderr, "timed out")
	// Partial output captured before the timeout is preserved.
	assert.Equal(t, "before", res.Stdout)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRunCancellation(t *testing.T) {
	name, args := shellCmd(`sleep 30 & wait`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res, err := Run(ctx, name, args, WithTimeout(time.Minute))
	elapsed := time.Since(start)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExitUnknown, res.ExitCode)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRunStreamingOversizedLineDoesNotStall(t *testing.T) {
	// One line past the scanner's token cap aborts line splitting; the rest
	// of the output must still be drained so the command finishes instead of
	// blocking on a full pipe until its timeout.
	name, args := shellCmd(`echo first; head -c 2097152 /dev/zero | tr '\0' 'x'; echo; echo last`)

	start := time.Now()
	res, err := Run(context.Background(), name, args,
		WithTimeout(30*time.Second),
		WithMaxBufferedLines(10),
	)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "first")
	assert.Less(t, elapsed, 10*time.Second)
}

func TestRunStreamingRetainsLastLines(t *testing.T) {
	const total = 15
	const keep = 10
	name, args := shellCmd(`i=1; while [ $i -le 15 ]; do echo "line $i"; i=$((i+1)); done`)

	var streamed []string
	res, err := Run(context.Background(), name, args,
		WithStreamSink(func(line string) { streamed = append(streamed, line) }),
		WithMaxBufferedLines(keep),
	)

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	// The sink saw every line in order.
	require.Len(t, streamed, total)
	for i, line := range streamed {
		assert.Equal(t, fmt.Sprintf("line %d", i+1), line)
	}

	// The buffer kept exactly the last keep lines.
	kept := strings.Split(res.Stdout, "\n")
	require.Len(t, kept, keep)
	assert.Equal(t, "line 6", kept[0])
	assert.Equal(t, "line 15", kept[keep-1])
}

func TestRunStreamingMergesStderr(t *testing.T) {
	name, args := shellCmd(`echo out1; echo err1 1>&2; echo out2`)

	res, err := Run(context.Background(), name, args,
		WithMaxBufferedLines(10),
		WithMergeStderr(),
	)

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"out1", "err1", "out2"}, strings.Split(res.Stdout, "\n"))
	assert.Empty(t, res.Stderr)
}
