// Package proc runs external commands with timeouts, cancellation, and
// optionally line-by-line output streaming into a bounded buffer. It is the
// only place in dcman that talks to os/exec; everything above it works with
// Result values instead of raw process errors.
package proc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"dcman/pkg/log"
)

// ExitUnknown is the sentinel exit code reported when a process could not be
// observed to a normal exit: launch failure, timeout, or cancellation. It
// must never be treated as a genuine command exit status.
const ExitUnknown = -1

// DefaultTimeout bounds commands whose caller did not specify a timeout.
const DefaultTimeout = 60 * time.Second

// defaultStreamCapacity bounds the retained output when a caller requests
// streaming without an explicit line cap.
const defaultStreamCapacity = 1000

// waitDelay bounds the final Wait when a grandchild process inherited our
// pipes and keeps them open after the command itself was killed. It must stay
// well under the shortest command timeout: a timed-out or canceled run cannot
// return before os/exec force-closes the pipes, so this delay is paid on top
// of the deadline.
const waitDelay = 250 * time.Millisecond

// Result is the observed outcome of one external command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Sink receives one decoded output line at a time, in process output order.
// It is invoked synchronously before the next line is read.
type Sink func(line string)

// Options collects the effective settings of one Run call. Fakes in tests
// use ApplyOptions to see what a caller asked for.
type Options struct {
	// Dir is the working directory the command runs in.
	Dir string
	// Timeout bounds the whole run, from launch to the last byte of output.
	Timeout time.Duration
	// Sink, when set, switches the run into streaming mode.
	Sink Sink
	// MaxBufferedLines caps the retained output in streaming mode, oldest
	// lines dropped first. A positive value alone also enables streaming.
	MaxBufferedLines int
	// MergeStderr interleaves stderr into the streamed capture, in write order.
	MergeStderr bool
}

func (o Options) streaming() bool {
	return o.Sink != nil || o.MaxBufferedLines > 0
}

// Option configures a single Run call.
type Option func(*Options)

// WithDir sets the working directory the command runs in.
func WithDir(dir string) Option {
	return func(o *Options) { o.Dir = dir }
}

// WithTimeout bounds the whole run, from launch to the last byte of output.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithStreamSink switches the run into streaming mode and forwards each
// decoded line to sink.
func WithStreamSink(sink Sink) Option {
	return func(o *Options) { o.Sink = sink }
}

// WithMaxBufferedLines switches the run into streaming mode and caps the
// retained output at n lines.
func WithMaxBufferedLines(n int) Option {
	return func(o *Options) { o.MaxBufferedLines = n }
}

// WithMergeStderr interleaves stderr into the streamed stdout capture.
func WithMergeStderr() Option {
	return func(o *Options) { o.MergeStderr = true }
}

// ApplyOptions materializes a set of Options with defaults filled in.
func ApplyOptions(opts ...Option) Options {
	o := Options{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Run executes one external command to completion and reports what happened
// as a Result. Launch failures, timeouts, and non-zero exits never surface
// as errors; they are folded into the Result with ExitCode set accordingly.
// The returned error is non-nil only when the caller's context was canceled,
// and by that point the child process has been killed and reaped.
func Run(ctx context.Context, name string, args []string, opts ...Option) (Result, error) {
	o := ApplyOptions(opts...)

	runCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = o.Dir
	cmd.WaitDelay = waitDelay

	if !o.streaming() {
		return runBuffered(ctx, runCtx, cmd, o.Timeout)
	}
	return runStreaming(ctx, runCtx, cmd, o)
}

// runBuffered captures the full output and returns it only after the process
// exits or the timeout elapses.
func runBuffered(ctx, runCtx context.Context, cmd *exec.Cmd, timeout time.Duration) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return launchFailure(ctx, cmd, err)
	}
	waitErr := cmd.Wait()
	return finish(ctx, runCtx, cmd, timeout, waitErr, stdout.String(), stderr.String())
}

// runStreaming consumes output line-by-line as it arrives, retaining the
// most recent lines in a ring buffer and forwarding each line to the sink
// before the next one is read.
func runStreaming(ctx, runCtx context.Context, cmd *exec.Cmd, o Options) (Result, error) {
	capacity := o.MaxBufferedLines
	if capacity <= 0 {
		capacity = defaultStreamCapacity
	}
	buf := NewLineBuffer(capacity)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	var stderr bytes.Buffer
	if o.MergeStderr {
		// Same writer value for both streams makes os/exec share one pipe,
		// preserving write order across stdout and stderr.
		cmd.Stderr = pw
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return launchFailure(ctx, cmd, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			buf.Push(line)
			if o.Sink != nil {
				o.Sink(line)
			}
		}
		if err := scanner.Err(); err != nil {
			// A line past the token cap aborts scanning. Keep draining the
			// pipe so the command can finish instead of blocking on writes
			// until its timeout.
			log.Warn("output line scan aborted", "cmd", cmd.Path, "error", err)
			_, _ = io.Copy(io.Discard, pr)
		}
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	<-done

	stdout := strings.Join(buf.Snapshot(), "\n")
	return finish(ctx, runCtx, cmd, o.Timeout, waitErr, stdout, stderr.String())
}

// finish classifies how the command ended. Cancellation wins over timeout,
// timeout wins over whatever Wait reported, since the kill that both trigger
// also makes Wait return an unhelpful "signal: killed" error.
func finish(ctx, runCtx context.Context, cmd *exec.Cmd, timeout time.Duration, waitErr error, stdout, stderr string) (Result, error) {
	if ctx.Err() != nil {
		return Result{ExitCode: ExitUnknown, Stdout: stdout, Stderr: "command canceled"}, ctx.Err()
	}
	if runCtx.Err() == context.DeadlineExceeded {
		log.Warn("command timed out", "cmd", cmd.Path, "timeout", timeout)
		return Result{
			ExitCode: ExitUnknown,
			Stdout:   stdout,
			Stderr:   fmt.Sprintf("command timed out after %s", timeout),
		}, nil
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode(), Stdout: stdout, Stderr: stderr}, nil
		}
		return Result{ExitCode: ExitUnknown, Stdout: stdout, Stderr: waitErr.Error()}, nil
	}
	return Result{ExitCode: 0, Stdout: stdout, Stderr: stderr}, nil
}

// launchFailure reports a command that never started. This never escapes as
// an error so a missing executable cannot crash the orchestrator.
func launchFailure(ctx context.Context, cmd *exec.Cmd, err error) (Result, error) {
	if ctx.Err() != nil {
		return Result{ExitCode: ExitUnknown, Stderr: "command canceled"}, ctx.Err()
	}
	log.Error("failed to launch command", "cmd", cmd.Path, "error", err)
	return Result{ExitCode: ExitUnknown, Stderr: err.Error()}, nil
}
