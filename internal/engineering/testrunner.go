package engineering

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// ShellTestRunner implements TestRunner by executing a fixed argv-style
// test command inside the prepared working directory, the same
// no-shell-wrapping argv execution pkg/build.HostExecutor.Run uses, and
// the exit-code-not-error convention it follows: a non-zero exit is a
// failed test run to report back through TestResult, not a Go error.
type ShellTestRunner struct {
	command []string
	timeout time.Duration
}

// NewShellTestRunner builds a ShellTestRunner that runs command (argv
// form, e.g. []string{"make", "test"}) with the given timeout.
func NewShellTestRunner(command []string, timeout time.Duration) *ShellTestRunner {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ShellTestRunner{command: command, timeout: timeout}
}

// RunTests executes the configured test command in workdir and reports
// pass/fail based on its exit code.
func (r *ShellTestRunner) RunTests(ctx context.Context, workdir string) (TestResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Dir = workdir
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return TestResult{}, err
		}
		exitCode = exitErr.ExitCode()
	}

	return TestResult{
		Passed:   exitCode == 0,
		Feedback: output.String(),
		Counts:   map[string]any{"exit_code": exitCode},
	}, nil
}
