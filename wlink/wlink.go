package wlink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBinary is the wlink executable looked up on PATH.
const DefaultBinary = "wlink"

// Result is the raw outcome of one wlink invocation.
type Result struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK reports whether the process exited cleanly.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Output returns stdout and stderr joined, trimmed.
func (r Result) Output() string {
	out := strings.TrimRight(r.Stdout, " \t\r\n")
	errOut := strings.TrimRight(r.Stderr, " \t\r\n")
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	}
	return out + "\n" + errOut
}

// Kind classifies a failed result for user-facing messaging.
func (r Result) Kind() ErrorKind {
	if r.OK() {
		return KindNone
	}
	return Classify(r.Stderr + "\n" + r.Stdout)
}

// Runner executes wlink with a discrete argument list. Implementations must
// not pass arguments through a shell.
type Runner interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// ExecRunner runs the real wlink binary.
type ExecRunner struct {
	Binary string
}

func (r ExecRunner) binary() string {
	if r.Binary == "" {
		return DefaultBinary
	}
	return r.Binary
}

func (r ExecRunner) Run(ctx context.Context, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, r.binary(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Args:   args,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res, fmt.Errorf("%s %s: %s: %w", r.binary(), strings.Join(args, " "), strings.TrimSpace(res.Stderr), err)
	}
	return res, nil
}
