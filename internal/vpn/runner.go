package vpn

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes host commands. The manager depends on this interface so
// tests can script systemctl and easyrsa without a real host.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Dir, when set, is the working directory for every command.
	Dir string
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, int) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if err != nil {
		code = 1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		if stderr.Len() == 0 {
			stderr.WriteString(err.Error())
		}
	}
	return stdout.String(), stderr.String(), code
}
