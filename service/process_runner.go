package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/constants"
)

const (
	secretMask       = "******"
	processWaitDelay = 30 * time.Second
)

// ProcessRunnerImpl runs the external client as a child process
type ProcessRunnerImpl struct {
	stdout io.Writer
	stderr io.Writer
}

// NewProcessRunner creates a runner that streams client output to the
// process's own stdout and stderr
func NewProcessRunner() *ProcessRunnerImpl {
	return NewProcessRunnerWithOutput(os.Stdout, os.Stderr)
}

// NewProcessRunnerWithOutput creates a runner with custom output writers
func NewProcessRunnerWithOutput(stdout, stderr io.Writer) *ProcessRunnerImpl {
	return &ProcessRunnerImpl{stdout: stdout, stderr: stderr}
}

// Run starts the command and waits for it. A non-zero exit status is only
// logged: the client reports its outcome through its result file. Launch
// failures and deadline expiry are returned as domain errors.
func (r *ProcessRunnerImpl) Run(ctx context.Context, cmd domain.Command) error {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultScanTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = r.stdout
	c.Stderr = r.stderr
	// grandchildren may hold the output pipes after the client is killed
	c.WaitDelay = processWaitDelay

	log.Infof("run cmd: %s", MaskSecrets(commandLine(cmd), cmd.Secrets))
	start := time.Now()
	err := c.Run()
	elapsed := time.Since(start).Round(time.Millisecond)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return domain.NewTimeoutError(
			fmt.Sprintf("%s did not finish within %v", cmd.Name, timeout), runCtx.Err())
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return domain.NewProcessError(fmt.Sprintf("%s was cancelled", cmd.Name), ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.Warnf("%s exited with code %d after %v", cmd.Name, exitErr.ExitCode(), elapsed)
		return nil
	}
	if err != nil {
		return domain.NewProcessError(fmt.Sprintf("failed to launch %s", cmd.Name), err)
	}

	log.Debugf("%s finished in %v", cmd.Name, elapsed)
	return nil
}

func commandLine(cmd domain.Command) string {
	return strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
}

// MaskSecrets replaces every non-empty secret in s
func MaskSecrets(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, secretMask)
		}
	}
	return s
}
