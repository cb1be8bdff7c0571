package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"zipatch/internal/zp"
)

// CommandRunner runs an external program and reports its exit code and
// standard error. A program that cannot be started returns a non-nil error.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (exitCode int, stderr string, err error)
}

// ExecRunner runs programs with os/exec. Standard input is not attached
// and standard output is discarded.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string) (int, string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), stderr.String(), nil
	}
	if err != nil {
		return -1, stderr.String(), err
	}
	return 0, stderr.String(), nil
}

// ProcessDecoder extracts an archive by running an external decoder such
// as unrar or 7z. Args may contain the placeholders {archive} and {dest}.
type ProcessDecoder struct {
	Command string
	Args    []string
	Runner  CommandRunner
	logger  zp.Logger
}

var _ Decoder = (*ProcessDecoder)(nil)

func NewProcessDecoder(command string, args []string, runner CommandRunner, logger zp.Logger) *ProcessDecoder {
	return &ProcessDecoder{Command: command, Args: args, Runner: runner, logger: logger}
}

// Decode runs the decoder and classifies a failure from its exit status
// and stderr. progress is not called; the decoder reports nothing per entry.
func (p *ProcessDecoder) Decode(ctx context.Context, archivePath, destDir string, _ zp.ProgressFunc) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return &zp.ExtractionError{Kind: zp.DecodeFailure, Archive: archivePath, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	args := expandArgs(p.Args, archivePath, destDir)
	p.logger.Debug("running decoder", "command", p.Command, "args", strings.Join(args, " "))

	code, stderr, err := p.Runner.Run(ctx, p.Command, args)
	if err != nil {
		return &zp.ExtractionError{
			Kind:    zp.DecodeFailure,
			Archive: archivePath,
			Detail:  stderr,
			Err:     fmt.Errorf("running %s: %w", p.Command, err),
		}
	}
	return classify(archivePath, p.Command, code, stderr)
}

// classify maps a decoder's exit status and stderr to an error kind. A
// non-zero exit mentioning a password is PasswordProtected; any other
// non-zero exit is DecodeFailure.
func classify(archivePath, command string, code int, stderr string) error {
	if code == 0 {
		return nil
	}
	kind := zp.DecodeFailure
	if strings.Contains(strings.ToLower(stderr), "password") {
		kind = zp.PasswordProtected
	}
	return &zp.ExtractionError{
		Kind:    kind,
		Archive: archivePath,
		Detail:  stderr,
		Err:     fmt.Errorf("%s exited with status %d", command, code),
	}
}

func expandArgs(tmpl []string, archivePath, destDir string) []string {
	r := strings.NewReplacer("{archive}", archivePath, "{dest}", destDir)
	args := make([]string, len(tmpl))
	for i, a := range tmpl {
		args[i] = r.Replace(a)
	}
	return args
}
