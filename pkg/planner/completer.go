package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Completer turns a prompt into a model response.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CommandCompleter runs an LLM command-line client. The prompt is appended
// as the last argument. Clients that print {"result": "..."} are unwrapped;
// anything else is returned verbatim.
type CommandCompleter struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Complete runs the command once.
func (c *CommandCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.Command == "" {
		return "", errors.New("planner: no completion command configured")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.Args...), prompt)
	cmd := exec.CommandContext(ctx, c.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("completion failed (exit %d): %s", exitErr.ExitCode(), truncate(stderr.String(), 500))
		}
		return "", fmt.Errorf("run %s: %w (stderr: %s)", c.Command, err, truncate(stderr.String(), 500))
	}

	var parsed struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil || parsed.Result == "" {
		return stdout.String(), nil
	}
	return parsed.Result, nil
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
