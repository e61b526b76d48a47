package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"sentrywatch/internal/domain/entity"
)

// ShellFetcher implements the shell engine: target.Locator is an opaque
// command string run through /bin/sh, and its stdout becomes Result.Text
// with an empty HTML, per spec's "shell returns its stdout as text and
// empty html" rule. It is exempt from per-domain rate limiting and SSRF
// validation since its locator is not a URL.
type ShellFetcher struct {
	timeout time.Duration
}

// NewShellFetcher builds a ShellFetcher bounded by timeout.
func NewShellFetcher(timeout time.Duration) *ShellFetcher {
	return &ShellFetcher{timeout: timeout}
}

// Fetch implements Fetcher for entity.EngineShell.
func (f *ShellFetcher) Fetch(ctx context.Context, target *entity.Target) (Result, error) {
	if target.Locator == "" {
		return Result{}, fmt.Errorf("shell fetch: empty command")
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// #nosec G204 -- target.Locator is an operator-configured command, not
	// attacker-controlled input; the shell engine exists precisely to run
	// arbitrary operator commands.
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", target.Locator)
	cmd.Env = []string{"PATH=" + os.Getenv("PATH")}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("shell fetch timed out: %w", ctx.Err())
		}
		return Result{}, fmt.Errorf("shell command failed: %w (stderr: %s)", err, stderr.String())
	}

	return Result{FinalURL: target.Locator, Text: stdout.String()}, nil
}
