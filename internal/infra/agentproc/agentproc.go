// Package agentproc invokes the external reasoning agent as an isolated
// subprocess: a system prompt, a user prompt carrying the serialized Agent
// Context, and a hard max-turns limit, per spec §4.6/§6. The subprocess is
// given a scratch working directory and no inherited environment secrets.
package agentproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/sony/gobreaker"

	"sentrywatch/internal/resilience/circuitbreaker"
	"sentrywatch/internal/resilience/retry"
)

// Config controls how the reasoner subprocess is launched.
type Config struct {
	// Command is the executable invoked for every agent call.
	Command string
	// Args are passed before the --system-prompt and --max-turns flags
	// agentproc appends at call time; see Invoke.
	Args []string
	// Timeout is the hard ceiling on one invocation (spec §5: agent <= 120s).
	Timeout time.Duration
	// MaxTurns is passed to the subprocess via --max-turns.
	MaxTurns int
}

// DefaultConfig returns sane defaults for a local CLI-style reasoner.
func DefaultConfig() Config {
	return Config{
		Command:  "agent-reasoner",
		Timeout:  120 * time.Second,
		MaxTurns: 6,
	}
}

// Runner invokes the reasoner subprocess and returns its raw stdout for the
// caller (internal/usecase/agent) to parse and validate.
type Runner struct {
	cfg            Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryCfg       retry.Config
}

// NewRunner builds a Runner around cfg, wrapping invocations in a circuit
// breaker and retry policy tuned for an agent subprocess (tolerant of
// occasional non-zero exits, but quick to stop hammering a broken
// reasoner).
func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:            cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.AgentBridgeConfig()),
		retryCfg:       retry.AgentBridgeConfig(),
	}
}

// ErrEmptyOutput is returned when the subprocess exits 0 but writes nothing
// to stdout.
var ErrEmptyOutput = errors.New("agent subprocess produced no output")

// Invoke runs the reasoner with systemPrompt and userPrompt (the serialized
// Agent Context) and returns its stdout. The subprocess runs in a fresh
// scratch directory and inherits no environment variables beyond PATH.
func (r *Runner) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	var stdout string
	retryErr := retry.WithBackoff(ctx, r.retryCfg, func() error {
		cbResult, err := r.circuitBreaker.Execute(func() (interface{}, error) {
			return r.doInvoke(ctx, systemPrompt, userPrompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("agent bridge circuit breaker open, request rejected",
					slog.String("service", "agent-bridge"),
					slog.String("state", r.circuitBreaker.State().String()))
			}
			return err
		}
		stdout = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("agent subprocess failed after retries: %w", retryErr)
	}
	return stdout, nil
}

func (r *Runner) doInvoke(ctx context.Context, systemPrompt, userPrompt string) (interface{}, error) {
	scratchDir, err := os.MkdirTemp("", "sentrywatch-agent-*")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratchDir) }()

	args := append(append([]string{}, r.cfg.Args...),
		"--system-prompt", systemPrompt,
		"--max-turns", fmt.Sprintf("%d", r.cfg.MaxTurns),
	)

	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	cmd.Dir = scratchDir
	// No inherited environment: the reasoner gets no secrets, only enough
	// to resolve its own executable dependencies.
	cmd.Env = []string{"PATH=" + os.Getenv("PATH")}
	cmd.Stdin = bytes.NewBufferString(userPrompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("agent subprocess timed out: %w", ctx.Err())
		}
		return "", fmt.Errorf("agent subprocess exited with error: %w (stderr: %s)", runErr, stderr.String())
	}

	out := stdout.String()
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}
