package notifier

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"sentrywatch/internal/domain/entity"
)

// ShellNotifier runs an arbitrary shell command for each change, passing the
// rendered notification body on stdin and the rest of the payload as
// environment variables, mirroring internal/infra/agentproc's
// minimal-environment subprocess style. Unlike agentproc it sets no scratch
// working directory.
type ShellNotifier struct {
	timeout time.Duration
}

func NewShellNotifier(timeout time.Duration) *ShellNotifier {
	return &ShellNotifier{timeout: timeout}
}

func (s *ShellNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.ShellCommand == "" {
		return fmt.Errorf("shell: target has no command configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}

	// #nosec G204 -- ShellCommand is operator-configured per target, not
	// derived from fetched content.
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", target.ShellCommand)
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"SENTRYWATCH_TARGET_ID=" + payload.TargetID,
		"SENTRYWATCH_TARGET_NAME=" + payload.TargetName,
		"SENTRYWATCH_SOURCE_URL=" + payload.SourceURL,
		"SENTRYWATCH_TITLE=" + title,
		"SENTRYWATCH_DETECTED_AT=" + payload.DetectedAt.Format(time.RFC3339),
	}
	cmd.Stdin = bytes.NewBufferString(renderBody(payload))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Info("running shell notification command", slog.String("target_id", payload.TargetID))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("shell notification command timed out: %w", ctx.Err())
		}
		return fmt.Errorf("shell notification command failed: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}
