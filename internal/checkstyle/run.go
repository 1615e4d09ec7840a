package checkstyle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/acadly/feedbackd/internal/log"
)

// Runner executes the Checkstyle jar over a source tree.
type Runner struct {
	javaBin    string
	jarPath    string
	configPath string
	timeout    time.Duration
}

// NewRunner configures the analyzer invocation.
func NewRunner(javaBin, jarPath, configPath string, timeout time.Duration) *Runner {
	if javaBin == "" {
		javaBin = "java"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{
		javaBin:    javaBin,
		jarPath:    jarPath,
		configPath: configPath,
		timeout:    timeout,
	}
}

// Run audits srcDir and returns the parsed result. Checkstyle exits
// non-zero when it finds violations, so a non-zero exit with parseable
// XML output is a successful audit, not a failure.
func (r *Runner) Run(ctx context.Context, srcDir string) (Result, error) {
	logger := log.WithComponentFromContext(ctx, "checkstyle.run")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.javaBin,
		"-jar", r.jarPath,
		"-c", r.configPath,
		"-f", "xml",
		srcDir,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	logger.Info().
		Str(log.FieldPath, srcDir).
		Dur("duration", time.Since(start)).
		Bool("exit_zero", runErr == nil).
		Msg("checkstyle finished")

	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("checkstyle timed out after %s", r.timeout)
	}

	result, parseErr := ParseXML(stdout.Bytes())
	if runErr == nil {
		return result, parseErr
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && parseErr == nil {
		return result, nil
	}

	return Result{}, fmt.Errorf("checkstyle failed: %w: %s", runErr, truncate(stderr.String(), 2048))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
