package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

// Runner executes one command in dir and returns its combined output.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs commands through os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Publisher stages, commits and pushes the working tree with the git CLI.
type Publisher struct {
	workDir string
	run     Runner
	logger  *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher targets the repository at workDir; a nil runner uses ExecRunner.
func NewPublisher(workDir string, run Runner, log *slog.Logger) *Publisher {
	if run == nil {
		run = ExecRunner
	}
	if workDir == "" {
		workDir = "."
	}
	return &Publisher{workDir: workDir, run: run, logger: log}
}

// StageAll runs `git add .`.
func (p *Publisher) StageAll(ctx context.Context) error {
	return p.git(ctx, "add", ".")
}

// Commit records staged changes. An empty index yields ErrNothingToCommit.
func (p *Publisher) Commit(ctx context.Context, message string) error {
	if _, err := p.run(ctx, p.workDir, "git", "diff", "--cached", "--quiet"); err == nil {
		return domain.ErrNothingToCommit
	} else if !isExitCode(err, 1) {
		return fmt.Errorf("%w: git diff --cached: %v", domain.ErrPublish, err)
	}
	return p.git(ctx, "commit", "-m", message)
}

// Push runs `git push` once.
func (p *Publisher) Push(ctx context.Context) error {
	return p.git(ctx, "push")
}

func (p *Publisher) git(ctx context.Context, args ...string) error {
	if p.logger != nil {
		p.logger.Info("run command", "cmd", "git "+strings.Join(args, " "), "dir", p.workDir)
	}
	out, err := p.run(ctx, p.workDir, "git", args...)
	if err != nil {
		return fmt.Errorf("%w: git %s: %v: %s", domain.ErrPublish, args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func isExitCode(err error, code int) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == code
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode() == code
	}
	return false
}
