// Package vcs looks up release tags in the version-control system.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// ErrGitNotFound is returned when the git binary cannot be located.
	ErrGitNotFound = errors.New("git executable not found")
	// ErrNoTag is returned when no tag is reachable from the current history.
	ErrNoTag = errors.New("no tag found")
)

// Describer returns the most recent tag of a repository.
type Describer interface {
	LatestTag(ctx context.Context) (string, error)
}

// CmdError describes a failed git invocation.
type CmdError struct {
	Args   string
	Stderr string
	Cause  error
}

func (ce *CmdError) Error() string {
	res := fmt.Sprintf("`%v` failed %v", ce.Args, ce.Cause)
	if ce.Stderr != "" {
		res = fmt.Sprintf("%s: %s", res, ce.Stderr)
	}
	return res
}

func (ce *CmdError) Unwrap() error {
	return ce.Cause
}

// Git runs the git binary in a repository directory.
type Git struct {
	Dir     string // Repository directory (default: current directory)
	Match   string // Optional glob passed to --match
	Binary  string // Git executable (default: "git")
	Timeout time.Duration
	Logger  *log.Logger
}

// NewGit creates a Git describer rooted at dir.
func NewGit(dir string) *Git {
	return &Git{
		Dir:     dir,
		Binary:  "git",
		Timeout: 30 * time.Second,
		Logger:  log.Default(),
	}
}

// LatestTag returns the nearest tag reachable from HEAD, without the
// commit-distance suffix.
func (g *Git) LatestTag(ctx context.Context) (string, error) {
	args := []string{"describe", "--tags", "--abbrev=0"}
	if g.Match != "" {
		args = append(args, "--match", g.Match)
	}

	out, err := g.run(ctx, args...)
	if err != nil {
		var ce *CmdError
		if errors.As(err, &ce) && isNoTagMessage(ce.Stderr) {
			return "", fmt.Errorf("%w: %w", ErrNoTag, err)
		}
		return "", err
	}

	// Only the first line is meaningful
	line, _, _ := strings.Cut(out, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ErrNoTag
	}
	return line, nil
}

// GitDir returns the absolute path of the repository's .git directory. In a
// linked worktree this is .git/worktrees/<name>.
func (g *Git) GitDir(ctx context.Context) (string, error) {
	return g.revParseDir(ctx, "--git-dir")
}

// GitCommonDir returns the absolute path of the directory holding refs and
// packed-refs shared by every worktree of the repository.
func (g *Git) GitCommonDir(ctx context.Context) (string, error) {
	return g.revParseDir(ctx, "--git-common-dir")
}

func (g *Git) revParseDir(ctx context.Context, flag string) (string, error) {
	out, err := g.run(ctx, "rev-parse", flag)
	if err != nil {
		return "", err
	}

	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(g.Dir, dir)
	}
	return filepath.Abs(dir)
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// log in a way we can copy-and-paste into a terminal
	cmdline := strings.Join(cmd.Args, " ")
	g.logger().Debug(cmdline, "dir", cmd.Dir)

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", ErrGitNotFound, err)
		}
		return "", &CmdError{
			Args:   cmdline,
			Stderr: strings.TrimSpace(stderr.String()),
			Cause:  err,
		}
	}

	g.logger().Debug("git finished", "duration", time.Since(start))
	return stdout.String(), nil
}

func (g *Git) logger() *log.Logger {
	if g.Logger == nil {
		return log.Default()
	}
	return g.Logger
}

func isNoTagMessage(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no names found") ||
		strings.Contains(s, "no tags can describe") ||
		strings.Contains(s, "cannot describe")
}

// Static is a Describer that always returns the same tag.
type Static string

// LatestTag returns the static tag, or ErrNoTag when it is empty.
func (s Static) LatestTag(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoTag
	}
	return string(s), nil
}
