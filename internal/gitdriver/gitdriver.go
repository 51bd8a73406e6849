// Package gitdriver wraps git subprocess invocations behind typed
// operations. Nothing above this package shells out to git directly;
// everything that touches a repository or worktree goes through a
// *Driver method, so every call site gets consistent argv/exit-code/
// stderr capture and a uniform wrapping error.
package gitdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/krscott/gitcuttle/internal/logging"
)

// Sentinel errors. Call sites in internal/workspace translate these
// into apperror.AppError codes; gitdriver itself never constructs an
// AppError, keeping it independent of the CLI-facing error taxonomy.
var (
	ErrNotAGitRepo   = errors.New("not a git repository")
	ErrRefNotFound   = errors.New("reference not found")
	ErrRefExists     = errors.New("reference already exists")
	ErrDetachedHead  = errors.New("HEAD is detached")
	ErrNoRemote      = errors.New("no remote configured")
	ErrMergeConflict = errors.New("merge produced conflicts")
	ErrPushRejected  = errors.New("push rejected by remote")
)

// CommandError is returned when a git invocation exits non-zero. It
// carries the full argv and captured stderr so callers can classify
// the failure or surface it verbatim.
type CommandError struct {
	Args   []string
	Dir    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, e.Stderr)
	}
	return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// processLogger traces every git subprocess invocation this process
// runs. It defaults to slog.Default() (Info level, so Debug traces are
// silent) until SetLogger installs the ambient logger built from
// -v/--verbose, which cmd/gitcuttle does once per invocation before any
// Driver runs a command.
var processLogger = slog.Default()

// SetLogger installs the process-wide logger used by every Driver's
// command runner. Every Driver shares it rather than carrying its own,
// since there is exactly one ambient logger per process invocation.
func SetLogger(logger *slog.Logger) {
	processLogger = logger
}

// Driver invokes git for a single repository or worktree rooted at Dir.
type Driver struct {
	// Dir is the working directory git commands run in: a repository
	// root or a worktree path. It determines which checkout (and
	// therefore which HEAD) a command observes.
	Dir string

	// Timeout bounds every subprocess invocation. Zero means no
	// timeout, matching the specification's "no internal timeouts"
	// resource model (§5); tests may set one to bound hangs.
	Timeout time.Duration
}

// New returns a Driver rooted at dir. It does not verify dir is inside
// a git repository; callers that need that guarantee should call
// RevParseGitDir first and treat ErrNotAGitRepo accordingly.
func New(dir string) *Driver {
	return &Driver{Dir: dir}
}

// run executes git with args, returning trimmed stdout. On non-zero
// exit it returns a *CommandError wrapping the underlying exec error.
func (d *Driver) run(ctx context.Context, args ...string) (string, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		cmdErr := &CommandError{
			Args:   args,
			Dir:    d.Dir,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
		logging.LogGitCommand(processLogger, d.Dir, args, cmdErr)
		return "", cmdErr
	}
	logging.LogGitCommand(processLogger, d.Dir, args, nil)
	return strings.TrimSpace(stdout.String()), nil
}

// runLines is run but splits stdout on newlines, dropping empty lines.
func (d *Driver) runLines(ctx context.Context, args ...string) ([]string, error) {
	out, err := d.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	lines := strings.Split(out, "\n")
	result := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if l != "" {
			result = append(result, l)
		}
	}
	return result, nil
}

// Exec is the generic escape hatch for git subcommands with no
// dedicated typed wrapper. Prefer a typed method where one exists.
func (d *Driver) Exec(ctx context.Context, args ...string) (string, error) {
	return d.run(ctx, args...)
}
