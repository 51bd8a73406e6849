package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/config"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/logging"
	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/orchestrator"
	"github.com/krscott/gitcuttle/internal/remotestatus"
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:           "gitcuttle",
	Short:         "Manage Git worktree-backed workspaces, including octopus merge workspaces",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug-level logging")
}

// Execute runs the command tree and is the sole entry point main()
// calls.
func Execute() error {
	return rootCmd.Execute()
}

// badArgsError marks a usage error that should exit 2, per spec §6's
// CLI exit code table, distinct from a domain AppError's exit 1.
type badArgsError struct{ msg string }

func (e *badArgsError) Error() string { return e.msg }

func badArgsf(format string, args ...any) error {
	return &badArgsError{msg: fmt.Sprintf(format, args...)}
}

// exitCodeFor maps a returned error to the process exit code spec §6
// names: 0 success, 2 bad args, 1 domain error.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var badArgs *badArgsError
	if errors.As(err, &badArgs) {
		return 2
	}
	return 1
}

// runtimeContext bundles the plumbing every command needs: a context,
// the resolved working directory, the loaded configuration, the
// logger, and the metadata store. Built once per command invocation.
type runtimeContext struct {
	ctx    context.Context
	cwd    string
	cfg    config.Config
	logger *slog.Logger
	store  *metadata.Store
	cache  *remotestatus.Cache
}

// statusCache returns the process-lifetime remote-status cache,
// sized by the configured TTL (§4.5).
func (rc *runtimeContext) statusCache() *remotestatus.Cache {
	if rc.cache == nil {
		rc.cache = remotestatus.NewCache()
		if rc.cfg.RemoteStatusTTLSeconds > 0 {
			rc.cache.TTL = time.Duration(rc.cfg.RemoteStatusTTLSeconds) * time.Second
		}
	}
	return rc.cache
}

func newRuntimeContext() (*runtimeContext, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	repoRootHint := ""
	if d := gitdriver.New(cwd); d != nil {
		if root, err := d.RevParseRepoRoot(context.Background()); err == nil {
			repoRootHint = root
		}
	}

	cfg, err := config.Load(repoRootHint, verboseFlag)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.New(logging.Options{Verbose: cfg.Verbose, LogFile: cfg.LogFile})
	gitdriver.SetLogger(logger)
	store := metadata.New(cfg.MetadataPath)

	return &runtimeContext{
		ctx:    context.Background(),
		cwd:    cwd,
		cfg:    cfg,
		logger: logger,
		store:  store,
	}, nil
}

// preflight runs orchestrator.Preflight and, for mutating commands,
// auto-tracks the repository, returning the tracked Repo and its
// canonical git dir.
func (rc *runtimeContext) preflight(command string) (repo metadata.Repo, gitDir string, err error) {
	gitDir, err = orchestrator.Preflight(rc.ctx, rc.cwd)
	if err != nil {
		return metadata.Repo{}, "", err
	}

	d := gitdriver.New(rc.cwd)
	repoRoot, err := d.RevParseRepoRoot(rc.ctx)
	if err != nil {
		return metadata.Repo{}, "", fmt.Errorf("resolve repo root: %w", err)
	}

	repo, err = orchestrator.EnsureTrackedForMutating(rc.ctx, rc.store, command, repoRoot, gitDir, commandNow())
	if err != nil {
		return metadata.Repo{}, "", err
	}
	return repo, gitDir, nil
}

// commandNow is the single source of "now" for metadata timestamps
// written during a command invocation.
func commandNow() time.Time { return time.Now() }

// renderError writes err to stderr: AppErrors in the documented
// "error[<code>]: ..." form, everything else as a plain message.
func renderError(err error) {
	if appErr, ok := apperror.As(err); ok {
		fmt.Fprintln(os.Stderr, apperror.Render(appErr))
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
