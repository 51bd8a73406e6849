// Package config loads gitcuttle's layered configuration: flags over
// environment over a repo-local TOML file over built-in defaults,
// following SPEC_FULL.md §2.3.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved configuration for one invocation.
type Config struct {
	// Verbose mirrors -v/--verbose once GITCUTTLE_VERBOSE or the flag
	// is applied.
	Verbose bool
	// MetadataPath is $XDG_DATA_HOME/gitcuttle/workspaces.json unless
	// overridden.
	MetadataPath string
	// DefaultBaseRef overrides the base ref `new`/`worktree` infer
	// when the caller passes none.
	DefaultBaseRef string
	// RemoteStatusTTLSeconds overrides remotestatus.Cache's default
	// 60-second TTL.
	RemoteStatusTTLSeconds int
	// PRProbeEnabled toggles the gh-backed pull-request probe.
	PRProbeEnabled bool
	// LogFile routes logs through a rotating file sink when set
	// (GITCUTTLE_LOG_FILE).
	LogFile string
}

const envPrefix = "GITCUTTLE"

// Load resolves configuration for a command run from repoRoot (empty
// if not yet known — e.g. before the orchestrator's preflight check
// resolves one). It loads .env from the current directory first
// (SPEC_FULL.md §2.3: ".env files ... loaded before argument
// parsing"), then layers viper's flags > env > repo-local TOML >
// defaults.
func Load(repoRoot string, verboseFlag bool) (Config, error) {
	_ = godotenv.Load() // missing .env is not an error

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault("verbose", false)
	v.SetDefault("default_base_ref", "")
	v.SetDefault("remote_status_ttl_seconds", 60)
	v.SetDefault("pr_probe_enabled", true)
	v.SetDefault("log_file", "")

	if repoRoot != "" {
		v.SetConfigName(".gitcuttle")
		v.SetConfigType("toml")
		v.AddConfigPath(repoRoot)
		// A missing repo-local config file is expected in most repos;
		// any other read error (malformed TOML) is surfaced.
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return Config{}, err
			}
		}
	}

	verbose := v.GetBool("verbose") || verboseFlag || envFlagSet("VERBOSE")

	metadataPath := v.GetString("metadata_path")
	if metadataPath == "" {
		metadataPath = filepath.Join(xdg.DataHome, "gitcuttle", "workspaces.json")
	}

	return Config{
		Verbose:                verbose,
		MetadataPath:           metadataPath,
		DefaultBaseRef:         v.GetString("default_base_ref"),
		RemoteStatusTTLSeconds: v.GetInt("remote_status_ttl_seconds"),
		PRProbeEnabled:         v.GetBool("pr_probe_enabled"),
		LogFile:                v.GetString("log_file"),
	}, nil
}

// envFlagSet reports whether GITCUTTLE_<name> is set to any non-empty
// value, independent of viper's own binding — used for the verbose
// flag, which spec §6 phrases as "mirrors -v when set non-empty"
// rather than a boolean parse.
func envFlagSet(name string) bool {
	return strings.TrimSpace(os.Getenv(envPrefix+"_"+name)) != ""
}
