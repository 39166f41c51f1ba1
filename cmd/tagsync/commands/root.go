// Package commands provides the CLI commands for tagsync.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tagsync/internal/version"
	"github.com/abdul-hamid-achik/tagsync/pkg/config"
	"github.com/abdul-hamid-achik/tagsync/pkg/syncer"
	"github.com/abdul-hamid-achik/tagsync/pkg/vcs"
)

var (
	verbose     bool
	configFile  string
	tagOverride string

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "tagsync",
		Level:  log.WarnLevel,
	})
)

var rootCmd = &cobra.Command{
	Use:   "tagsync",
	Short: "tagsync - Sync C/C++ header version macros with the latest git tag",
	Long: `tagsync rewrites the VER_MAJOR, VER_MINOR and VER_PATCH macros of a
C/C++ header from the most recent git tag, leaving every other line untouched.
The header is replaced atomically: a failure at any step leaves it as it was.

Quick Start:
  tagsync              Update version.h from the latest tag
  tagsync check        Report whether the header matches the tag
  tagsync watch        Re-sync whenever a tag is created
  tagsync init         Write tagsync.yaml (and a header if missing)
  tagsync mcp          Serve tagsync tools over MCP (stdio)

Configuration is read from tagsync.yaml, TAGSYNC_* environment variables and
flags, in increasing order of precedence.`,
	Version: version.String(),
	Args:    cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		log.SetDefault(logger)
	},
	Run: runSync,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for automation and LLM agents)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug information to stderr")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./tagsync.yaml)")

	// Config overrides, bound to tagsync.yaml keys
	rootCmd.PersistentFlags().String("header", "version.h", "Header file to update")
	rootCmd.PersistentFlags().String("repo", ".", "Repository directory used for the tag lookup")
	rootCmd.PersistentFlags().String("project", "", "Project name used for the include guard of new headers")
	rootCmd.PersistentFlags().String("match", "token", "Macro line matching: token (exact name) or prefix (legacy)")
	rootCmd.PersistentFlags().Bool("strict", false, "Fail when a version macro is missing from the header")
	rootCmd.PersistentFlags().String("tag-match", "", "Only consider tags matching this glob (git describe --match)")
	rootCmd.PersistentFlags().String("trim-prefix", "", "Strip this prefix from the tag before splitting (e.g. v)")
	rootCmd.PersistentFlags().StringVar(&tagOverride, "tag", "", "Use this tag instead of asking git")

	_ = rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	_ = rootCmd.MarkPersistentFlagFilename("header", "h", "hpp", "hh")
	_ = rootCmd.MarkPersistentFlagDirname("repo")
}

// loadConfig reads the effective configuration for cmd. Relative paths are
// resolved against the directory of the config file, or the working
// directory when no file is used.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, used, err := config.Load(config.LoadOptions{
		Dir:   wd,
		File:  configFile,
		Flags: cmd.Flags(),
	})
	if err != nil {
		return nil, "", err
	}

	base := wd
	if used != "" {
		base = filepath.Dir(used)
	}
	if err := cfg.Resolve(base); err != nil {
		return nil, "", err
	}

	logger.Debug("config loaded", "file", used, "header", cfg.Header, "repo", cfg.Repo, "match", cfg.Match)
	return cfg, used, nil
}

// newSynchronizer builds a Synchronizer for cmd's configuration.
func newSynchronizer(cmd *cobra.Command) (*syncer.Synchronizer, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := syncer.New(cfg, newDescriber(cfg))
	s.Logger = logger
	return s, nil
}

func newDescriber(cfg *config.Config) vcs.Describer {
	if tagOverride != "" {
		return vcs.Static(tagOverride)
	}
	g := vcs.NewGit(cfg.Repo)
	g.Match = cfg.Tag.Match
	g.Logger = logger
	return g
}
