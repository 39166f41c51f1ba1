package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tagsync/pkg/config"
	"github.com/abdul-hamid-achik/tagsync/pkg/header"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create tagsync.yaml and a version header",
	Long: `Write tagsync.yaml in the current directory.

When the configured header does not exist yet, a header with an include guard
and the three version macros set to 0 is created as well. On a terminal the
settings are asked for interactively unless --yes is given.

Examples:
  tagsync init
  tagsync init --yes --header include/pwm_version.h --project pwm`,
	Args: cobra.NoArgs,
	Run:  runInit,
}

var (
	initYes   bool
	initForce bool
)

func init() {
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept the defaults and flags without prompting")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing tagsync.yaml")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	wd, err := os.Getwd()
	if err != nil {
		exitWithError(fmt.Errorf("failed to get working directory: %w", err))
	}

	configPath := configFile
	if configPath == "" {
		configPath = filepath.Join(wd, config.FileName+".yaml")
	}
	if _, err := os.Stat(configPath); err == nil && !initForce {
		exitWithError(fmt.Errorf("%s already exists (use --force to overwrite)", filepath.Base(configPath)))
	}

	// Flags and TAGSYNC_* values seed the settings; the file is not read
	cfg, _, err := config.Load(config.LoadOptions{NoFile: true, Flags: cmd.Flags()})
	if err != nil {
		exitWithError(err)
	}

	if !initYes && !jsonOutput && isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Printf("\n  %s Init\n\n", cyan("tagsync"))
		if err := promptConfig(cfg); err != nil {
			fmt.Printf("  %s Cancelled\n", yellow("!"))
			return
		}
		if err := cfg.Validate(); err != nil {
			exitWithError(err)
		}
	}

	if err := config.Write(configPath, cfg); err != nil {
		exitWithError(fmt.Errorf("failed to write %s: %w", configPath, err))
	}

	headerPath := cfg.Header
	if !filepath.IsAbs(headerPath) {
		headerPath = filepath.Join(filepath.Dir(configPath), headerPath)
	}
	created, err := createHeader(headerPath, cfg)
	if err != nil {
		exitWithError(err)
	}

	if jsonOutput {
		printSuccess(InitOutput{
			Config:        configPath,
			Header:        headerPath,
			CreatedHeader: created,
			Settings:      cfg,
		})
		return
	}

	fmt.Printf("\n  %s Created %s\n", green("✓"), configPath)
	if created {
		fmt.Printf("  %s Created %s\n", green("✓"), headerPath)
	} else {
		fmt.Printf("  %s Using existing %s\n", green("✓"), headerPath)
	}
	fmt.Printf("\n  Next: run %s to write the latest tag into the header\n\n", cyan("tagsync"))
}

// promptConfig asks for the settings that differ between projects.
func promptConfig(cfg *config.Config) error {
	match := cfg.Match
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Header").
				Description("Path of the header holding the version macros").
				Value(&cfg.Header).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("header path is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Project").
				Description("Used for the include guard of a new header (optional)").
				Value(&cfg.Project),
			huh.NewSelect[string]().
				Title("Macro matching").
				Options(
					huh.NewOption("token - exact macro name", string(header.MatchToken)),
					huh.NewOption("prefix - any #define starting with the name", string(header.MatchPrefix)),
				).
				Value(&match),
			huh.NewInput().
				Title("Tag prefix").
				Description("Stripped from the tag before splitting, e.g. v").
				Value(&cfg.Tag.TrimPrefix),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Match = match
	return nil
}

// createHeader writes a header skeleton at path unless a file already exists.
func createHeader(path string, cfg *config.Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	data, err := header.Skeleton(cfg.Project, cfg.Macros)
	if err != nil {
		return false, fmt.Errorf("failed to render header: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
