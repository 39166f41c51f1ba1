package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tagsync/pkg/syncer"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Update the header's version macros from the latest tag",
	Long: `Update the header's version macros from the latest tag.

This command will:
1. Run git describe --tags --abbrev=0 in the repository
2. Split the tag on '.' into major, minor and patch
3. Rewrite the three #define lines in a temporary file
4. Rename the temporary file over the header

This is also what running tagsync without a command does.

Examples:
  tagsync sync                          # Update ./version.h
  tagsync sync --header include/ver.h   # Update another header
  tagsync sync --trim-prefix v          # Tag v1.2.3 -> 1, 2, 3
  tagsync sync --tag 2.0.0              # Skip git, use this tag
  tagsync sync --dry-run                # Show what would change`,
	Args: cobra.NoArgs,
	Run:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show what would change without writing the header")
	rootCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show what would change without writing the header")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) {
	cyan := color.New(color.FgCyan).SprintFunc()

	s, err := newSynchronizer(cmd)
	if err != nil {
		exitWithError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !jsonOutput {
		fmt.Printf("\n  %s ", cyan("tagsync"))
		s.Out = os.Stdout
	}

	var report *syncer.Report
	if syncDryRun {
		if !jsonOutput {
			fmt.Println(syncer.StatusMessage + " (dry run)")
		}
		report, err = s.Check(ctx)
	} else {
		report, err = s.Synchronize(ctx)
	}
	if err != nil {
		exitWithError(err)
	}

	if jsonOutput {
		printSuccess(report)
		return
	}

	fmt.Println()
	printReport(os.Stdout, report)
	fmt.Println()
}
