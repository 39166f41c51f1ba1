package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/tagsync/pkg/syncer"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the header matches the latest tag",
	Long: `Compare the header's version macros with the latest tag without writing
anything. Exits with status 1 when the header is out of date or a macro is
missing, which makes it suitable for CI.

Examples:
  tagsync check
  tagsync check --json
  tagsync check --output yaml`,
	Args: cobra.NoArgs,
	Run:  runCheck,
}

var checkOutputFormat string

func init() {
	checkCmd.Flags().StringVarP(&checkOutputFormat, "output", "o", "table", "Output format: table or yaml")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if checkOutputFormat != "table" && checkOutputFormat != "yaml" {
		exitWithError(fmt.Errorf("unknown output format %q (use table or yaml)", checkOutputFormat))
	}

	s, err := newSynchronizer(cmd)
	if err != nil {
		exitWithError(err)
	}

	report, err := s.Check(context.Background())
	if err != nil {
		exitWithError(err)
	}

	switch {
	case jsonOutput:
		printSuccess(CheckOutput{InSync: report.InSync(), Report: report})
	case checkOutputFormat == "yaml":
		if err := writeCheckYAML(os.Stdout, report); err != nil {
			exitWithError(err)
		}
	default:
		fmt.Printf("\n  %s Check\n\n", cyan("tagsync"))
		fmt.Printf("  Header: %s\n  Tag:    %s\n\n", report.Header, cyan(report.Tag))
		renderCheckTable(os.Stdout, report)
		fmt.Println()

		switch {
		case report.InSync():
			fmt.Printf("  %s Header is in sync with %s\n\n", green("✓"), report.Tag)
		case len(report.Missing) > 0:
			fmt.Printf("  %s %d macro(s) missing from the header\n\n", red("✗"), len(report.Missing))
		default:
			fmt.Printf("  %s Header is out of date (%s); run %s\n\n", yellow("!"), report.Direction, cyan("tagsync sync"))
		}
	}

	if !report.InSync() {
		os.Exit(1)
	}
}

// writeCheckYAML writes the check result as a YAML document.
func writeCheckYAML(w io.Writer, r *syncer.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(CheckOutput{InSync: r.InSync(), Report: r}); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
