package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/abdul-hamid-achik/tagsync/pkg/config"
	"github.com/abdul-hamid-achik/tagsync/pkg/header"
	"github.com/abdul-hamid-achik/tagsync/pkg/syncer"
	"github.com/abdul-hamid-achik/tagsync/pkg/tag"
	"github.com/abdul-hamid-achik/tagsync/pkg/vcs"
)

// jsonOutput is the global flag for JSON output mode
var jsonOutput bool

// JSONResponse is the standard response wrapper for JSON output
type JSONResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// CheckOutput represents the JSON output for the check command
type CheckOutput struct {
	InSync bool           `json:"in_sync" yaml:"in_sync"`
	Report *syncer.Report `json:"report" yaml:"report"`
}

// InitOutput represents the JSON output for the init command
type InitOutput struct {
	Config        string         `json:"config"`
	Header        string         `json:"header"`
	CreatedHeader bool           `json:"created_header"`
	Settings      *config.Config `json:"settings"`
}

// WatchOutput represents one JSON line emitted by the watch command
type WatchOutput struct {
	Event  string         `json:"event"`
	Time   string         `json:"time"`
	Report *syncer.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// printJSON outputs data as formatted JSON to stdout
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}

// printSuccess outputs a successful JSON response
func printSuccess(data any) {
	printJSON(JSONResponse{Success: true, Data: data})
}

// printJSONError outputs an error as JSON
func printJSONError(err error) {
	printJSON(JSONResponse{Success: false, Error: err.Error(), Hint: errorHint(err)})
}

// exitWithError reports err in the current output mode and exits with status 1.
func exitWithError(err error) {
	if jsonOutput {
		printJSONError(err)
	} else {
		red := color.New(color.FgRed).SprintFunc()
		dim := color.New(color.Faint).SprintFunc()
		fmt.Printf("  %s %v\n", red("Error:"), err)
		if hint := errorHint(err); hint != "" {
			fmt.Printf("  %s %s\n", dim("Hint:"), hint)
		}
	}
	os.Exit(1)
}

// errorHint suggests a fix for well-known failures.
func errorHint(err error) string {
	switch {
	case errors.Is(err, vcs.ErrGitNotFound):
		return "install git or pass the version explicitly with --tag"
	case errors.Is(err, vcs.ErrNoTag):
		return "create a release tag first, e.g. git tag 0.1.0"
	case errors.Is(err, tag.ErrMalformedTag):
		return "tags must look like MAJOR.MINOR.PATCH; use --trim-prefix for a leading prefix such as v"
	case errors.Is(err, header.ErrMacroNotFound):
		return "add the missing #define lines or drop --strict"
	case errors.Is(err, config.ErrInvalidConfig):
		return "fix tagsync.yaml or the matching flag"
	case errors.Is(err, os.ErrNotExist):
		return "run tagsync init to create the header"
	}
	return ""
}

// printReport prints a human-readable summary of a sync report.
func printReport(w io.Writer, r *syncer.Report) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "  %s Tag: %s\n", dim("->"), cyan(r.Tag))
	for _, c := range r.Changes {
		if c.Modified() {
			fmt.Fprintf(w, "  %s %s %s -> %s %s\n", dim("->"), c.Macro, dim(orDash(c.OldValue)), green(c.NewValue), dim(fmt.Sprintf("(line %d)", c.Line)))
		}
	}
	for _, name := range r.Missing {
		fmt.Fprintf(w, "  %s %s not found in header\n", yellow("!"), name)
	}

	switch {
	case r.DryRun && r.Changed:
		fmt.Fprintf(w, "  %s %s would be updated to %s\n", yellow("~"), r.Header, cyan(r.Version.String()))
	case r.Changed:
		fmt.Fprintf(w, "  %s %s updated to %s\n", green("✓"), r.Header, cyan(r.Version.String()))
	default:
		fmt.Fprintf(w, "  %s %s already at %s\n", green("✓"), r.Header, cyan(r.Version.String()))
	}
	if r.Direction == syncer.DirectionDowngrade {
		fmt.Fprintf(w, "  %s tag %s is older than the header version %s\n", yellow("Warning:"), r.Tag, r.Previous.String())
	}
}

// renderCheckTable renders the per-macro comparison used by the check command.
func renderCheckTable(w io.Writer, r *syncer.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Macro", "Line", "Header", "Tag", "Status"})

	for _, c := range r.Changes {
		status := "ok"
		if c.Modified() {
			status = "out of date"
		}
		t.AppendRow(table.Row{c.Macro, c.Line, orDash(c.OldValue), c.NewValue, status})
	}
	for _, name := range r.Missing {
		t.AppendRow(table.Row{name, "-", "-", "-", "missing"})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
