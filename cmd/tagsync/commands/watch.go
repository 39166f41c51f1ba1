package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tagsync/pkg/syncer"
	"github.com/abdul-hamid-achik/tagsync/pkg/vcs"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-sync the header whenever a tag is created or removed",
	Long: `Watch the repository's tag refs and re-run the sync after every change.

The header is synced once at startup. Tag events are debounced so that a
burst of ref updates (git fetch --tags, git pack-refs) triggers a single sync.

Example:
  tagsync watch
  tagsync watch --debounce 1s`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Delay before syncing after a tag change")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if tagOverride != "" {
		exitWithError(fmt.Errorf("--tag cannot be used with watch"))
	}

	s, err := newSynchronizer(cmd)
	if err != nil {
		exitWithError(err)
	}

	git := vcs.NewGit(s.Config.Repo)
	git.Logger = logger
	// Tags live in the common dir, which differs from the git dir in a linked worktree
	gitDir, err := git.GitCommonDir(context.Background())
	if err != nil {
		exitWithError(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		exitWithError(fmt.Errorf("failed to create file watcher: %w", err))
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range watchTargets(gitDir) {
		if err := watcher.Add(dir); err != nil {
			logger.Debug("not watching", "dir", dir, "err", err)
			continue
		}
		logger.Debug("watching", "dir", dir)
	}

	if !jsonOutput {
		fmt.Printf("\n  %s Watch\n\n", cyan("tagsync"))
		fmt.Printf("  Header: %s\n  Repo:   %s\n\n", s.Config.Header, s.Config.Repo)
	}

	var mu sync.Mutex
	runOnce := func(event string) {
		mu.Lock()
		defer mu.Unlock()

		timestamp := time.Now().Format("15:04:05")
		report, err := s.Synchronize(context.Background())

		if jsonOutput {
			out := WatchOutput{Event: event, Time: time.Now().Format(time.RFC3339), Report: report}
			if err != nil {
				out.Error = err.Error()
			}
			printWatchLine(out)
			return
		}

		if err != nil {
			fmt.Printf("  [%s] %s %v\n", timestamp, red("✗"), err)
			return
		}
		fmt.Printf("  [%s] %s %s\n", timestamp, green("✓"), watchSummary(report))
	}

	runOnce("start")

	if !jsonOutput {
		fmt.Printf("  %s Watching for tag changes...\n\n", green("✓"))
	}

	var debounceTimer *time.Timer

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// New directories under refs/tags hold hierarchical tags (release/1.2.3)
			if event.Op&fsnotify.Create != 0 && isUnder(filepath.Join(gitDir, "refs", "tags"), event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isTagEvent(gitDir, event.Name) {
				continue
			}

			logger.Debug("tag event", "op", event.Op.String(), "name", event.Name)

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				runOnce(filepath.Base(name))
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if !jsonOutput {
				fmt.Printf("  %s Watcher error: %v\n", yellow("Warning:"), err)
			}
			logger.Warn("watcher error", "err", err)

		case <-signals:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			if !jsonOutput {
				fmt.Println("\n  Shutting down...")
			}
			// Wait for an in-flight sync so the rename is not interrupted
			mu.Lock()
			_ = watcher.Close()
			os.Exit(0)
		}
	}
}

// watchTargets lists the directories whose events can signal a tag change:
// the git dir itself (packed-refs) and every directory under refs/tags.
func watchTargets(gitDir string) []string {
	targets := []string{gitDir}

	tagsDir := filepath.Join(gitDir, "refs", "tags")
	_ = filepath.WalkDir(tagsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			targets = append(targets, path)
		}
		return nil
	})
	return targets
}

// isTagEvent reports whether name is packed-refs or a loose tag ref.
func isTagEvent(gitDir, name string) bool {
	if filepath.Clean(name) == filepath.Join(gitDir, "packed-refs") {
		return true
	}
	if strings.HasSuffix(name, ".lock") {
		return false
	}
	tagsDir := filepath.Join(gitDir, "refs", "tags")
	return isUnder(tagsDir, name) && filepath.Clean(name) != tagsDir
}

func isUnder(dir, name string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(name))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func watchSummary(r *syncer.Report) string {
	if r.Changed {
		return fmt.Sprintf("%s updated to %s (tag %s)", r.Header, r.Version.String(), r.Tag)
	}
	return fmt.Sprintf("%s already at %s", r.Header, r.Version.String())
}

// printWatchLine writes one compact JSON document per sync.
func printWatchLine(out WatchOutput) {
	resp := JSONResponse{Success: out.Error == "", Data: out, Error: out.Error}
	data, err := json.Marshal(resp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
