package header

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/abdul-hamid-achik/tagsync/pkg/tag"
)

var errDiskFull = errors.New("no space left on device")

// faultyFs wraps an afero.Fs and injects failures into created files and renames.
type faultyFs struct {
	afero.Fs
	writeLimit int // bytes accepted by a created file before writes fail; -1 disables
	renameErr  error
}

func (f *faultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	file, err := f.Fs.OpenFile(name, flag, perm)
	if err != nil || flag&os.O_CREATE == 0 || f.writeLimit < 0 {
		return file, err
	}
	return &faultyFile{File: file, remaining: f.writeLimit}, nil
}

func (f *faultyFs) Rename(oldname, newname string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	return f.Fs.Rename(oldname, newname)
}

type faultyFile struct {
	afero.File
	remaining int
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if len(p) > f.remaining {
		n, _ := f.File.Write(p[:f.remaining])
		f.remaining = 0
		return n, errDiskFull
	}
	f.remaining -= len(p)
	return f.File.Write(p)
}

func (f *faultyFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

const headerPath = "/project/include/version.h"

func newMemHeader(t *testing.T, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, headerPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	return fs
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// assertNoTempFiles fails if anything other than the header is left in its directory.
func assertNoTempFiles(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	entries, err := afero.ReadDir(fs, filepath.Dir(path))
	if err != nil {
		t.Fatalf("failed to list directory: %v", err)
	}
	for _, e := range entries {
		if e.Name() != filepath.Base(path) {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestFileUpdate(t *testing.T) {
	fs := newMemHeader(t, sampleHeader)
	f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)

	res, err := f.Update(tag.Triple{Major: "2", Minor: "5", Patch: "9"})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if !res.Modified {
		t.Error("Result.Modified = false, want true")
	}

	got := readFile(t, fs, headerPath)
	for _, line := range []string{"#define VER_MAJOR 2\n", "#define VER_MINOR 5\n", "#define VER_PATCH 9\n"} {
		if !strings.Contains(got, line) {
			t.Errorf("header missing %q:\n%s", line, got)
		}
	}
	if strings.Contains(got, "// old") {
		t.Error("trailing comment on a replaced line should be dropped")
	}
	assertNoTempFiles(t, fs, headerPath)
}

func TestFileUpdate_Idempotent(t *testing.T) {
	fs := newMemHeader(t, sampleHeader)
	f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)
	v := tag.Triple{Major: "1", Minor: "0", Patch: "3"}

	if _, err := f.Update(v); err != nil {
		t.Fatalf("first Update() error: %v", err)
	}
	first := readFile(t, fs, headerPath)

	res, err := f.Update(v)
	if err != nil {
		t.Fatalf("second Update() error: %v", err)
	}
	if res.Modified {
		t.Error("second Update() reported a modification")
	}
	if second := readFile(t, fs, headerPath); second != first {
		t.Errorf("header changed on second run:\n%s\nwant:\n%s", second, first)
	}
	assertNoTempFiles(t, fs, headerPath)
}

func TestFileUpdate_WriteFailureLeavesOriginal(t *testing.T) {
	for _, limit := range []int{0, 1, 10, 100} {
		base := newMemHeader(t, sampleHeader)
		fs := &faultyFs{Fs: base, writeLimit: limit}
		f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)

		_, err := f.Update(tag.Triple{Major: "2", Minor: "5", Patch: "9"})
		if !errors.Is(err, errDiskFull) {
			t.Fatalf("limit %d: Update() error = %v, want errDiskFull", limit, err)
		}
		if got := readFile(t, base, headerPath); got != sampleHeader {
			t.Errorf("limit %d: original header modified:\n%s", limit, got)
		}
		assertNoTempFiles(t, base, headerPath)
	}
}

func TestFileUpdate_RenameFailureLeavesOriginal(t *testing.T) {
	base := newMemHeader(t, sampleHeader)
	renameErr := errors.New("invalid cross-device link")
	fs := &faultyFs{Fs: base, writeLimit: -1, renameErr: renameErr}
	f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)

	_, err := f.Update(tag.Triple{Major: "2", Minor: "5", Patch: "9"})
	if !errors.Is(err, renameErr) {
		t.Fatalf("Update() error = %v, want rename error", err)
	}
	if got := readFile(t, base, headerPath); got != sampleHeader {
		t.Errorf("original header modified:\n%s", got)
	}
	assertNoTempFiles(t, base, headerPath)
}

func TestFileUpdate_MissingHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)

	if _, err := f.Update(tag.Triple{Major: "1", Minor: "2", Patch: "3"}); err == nil {
		t.Fatal("Update() on a missing header should fail")
	}
	if f.Exists() {
		t.Error("Exists() = true for a missing header")
	}
}

func TestFileUpdate_Strict(t *testing.T) {
	content := "#define VER_MAJOR 0\n"
	fs := newMemHeader(t, content)
	f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)
	f.Strict = true

	_, err := f.Update(tag.Triple{Major: "1", Minor: "2", Patch: "3"})
	if !errors.Is(err, ErrMacroNotFound) {
		t.Fatalf("Update() error = %v, want ErrMacroNotFound", err)
	}
	if !strings.Contains(err.Error(), "VER_MINOR") || !strings.Contains(err.Error(), "VER_PATCH") {
		t.Errorf("error should name both missing macros: %v", err)
	}
	if got := readFile(t, fs, headerPath); got != content {
		t.Errorf("strict failure modified header: %q", got)
	}
	assertNoTempFiles(t, fs, headerPath)
}

func TestFileUpdate_NotStrictReportsMissing(t *testing.T) {
	fs := newMemHeader(t, "#define VER_MAJOR 0\n")
	f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)

	res, err := f.Update(tag.Triple{Major: "1", Minor: "2", Patch: "3"})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if len(res.Missing) != 2 {
		t.Errorf("Result.Missing = %v, want 2 entries", res.Missing)
	}
	if got := readFile(t, fs, headerPath); got != "#define VER_MAJOR 1\n" {
		t.Errorf("header = %q", got)
	}
}

func TestFileUpdate_OsFsPreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not preserved on windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "version.h")
	if err := os.WriteFile(path, []byte(sampleHeader), 0o640); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}

	f := NewFile(nil, path, DefaultMacros(), MatchToken)
	if _, err := f.Update(tag.Triple{Major: "4", Minor: "0", Patch: "1"}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "#define VER_MAJOR 4\n") {
		t.Errorf("header not updated:\n%s", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the header in %s, found %d entries", dir, len(entries))
	}
}

func TestFileUpdate_OsFsFollowsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.h")
	link := filepath.Join(dir, "version.h")
	if err := os.WriteFile(target, []byte(sampleHeader), 0o644); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	if err := os.Symlink("real.h", link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	f := NewFile(nil, link, DefaultMacros(), MatchToken)
	if _, err := f.Update(tag.Triple{Major: "5", Minor: "6", Patch: "7"}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	info, err := os.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat() error: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Errorf("%s is no longer a symlink", link)
	}

	data, _ := os.ReadFile(target)
	if !strings.Contains(string(data), "#define VER_MAJOR 5\n") {
		t.Errorf("link target not updated:\n%s", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected only the header and its link in %s, found %d entries", dir, len(entries))
	}
}

func TestFilePreview(t *testing.T) {
	fs := newMemHeader(t, sampleHeader)
	f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)

	res, out, err := f.Preview(tag.Triple{Major: "7", Minor: "8", Patch: "9"})
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if !res.Modified {
		t.Error("Preview() Modified = false, want true")
	}
	if !strings.Contains(string(out), "#define VER_PATCH 9\n") {
		t.Errorf("Preview() output missing new patch:\n%s", out)
	}
	if got := readFile(t, fs, headerPath); got != sampleHeader {
		t.Error("Preview() must not modify the header")
	}
}

func TestFileInspect(t *testing.T) {
	fs := newMemHeader(t, sampleHeader)
	f := NewFile(fs, headerPath, DefaultMacros(), MatchToken)

	values, err := f.Inspect()
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}
	if len(values) != 3 {
		t.Errorf("Inspect() returned %d values, want 3", len(values))
	}
}

func TestSkeleton(t *testing.T) {
	data, err := Skeleton("pwm", DefaultMacros())
	if err != nil {
		t.Fatalf("Skeleton() error: %v", err)
	}

	content := string(data)
	for _, want := range []string{
		"#ifndef PWM_VERSION_INCLUDE_GUARD\n",
		"#define VER_MAJOR 0\n",
		"#define VER_MINOR 0\n",
		"#define VER_PATCH 0\n",
		"#endif // PWM_VERSION_INCLUDE_GUARD\n",
		"Patch number is updated when",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Skeleton() missing %q", want)
		}
	}

	// A skeleton must be recognized by the rewriter
	values, err := NewRewriter(DefaultMacros(), MatchToken).Inspect(strings.NewReader(content))
	if err != nil || len(values) != 3 {
		t.Errorf("Inspect(skeleton) = %v, %v", values, err)
	}
}

func TestIncludeGuard(t *testing.T) {
	tests := []struct {
		project  string
		expected string
	}{
		{"pwm", "PWM_VERSION_INCLUDE_GUARD"},
		{"my-project", "MY_PROJECT_VERSION_INCLUDE_GUARD"},
		{"", "VERSION_INCLUDE_GUARD"},
	}

	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			if got := IncludeGuard(tt.project); got != tt.expected {
				t.Errorf("IncludeGuard(%q) = %q, want %q", tt.project, got, tt.expected)
			}
		})
	}
}
