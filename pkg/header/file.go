package header

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/abdul-hamid-achik/tagsync/pkg/tag"
)

// File is a header on a filesystem.
type File struct {
	Fs     afero.Fs
	Path   string
	Strict bool // fail when a macro is missing instead of reporting it
	rw     *Rewriter
}

// NewFile creates a File for path on fs. A nil fs means the OS filesystem.
func NewFile(fs afero.Fs, path string, macros Macros, mode MatchMode) *File {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &File{
		Fs:   fs,
		Path: path,
		rw:   NewRewriter(macros, mode),
	}
}

// Update rewrites the header in place with the given version. The new content
// is staged in a temporary file next to the header and renamed over it, so
// any failure leaves the original untouched. When nothing would change the
// header is not rewritten.
func (f *File) Update(v tag.Triple) (*Result, error) {
	var res *Result
	_, err := Replace(f.Fs, f.Path, func(r io.Reader, w io.Writer) (bool, error) {
		var err error
		res, err = f.rw.Rewrite(r, w, v)
		if err != nil {
			return false, err
		}
		if err := f.checkMissing(res); err != nil {
			return false, err
		}
		return res.Modified, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Preview returns what Update would produce without touching the filesystem.
func (f *File) Preview(v tag.Triple) (*Result, []byte, error) {
	in, err := f.Fs.Open(f.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open header: %w", err)
	}
	defer func() { _ = in.Close() }()

	var buf bytes.Buffer
	res, err := f.rw.Rewrite(in, &buf, v)
	if err != nil {
		return nil, nil, err
	}
	if err := f.checkMissing(res); err != nil {
		return res, nil, err
	}
	return res, buf.Bytes(), nil
}

// Inspect returns the current macro definitions of the header.
func (f *File) Inspect() ([]Value, error) {
	in, err := f.Fs.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open header: %w", err)
	}
	defer func() { _ = in.Close() }()

	return f.rw.Inspect(in)
}

func (f *File) checkMissing(res *Result) error {
	if !f.Strict || len(res.Missing) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, name := range res.Missing {
		merr = multierror.Append(merr, fmt.Errorf("%w: %s in %s", ErrMacroNotFound, name, f.Path))
	}
	return merr.ErrorOrNil()
}

// Replace streams path through fn into a temporary file in the same
// directory and renames it over path when fn reports a change. The temporary
// file is removed on every path that does not end in a successful rename.
// A symlinked path is resolved first so the link is kept and its target updated.
func Replace(fs afero.Fs, path string, fn func(r io.Reader, w io.Writer) (bool, error)) (changed bool, err error) {
	path, err = resolveLinks(fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to open header: %w", err)
	}

	in, err := fs.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open header: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat header: %w", err)
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := afero.TempFile(fs, dir, "."+base+".tagsync-*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	renamed := false
	defer func() {
		if !renamed {
			_ = fs.Remove(tmpPath)
		}
	}()

	changed, err = fn(in, tmp)
	if err != nil {
		_ = tmp.Close()
		return false, err
	}
	if !changed {
		_ = tmp.Close()
		return false, nil
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := fs.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	// Release the source handle before replacing it (required on Windows)
	_ = in.Close()

	if err := fs.Rename(tmpPath, path); err != nil {
		return false, fmt.Errorf("failed to replace header: %w", err)
	}
	renamed = true
	return true, nil
}

// resolveLinks follows symlinks at path. Filesystems without symlink support
// return path unchanged.
func resolveLinks(fs afero.Fs, path string) (string, error) {
	lst, ok := fs.(afero.Lstater)
	if !ok {
		return path, nil
	}
	rl, ok := fs.(afero.LinkReader)
	if !ok {
		return path, nil
	}

	for range maxLinks {
		info, lstatCalled, err := lst.LstatIfPossible(path)
		if err != nil {
			return "", err
		}
		if !lstatCalled || info.Mode()&os.ModeSymlink == 0 {
			return path, nil
		}

		target, err := rl.ReadlinkIfPossible(path)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		path = target
	}
	return "", fmt.Errorf("too many levels of symbolic links: %s", path)
}

const maxLinks = 40

// Exists reports whether the header file exists.
func (f *File) Exists() bool {
	ok, _ := afero.Exists(f.Fs, f.Path)
	return ok
}
