package mcp

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/abdul-hamid-achik/tagsync/pkg/config"
	"github.com/abdul-hamid-achik/tagsync/pkg/syncer"
	"github.com/abdul-hamid-achik/tagsync/pkg/vcs"
)

const headerPath = "/repo/version.h"

const testHeader = `#define VER_MAJOR 0
#define VER_MINOR 1
#define VER_PATCH 0
`

// newTestServer builds a Server over an in-memory header and a fixed tag.
func newTestServer(t *testing.T, tag string) (*Server, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, headerPath, []byte(testHeader), 0o644); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}

	cfg := config.Default()
	cfg.Header = headerPath
	cfg.Repo = "/repo"

	s := syncer.New(cfg, vcs.Static(tag))
	s.Fs = fs
	s.Logger = log.New(io.Discard)

	return NewServer(s), fs
}

func TestNewServer(t *testing.T) {
	server, _ := newTestServer(t, "1.0.0")

	if server == nil {
		t.Fatal("NewServer returned nil")
	}

	if server.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}

	if server.syncer == nil {
		t.Error("syncer should not be nil")
	}
}
