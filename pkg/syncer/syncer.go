// Package syncer synchronizes a header's version macros with the latest tag.
package syncer

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/abdul-hamid-achik/tagsync/pkg/config"
	"github.com/abdul-hamid-achik/tagsync/pkg/header"
	"github.com/abdul-hamid-achik/tagsync/pkg/tag"
	"github.com/abdul-hamid-achik/tagsync/pkg/vcs"
)

// StatusMessage is printed before the header is updated.
const StatusMessage = "Updating version"

// Direction describes how the header version moves relative to the tag.
type Direction string

const (
	DirectionUpgrade   Direction = "upgrade"
	DirectionDowngrade Direction = "downgrade"
	DirectionSame      Direction = "same"
	DirectionUnknown   Direction = "unknown"
)

// Report describes the outcome of a synchronization.
type Report struct {
	Tag       string          `json:"tag" yaml:"tag"`
	Version   tag.Triple      `json:"version" yaml:"version"`
	Extra     []string        `json:"extra,omitempty" yaml:"extra,omitempty"`
	Header    string          `json:"header" yaml:"header"`
	Previous  *tag.Triple     `json:"previous,omitempty" yaml:"previous,omitempty"`
	Direction Direction       `json:"direction" yaml:"direction"`
	Changed   bool            `json:"changed" yaml:"changed"`
	DryRun    bool            `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Changes   []header.Change `json:"changes" yaml:"changes"`
	Missing   []string        `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// InSync reports whether the header already matches the tag.
func (r *Report) InSync() bool {
	return !r.Changed && len(r.Missing) == 0
}

// Synchronizer updates a header from a tag source.
type Synchronizer struct {
	Config    *config.Config
	Describer vcs.Describer
	Fs        afero.Fs
	Out       io.Writer // receives the status line; nil discards it
	Logger    *log.Logger
}

// New creates a Synchronizer for cfg using the OS filesystem.
func New(cfg *config.Config, d vcs.Describer) *Synchronizer {
	return &Synchronizer{
		Config:    cfg,
		Describer: d,
		Fs:        afero.NewOsFs(),
		Logger:    log.Default(),
	}
}

// Synchronize looks up the latest tag and rewrites the header's version
// macros. Any failure leaves the header untouched.
func (s *Synchronizer) Synchronize(ctx context.Context) (*Report, error) {
	if s.Out != nil {
		fmt.Fprintln(s.Out, StatusMessage)
	}

	parsed, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}

	f := s.file()
	res, err := f.Update(parsed.Triple)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", s.Config.Header, err)
	}

	report := s.report(parsed, res)
	s.logger().Info("header synchronized",
		"header", s.Config.Header,
		"version", parsed.Triple.String(),
		"changed", report.Changed)
	return report, nil
}

// Check computes what Synchronize would do without writing anything.
func (s *Synchronizer) Check(ctx context.Context) (*Report, error) {
	parsed, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}

	res, _, err := s.file().Preview(parsed.Triple)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", s.Config.Header, err)
	}

	report := s.report(parsed, res)
	report.DryRun = true
	return report, nil
}

// Inspect returns the current macro values of the header.
func (s *Synchronizer) Inspect() ([]header.Value, error) {
	return s.file().Inspect()
}

func (s *Synchronizer) latest(ctx context.Context) (*tag.Parsed, error) {
	raw, err := s.Describer.LatestTag(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}

	parsed, err := tag.Parse(raw, s.Config.Tag.TrimPrefix)
	if err != nil {
		return nil, err
	}
	if len(parsed.Extra) > 0 {
		s.logger().Debug("ignoring extra tag components", "tag", parsed.Raw, "extra", parsed.Extra)
	}
	s.logger().Debug("resolved tag", "tag", parsed.Raw, "version", parsed.Triple.String())
	return parsed, nil
}

func (s *Synchronizer) file() *header.File {
	fs := s.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	f := header.NewFile(fs, s.Config.Header, s.Config.Macros, s.Config.MatchMode())
	f.Strict = s.Config.Strict
	return f
}

func (s *Synchronizer) report(parsed *tag.Parsed, res *header.Result) *Report {
	r := &Report{
		Tag:     parsed.Raw,
		Version: parsed.Triple,
		Extra:   parsed.Extra,
		Header:  s.Config.Header,
		Changed: res.Modified,
		Changes: res.Changes,
		Missing: res.Missing,
	}
	for _, name := range res.Missing {
		s.logger().Warn("macro not found in header", "macro", name, "header", s.Config.Header)
	}

	r.Previous = previousVersion(s.Config.Macros, res.Changes)
	r.Direction = DirectionUnknown
	if r.Previous != nil {
		if cmp, ok := tag.Compare(*r.Previous, parsed.Triple); ok {
			switch cmp {
			case -1:
				r.Direction = DirectionUpgrade
			case 1:
				r.Direction = DirectionDowngrade
			default:
				r.Direction = DirectionSame
			}
		}
	}
	return r
}

// previousVersion rebuilds the header's version from the first definition of
// each macro; nil when any of them is missing.
func previousVersion(m header.Macros, changes []header.Change) *tag.Triple {
	values := make(map[string]string, 3)
	for _, c := range changes {
		if _, seen := values[c.Macro]; !seen {
			values[c.Macro] = c.OldValue
		}
	}

	major, ok1 := values[m.Major]
	minor, ok2 := values[m.Minor]
	patch, ok3 := values[m.Patch]
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return &tag.Triple{Major: major, Minor: minor, Patch: patch}
}

func (s *Synchronizer) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}
