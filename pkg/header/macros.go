// Package header rewrites the version macros of a C/C++ header file.
package header

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMacroNotFound is returned in strict mode for each macro missing from the header.
var ErrMacroNotFound = errors.New("macro not found")

// MatchMode selects how a header line is recognized as a macro definition.
type MatchMode string

const (
	// MatchToken compares whitespace-separated tokens: "#define" then the exact macro name.
	MatchToken MatchMode = "token"
	// MatchPrefix compares the raw line prefix "#define NAME", so "#define NAME_EXTRA" matches too.
	MatchPrefix MatchMode = "prefix"
)

// MatchModes returns the list of supported match modes.
func MatchModes() []string {
	return []string{string(MatchToken), string(MatchPrefix)}
}

// IsValidMatchMode returns true if the mode is supported.
func IsValidMatchMode(mode string) bool {
	for _, m := range MatchModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// Macros names the three version macros of a header.
type Macros struct {
	Major string `mapstructure:"major" yaml:"major" json:"major"`
	Minor string `mapstructure:"minor" yaml:"minor" json:"minor"`
	Patch string `mapstructure:"patch" yaml:"patch" json:"patch"`
}

// DefaultMacros returns the conventional macro names.
func DefaultMacros() Macros {
	return Macros{
		Major: "VER_MAJOR",
		Minor: "VER_MINOR",
		Patch: "VER_PATCH",
	}
}

// Names returns the macro names in major, minor, patch order.
func (m Macros) Names() []string {
	return []string{m.Major, m.Minor, m.Patch}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that every name is a distinct C identifier.
func (m Macros) Validate() error {
	seen := make(map[string]bool, 3)
	for _, name := range m.Names() {
		if !identRe.MatchString(name) {
			return fmt.Errorf("invalid macro name %q", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate macro name %q", name)
		}
		seen[name] = true
	}
	return nil
}
