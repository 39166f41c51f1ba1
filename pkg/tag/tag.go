// Package tag parses version-control tags into version components.
package tag

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedTag is returned when a tag does not split into three non-empty components.
var ErrMalformedTag = errors.New("malformed tag")

// Triple holds the major, minor and patch components of a tag.
// Components are opaque and written verbatim.
type Triple struct {
	Major string `json:"major" yaml:"major"`
	Minor string `json:"minor" yaml:"minor"`
	Patch string `json:"patch" yaml:"patch"`
}

// String returns the components joined with dots.
func (t Triple) String() string {
	return t.Major + "." + t.Minor + "." + t.Patch
}

// Parsed is the result of parsing a raw tag.
type Parsed struct {
	Raw    string   `json:"raw" yaml:"raw"`
	Triple Triple   `json:"triple" yaml:"triple"`
	Extra  []string `json:"extra,omitempty" yaml:"extra,omitempty"` // components after the patch
}

// Parse trims raw, strips trimPrefix if present and splits the rest on '.'.
// Components past the third are returned in Extra.
func Parse(raw, trimPrefix string) (*Parsed, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty tag", ErrMalformedTag)
	}
	if trimPrefix != "" {
		s = strings.TrimPrefix(s, trimPrefix)
	}

	parts := strings.Split(s, ".")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %q has %d component(s), need 3", ErrMalformedTag, raw, len(parts))
	}
	for i, p := range parts[:3] {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has an empty component at position %d", ErrMalformedTag, raw, i+1)
		}
	}

	p := &Parsed{
		Raw: strings.TrimSpace(raw),
		Triple: Triple{
			Major: parts[0],
			Minor: parts[1],
			Patch: parts[2],
		},
	}
	if len(parts) > 3 {
		p.Extra = parts[3:]
	}
	return p, nil
}

// Compare compares two versions component-wise.
// Returns: -1 if v1 < v2, 0 if equal, 1 if v1 > v2.
// A leading 'v' is ignored and a pre-release suffix ("-rc.1") sorts before
// the plain version. ok is false when a component is not numeric, in which
// case the result is meaningless.
func Compare(v1, v2 Triple) (result int, ok bool) {
	a := []string{v1.Major, v1.Minor, v1.Patch}
	b := []string{v2.Major, v2.Minor, v2.Patch}

	a[0] = strings.TrimPrefix(a[0], "v")
	b[0] = strings.TrimPrefix(b[0], "v")

	// Pre-release only makes sense on the last component
	aPatch, aPre, _ := strings.Cut(a[2], "-")
	bPatch, bPre, _ := strings.Cut(b[2], "-")
	a[2], b[2] = aPatch, bPatch

	for i := range a {
		n1, err := strconv.Atoi(a[i])
		if err != nil {
			return 0, false
		}
		n2, err := strconv.Atoi(b[i])
		if err != nil {
			return 0, false
		}
		if n1 < n2 {
			return -1, true
		}
		if n1 > n2 {
			return 1, true
		}
	}

	// A version without pre-release is greater than one with pre-release
	// e.g., 1.0.0 > 1.0.0-beta.1
	switch {
	case aPre == "" && bPre != "":
		return 1, true
	case aPre != "" && bPre == "":
		return -1, true
	case aPre < bPre:
		return -1, true
	case aPre > bPre:
		return 1, true
	}
	return 0, true
}
