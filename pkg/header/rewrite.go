package header

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/abdul-hamid-achik/tagsync/pkg/tag"
)

// Change records one rewritten macro line.
type Change struct {
	Macro    string `json:"macro" yaml:"macro"`
	Line     int    `json:"line" yaml:"line"` // 1-based
	OldValue string `json:"old_value" yaml:"old_value"`
	NewValue string `json:"new_value" yaml:"new_value"`
	OldLine  string `json:"old_line" yaml:"old_line"`
	NewLine  string `json:"new_line" yaml:"new_line"`
}

// Modified reports whether the line bytes differ.
func (c Change) Modified() bool {
	return c.OldLine != c.NewLine
}

// Result holds the outcome of a rewrite.
type Result struct {
	Changes  []Change `json:"changes" yaml:"changes"`
	Missing  []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	Lines    int      `json:"lines" yaml:"lines"`
	Modified bool     `json:"modified" yaml:"modified"`
}

// Value is the current definition of a macro in a header.
type Value struct {
	Macro string `json:"macro" yaml:"macro"`
	Line  int    `json:"line" yaml:"line"`
	Value string `json:"value" yaml:"value"`
}

// Rewriter streams a header, substituting the version macro lines.
type Rewriter struct {
	Macros Macros
	Mode   MatchMode
}

// NewRewriter creates a Rewriter with the given macro names and match mode.
// An empty mode means MatchToken.
func NewRewriter(macros Macros, mode MatchMode) *Rewriter {
	if mode == "" {
		mode = MatchToken
	}
	return &Rewriter{Macros: macros, Mode: mode}
}

// Rewrite copies r to w line by line. Lines defining one of the macros are
// replaced with "#define NAME value"; every other line is copied unchanged.
func (rw *Rewriter) Rewrite(r io.Reader, w io.Writer, v tag.Triple) (*Result, error) {
	values := map[string]string{
		rw.Macros.Major: v.Major,
		rw.Macros.Minor: v.Minor,
		rw.Macros.Patch: v.Patch,
	}

	res := &Result{}
	found := make(map[string]bool, 3)
	bw := bufio.NewWriter(w)

	err := scanLines(r, func(n int, raw string) error {
		res.Lines = n

		name, ok := rw.match(raw)
		if !ok {
			_, err := bw.WriteString(raw)
			return err
		}

		found[name] = true
		body, term := splitTerminator(raw)
		if term == "" {
			term = "\n"
		}
		newBody := "#define " + name + " " + values[name]

		c := Change{
			Macro:    name,
			Line:     n,
			OldValue: definitionValue(body),
			NewValue: values[name],
			OldLine:  raw,
			NewLine:  newBody + term,
		}
		res.Changes = append(res.Changes, c)
		if c.Modified() {
			res.Modified = true
		}

		_, err := bw.WriteString(c.NewLine)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush header: %w", err)
	}

	for _, name := range rw.Macros.Names() {
		if !found[name] {
			res.Missing = append(res.Missing, name)
		}
	}
	return res, nil
}

// Inspect returns the current value of each macro definition found in r.
func (rw *Rewriter) Inspect(r io.Reader) ([]Value, error) {
	var values []Value
	err := scanLines(r, func(n int, raw string) error {
		if name, ok := rw.match(raw); ok {
			body, _ := splitTerminator(raw)
			values = append(values, Value{Macro: name, Line: n, Value: definitionValue(body)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// match returns the macro name defined by the line, if any.
func (rw *Rewriter) match(line string) (string, bool) {
	if rw.Mode == MatchPrefix {
		// Longest name first so VER_MINOR is not claimed by a macro named VER
		names := rw.Macros.Names()
		slices.SortStableFunc(names, func(a, b string) int { return len(b) - len(a) })
		for _, name := range names {
			if strings.HasPrefix(line, "#define "+name) {
				return name, true
			}
		}
		return "", false
	}

	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "#define" {
		return "", false
	}
	for _, name := range rw.Macros.Names() {
		if fields[1] == name {
			return name, true
		}
	}
	return "", false
}

// scanLines calls fn for every line of r including its terminator.
// A final line without a newline is passed as is.
func scanLines(r io.Reader, fn func(n int, raw string) error) error {
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		raw, err := br.ReadString('\n')
		if raw != "" {
			if ferr := fn(n, raw); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read header: %w", err)
		}
	}
}

func splitTerminator(raw string) (body, term string) {
	switch {
	case strings.HasSuffix(raw, "\r\n"):
		return raw[:len(raw)-2], "\r\n"
	case strings.HasSuffix(raw, "\n"):
		return raw[:len(raw)-1], "\n"
	}
	return raw, ""
}

// definitionValue returns the token after the macro name, ignoring comments.
func definitionValue(body string) string {
	fields := strings.Fields(body)
	if len(fields) < 3 {
		return ""
	}
	v := fields[2]
	if strings.HasPrefix(v, "//") || strings.HasPrefix(v, "/*") {
		return ""
	}
	return v
}
