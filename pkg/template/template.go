// Package template expands {{name}} placeholders in strings.
//
// The grammar is deliberately small: a placeholder opens at "{{" and closes at
// the first following "}}", the enclosed name is trimmed of surrounding
// whitespace, and there is no escape syntax for literal braces. Substitution
// is single pass, so a substituted value containing "{{...}}" is emitted
// verbatim and never expanded again.
package template

import "strings"

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Lookuper resolves variable names. The boolean distinguishes "not found"
// from a variable whose value is the empty string.
type Lookuper interface {
	Lookup(name string) (string, bool)
}

// Map is a Lookuper backed by a plain map.
type Map map[string]string

func (m Map) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Result is the outcome of interpolating one template.
type Result struct {
	Output string
	// Unresolved lists placeholder names with no matching variable, once per
	// occurrence, in the order they appear.
	Unresolved []string
}

// Interpolate expands every placeholder in tmpl using vars. Unresolved
// placeholders are kept literally in the output and reported by name.
func Interpolate(tmpl string, vars Lookuper) Result {
	if !strings.Contains(tmpl, openDelim) {
		return Result{Output: tmpl}
	}

	var (
		sb         strings.Builder
		unresolved []string
		rest       = tmpl
	)
	sb.Grow(len(tmpl))

	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			// unterminated placeholder, emit the remainder as text
			sb.WriteString(rest)
			break
		}
		end += start + len(openDelim)

		sb.WriteString(rest[:start])
		raw := rest[start : end+len(closeDelim)]
		name := strings.TrimSpace(rest[start+len(openDelim) : end])

		switch {
		case name == "":
			sb.WriteString(raw)
		default:
			if v, ok := lookup(vars, name); ok {
				sb.WriteString(v)
			} else {
				sb.WriteString(raw)
				unresolved = append(unresolved, name)
			}
		}
		rest = rest[end+len(closeDelim):]
	}

	return Result{Output: sb.String(), Unresolved: unresolved}
}

// String is Interpolate for callers that collect unresolved names across
// several fields. Names are appended to *unresolved when it is non-nil.
func String(tmpl string, vars Lookuper, unresolved *[]string) string {
	res := Interpolate(tmpl, vars)
	if unresolved != nil {
		*unresolved = append(*unresolved, res.Unresolved...)
	}
	return res.Output
}

// Placeholders returns the trimmed names of every placeholder in tmpl.
func Placeholders(tmpl string) []string {
	var names []string
	rest := tmpl
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			return names
		}
		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			return names
		}
		end += start + len(openDelim)
		if name := strings.TrimSpace(rest[start+len(openDelim) : end]); name != "" {
			names = append(names, name)
		}
		rest = rest[end+len(closeDelim):]
	}
}

func lookup(vars Lookuper, name string) (string, bool) {
	if vars == nil {
		return "", false
	}
	return vars.Lookup(name)
}
