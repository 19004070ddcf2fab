package ics

import (
	"strings"
)

// contentLine is one unfolded "NAME;PARAM=V:VALUE" line.
type contentLine struct {
	Name   string
	Params map[string]string
	Value  string
}

func (c contentLine) param(key string) string {
	if c.Params == nil {
		return ""
	}
	return c.Params[key]
}

// unfoldLines splits a document into logical lines. It accepts CRLF, LF or
// bare CR terminators and joins RFC 5545 continuation lines (those starting
// with a space or tab) onto the previous line. Blank lines are dropped.
func unfoldLines(doc string) []string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	doc = strings.ReplaceAll(doc, "\r", "\n")

	out := make([]string, 0, strings.Count(doc, "\n")+1)
	for _, raw := range strings.Split(doc, "\n") {
		if raw == "" {
			continue
		}
		if (raw[0] == ' ' || raw[0] == '\t') && len(out) > 0 {
			out[len(out)-1] += raw[1:]
			continue
		}
		out = append(out, raw)
	}
	return out
}

// parseContentLine splits a logical line into name, params and value. The
// name/value separator is the first ':' outside a quoted parameter value.
// ok is false when there is no separator or no name.
func parseContentLine(line string) (contentLine, bool) {
	var (
		head  string
		value string
		found bool
	)
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case ':':
			if !inQuote {
				head, value, found = line[:i], line[i+1:], true
			}
		}
		if found {
			break
		}
	}
	if !found {
		return contentLine{}, false
	}

	parts := splitOutsideQuotes(head, ';')
	name := strings.ToUpper(strings.TrimSpace(parts[0]))
	if name == "" {
		return contentLine{}, false
	}

	cl := contentLine{Name: name, Value: value}
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		if cl.Params == nil {
			cl.Params = make(map[string]string)
		}
		cl.Params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return cl, true
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// unescapeText reverses TEXT value escaping (\n, \N, \, \; \\).
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
