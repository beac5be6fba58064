package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	xmlvalidator "github.com/agentflare-ai/go-xmlvalidator"
	"github.com/fatih/color"
)

// Pretty renders records in rustc style: a header with the code, the
// location, the offending source line with a caret, and hints.
type Pretty struct {
	Color bool
	// ContextLines is the number of source lines shown around the
	// offending one.
	ContextLines int
}

type palette struct {
	err, warn, fatal, caret, gutter, help func(format string, a ...interface{}) string
}

func (p Pretty) palette() palette {
	mk := func(c *color.Color) func(string, ...interface{}) string {
		if p.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintfFunc()
	}
	return palette{
		err:    mk(color.New(color.FgRed, color.Bold)),
		warn:   mk(color.New(color.FgYellow, color.Bold)),
		fatal:  mk(color.RGB(255, 0, 196).Add(color.Bold)),
		caret:  mk(color.New(color.FgRed, color.Bold)),
		gutter: mk(color.RGB(74, 92, 138)),
		help:   mk(color.New(color.FgCyan)),
	}
}

// Write renders every record. source is the document text; when empty no
// source context is shown.
func (p Pretty) Write(w io.Writer, records []xmlvalidator.DiagnosticRecord, source string) error {
	var lines []string
	if source != "" {
		lines = strings.Split(source, "\n")
	}
	pal := p.palette()
	for i, d := range records {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, p.format(pal, d, lines)); err != nil {
			return err
		}
	}
	return nil
}

// Format renders one record.
func (p Pretty) Format(d xmlvalidator.DiagnosticRecord, source string) string {
	var lines []string
	if source != "" {
		lines = strings.Split(source, "\n")
	}
	return p.format(p.palette(), d, lines)
}

func (p Pretty) format(pal palette, d xmlvalidator.DiagnosticRecord, lines []string) string {
	var sb strings.Builder

	level := d.Level
	switch level {
	case "warning":
		level = pal.warn("%s", level)
	case "fatal":
		level = pal.fatal("%s", level)
	default:
		if level == "" {
			level = "error"
		}
		level = pal.err("%s", level)
	}
	fmt.Fprintf(&sb, "%s[%d]: %s\n", level, d.Code, d.Message)

	if d.Column > 0 {
		fmt.Fprintf(&sb, "%s %s:%d:%d\n", pal.gutter(" -->"), d.Source, d.Line, d.Column)
	} else {
		fmt.Fprintf(&sb, "%s %s:%d\n", pal.gutter(" -->"), d.Source, d.Line)
	}

	if d.Line > 0 && d.Line <= len(lines) {
		first := max(d.Line-p.ContextLines, 1)
		last := min(d.Line+p.ContextLines, len(lines))
		sb.WriteString(pal.gutter("     |") + "\n")
		for n := first; n <= last; n++ {
			fmt.Fprintf(&sb, "%s %s\n", pal.gutter("%4d |", n), strings.TrimRight(lines[n-1], "\r"))
			if n == d.Line && d.Column > 0 {
				fmt.Fprintf(&sb, "%s %s%s\n", pal.gutter("     |"), strings.Repeat(" ", d.Column-1), pal.caret("^"))
			}
		}
	}

	if hints := hintsFor(d.Message); len(hints) > 0 {
		sb.WriteString(pal.gutter("     |") + "\n")
		for _, h := range hints {
			fmt.Fprintf(&sb, "     = %s %s\n", pal.help("help:"), h)
		}
	}
	return sb.String()
}

var (
	expectedRE = regexp.MustCompile(`Expected is (?:one of )?\( ([^)]*) \)`)
	missingRE  = regexp.MustCompile(`The attribute '([^']+)' is required`)
	enumRE     = regexp.MustCompile(`not an element of the set \{([^}]*)\}`)
)

// hintsFor derives help lines from the wording of a message.
func hintsFor(msg string) []string {
	var hints []string
	if m := expectedRE.FindStringSubmatch(msg); m != nil {
		names := strings.Split(m[1], ", ")
		if len(names) == 1 {
			hints = append(hints, fmt.Sprintf("expected <%s> at this position", names[0]))
		} else {
			hints = append(hints, "expected one of: "+strings.Join(names, ", "))
		}
	}
	if m := missingRE.FindStringSubmatch(msg); m != nil {
		hints = append(hints, fmt.Sprintf("add the attribute: %s=\"...\"", m[1]))
	}
	if m := enumRE.FindStringSubmatch(msg); m != nil {
		hints = append(hints, "valid values are: "+m[1])
	}
	return hints
}
