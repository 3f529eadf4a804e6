package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label  string
	colors text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

// statusWriter prints aligned check lines, colored when attached to a terminal.
type statusWriter struct {
	lines    []string
	colorize bool
}

func newStatusWriter(out io.Writer) *statusWriter {
	return &statusWriter{colorize: isTerminal(out)}
}

func (w *statusWriter) section(title string) {
	if len(w.lines) > 0 {
		w.lines = append(w.lines, "")
	}
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(heading))
	if w.colorize {
		heading, rule = text.Bold.Sprint(heading), text.Faint.Sprint(rule)
	}
	w.lines = append(w.lines, heading, rule)
}

func (w *statusWriter) line(label string, kind statusKind, message string) {
	style := statusStyles[kind]
	line := fmt.Sprintf("  %-20s [%s]", label+":", style.label)
	if message != "" {
		line += " " + message
	}
	if w.colorize {
		line = style.colors.Sprint(line)
	}
	w.lines = append(w.lines, line)
}

func (w *statusWriter) flush(out io.Writer) {
	fmt.Fprintln(out, strings.Join(w.lines, "\n"))
	w.lines = nil
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
