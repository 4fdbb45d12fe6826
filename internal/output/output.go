package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// UI provides colored output and respects quiet/dry-run modes. Problems are
// always printed; everything else is narration that Quiet suppresses.
type UI struct {
	Quiet  bool
	DryRun bool
	Color  bool // render problems in bold red
	Out    io.Writer
	ErrOut io.Writer
}

// New creates a UI with default stdout/stderr writers. Problems are
// highlighted only when stdout is a terminal.
func New() *UI {
	fd := os.Stdout.Fd()
	return &UI{
		Color:  isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// problemStyle is forced on so UI.Color alone decides highlighting.
var problemStyle = func() *color.Color {
	c := color.New(color.Bold, color.FgHiRed)
	c.EnableColor()
	return c
}()

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// StatusColor returns a bug status colored by how far along it is.
func StatusColor(status string) string {
	switch status {
	case "NEW", "ASSIGNED":
		return yellow(status)
	case "POST", "MODIFIED":
		return cyan(status)
	case "ON_QA", "VERIFIED", "RELEASE_PENDING", "CLOSED":
		return green(status)
	default:
		return status
	}
}

// ScoreColor colors a review score: positive green, negative red.
func ScoreColor(score int) string {
	s := fmt.Sprintf("%d", score)
	switch {
	case score > 0:
		return green(s)
	case score < 0:
		return red(s)
	default:
		return s
	}
}

func (u *UI) Info(format string, a ...any) {
	if u.Quiet {
		return
	}
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

// Line prints plain narration, suppressed in quiet mode.
func (u *UI) Line(format string, a ...any) {
	if u.Quiet {
		return
	}
	fmt.Fprintf(u.Out, format+"\n", a...)
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Problem reports a consistency problem. It is printed even in quiet mode.
func (u *UI) Problem(message string) {
	line := "** " + message
	if u.Color {
		line = problemStyle.Sprint(line)
	}
	fmt.Fprintln(u.Out, line)
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
