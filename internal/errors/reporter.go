package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/nyu-acsys/flowcert/internal/program"
)

// Reporter renders a VerifierError against the source file it
// triggered in, the same Rust-like caret style the teacher's
// ErrorReporter uses for compile errors — adapted here to a single
// Kind-keyed error model and a LinearizationFailure pre/post panel
// instead of suggestions/replacements (this domain never proposes a
// source-level fix).
type Reporter struct {
	filename string
	lines    []string
}

func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders err at the given source position (zero value if the
// failure has no single source point, e.g. a whole-program
// ConfigurationError).
func (r *Reporter) Format(err *VerifierError, pos program.Position) string {
	var out strings.Builder

	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	kindColor := color.New(color.FgRed, color.Bold).SprintFunc()

	out.WriteString(fmt.Sprintf("%s: %s\n", kindColor(err.Kind.String()), err.Message))

	width := lineNumberWidth(pos.Line)
	indent := strings.Repeat(" ", width)

	if pos.Line > 0 {
		out.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n", indent, dim("-->"), r.filename, pos.Line, pos.Column))
		out.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))
		if pos.Line-1 >= 1 && pos.Line-2 < len(r.lines) {
			out.WriteString(fmt.Sprintf("%s %s %s\n", dim(pad(pos.Line-1, width)), dim("│"), r.lines[pos.Line-2]))
		}
		if pos.Line <= len(r.lines) {
			out.WriteString(fmt.Sprintf("%s %s %s\n", bold(pad(pos.Line, width)), dim("│"), r.lines[pos.Line-1]))
			out.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), marker(pos.Column)))
		}
		if pos.Line < len(r.lines) {
			out.WriteString(fmt.Sprintf("%s %s %s\n", dim(pad(pos.Line+1, width)), dim("│"), r.lines[pos.Line]))
		}
	}

	if err.Kind == LinearizationFailureKind {
		noteColor := color.New(color.FgBlue).SprintFunc()
		out.WriteString(fmt.Sprintf("%s %s\n", indent, noteColor("pre-state:")))
		out.WriteString(indentBlock(err.PreState, indent))
		out.WriteString(fmt.Sprintf("%s %s\n", indent, noteColor("computed post-state:")))
		out.WriteString(indentBlock(err.PostState, indent))
	}

	out.WriteString("\n")
	return out.String()
}

func indentBlock(s, indent string) string {
	var out strings.Builder
	for _, line := range strings.Split(s, "\n") {
		out.WriteString(fmt.Sprintf("%s   %s\n", indent, line))
	}
	return out.String()
}

func marker(column int) string {
	spaces := strings.Repeat(" ", max0(column-1))
	return spaces + color.New(color.FgRed, color.Bold).SprintFunc()("^")
}

func pad(n, width int) string { return fmt.Sprintf("%*d", width, n) }

func lineNumberWidth(line int) int {
	w := len(fmt.Sprintf("%d", line))
	if w < 3 {
		w = 3
	}
	return w
}

func max0(a int) int {
	if a > 0 {
		return a
	}
	return 0
}

// Outcome is the whole-run verdict the CLI driver prints (spec.md §6
// "the core returns one of {linearizable, notLinearizable(reason),
// unknown(reason)}").
type Outcome int

const (
	Linearizable Outcome = iota
	NotLinearizable
	UnknownOutcome
)

// FormatBanner renders the final outcome banner the teacher's main.go
// prints after a successful/failed build, repurposed for a
// verification verdict instead of a compile result.
func FormatBanner(outcome Outcome, reason string) string {
	switch outcome {
	case Linearizable:
		return color.New(color.FgGreen, color.Bold).Sprint("linearizable") + "\n"
	case NotLinearizable:
		return color.New(color.FgRed, color.Bold).Sprint("not linearizable") + ": " + reason + "\n"
	default:
		return color.New(color.FgYellow, color.Bold).Sprint("unknown") + ": " + reason + "\n"
	}
}
