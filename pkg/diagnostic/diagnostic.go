/*
Package diagnostic turns parser issues and tag-pair mismatches into
editor-facing diagnostics.

	snapshot ──> fragment.Parser ──> []fragment.Issue ──┐
	                                                    ├──> Diagnostics ──> Formatter
	tagmatch.TagPair (soft mismatch) ───────────────────┘
*/
package diagnostic

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/fragment"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

// Diagnostics represents a collection of diagnostic messages
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Hints    []Diagnostic
}

// Len returns the number of diagnostics of all severities.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Errors) + len(d.Warnings) + len(d.Hints)
}

// All returns every diagnostic ordered by document offset.
func (d *Diagnostics) All() []Diagnostic {
	if d == nil {
		return nil
	}
	out := make([]Diagnostic, 0, d.Len())
	out = append(out, d.Errors...)
	out = append(out, d.Warnings...)
	out = append(out, d.Hints...)
	slices.SortStableFunc(out, func(a, b Diagnostic) int { return a.Offset - b.Offset })
	return out
}

func (d *Diagnostics) add(diag Diagnostic) {
	switch diag.Severity {
	case Error:
		d.Errors = append(d.Errors, diag)
	case Warning:
		d.Warnings = append(d.Warnings, diag)
	default:
		d.Hints = append(d.Hints, diag)
	}
}

// Diagnostic represents a single diagnostic message. Line and column values
// are 1-based, columns count grapheme clusters. Offset and EndOffset are the
// byte range in the document.
type Diagnostic struct {
	Message   string
	Code      string
	Line      int
	Column    int
	EndLine   int
	EndCol    int
	Offset    int
	EndOffset int
	Severity  DiagnosticSeverity
}

// DiagnosticSeverity represents the severity of a diagnostic
type DiagnosticSeverity int

const (
	Error DiagnosticSeverity = iota + 1
	Warning
	Info
	Hint
)

func (s DiagnosticSeverity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// SeverityOf maps a parser issue code to a severity. Problems that break tag
// pairing are errors; recoverable oddities are warnings.
func SeverityOf(code fragment.IssueCode) DiagnosticSeverity {
	switch code {
	case fragment.IssueUnterminated, fragment.IssueMismatchedEnd, fragment.IssueStrayEnd, fragment.IssueUnclosedElement:
		return Error
	case fragment.IssueTooMany:
		return Hint
	default:
		return Warning
	}
}

// NewDiagnostic builds a diagnostic covering [start, end) of snap.
func NewDiagnostic(snap *position.Snapshot, start, end int, sev DiagnosticSeverity, code, message string) Diagnostic {
	start = min(max(start, 0), snap.Length())
	end = min(max(end, start), snap.Length())
	from, to := snap.Place(start), snap.Place(end)
	return Diagnostic{
		Message:   message,
		Code:      code,
		Line:      from.Line + 1,
		Column:    from.Character + 1,
		EndLine:   to.Line + 1,
		EndCol:    to.Character + 1,
		Offset:    start,
		EndOffset: end,
		Severity:  sev,
	}
}

// FromIssues converts issues reported for the whole of snap.
func FromIssues(snap *position.Snapshot, issues []fragment.Issue) *Diagnostics {
	out := &Diagnostics{}
	text := snap.Text()
	for _, iss := range issues {
		out.add(NewDiagnostic(snap, iss.Offset, issueEnd(text, iss.Offset), SeverityOf(iss.Code), iss.Code.String(), iss.Message))
	}
	return out
}

// FromTagPair reports a soft-mismatched complement as a warning on the
// partner, or nothing.
func FromTagPair(pair *tagmatch.TagPair) []Diagnostic {
	if pair == nil || pair.Complement.Status != tagmatch.StatusSoftMismatch {
		return nil
	}
	c := pair.Complement
	msg := fmt.Sprintf("expected %q, found %q", c.Expected, c.Found)
	if c.Found == c.Expected || (pair.Closing && strings.HasPrefix(c.Found, c.Expected)) {
		msg = fmt.Sprintf("tags around %q do not pair up", pair.Name.Text())
	}
	return []Diagnostic{
		NewDiagnostic(c.Span.Snapshot(), c.Span.Start(), c.Span.End(), Warning, "tag-mismatch", msg),
	}
}

// issueEnd widens an issue to the rest of the tag it starts, stopping at the
// end of the line.
func issueEnd(text string, offset int) int {
	if offset >= len(text) {
		return len(text)
	}
	if text[offset] != '<' {
		return offset + 1
	}
	for i := offset + 1; i < len(text); i++ {
		switch text[i] {
		case '>':
			return i + 1
		case '\n':
			return i
		}
	}
	return len(text)
}

// Generator produces diagnostics for a document snapshot.
type Generator interface {
	Generate(ctx context.Context, snap *position.Snapshot) (*Diagnostics, error)
}

// DefaultGenerator parses the whole document and reports every issue.
type DefaultGenerator struct {
	opts []fragment.Option
}

func NewDefaultGenerator(opts ...fragment.Option) *DefaultGenerator {
	return &DefaultGenerator{opts: opts}
}

func (g *DefaultGenerator) Generate(ctx context.Context, snap *position.Snapshot) (*Diagnostics, error) {
	if snap == nil {
		return nil, errors.Errorf("snapshot is nil")
	}

	p := fragment.NewParser(snap.Text(), g.opts...)
	defer p.Close()

	n := 0
	for range p.Events() {
		n++
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Errorf("generating diagnostics: %w", err)
			}
		}
	}

	out := FromIssues(snap, p.Issues())

	zerolog.Ctx(ctx).Debug().
		Int("version", snap.Version()).
		Int("events", n).
		Int("errors", len(out.Errors)).
		Int("warnings", len(out.Warnings)).
		Msg("generated diagnostics")

	return out, nil
}

// Formatter formats diagnostics into different output formats
type Formatter interface {
	Format(diagnostics *Diagnostics) ([]byte, error)
}

// VSCodeFormatter formats diagnostics into VSCode-compatible format
type VSCodeFormatter struct{}

func NewVSCodeFormatter() *VSCodeFormatter {
	return &VSCodeFormatter{}
}

type vscodePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type vscodeRange struct {
	Start vscodePosition `json:"start"`
	End   vscodePosition `json:"end"`
}

type vscodeDiagnostic struct {
	Severity int         `json:"severity"`
	Code     string      `json:"code,omitempty"`
	Message  string      `json:"message"`
	Range    vscodeRange `json:"range"`
}

// Format implements Formatter. Ranges are 0-based.
func (f *VSCodeFormatter) Format(diagnostics *Diagnostics) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.Errorf("diagnostics is nil")
	}

	result := []vscodeDiagnostic{}
	for _, d := range diagnostics.All() {
		result = append(result, vscodeDiagnostic{
			Severity: int(d.Severity),
			Code:     d.Code,
			Message:  d.Message,
			Range: vscodeRange{
				Start: vscodePosition{Line: d.Line - 1, Character: d.Column - 1},
				End:   vscodePosition{Line: d.EndLine - 1, Character: d.EndCol - 1},
			},
		})
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.Errorf("marshalling diagnostics: %w", err)
	}
	return out, nil
}

// TextFormatter writes one "path:line:col: severity: message" line per
// diagnostic, optionally colored.
type TextFormatter struct {
	Path  string
	Color bool
}

func NewTextFormatter(path string, colored bool) *TextFormatter {
	return &TextFormatter{Path: path, Color: colored}
}

func (f *TextFormatter) Format(diagnostics *Diagnostics) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.Errorf("diagnostics is nil")
	}

	var b strings.Builder
	for _, d := range diagnostics.All() {
		sev := f.paint(d.Severity).Sprint(d.Severity.String())
		fmt.Fprintf(&b, "%s:%d:%d: %s: %s", f.Path, d.Line, d.Column, sev, d.Message)
		if d.Code != "" {
			fmt.Fprintf(&b, " [%s]", d.Code)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

func (f *TextFormatter) paint(s DiagnosticSeverity) *color.Color {
	var c *color.Color
	switch s {
	case Error:
		c = color.New(color.FgRed, color.Bold)
	case Warning:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgCyan)
	}
	if f.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
