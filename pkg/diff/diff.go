// Package diff renders readable differences between expected and actual
// values in test failures.
package diff

import (
	"strings"
	"testing"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/require"
)

// Values pretty-prints both values, exported fields only, and returns the
// line edits that turn got into want. It returns "" when both print the same.
func Values[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)

	lines := diff.Diff(printer.Sprint(got), printer.Sprint(want))
	if lines == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nactual -> expected:\n\n")
	b.WriteString("add:    +\n")
	b.WriteString("remove: -\n\n")
	b.WriteString(lines)
	return b.String()
}

// Require fails t with the diff of want and got when they differ.
func Require[T any](t testing.TB, want T, got T, msgAndArgs ...any) {
	t.Helper()
	if d := Values(want, got); d != "" {
		require.Fail(t, "values differ"+d, msgAndArgs...)
	}
}
