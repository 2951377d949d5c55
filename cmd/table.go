package cmd

import (
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"
)

// newTable returns a tab-aligned writer for list output, flushed by the
// caller with Flush. Columns are only padded when stdout is a terminal;
// piped output stays plain tab-separated so scripts can cut/awk it.
// Grounded on the teacher's table rendering intent (a stray
// github.com/jedib0t/go-pretty import never reflected in its go.mod);
// reimplemented on the stdlib text/tabwriter plus the x/term TTY check
// the teacher already pulls in for password prompts.
func newTable(w io.Writer) *tabwriter.Writer {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	}
	return tabwriter.NewWriter(w, 0, 0, 1, '\t', 0)
}
