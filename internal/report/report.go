// Package report lays out the emissions headline above the nvidia-smi
// status table.
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// HeadlineWidth is the column the amount is right-aligned to.
const HeadlineWidth = 79

// Headline returns firstLine (trimmed) followed by amount right-justified so
// the line ends at HeadlineWidth. When the two do not fit, amount follows
// firstLine with no padding.
func Headline(firstLine, amount string) string {
	firstLine = strings.TrimSpace(firstLine)
	width := HeadlineWidth - utf8.RuneCountInString(firstLine)
	pad := width - utf8.RuneCountInString(amount)
	if pad < 0 {
		pad = 0
	}
	return firstLine + strings.Repeat(" ", pad) + amount
}

// Rebrand renames the tool in nvidia-smi output.
func Rebrand(status string) string {
	return strings.ReplaceAll(status, "-SMI", "-CO2")
}

// Render writes the report: the nvidia-smi timestamp line carrying the
// amount, then the remaining nvidia-smi lines unchanged.
func Render(w io.Writer, status, amount string) error {
	lines := splitLines(Rebrand(status))

	first := ""
	if len(lines) > 0 {
		first = lines[0]
		lines = lines[1:]
	}

	if _, err := fmt.Fprintln(w, Headline(first, amount)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// splitLines splits on \n and \r\n and drops the empty element after a
// trailing newline.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
