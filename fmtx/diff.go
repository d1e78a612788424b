package fmtx

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	diffRemoved = color.New(color.FgRed)
	diffAdded   = color.New(color.FgGreen)
)

// writeDiff prints a minimal line diff of the changed region between orig and
// formatted: common leading and trailing lines are trimmed, the middle is
// shown as removed (red, "-") then added (green, "+") lines.
func writeDiff(w io.Writer, orig, formatted string) {
	a := strings.Split(orig, "\n")
	b := strings.Split(formatted, "\n")

	// Trim common prefix.
	start := 0
	for start < len(a) && start < len(b) && a[start] == b[start] {
		start++
	}
	// Trim common suffix of the remainder.
	endA, endB := len(a), len(b)
	for endA > start && endB > start && a[endA-1] == b[endB-1] {
		endA--
		endB--
	}

	for _, line := range a[start:endA] {
		fmt.Fprintf(w, "%s\n", diffRemoved.Sprintf("- %s", line))
	}
	for _, line := range b[start:endB] {
		fmt.Fprintf(w, "%s\n", diffAdded.Sprintf("+ %s", line))
	}
}
