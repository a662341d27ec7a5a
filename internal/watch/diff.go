package watch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff computes a line-oriented unified diff with three lines of
// context, matching the format produced by standard diff tools so
// firstHunkHeaderRe below can find the first hunk.
func unifiedDiff(left, right string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(left),
		B:        difflib.SplitLines(right),
		FromFile: "left",
		ToFile:   "right",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// firstHunkHeaderRe matches the first unified-diff hunk header and
// captures the new-side (start, length) pair.
var firstHunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// firstHunkLineRange parses the first new-side hunk header in diffText
// into a LineRange, or nil if no hunk header is present.
func firstHunkLineRange(diffText string) *LineRange {
	for _, line := range strings.Split(diffText, "\n") {
		m := firstHunkHeaderRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		length := 1
		if m[2] != "" {
			length, err = strconv.Atoi(m[2])
			if err != nil {
				return nil
			}
		}
		return &LineRange{Start: start, End: start + length - 1}
	}
	return nil
}
