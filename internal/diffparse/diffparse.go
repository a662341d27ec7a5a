// Package diffparse turns unified-diff text into a sequence of file-change
// records. It tolerates add/delete/rename/copy headers, binary markers and
// "no newline" markers; it never errors on well-formed input, including
// empty input.
package diffparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ChangeKind is the kind of change a FileChange record represents.
type ChangeKind string

const (
	Add    ChangeKind = "add"
	Delete ChangeKind = "delete"
	Modify ChangeKind = "modify"
	Rename ChangeKind = "rename"
	Copy   ChangeKind = "copy"
)

// Hunk is one `@@ -a,b +c,d @@` block, with its raw content lines retained
// so callers can derive line ranges without reparsing.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	// Lines holds the hunk body, each line still prefixed with its
	// leading ' ', '+', '-' or '\' (no-newline marker) byte.
	Lines []string
}

// FileChange describes one file entry in a unified diff.
//
// Invariant: Add has no meaningful OldPath; Delete has no meaningful
// NewPath. Both may be populated for Rename/Copy.
type FileChange struct {
	OldPath string
	NewPath string
	Kind    ChangeKind
	Binary  bool
	Hunks   []Hunk
}

// EffectivePath returns the path callers should match against include
// globs: the new path, falling back to the old path for deletions.
func (f FileChange) EffectivePath() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

var (
	diffGitRe   = regexp.MustCompile(`^diff --git a/(.*) b/(.*)$`)
	oldPathRe   = regexp.MustCompile(`^--- (?:a/(.*)|/dev/null)$`)
	newPathRe   = regexp.MustCompile(`^\+\+\+ (?:b/(.*)|/dev/null)$`)
	renameFrom  = regexp.MustCompile(`^rename from (.*)$`)
	renameTo    = regexp.MustCompile(`^rename to (.*)$`)
	copyFrom    = regexp.MustCompile(`^copy from (.*)$`)
	copyTo      = regexp.MustCompile(`^copy to (.*)$`)
	hunkHeadRe  = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
	binaryFiles = regexp.MustCompile(`^Binary files (.*) and (.*) differ$`)
)

// Parse parses unified-diff text into an ordered sequence of file changes.
// Empty input yields an empty result and a nil error.
func Parse(diffText string) ([]FileChange, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, nil
	}

	lines := strings.Split(diffText, "\n")
	// Drop a single trailing empty element produced by a final newline,
	// so the last hunk line isn't seen as a bogus empty entry.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var files []FileChange
	var cur *FileChange
	var curHunk *Hunk

	flushHunk := func() {
		if cur != nil && curHunk != nil {
			cur.Hunks = append(cur.Hunks, *curHunk)
			curHunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if cur != nil {
			if cur.Kind == "" {
				cur.Kind = Modify
			}
			files = append(files, *cur)
			cur = nil
		}
	}

	i := 0
	for i < len(lines) {
		line := lines[i]

		if m := diffGitRe.FindStringSubmatch(line); m != nil {
			flushFile()
			cur = &FileChange{OldPath: m[1], NewPath: m[2]}
			i++
			continue
		}

		if cur == nil {
			// Stray content before any "diff --git" header (e.g. a diff
			// produced with --no-prefix or hand-trimmed input); skip.
			i++
			continue
		}

		switch {
		case line == "new file mode" || strings.HasPrefix(line, "new file mode"):
			cur.Kind = Add
		case strings.HasPrefix(line, "deleted file mode"):
			cur.Kind = Delete
		case binaryFiles.MatchString(line):
			cur.Binary = true
		case strings.HasPrefix(line, "rename from"):
			cur.Kind = Rename
			if m := renameFrom.FindStringSubmatch(line); m != nil {
				cur.OldPath = m[1]
			}
		case strings.HasPrefix(line, "rename to"):
			if m := renameTo.FindStringSubmatch(line); m != nil {
				cur.NewPath = m[1]
			}
		case strings.HasPrefix(line, "copy from"):
			cur.Kind = Copy
			if m := copyFrom.FindStringSubmatch(line); m != nil {
				cur.OldPath = m[1]
			}
		case strings.HasPrefix(line, "copy to"):
			if m := copyTo.FindStringSubmatch(line); m != nil {
				cur.NewPath = m[1]
			}
		case strings.HasPrefix(line, "--- "):
			if m := oldPathRe.FindStringSubmatch(line); m != nil {
				if m[1] == "" && strings.Contains(line, "/dev/null") {
					cur.Kind = Add
				} else if m[1] != "" {
					cur.OldPath = m[1]
				}
			}
		case strings.HasPrefix(line, "+++ "):
			if m := newPathRe.FindStringSubmatch(line); m != nil {
				if m[1] == "" && strings.Contains(line, "/dev/null") {
					cur.Kind = Delete
				} else if m[1] != "" {
					cur.NewPath = m[1]
				}
			}
		case strings.HasPrefix(line, "@@"):
			flushHunk()
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, fmt.Errorf("parsing hunk header %q: %w", line, err)
			}
			curHunk = h
		case curHunk != nil:
			curHunk.Lines = append(curHunk.Lines, line)
		default:
			// Headers we don't need (index lines, mode lines, similarity, etc).
		}
		i++
	}
	flushFile()

	for idx := range files {
		if files[idx].Kind == "" {
			files[idx].Kind = Modify
		}
	}

	return files, nil
}

func parseHunkHeader(line string) (*Hunk, error) {
	m := hunkHeadRe.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("malformed hunk header")
	}
	oldStart, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, err
	}
	oldLines := 1
	if m[2] != "" {
		oldLines, err = strconv.Atoi(m[2])
		if err != nil {
			return nil, err
		}
	}
	newStart, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, err
	}
	newLines := 1
	if m[4] != "" {
		newLines, err = strconv.Atoi(m[4])
		if err != nil {
			return nil, err
		}
	}
	return &Hunk{OldStart: oldStart, OldLines: oldLines, NewStart: newStart, NewLines: newLines}, nil
}
