package imap

import (
	"strconv"
	"strings"
)

// literalTracker follows {N} byte counts across physical lines so that text
// inside a literal is never mistaken for a response boundary. Each consumed
// line counts len(line)+2 bytes for its CRLF.
type literalTracker struct {
	pending int
	cont    bool
}

// feed consumes one physical line and reports whether it continues the
// previous logical response, either because it starts inside a literal or
// because the previous line ended with a literal announcement.
func (lt *literalTracker) feed(line string) bool {
	cont := lt.cont
	rest := line
	if lt.pending > 0 {
		if lt.pending >= len(line)+2 {
			lt.pending -= len(line) + 2
			// Still inside the literal, or it ended exactly on this line
			// break and the response carries on with the next line.
			lt.cont = true
			return true
		}
		if lt.pending > len(line) {
			rest = ""
		} else {
			rest = line[lt.pending:]
		}
		lt.pending = 0
	}
	lt.cont = false
	if n, ok := trailingLiteral(rest); ok {
		lt.pending = n
		lt.cont = true
	}
	return cont
}

// trailingLiteral returns N when s ends with a literal announcement {N}.
func trailingLiteral(s string) (int, bool) {
	if !strings.HasSuffix(s, "}") {
		return 0, false
	}
	open := strings.LastIndexByte(s, '{')
	if open < 0 {
		return 0, false
	}
	digits := strings.TrimSuffix(s[open+1:len(s)-1], "+")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// isFetchStart reports whether line opens an untagged FETCH response,
// "* <number> FETCH".
func isFetchStart(line string) bool {
	rest, ok := strings.CutPrefix(line, "* ")
	if !ok {
		return false
	}
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(rest) || rest[i] != ' ' {
		return false
	}
	word := rest[i+1:]
	if len(word) < 5 || !strings.EqualFold(word[:5], "FETCH") {
		return false
	}
	return len(word) == 5 || word[5] == ' ' || word[5] == '('
}

// GroupFetchLines partitions physical response lines into one group per
// FETCH response. Lines that belong to a literal stay with the response that
// announced it, whatever they contain. Lines outside any FETCH response are
// dropped.
func GroupFetchLines(lines []string) [][]string {
	var groups [][]string
	var cur []string
	var lt literalTracker
	for _, line := range lines {
		if lt.feed(line) {
			if cur != nil {
				cur = append(cur, line)
			}
			continue
		}
		if cur != nil {
			groups = append(groups, cur)
			cur = nil
		}
		if isFetchStart(line) {
			cur = []string{line}
		}
	}
	if cur != nil {
		groups = append(groups, cur)
	}
	return groups
}

// logicalLines joins physical lines into complete responses, re-inserting
// the CRLF separators that literal byte counts include.
func logicalLines(lines []string) []string {
	var out []string
	var lt literalTracker
	for _, line := range lines {
		if lt.feed(line) && len(out) > 0 {
			out[len(out)-1] += nl + line
			continue
		}
		out = append(out, line)
	}
	return out
}
