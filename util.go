package imap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-imap/utf7"
)

// dropNl removes trailing newline characters from a line
func dropNl(s string) string {
	if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
		return strings.TrimSuffix(s, "\r")
	}
	return s
}

// MakeIMAPLiteral generates IMAP literal syntax for non-ASCII strings.
// It returns a string in the format "{bytecount}\r\ntext" where bytecount
// is the number of bytes (not characters) in the input string.
// Example: MakeIMAPLiteral("тест") returns "{8}\r\nтест"
func MakeIMAPLiteral(s string) string {
	return fmt.Sprintf("{%d}\r\n%s", len(s), s)
}

// quoteString renders s as an IMAP quoted string.
func quoteString(s string) string {
	return `"` + AddSlashes.Replace(s) + `"`
}

// quoteSearchString quotes user text for a SEARCH key. Line breaks cannot be
// carried in a quoted string and would end the command, so they are dropped.
func quoteSearchString(s string) string {
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	return quoteString(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// quoteMailbox encodes a mailbox name in modified UTF-7 and quotes it.
func quoteMailbox(name string) string {
	if !isASCII(name) {
		if enc, err := utf7.Encoding.NewEncoder().String(name); err == nil {
			name = enc
		}
	}
	return quoteString(name)
}

// decodeMailboxName reverses the modified UTF-7 encoding of a mailbox name.
func decodeMailboxName(name string) string {
	if !strings.Contains(name, "&") {
		return name
	}
	dec, err := utf7.Encoding.NewDecoder().String(name)
	if err != nil {
		return name
	}
	return dec
}

// formatNumSet renders numbers as an IMAP sequence set, collapsing runs of
// consecutive values into ranges. Order is preserved.
func formatNumSet(nums []uint32) string {
	var b strings.Builder
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(nums[i]), 10))
		if j > i {
			b.WriteByte(':')
			b.WriteString(strconv.FormatUint(uint64(nums[j]), 10))
		}
		i = j + 1
	}
	return b.String()
}

// commandName returns the verb of a command line, including a UID prefix.
func commandName(command string) string {
	fields := strings.Fields(command)
	switch {
	case len(fields) == 0:
		return ""
	case len(fields) > 1 && strings.EqualFold(fields[0], "UID"):
		return strings.ToUpper(fields[0] + " " + fields[1])
	}
	return strings.ToUpper(fields[0])
}

// redactCommand masks credentials so a command can be logged or reported.
func redactCommand(command string) string {
	name := commandName(command)
	switch name {
	case "LOGIN":
		return "LOGIN ****"
	case "AUTHENTICATE":
		fields := strings.Fields(command)
		if len(fields) > 2 {
			return fields[0] + " " + fields[1] + " ****"
		}
	}
	return command
}
