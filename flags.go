package imap

import (
	"slices"
	"strings"
)

// FlagSet is the set of flags on a message. Names are stored without the
// leading backslash of system flags.
type FlagSet map[string]struct{}

// NewFlagSet builds a set from flag names.
func NewFlagSet(flags ...string) FlagSet {
	s := make(FlagSet, len(flags))
	for _, f := range flags {
		s.Add(f)
	}
	return s
}

// Add inserts a flag. "\Seen" and "Seen" are the same flag.
func (s FlagSet) Add(flag string) {
	flag = strings.TrimPrefix(flag, `\`)
	if flag != "" {
		s[flag] = struct{}{}
	}
}

// Has reports whether the set holds flag, ignoring case.
func (s FlagSet) Has(flag string) bool {
	flag = strings.TrimPrefix(flag, `\`)
	if _, ok := s[flag]; ok {
		return true
	}
	for f := range s {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// Slice returns the flags sorted by name.
func (s FlagSet) Slice() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// FlagAction represents the action to take on a flag
type FlagAction int

const (
	FlagUnset FlagAction = iota
	FlagAdd
	FlagRemove
)

// FlagUpdate describes flag changes for STORE
type FlagUpdate struct {
	Seen     FlagAction
	Answered FlagAction
	Flagged  FlagAction
	Deleted  FlagAction
	Draft    FlagAction
	// Keywords maps a keyword to true to add it or false to remove it.
	Keywords map[string]bool
}

// split returns the wire flags to add and to remove. Keywords that are not
// safe atoms are dropped.
func (u FlagUpdate) split() (add, remove []string) {
	system := []struct {
		name   string
		action FlagAction
	}{
		{`\Seen`, u.Seen},
		{`\Answered`, u.Answered},
		{`\Flagged`, u.Flagged},
		{`\Deleted`, u.Deleted},
		{`\Draft`, u.Draft},
	}
	for _, f := range system {
		switch f.action {
		case FlagAdd:
			add = append(add, f.name)
		case FlagRemove:
			remove = append(remove, f.name)
		}
	}

	keywords := make([]string, 0, len(u.Keywords))
	for k := range u.Keywords {
		keywords = append(keywords, k)
	}
	slices.Sort(keywords)
	for _, k := range keywords {
		if !isSafeFlag(k) {
			warnLog("dropping keyword that is not a valid flag atom", "keyword", k)
			continue
		}
		if u.Keywords[k] {
			add = append(add, k)
		} else {
			remove = append(remove, k)
		}
	}
	return add, remove
}

var systemFlags = map[string]bool{
	"SEEN":     true,
	"ANSWERED": true,
	"FLAGGED":  true,
	"DELETED":  true,
	"DRAFT":    true,
	"RECENT":   true,
}

// isSafeFlag reports whether flag, without its backslash, only contains
// characters that can appear in an unquoted flag atom.
func isSafeFlag(flag string) bool {
	flag = strings.TrimPrefix(flag, `\`)
	if flag == "" {
		return false
	}
	for i := 0; i < len(flag); i++ {
		c := flag[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '$', c == '_', c == '-', c == '.', c == '+':
		default:
			return false
		}
	}
	return true
}
