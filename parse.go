package imap

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	nl         = "\r\n"
	TimeFormat = "_2-Jan-2006 15:04:05 -0700"
)

// Token represents a parsed IMAP token
type Token struct {
	Type   TType
	Str    string
	Tokens []*Token
}

// TType represents the type of an IMAP token
type TType uint8

const (
	TUnset TType = iota
	TAtom
	TQuoted
	TLiteral
	TList
)

// ReadToken reads the next token of s at or after pos and returns it together
// with the offset just past it. A nil token means there is no value left: the
// input is exhausted or a line break was reached outside of a list or literal.
func ReadToken(s string, pos int) (*Token, int, error) {
	i := skipBlanks(s, pos)
	if i >= len(s) || s[i] == '\r' || s[i] == '\n' {
		return nil, i, nil
	}
	if s[i] == ')' {
		return nil, i, parseErrorf(s, "unmatched ')' at offset %d", i)
	}
	return readValue(s, i)
}

// ParseTokens reads every token of s.
func ParseTokens(s string) ([]*Token, error) {
	tokens := make([]*Token, 0)
	pos := 0
	for {
		t, next, err := ReadToken(s, pos)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return tokens, nil
		}
		tokens = append(tokens, t)
		pos = next
	}
}

func skipBlanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func skipListSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r' || s[i] == '\n') {
		i++
	}
	return i
}

func readValue(s string, i int) (*Token, int, error) {
	switch s[i] {
	case '"':
		return readQuoted(s, i)
	case '{':
		return readLiteral(s, i)
	case '(':
		return readList(s, i)
	}
	return readAtom(s, i)
}

func readQuoted(s string, i int) (*Token, int, error) {
	var b strings.Builder
	for j := i + 1; j < len(s); j++ {
		switch c := s[j]; c {
		case '\\':
			if j+1 >= len(s) {
				return nil, len(s), parseErrorf(s, "unterminated quoted string at offset %d", i)
			}
			j++
			b.WriteByte(s[j])
		case '"':
			return &Token{Type: TQuoted, Str: b.String()}, j + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return nil, len(s), parseErrorf(s, "unterminated quoted string at offset %d", i)
}

// readLiteral reads {N}, the line break after it and exactly N bytes. The
// declared count is the only thing that decides where the literal ends.
func readLiteral(s string, i int) (*Token, int, error) {
	end := strings.IndexByte(s[i:], '}')
	if end < 0 {
		return nil, len(s), parseErrorf(s, "unterminated literal size at offset %d", i)
	}
	digits := strings.TrimSuffix(s[i+1:i+end], "+")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return nil, len(s), parseErrorf(s, "invalid literal size %q at offset %d", s[i:i+end+1], i)
	}

	j := i + end + 1
	if j < len(s) && s[j] == '\r' {
		j++
	}
	if j >= len(s) || s[j] != '\n' {
		if n == 0 && j >= len(s) {
			return &Token{Type: TLiteral}, j, nil
		}
		return nil, len(s), parseErrorf(s, "literal size at offset %d not followed by a line break", i)
	}
	j++

	if len(s)-j < n {
		return nil, len(s), parseErrorf(s, "literal declares %d bytes but only %d are available", n, len(s)-j)
	}
	return &Token{Type: TLiteral, Str: s[j : j+n]}, j + n, nil
}

// readAtom reads up to whitespace or a structural character. A '[' opens a
// section that runs to its matching ']', so BODY[HEADER.FIELDS (FROM)] and
// response codes stay one atom.
func readAtom(s string, i int) (*Token, int, error) {
	j := i
	depth := 0
	for j < len(s) {
		c := s[j]
		if c == '\r' || c == '\n' {
			break
		}
		if depth > 0 {
			switch c {
			case '[':
				depth++
			case ']':
				depth--
			}
			j++
			continue
		}
		if c == ' ' || c == '\t' || c == '(' || c == ')' || c == '{' {
			break
		}
		if c == '[' {
			depth++
		}
		j++
	}
	if depth > 0 {
		return nil, j, parseErrorf(s, "unbalanced '[' in atom at offset %d", i)
	}
	return &Token{Type: TAtom, Str: s[i:j]}, j, nil
}

func readList(s string, i int) (*Token, int, error) {
	list := &Token{Type: TList, Tokens: make([]*Token, 0, 4)}
	j := i + 1
	for {
		j = skipListSpace(s, j)
		if j >= len(s) {
			return nil, j, parseErrorf(s, "mismatched parentheses, list opened at offset %d is never closed", i)
		}
		if s[j] == ')' {
			return list, j + 1, nil
		}
		t, next, err := readValue(s, j)
		if err != nil {
			return nil, next, err
		}
		list.Tokens = append(list.Tokens, t)
		j = next
	}
}

// Encode renders the token back into wire syntax.
func (t *Token) Encode() string {
	var b strings.Builder
	t.encode(&b)
	return b.String()
}

func (t *Token) encode(b *strings.Builder) {
	switch t.Type {
	case TAtom:
		b.WriteString(t.Str)
	case TQuoted:
		b.WriteString(quoteString(t.Str))
	case TLiteral:
		b.WriteString(MakeIMAPLiteral(t.Str))
	case TList:
		b.WriteByte('(')
		for i, c := range t.Tokens {
			if i != 0 {
				b.WriteByte(' ')
			}
			c.encode(b)
		}
		b.WriteByte(')')
	}
}

// IsNil reports whether the token is absent or the NIL atom.
func (t *Token) IsNil() bool {
	return t == nil || (t.Type == TAtom && strings.EqualFold(t.Str, "NIL"))
}

// IsString reports whether the token is a quoted string or a literal.
// Literals and quoted strings are interchangeable everywhere downstream.
func (t *Token) IsString() bool {
	return t != nil && (t.Type == TQuoted || t.Type == TLiteral)
}

// Number parses an atom as an unsigned number.
func (t *Token) Number() (uint64, bool) {
	if t == nil || t.Type != TAtom {
		return 0, false
	}
	n, err := strconv.ParseUint(t.Str, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NString returns the text of an atom or string, and "" for NIL or lists.
func (t *Token) NString() string {
	if t.IsNil() || t.Type == TList {
		return ""
	}
	return t.Str
}

// GetTokenName returns the string name of a token type
func GetTokenName(tokenType TType) string {
	switch tokenType {
	case TUnset:
		return "TUnset"
	case TAtom:
		return "TAtom"
	case TQuoted:
		return "TQuoted"
	case TLiteral:
		return "TLiteral"
	case TList:
		return "TList"
	}
	return ""
}

// String returns a string representation of a Token
func (t Token) String() string {
	tokenType := GetTokenName(t.Type)
	switch t.Type {
	case TUnset:
		return tokenType
	case TQuoted, TLiteral:
		return fmt.Sprintf("(%s, len %d, chars %d %#v)", tokenType, len(t.Str), len([]rune(t.Str)), t.Str)
	case TAtom:
		return fmt.Sprintf("(%s %s)", tokenType, t.Str)
	case TList:
		return fmt.Sprintf("(%s children: %s)", tokenType, t.Tokens)
	}
	return ""
}

// checkType validates that a token is one of the acceptable types
func checkType(token *Token, acceptableTypes []TType, loc string, v ...any) error {
	if token != nil {
		for _, a := range acceptableTypes {
			if token.Type == a {
				return nil
			}
		}
	}
	types := make([]string, len(acceptableTypes))
	for i, a := range acceptableTypes {
		types[i] = GetTokenName(a)
	}
	got := "nothing"
	if token != nil {
		got = token.String()
	}
	return &ParseError{Err: fmt.Errorf("expected %s token %s, got %s", strings.Join(types, "|"), fmt.Sprintf(loc, v...), got)}
}
