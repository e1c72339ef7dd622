package imap

import (
	"errors"
	"strings"
	"testing"
)

func TestParseTokensLiteralBoundary(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErr     bool
		errContains string
		wantTokens  int // children of the outer list
		wantSecond  string
	}{
		{
			name:       "empty literal {0}",
			input:      "(BODY {0}\r\n)",
			wantTokens: 2,
			wantSecond: "",
		},
		{
			name:       "literal with exact size",
			input:      "(BODY {5}\r\nHello)",
			wantTokens: 2,
			wantSecond: "Hello",
		},
		{
			name:       "non-synchronizing literal",
			input:      "(BODY {5+}\r\nHello)",
			wantTokens: 2,
			wantSecond: "Hello",
		},
		{
			name:        "literal size exceeds available data",
			input:       "(BODY {10}\r\nHello)",
			wantErr:     true,
			errContains: "literal declares 10 bytes but only 6 are available",
		},
		{
			name:        "literal at end with size but no data",
			input:       "(BODY {5}\r\n",
			wantErr:     true,
			errContains: "literal declares 5 bytes",
		},
		{
			name:       "literal containing parentheses and CRLF",
			input:      "(BODY {11}\r\n(a)\r\n)b\r\n\"x)",
			wantTokens: 2,
			wantSecond: "(a)\r\n)b\r\n\"x",
		},
		{
			name:       "multiple tokens with literal",
			input:      "(UID 7 BODY {5}\r\nHello FLAGS (\\Seen))",
			wantTokens: 6,
		},
		{
			name:        "literal without line break",
			input:       "(BODY {3}abc)",
			wantErr:     true,
			errContains: "not followed by a line break",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := ParseTokens(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTokens() error = nil, wantErr %v", tt.wantErr)
				}
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Errorf("ParseTokens() error = %T, want *ParseError", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ParseTokens() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTokens() unexpected error = %v", err)
			}
			if len(tokens) != 1 || tokens[0].Type != TList {
				t.Fatalf("ParseTokens() = %v, want a single list", tokens)
			}
			children := tokens[0].Tokens
			if len(children) != tt.wantTokens {
				t.Fatalf("ParseTokens() got %d children, want %d", len(children), tt.wantTokens)
			}
			if tt.wantSecond != "" || tt.name == "empty literal {0}" {
				if children[1].Type != TLiteral || children[1].Str != tt.wantSecond {
					t.Errorf("second token = %v, want literal %q", children[1], tt.wantSecond)
				}
			}
		})
	}
}

func TestReadTokenKinds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType TType
		wantStr  string
	}{
		{"atom", "INBOX rest", TAtom, "INBOX"},
		{"system flag atom", `\Seen)`, TAtom, `\Seen`},
		{"section atom", "BODY[HEADER.FIELDS (FROM TO)] x", TAtom, "BODY[HEADER.FIELDS (FROM TO)]"},
		{"partial atom", "BODY[]<0> {3}", TAtom, "BODY[]<0>"},
		{"response code atom", "[UIDNEXT 4392] Predicted", TAtom, "[UIDNEXT 4392]"},
		{"quoted", `"hello world" x`, TQuoted, "hello world"},
		{"quoted escapes", `"a \"b\" \\c"`, TQuoted, `a "b" \c`},
		{"empty quoted", `""`, TQuoted, ""},
		{"literal", "{3}\r\nabc", TLiteral, "abc"},
		{"literal bare LF", "{3}\nabc", TLiteral, "abc"},
		{"leading blanks", "   NIL", TAtom, "NIL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, _, err := ReadToken(tt.input, 0)
			if err != nil {
				t.Fatalf("ReadToken(%q) error = %v", tt.input, err)
			}
			if tok == nil {
				t.Fatalf("ReadToken(%q) = nil", tt.input)
			}
			if tok.Type != tt.wantType || tok.Str != tt.wantStr {
				t.Errorf("ReadToken(%q) = %v, want %s %q", tt.input, tok, GetTokenName(tt.wantType), tt.wantStr)
			}
		})
	}
}

func TestReadTokenStopsAtLineBreak(t *testing.T) {
	s := "A B\r\nC"
	tok, next, err := ReadToken(s, 0)
	if err != nil || tok == nil || tok.Str != "A" {
		t.Fatalf("first token = %v, %v", tok, err)
	}
	tok, next, err = ReadToken(s, next)
	if err != nil || tok == nil || tok.Str != "B" {
		t.Fatalf("second token = %v, %v", tok, err)
	}
	tok, next, err = ReadToken(s, next)
	if err != nil {
		t.Fatalf("ReadToken() error = %v", err)
	}
	if tok != nil {
		t.Errorf("ReadToken() at line break = %v, want nil", tok)
	}
	if next != 3 {
		t.Errorf("ReadToken() offset = %d, want 3", next)
	}
}

func TestParseTokensErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		errContains string
	}{
		{"unmatched close", "UID 7)", "unmatched ')'"},
		{"unclosed list", "(UID 7 FLAGS (\\Seen)", "mismatched parentheses"},
		{"unterminated quote", `"abc`, "unterminated quoted string"},
		{"unbalanced bracket", "BODY[HEADER", "unbalanced '['"},
		{"bad literal size", "{x}\r\nabc", "invalid literal size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTokens(tt.input)
			if err == nil {
				t.Fatalf("ParseTokens(%q) error = nil", tt.input)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ParseTokens(%q) error = %v, want %q", tt.input, err, tt.errContains)
			}
		})
	}
}

func TestTokenEncodeRoundTrip(t *testing.T) {
	inputs := []string{
		`(UID 7 FLAGS (\Seen \Answered) SUBJECT "hi \"there\"" BODY[] {5}` + "\r\nHello)",
		`("TEXT" "PLAIN" ("CHARSET" "UTF-8") NIL NIL "7BIT" 12 1 NIL NIL NIL NIL)`,
		`(() "")`,
	}
	for _, in := range inputs {
		tokens, err := ParseTokens(in)
		if err != nil {
			t.Fatalf("ParseTokens(%q) error = %v", in, err)
		}
		if len(tokens) != 1 {
			t.Fatalf("ParseTokens(%q) got %d tokens", in, len(tokens))
		}
		if got := tokens[0].Encode(); got != in {
			t.Errorf("Encode() = %q, want %q", got, in)
		}
	}
}

func TestTokenHelpers(t *testing.T) {
	tokens, err := ParseTokens(`NIL nil 42 "42" {2}` + "\r\nab (x)")
	if err != nil {
		t.Fatalf("ParseTokens() error = %v", err)
	}
	if len(tokens) != 6 {
		t.Fatalf("got %d tokens, want 6", len(tokens))
	}
	if !tokens[0].IsNil() || !tokens[1].IsNil() {
		t.Error("NIL atoms should report IsNil")
	}
	if n, ok := tokens[2].Number(); !ok || n != 42 {
		t.Errorf("Number() = %d, %v, want 42", n, ok)
	}
	if _, ok := tokens[3].Number(); ok {
		t.Error("a quoted string is not a number")
	}
	if !tokens[3].IsString() || !tokens[4].IsString() {
		t.Error("quoted strings and literals are strings")
	}
	if tokens[4].NString() != "ab" {
		t.Errorf("NString() = %q, want ab", tokens[4].NString())
	}
	if tokens[5].NString() != "" {
		t.Errorf("NString() of a list = %q, want empty", tokens[5].NString())
	}
	var missing *Token
	if !missing.IsNil() || missing.NString() != "" {
		t.Error("a missing token reads as NIL")
	}
}

func TestCheckType(t *testing.T) {
	tok := &Token{Type: TAtom, Str: "X"}
	if err := checkType(tok, []TType{TAtom, TQuoted}, "for test"); err != nil {
		t.Errorf("checkType() unexpected error = %v", err)
	}
	err := checkType(tok, []TType{TList}, "for FETCH %d", 3)
	if err == nil {
		t.Fatal("checkType() error = nil")
	}
	if !strings.Contains(err.Error(), "expected TList token for FETCH 3") {
		t.Errorf("checkType() error = %v", err)
	}
	if err := checkType(nil, []TType{TAtom}, "x"); err == nil || !strings.Contains(err.Error(), "got nothing") {
		t.Errorf("checkType(nil) error = %v", err)
	}
}
