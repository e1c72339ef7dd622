package imap

import (
	"fmt"
	"io"
	"mime"
	"net/mail"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Envelope field positions
const (
	EDate uint8 = iota
	ESubject
	EFrom
	ESender
	EReplyTo
	ETo
	ECC
	EBCC
	EInReplyTo
	EMessageID
)

// Address field positions
const (
	EEName uint8 = iota
	EESR
	EEMailbox
	EEHost
)

// Address is one ENVELOPE address. NIL fields are empty strings; an address
// with every field empty is an RFC 2822 group marker.
type Address struct {
	Name        string
	SourceRoute string
	Mailbox     string
	Host        string
}

// Addr returns mailbox@host, or just the mailbox when there is no host.
func (a Address) Addr() string {
	if a.Host == "" {
		return a.Mailbox
	}
	return a.Mailbox + "@" + a.Host
}

// IsGroupMarker reports whether the address only delimits a group.
func (a Address) IsGroupMarker() bool {
	return a == Address{}
}

func (a Address) String() string {
	addr := a.Addr()
	switch {
	case a.Name == "":
		return addr
	case strings.ContainsAny(a.Name, `,"<>@`):
		return fmt.Sprintf(`"%s" <%s>`, AddSlashes.Replace(a.Name), addr)
	}
	return fmt.Sprintf("%s <%s>", a.Name, addr)
}

// AddressList is the addresses of one envelope field.
type AddressList []Address

func (l AddressList) String() string {
	parts := make([]string, 0, len(l))
	for _, a := range l {
		if a.IsGroupMarker() {
			continue
		}
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

// Envelope is the decoded ENVELOPE structure.
type Envelope struct {
	Date      time.Time
	DateRaw   string
	Subject   string
	From      AddressList
	Sender    AddressList
	ReplyTo   AddressList
	To        AddressList
	Cc        AddressList
	Bcc       AddressList
	InReplyTo string
	MessageID string
}

var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(label string, input io.Reader) (io.Reader, error) {
		enc, _ := charset.Lookup(label)
		if enc == nil {
			return nil, fmt.Errorf("unknown charset %q", label)
		}
		return enc.NewDecoder().Reader(input), nil
	},
}

// decodeHeaderWord decodes RFC 2047 encoded words and returns s unchanged
// when it cannot be decoded.
func decodeHeaderWord(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	dec, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		debugLog("keeping undecodable header text", "text", s, "error", err)
		return s
	}
	return dec
}

// DecodeEnvelope decodes an ENVELOPE list. Trailing fields a server leaves
// out read as NIL.
func DecodeEnvelope(t *Token) (*Envelope, error) {
	if err := checkType(t, []TType{TList}, "for ENVELOPE"); err != nil {
		return nil, err
	}
	f := t.Tokens
	if len(f) < 2 {
		return nil, &ParseError{Data: t.Encode(), Err: fmt.Errorf("ENVELOPE has %d fields, want 10", len(f))}
	}
	if len(f) < 10 {
		// Missing trailing fields read as NIL.
		f = append(slices.Clone(f), make([]*Token, 10-len(f))...)
	}
	for _, i := range []uint8{EDate, ESubject, EInReplyTo, EMessageID} {
		if f[i] == nil {
			continue
		}
		if err := checkType(f[i], []TType{TAtom, TQuoted, TLiteral}, "for ENVELOPE[%d]", i); err != nil {
			return nil, err
		}
	}

	env := &Envelope{
		DateRaw:   f[EDate].NString(),
		Subject:   decodeHeaderWord(f[ESubject].NString()),
		InReplyTo: f[EInReplyTo].NString(),
		MessageID: f[EMessageID].NString(),
	}
	if env.DateRaw != "" {
		if d, err := mail.ParseDate(env.DateRaw); err == nil {
			env.Date = d
		} else {
			debugLog("unparseable envelope date", "date", env.DateRaw, "error", err)
		}
	}

	fields := []struct {
		pos  uint8
		dest *AddressList
		name string
	}{
		{EFrom, &env.From, "FROM"},
		{ESender, &env.Sender, "SENDER"},
		{EReplyTo, &env.ReplyTo, "REPLY-TO"},
		{ETo, &env.To, "TO"},
		{ECC, &env.Cc, "CC"},
		{EBCC, &env.Bcc, "BCC"},
	}
	for _, field := range fields {
		list, err := decodeAddressList(f[field.pos], field.name)
		if err != nil {
			return nil, err
		}
		*field.dest = list
	}
	return env, nil
}

func decodeAddressList(t *Token, name string) (AddressList, error) {
	if t.IsNil() {
		return nil, nil
	}
	if err := checkType(t, []TType{TList}, "for %s", name); err != nil {
		return nil, err
	}
	list := make(AddressList, 0, len(t.Tokens))
	for i, a := range t.Tokens {
		if err := checkType(a, []TType{TList}, "for %s[%d]", name, i); err != nil {
			return nil, err
		}
		if len(a.Tokens) < 4 {
			return nil, &ParseError{Data: a.Encode(), Err: fmt.Errorf("%s[%d] has %d fields, want 4", name, i, len(a.Tokens))}
		}
		list = append(list, Address{
			Name:        decodeHeaderWord(a.Tokens[EEName].NString()),
			SourceRoute: a.Tokens[EESR].NString(),
			Mailbox:     a.Tokens[EEMailbox].NString(),
			Host:        a.Tokens[EEHost].NString(),
		})
	}
	return list, nil
}
