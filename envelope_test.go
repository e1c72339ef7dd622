package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, s string) *Token {
	t.Helper()
	tokens, err := ParseTokens(s)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	return tokens[0]
}

func TestDecodeEnvelopeShort(t *testing.T) {
	env, err := DecodeEnvelope(parseOne(t, `(NIL "Subj" ((NIL NIL "user" "example.com")) NIL NIL NIL NIL NIL)`))
	require.NoError(t, err)

	assert.Equal(t, "Subj", env.Subject)
	assert.Equal(t, AddressList{{Mailbox: "user", Host: "example.com"}}, env.From)
	assert.Empty(t, env.To)
	assert.True(t, env.Date.IsZero())
	assert.Empty(t, env.MessageID)
}

func TestDecodeEnvelopeFull(t *testing.T) {
	env, err := DecodeEnvelope(parseOne(t, `("Mon, 7 Feb 1994 21:52:25 -0800" "=?UTF-8?B?SGVsbG8gV29ybGQ=?=" `+
		`(("Fred Foobar" NIL "foobar" "Blurdybloop.COM")) `+
		`(("Fred Foobar" NIL "foobar" "Blurdybloop.COM")) `+
		`(("Fred Foobar" NIL "foobar" "Blurdybloop.COM")) `+
		`((NIL NIL "imap" "cac.washington.edu")) `+
		`((NIL NIL "minutes" "CNRI.Reston.VA.US")("John Klensin" NIL "KLENSIN" "MIT.EDU")) `+
		`NIL NIL "<B27397-0100000@cac.washington.edu>")`))
	require.NoError(t, err)

	want := time.Date(1994, time.February, 7, 21, 52, 25, 0, time.FixedZone("", -8*60*60))
	assert.True(t, env.Date.Equal(want), "date = %v", env.Date)
	assert.Equal(t, "Mon, 7 Feb 1994 21:52:25 -0800", env.DateRaw)
	assert.Equal(t, "Hello World", env.Subject)
	require.Len(t, env.From, 1)
	assert.Equal(t, "Fred Foobar", env.From[0].Name)
	assert.Equal(t, "foobar@Blurdybloop.COM", env.From[0].Addr())
	assert.Equal(t, "imap@cac.washington.edu", env.To.String())
	require.Len(t, env.Cc, 2)
	assert.Equal(t, "minutes@CNRI.Reston.VA.US, John Klensin <KLENSIN@MIT.EDU>", env.Cc.String())
	assert.Nil(t, env.Bcc)
	assert.Empty(t, env.InReplyTo)
	assert.Equal(t, "<B27397-0100000@cac.washington.edu>", env.MessageID)
}

func TestDecodeEnvelopeEncodedWords(t *testing.T) {
	env, err := DecodeEnvelope(parseOne(t, `(NIL "=?ISO-8859-1?Q?Caf=E9?=" `+
		`(("=?UTF-8?Q?Andr=C3=A9?=" NIL "andre" "example.org")) NIL NIL NIL NIL NIL NIL NIL)`))
	require.NoError(t, err)
	assert.Equal(t, "Café", env.Subject)
	assert.Equal(t, "André", env.From[0].Name)
	assert.Equal(t, "André <andre@example.org>", env.From[0].String())
}

func TestDecodeEnvelopeLiteralSubject(t *testing.T) {
	env, err := DecodeEnvelope(parseOne(t, "(NIL {11}\r\nHello \"you\" NIL NIL NIL NIL NIL NIL NIL NIL)"))
	require.NoError(t, err)
	assert.Equal(t, `Hello "you"`, env.Subject)
}

func TestDecodeEnvelopeGroupSyntax(t *testing.T) {
	env, err := DecodeEnvelope(parseOne(t, `(NIL NIL NIL NIL NIL `+
		`((NIL NIL "team" NIL)(NIL NIL "a" "x.com")(NIL NIL NIL NIL)) NIL NIL NIL NIL)`))
	require.NoError(t, err)
	require.Len(t, env.To, 3)
	assert.True(t, env.To[2].IsGroupMarker())
	assert.Equal(t, "team, a@x.com", env.To.String())
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a list", `"x"`},
		{"too short", `(NIL)`},
		{"address not a list", `(NIL "s" "bogus" NIL NIL NIL NIL NIL NIL NIL)`},
		{"address too short", `(NIL "s" ((NIL "a" "b")) NIL NIL NIL NIL NIL NIL NIL)`},
		{"subject is a list", `(NIL ("s") NIL NIL NIL NIL NIL NIL NIL NIL)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope(parseOne(t, tt.input))
			var pe *ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}
