package imap

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func u64(v uint64) *uint64 { return &v }

func TestCompileSearch(t *testing.T) {
	day := func(y int, m time.Month, d, h int) time.Time { return time.Date(y, m, d, h, 30, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		filter   *Filter
		want     string
		residual bool
	}{
		{
			name:   "nil filter",
			filter: nil,
			want:   "SEARCH ALL",
		},
		{
			name:   "empty filter",
			filter: &Filter{},
			want:   "SEARCH ALL",
		},
		{
			name:   "uid range",
			filter: &Filter{UID: NumberBetween(5, 10)},
			want:   "SEARCH UID 5:10",
		},
		{
			name:   "uid open range",
			filter: &Filter{UID: NumberAtLeast(100)},
			want:   "SEARCH UID 100:*",
		},
		{
			name:   "exclusive bounds",
			filter: &Filter{UID: NumberRangeOf(NumberRange{Gt: u64(5), Lt: u64(10)})},
			want:   "SEARCH UID 6:9",
		},
		{
			name:     "empty range",
			filter:   &Filter{UID: NumberRangeOf(NumberRange{Gte: u64(10), Lte: u64(5)})},
			want:     "SEARCH ALL",
			residual: true,
		},
		{
			name:   "sequence set",
			filter: &Filter{Seq: NumberIn(1, 3, 9)},
			want:   "SEARCH 1,3,9",
		},
		{
			name:   "sequence at most",
			filter: &Filter{Seq: NumberAtMost(20)},
			want:   "SEARCH 1:20",
		},
		{
			name:     "sequence at most zero",
			filter:   &Filter{Seq: NumberAtMost(0)},
			want:     "SEARCH ALL",
			residual: true,
		},
		{
			name:     "uid zero",
			filter:   &Filter{UID: NumberIs(0)},
			want:     "SEARCH ALL",
			residual: true,
		},
		{
			name:   "exact size",
			filter: &Filter{Size: NumberIs(100)},
			want:   "SEARCH LARGER 99 SMALLER 101",
		},
		{
			name:   "size range",
			filter: &Filter{Size: NumberBetween(1000, 2000)},
			want:   "SEARCH LARGER 999 SMALLER 2001",
		},
		{
			name:     "size set",
			filter:   &Filter{Size: NumberIn(1, 2)},
			want:     "SEARCH ALL",
			residual: true,
		},
		{
			name:   "has none seen",
			filter: &Filter{Flags: &FlagCriterion{HasNone: []string{"Seen"}}},
			want:   "SEARCH NOT SEEN",
		},
		{
			name:   "flags with backslash and keywords",
			filter: &Filter{Flags: &FlagCriterion{HasEvery: []string{`\Flagged`, "$Work"}, HasNone: []string{"deleted"}}},
			want:   "SEARCH FLAGGED KEYWORD $WORK NOT DELETED",
		},
		{
			name:   "has some",
			filter: &Filter{Flags: &FlagCriterion{HasSome: []string{"Answered", "Flagged", "Draft"}}},
			want:   "SEARCH OR ANSWERED OR FLAGGED DRAFT",
		},
		{
			name:   "has some single",
			filter: &Filter{Flags: &FlagCriterion{HasSome: []string{"Seen"}}},
			want:   "SEARCH SEEN",
		},
		{
			name:   "mixed case keyword",
			filter: &Filter{Flags: &FlagCriterion{HasEvery: []string{"$Junk"}, HasNone: []string{"Seen"}}},
			want:   "SEARCH KEYWORD $JUNK NOT SEEN",
		},
		{
			name:     "keyword with digits",
			filter:   &Filter{Flags: &FlagCriterion{HasEvery: []string{"$Label1"}, HasNone: []string{"seen"}}},
			want:     "SEARCH NOT SEEN",
			residual: true,
		},
		{
			name:     "unsafe keyword",
			filter:   &Filter{Flags: &FlagCriterion{HasEvery: []string{"bad flag)"}}},
			want:     "SEARCH ALL",
			residual: true,
		},
		{
			name:     "received on",
			filter:   &Filter{ReceivedDate: DateOn(day(2024, time.March, 5, 14))},
			want:     "SEARCH ON 05-Mar-2024",
			residual: true,
		},
		{
			name:     "received between",
			filter:   &Filter{ReceivedDate: DateBetween(day(2024, time.March, 1, 9), day(2024, time.March, 31, 18))},
			want:     "SEARCH SINCE 01-Mar-2024 BEFORE 01-Apr-2024",
			residual: true,
		},
		{
			name:     "sent before",
			filter:   &Filter{Envelope: &EnvelopeFilter{Date: DateBefore(day(2023, time.December, 31, 1))}},
			want:     "SEARCH SENTBEFORE 01-Jan-2024",
			residual: true,
		},
		{
			name:   "subject contains",
			filter: &Filter{Envelope: &EnvelopeFilter{Subject: TextHas(`say "hi"`)}},
			want:   `SEARCH SUBJECT "say \"hi\""`,
		},
		{
			name:     "subject equals",
			filter:   &Filter{Envelope: &EnvelopeFilter{Subject: TextIs("Weekly report")}},
			want:     `SEARCH SUBJECT "Weekly report"`,
			residual: true,
		},
		{
			name:     "subject prefix",
			filter:   &Filter{Envelope: &EnvelopeFilter{Subject: TextPrefix("Re:")}},
			want:     "SEARCH ALL",
			residual: true,
		},
		{
			name:   "non ascii subject",
			filter: &Filter{Envelope: &EnvelopeFilter{Subject: TextHas("café")}},
			want:   `SEARCH CHARSET UTF-8 SUBJECT "café"`,
		},
		{
			name:   "line breaks removed",
			filter: &Filter{Envelope: &EnvelopeFilter{Subject: TextHas("a\r\nb")}},
			want:   `SEARCH SUBJECT "ab"`,
		},
		{
			name:     "exact from address",
			filter:   &Filter{Envelope: &EnvelopeFilter{From: AddressIs("alice", "example.com")}},
			want:     `SEARCH FROM "alice@example.com"`,
			residual: true,
		},
		{
			name:     "unsafe exact address",
			filter:   &Filter{Envelope: &EnvelopeFilter{To: AddressIs(`a" OR ALL`, "example.com")}},
			want:     "SEARCH ALL",
			residual: true,
		},
		{
			name: "header keys",
			filter: &Filter{Envelope: &EnvelopeFilter{
				Sender:    AddressHas("bot"),
				ReplyTo:   AddressHas("noreply"),
				Cc:        AddressHas("team"),
				Bcc:       AddressHas("audit"),
				InReplyTo: TextHas("<a@b>"),
				MessageID: TextHas("<c@d>"),
			}},
			want: `SEARCH HEADER SENDER "bot" HEADER REPLY-TO "noreply" CC "team" BCC "audit" HEADER IN-REPLY-TO "<a@b>" HEADER MESSAGE-ID "<c@d>"`,
		},
		{
			name: "combined",
			filter: &Filter{
				UID:   NumberAtLeast(10),
				Flags: &FlagCriterion{HasNone: []string{"Deleted"}},
				Envelope: &EnvelopeFilter{
					From: AddressHas("bob"),
				},
			},
			want: `SEARCH UID 10:* NOT DELETED FROM "bob"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompileSearch(tt.filter))
			assert.Equal(t, tt.residual, NeedsClientFilter(tt.filter))
		})
	}
}

func TestCompileSearchNeverLeaksUnsafeText(t *testing.T) {
	inputs := []string{"x\r\nA1 LOGOUT", `"`, `\`, "a)b(", "{5}"}
	for _, in := range inputs {
		got := CompileSearch(&Filter{Envelope: &EnvelopeFilter{Subject: TextHas(in)}})
		assert.NotContains(t, got, "\r")
		assert.NotContains(t, got, "\n")
		quoted := strings.TrimPrefix(got, "SEARCH SUBJECT ")
		tokens, err := ParseTokens(quoted)
		if assert.NoError(t, err, in) && assert.Len(t, tokens, 1, in) {
			assert.Equal(t, TQuoted, tokens[0].Type, in)
		}
	}
}
