package imap

import (
	"slices"
	"strings"
	"time"
)

// CriterionKind selects which field of a criterion is in effect.
type CriterionKind int

const (
	CriterionExact CriterionKind = iota
	CriterionRange
	CriterionSet
)

// NumberRange bounds a numeric field. Nil bounds are open.
type NumberRange struct {
	Gte, Lte, Gt, Lt *uint64
}

// NumberCriterion matches a numeric field exactly, against a range or
// against a set of values.
type NumberCriterion struct {
	Kind  CriterionKind
	Exact uint64
	Range NumberRange
	Set   []uint64
}

// NumberIs matches v exactly.
func NumberIs(v uint64) *NumberCriterion {
	return &NumberCriterion{Kind: CriterionExact, Exact: v}
}

// NumberIn matches any of vs.
func NumberIn(vs ...uint64) *NumberCriterion {
	return &NumberCriterion{Kind: CriterionSet, Set: vs}
}

// NumberRangeOf matches an arbitrary range.
func NumberRangeOf(r NumberRange) *NumberCriterion {
	return &NumberCriterion{Kind: CriterionRange, Range: r}
}

// NumberBetween matches lo <= v <= hi.
func NumberBetween(lo, hi uint64) *NumberCriterion {
	return NumberRangeOf(NumberRange{Gte: &lo, Lte: &hi})
}

// NumberAtLeast matches v >= lo.
func NumberAtLeast(lo uint64) *NumberCriterion {
	return NumberRangeOf(NumberRange{Gte: &lo})
}

// NumberAtMost matches v <= hi.
func NumberAtMost(hi uint64) *NumberCriterion {
	return NumberRangeOf(NumberRange{Lte: &hi})
}

func (c *NumberCriterion) matches(v uint64) bool {
	switch c.Kind {
	case CriterionExact:
		return v == c.Exact
	case CriterionSet:
		return slices.Contains(c.Set, v)
	}
	r := c.Range
	return (r.Gte == nil || v >= *r.Gte) &&
		(r.Gt == nil || v > *r.Gt) &&
		(r.Lte == nil || v <= *r.Lte) &&
		(r.Lt == nil || v < *r.Lt)
}

// DateRange bounds a date field. Zero bounds are open.
type DateRange struct {
	Gte, Lte, Gt, Lt time.Time
}

// DateCriterion matches a date field. Comparisons are at millisecond
// precision.
type DateCriterion struct {
	Kind  CriterionKind
	Exact time.Time
	Range DateRange
	Set   []time.Time
}

// DateOn matches t exactly.
func DateOn(t time.Time) *DateCriterion {
	return &DateCriterion{Kind: CriterionExact, Exact: t}
}

// DateIn matches any of ts.
func DateIn(ts ...time.Time) *DateCriterion {
	return &DateCriterion{Kind: CriterionSet, Set: ts}
}

// DateRangeOf matches an arbitrary range.
func DateRangeOf(r DateRange) *DateCriterion {
	return &DateCriterion{Kind: CriterionRange, Range: r}
}

// DateSince matches dates at or after t.
func DateSince(t time.Time) *DateCriterion {
	return DateRangeOf(DateRange{Gte: t})
}

// DateBefore matches dates strictly before t.
func DateBefore(t time.Time) *DateCriterion {
	return DateRangeOf(DateRange{Lt: t})
}

// DateBetween matches from <= d <= to.
func DateBetween(from, to time.Time) *DateCriterion {
	return DateRangeOf(DateRange{Gte: from, Lte: to})
}

func (c *DateCriterion) matches(t time.Time) bool {
	ms := t.UnixMilli()
	switch c.Kind {
	case CriterionExact:
		return ms == c.Exact.UnixMilli()
	case CriterionSet:
		return slices.ContainsFunc(c.Set, func(s time.Time) bool { return s.UnixMilli() == ms })
	}
	r := c.Range
	return (r.Gte.IsZero() || ms >= r.Gte.UnixMilli()) &&
		(r.Gt.IsZero() || ms > r.Gt.UnixMilli()) &&
		(r.Lte.IsZero() || ms <= r.Lte.UnixMilli()) &&
		(r.Lt.IsZero() || ms < r.Lt.UnixMilli())
}

// TextMatch selects how a TextCriterion compares.
type TextMatch int

const (
	TextContains TextMatch = iota
	TextEquals
	TextStartsWith
	TextEndsWith
)

// TextCriterion matches text case-insensitively.
type TextCriterion struct {
	Match TextMatch
	Value string
}

// TextIs matches the whole value.
func TextIs(v string) *TextCriterion { return &TextCriterion{Match: TextEquals, Value: v} }

// TextHas matches a substring.
func TextHas(v string) *TextCriterion { return &TextCriterion{Match: TextContains, Value: v} }

// TextPrefix matches a prefix.
func TextPrefix(v string) *TextCriterion { return &TextCriterion{Match: TextStartsWith, Value: v} }

// TextSuffix matches a suffix.
func TextSuffix(v string) *TextCriterion { return &TextCriterion{Match: TextEndsWith, Value: v} }

func (c *TextCriterion) matches(s string) bool {
	s, v := strings.ToLower(s), strings.ToLower(c.Value)
	switch c.Match {
	case TextEquals:
		return s == v
	case TextStartsWith:
		return strings.HasPrefix(s, v)
	case TextEndsWith:
		return strings.HasSuffix(s, v)
	}
	return strings.Contains(s, v)
}

// FlagCriterion matches the flag set of a message. Flag names may be given
// with or without the system flag backslash.
type FlagCriterion struct {
	HasEvery []string
	HasSome  []string
	HasNone  []string
}

func (c *FlagCriterion) matches(set FlagSet) bool {
	for _, f := range c.HasEvery {
		if !set.Has(f) {
			return false
		}
	}
	if len(c.HasSome) > 0 && !slices.ContainsFunc(c.HasSome, set.Has) {
		return false
	}
	for _, f := range c.HasNone {
		if set.Has(f) {
			return false
		}
	}
	return true
}

// AddressCriterion matches an address list: any address matching is enough.
type AddressCriterion struct {
	// Exact, when set, must equal an address's mailbox@host.
	Exact *Address
	// Text matches the display name or the mailbox@host text.
	Text *TextCriterion
}

// AddressIs matches mailbox@host exactly.
func AddressIs(mailbox, host string) *AddressCriterion {
	return &AddressCriterion{Exact: &Address{Mailbox: mailbox, Host: host}}
}

// AddressHas matches a substring of the name or address.
func AddressHas(text string) *AddressCriterion {
	return &AddressCriterion{Text: TextHas(text)}
}

func (c *AddressCriterion) matches(list AddressList) bool {
	for _, a := range list {
		if a.IsGroupMarker() {
			continue
		}
		if c.Exact != nil {
			if strings.EqualFold(a.Mailbox, c.Exact.Mailbox) && strings.EqualFold(a.Host, c.Exact.Host) {
				return true
			}
			continue
		}
		if c.Text != nil && (c.Text.matches(a.Addr()) || c.Text.matches(a.Name) || c.Text.matches(a.String())) {
			return true
		}
	}
	return false
}

// EnvelopeFilter holds criteria on ENVELOPE fields.
type EnvelopeFilter struct {
	Date      *DateCriterion
	Subject   *TextCriterion
	From      *AddressCriterion
	Sender    *AddressCriterion
	ReplyTo   *AddressCriterion
	To        *AddressCriterion
	Cc        *AddressCriterion
	Bcc       *AddressCriterion
	InReplyTo *TextCriterion
	MessageID *TextCriterion
}

// Filter selects messages. Every non-nil criterion must match.
type Filter struct {
	Seq          *NumberCriterion
	UID          *NumberCriterion
	Size         *NumberCriterion
	ReceivedDate *DateCriterion
	Flags        *FlagCriterion
	Envelope     *EnvelopeFilter
}
