package imap

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// searchDateFormat is the IMAP date used by SEARCH keys.
const searchDateFormat = "02-Jan-2006"

var (
	safeMailboxRE = regexp.MustCompile(`^[A-Za-z0-9!#$%&'*+/=?^_{|}~.-]+$`)
	safeHostRE    = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)
)

// compiledSearch is a filter translated for the server. residual is set when
// some criterion could not be expressed exactly and the results must be
// checked again with Match.
type compiledSearch struct {
	terms    []string
	residual bool
	utf8     bool
}

func (c *compiledSearch) push(terms ...string) {
	c.terms = append(c.terms, terms...)
}

func (c *compiledSearch) quote(s string) string {
	if !isASCII(s) {
		c.utf8 = true
	}
	return quoteSearchString(s)
}

// CompileSearch translates f into a SEARCH command. Criteria that IMAP
// cannot express exactly are widened or left out, see NeedsClientFilter.
func CompileSearch(f *Filter) string {
	c := compileFilter(f)
	var b strings.Builder
	b.WriteString("SEARCH")
	if c.utf8 {
		b.WriteString(" CHARSET UTF-8")
	}
	if len(c.terms) == 0 {
		b.WriteString(" ALL")
	} else {
		b.WriteString(" ")
		b.WriteString(strings.Join(c.terms, " "))
	}
	return b.String()
}

// NeedsClientFilter reports whether the server results for f must be
// filtered locally with Match.
func NeedsClientFilter(f *Filter) bool {
	return compileFilter(f).residual
}

func compileFilter(f *Filter) *compiledSearch {
	c := &compiledSearch{}
	if f == nil {
		return c
	}
	if f.Seq != nil {
		c.numberSet("", f.Seq)
	}
	if f.UID != nil {
		c.numberSet("UID", f.UID)
	}
	if f.Size != nil {
		c.size(f.Size)
	}
	if f.ReceivedDate != nil {
		c.date("", f.ReceivedDate)
	}
	if f.Flags != nil {
		c.flags(f.Flags)
	}
	if e := f.Envelope; e != nil {
		if e.Date != nil {
			c.date("SENT", e.Date)
		}
		c.text("SUBJECT", e.Subject)
		c.address("FROM", e.From)
		c.address("HEADER SENDER", e.Sender)
		c.address("HEADER REPLY-TO", e.ReplyTo)
		c.address("TO", e.To)
		c.address("CC", e.Cc)
		c.address("BCC", e.Bcc)
		c.text("HEADER IN-REPLY-TO", e.InReplyTo)
		c.text("HEADER MESSAGE-ID", e.MessageID)
	}
	return c
}

func fmtNum(n uint64) string { return strconv.FormatUint(n, 10) }

// numberSet renders a sequence or UID criterion as a sequence set.
func (c *compiledSearch) numberSet(prefix string, n *NumberCriterion) {
	var set string
	switch n.Kind {
	case CriterionExact:
		if n.Exact == 0 {
			c.residual = true
			return
		}
		set = fmtNum(n.Exact)
	case CriterionSet:
		if len(n.Set) == 0 {
			c.residual = true
			return
		}
		parts := make([]string, len(n.Set))
		for i, v := range n.Set {
			parts[i] = fmtNum(v)
		}
		set = strings.Join(parts, ",")
	case CriterionRange:
		lo, hi, ok := n.Range.bounds()
		if !ok {
			c.residual = true
			return
		}
		if hi != nil && *hi == 0 {
			c.residual = true
			return
		}
		if lo == 0 && hi == nil {
			return
		}
		if lo == 0 {
			lo = 1
		}
		if hi == nil {
			set = fmtNum(lo) + ":*"
		} else {
			set = fmtNum(lo) + ":" + fmtNum(*hi)
		}
	}
	if prefix != "" {
		set = prefix + " " + set
	}
	c.push(set)
}

// bounds folds the four range bounds into inclusive lo and hi. hi is nil
// when the range is open above. ok is false when the range is empty.
func (r NumberRange) bounds() (lo uint64, hi *uint64, ok bool) {
	if r.Gte != nil && *r.Gte > lo {
		lo = *r.Gte
	}
	if r.Gt != nil && *r.Gt+1 > lo {
		lo = *r.Gt + 1
	}
	setHi := func(v uint64) {
		if hi == nil || v < *hi {
			hi = &v
		}
	}
	if r.Lte != nil {
		setHi(*r.Lte)
	}
	if r.Lt != nil {
		if *r.Lt == 0 {
			return 0, nil, false
		}
		setHi(*r.Lt - 1)
	}
	if hi != nil && lo > *hi {
		return 0, nil, false
	}
	return lo, hi, true
}

func (c *compiledSearch) size(n *NumberCriterion) {
	switch n.Kind {
	case CriterionExact:
		if n.Exact > 0 {
			c.push("LARGER " + fmtNum(n.Exact-1))
		}
		c.push("SMALLER " + fmtNum(n.Exact+1))
	case CriterionRange:
		lo, hi, ok := n.Range.bounds()
		if !ok {
			c.residual = true
			return
		}
		if lo > 0 {
			c.push("LARGER " + fmtNum(lo-1))
		}
		if hi != nil {
			c.push("SMALLER " + fmtNum(*hi+1))
		}
	case CriterionSet:
		c.residual = true
	}
}

// date renders a date criterion at day granularity. The server sees a
// superset: lower bounds become SINCE the bound's day and upper bounds BEFORE
// the following day. The exact instants are then applied by Match.
func (c *compiledSearch) date(prefix string, d *DateCriterion) {
	c.residual = true
	day := func(t time.Time) string { return t.Format(searchDateFormat) }
	switch d.Kind {
	case CriterionExact:
		c.push(prefix + "ON " + day(d.Exact))
	case CriterionRange:
		r := d.Range
		lo := r.Gte
		if lo.IsZero() || (!r.Gt.IsZero() && r.Gt.After(lo)) {
			lo = r.Gt
		}
		hi := r.Lte
		if hi.IsZero() || (!r.Lt.IsZero() && r.Lt.Before(hi)) {
			hi = r.Lt
		}
		if !lo.IsZero() {
			c.push(prefix + "SINCE " + day(lo))
		}
		if !hi.IsZero() {
			c.push(prefix + "BEFORE " + day(hi.AddDate(0, 0, 1)))
		}
	}
}

func (c *compiledSearch) flags(f *FlagCriterion) {
	for _, flag := range f.HasEvery {
		if t, ok := c.flagTerm(flag); ok {
			c.push(t)
		}
	}
	if len(f.HasSome) > 0 {
		var terms []string
		for _, flag := range f.HasSome {
			if t, ok := c.flagTerm(flag); ok {
				terms = append(terms, t)
			}
		}
		if len(terms) > 0 {
			or := terms[len(terms)-1]
			for i := len(terms) - 2; i >= 0; i-- {
				or = "OR " + terms[i] + " " + or
			}
			c.push(or)
		}
	}
	for _, flag := range f.HasNone {
		if t, ok := c.flagTerm(flag); ok {
			c.push("NOT " + t)
		}
	}
}

// flagTerm returns the SEARCH key testing one flag. Flags are sent upper
// case; names outside A-Z $ + - _ . are left to the client matcher.
func (c *compiledSearch) flagTerm(flag string) (string, bool) {
	upper := strings.ToUpper(strings.TrimPrefix(flag, `\`))
	if !isSearchFlag(upper) {
		warnLog("flag not sent to server, filtering locally", "flag", flag)
		c.residual = true
		return "", false
	}
	if systemFlags[upper] {
		return upper, true
	}
	return "KEYWORD " + upper, true
}

func isSearchFlag(flag string) bool {
	if flag == "" {
		return false
	}
	for i := 0; i < len(flag); i++ {
		switch c := flag[i]; {
		case c >= 'A' && c <= 'Z':
		case c == '$', c == '+', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func (c *compiledSearch) text(key string, t *TextCriterion) {
	if t == nil {
		return
	}
	switch t.Match {
	case TextContains:
	case TextEquals:
		c.residual = true
	default:
		c.residual = true
		return
	}
	c.push(key + " " + c.quote(t.Value))
}

func (c *compiledSearch) address(key string, a *AddressCriterion) {
	if a == nil {
		return
	}
	// Server address matching is substring based, so exact matches are
	// always rechecked.
	if a.Exact != nil {
		c.residual = true
		if !safeMailboxRE.MatchString(a.Exact.Mailbox) || !safeHostRE.MatchString(a.Exact.Host) {
			warnLog("address not sent to server, filtering locally", "field", key, "address", a.Exact.Addr())
			return
		}
		c.push(key + " " + c.quote(a.Exact.Addr()))
		return
	}
	if a.Text != nil {
		c.text(key, a.Text)
	}
}
