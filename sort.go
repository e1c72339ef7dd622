package imap

import (
	"cmp"
	"strings"
	"time"
)

// SortField names a message attribute to order by.
type SortField int

const (
	SortSeq SortField = iota
	SortUID
	SortSize
	SortReceivedDate
	SortDate
	SortSubject
	SortFrom
)

// NullPlacement decides where messages missing the sort field go.
type NullPlacement int

const (
	NullsLast NullPlacement = iota
	NullsFirst
)

// SortKey is one ordering key. Keys are applied in order; the first
// non-equal key wins.
type SortKey struct {
	Field SortField
	Desc  bool
	Nulls NullPlacement
}

// Sorter orders messages. Limited is true when the order is fully determined
// by sequence number, so a caller can sort the SEARCH result and fetch only
// the first page.
type Sorter struct {
	Keys       []SortKey
	SeqCompare func(a, b uint32) int
	Compare    func(a, b *Message) int
	Limited    bool
}

// CompileSort builds a Sorter. With no keys messages are in ascending
// sequence order.
func CompileSort(keys []SortKey) *Sorter {
	s := &Sorter{Keys: keys}
	desc := false
	if len(keys) == 0 || keys[0].Field == SortSeq {
		s.Limited = true
		if len(keys) > 0 {
			desc = keys[0].Desc
		}
	}
	if s.Limited {
		s.SeqCompare = func(a, b uint32) int {
			if desc {
				return cmp.Compare(b, a)
			}
			return cmp.Compare(a, b)
		}
	}
	s.Compare = func(a, b *Message) int {
		if len(keys) == 0 {
			return cmp.Compare(a.Seq, b.Seq)
		}
		for _, k := range keys {
			if c := compareKey(k, a, b); c != 0 {
				return c
			}
		}
		return 0
	}
	return s
}

func compareKey(k SortKey, a, b *Message) int {
	av, aok := sortValue(k.Field, a)
	bv, bok := sortValue(k.Field, b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		if k.Nulls == NullsFirst {
			return -1
		}
		return 1
	case !bok:
		if k.Nulls == NullsFirst {
			return 1
		}
		return -1
	}
	c := av.compare(bv)
	if k.Desc {
		return -c
	}
	return c
}

type sortVal struct {
	n uint64
	t time.Time
	s string
}

func (v sortVal) compare(o sortVal) int {
	if c := cmp.Compare(v.n, o.n); c != 0 {
		return c
	}
	if c := v.t.Compare(o.t); c != 0 {
		return c
	}
	return strings.Compare(v.s, o.s)
}

// sortValue extracts the key value and whether the message carries it.
func sortValue(f SortField, m *Message) (sortVal, bool) {
	switch f {
	case SortSeq:
		return sortVal{n: uint64(m.Seq)}, true
	case SortUID:
		return sortVal{n: uint64(m.UID)}, m.UID != 0
	case SortSize:
		return sortVal{n: m.Size}, true
	case SortReceivedDate:
		return sortVal{t: m.ReceivedDate}, !m.ReceivedDate.IsZero()
	case SortDate:
		if m.Envelope == nil || m.Envelope.Date.IsZero() {
			return sortVal{}, false
		}
		return sortVal{t: m.Envelope.Date}, true
	case SortSubject:
		if m.Envelope == nil {
			return sortVal{}, false
		}
		return sortVal{s: strings.ToLower(m.Envelope.Subject)}, true
	case SortFrom:
		if m.Envelope == nil || len(m.Envelope.From) == 0 {
			return sortVal{}, false
		}
		return sortVal{s: strings.ToLower(m.Envelope.From[0].Addr())}, true
	}
	return sortVal{}, false
}
