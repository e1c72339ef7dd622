package imap

import (
	"context"
	"slices"
	"strings"
)

// FetchOptions selects the FETCH items to request. UID is always requested.
type FetchOptions struct {
	Flags         bool
	Size          bool
	InternalDate  bool
	Envelope      bool
	Headers       bool
	BodyStructure bool
	Body          bool
}

// DefaultFetchOptions requests everything but the full body.
var DefaultFetchOptions = FetchOptions{
	Flags:         true,
	Size:          true,
	InternalDate:  true,
	Envelope:      true,
	BodyStructure: true,
}

func (o FetchOptions) items() string {
	items := []string{"UID"}
	if o.Flags {
		items = append(items, "FLAGS")
	}
	if o.Size {
		items = append(items, "RFC822.SIZE")
	}
	if o.InternalDate {
		items = append(items, "INTERNALDATE")
	}
	if o.Envelope {
		items = append(items, "ENVELOPE")
	}
	if o.BodyStructure {
		items = append(items, "BODYSTRUCTURE")
	}
	if o.Headers {
		items = append(items, "BODY.PEEK[HEADER]")
	}
	if o.Body {
		items = append(items, "BODY.PEEK[]")
	}
	return "(" + strings.Join(items, " ") + ")"
}

// require widens o so that f and the sort keys can be evaluated locally.
func (o FetchOptions) require(f *Filter, keys []SortKey) FetchOptions {
	if f != nil {
		o.Flags = o.Flags || f.Flags != nil
		o.Size = o.Size || f.Size != nil
		o.InternalDate = o.InternalDate || f.ReceivedDate != nil
		o.Envelope = o.Envelope || f.Envelope != nil
	}
	for _, k := range keys {
		switch k.Field {
		case SortSize:
			o.Size = true
		case SortReceivedDate:
			o.InternalDate = true
		case SortDate, SortSubject, SortFrom:
			o.Envelope = true
		}
	}
	return o
}

// FindOptions drive Find. Limit caps the result, zero meaning no limit, and
// Offset skips results after sorting.
type FindOptions struct {
	Filter *Filter
	Sort   []SortKey
	Limit  int
	Offset int
	Fetch  FetchOptions
}

// Search runs the compiled filter against the selected mailbox and returns
// matching sequence numbers. Criteria the server cannot check exactly are
// widened; see NeedsClientFilter.
func (s *Session) Search(ctx context.Context, f *Filter) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search(ctx, f)
}

func (s *Session) search(ctx context.Context, f *Filter) ([]uint32, error) {
	if _, err := s.requireMailbox(); err != nil {
		return nil, err
	}
	resp, err := s.exec(ctx, CompileSearch(f), nil)
	if err != nil {
		return nil, err
	}
	return parseSearchResponse(resp.Logical())
}

// Fetch retrieves messages by sequence number in batches.
func (s *Session) Fetch(ctx context.Context, seqs []uint32, opts FetchOptions) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireMailbox(); err != nil {
		return nil, err
	}
	var out []*Message
	for start := 0; start < len(seqs); start += s.opts.FetchBatchSize {
		batch := seqs[start:min(start+s.opts.FetchBatchSize, len(seqs))]
		msgs, err := s.fetch(ctx, batch, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, msgs...)
	}
	return out, nil
}

// fetch requests one batch and returns the messages in the order of seqs.
func (s *Session) fetch(ctx context.Context, seqs []uint32, opts FetchOptions) ([]*Message, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	resp, err := s.exec(ctx, "FETCH "+formatNumSet(seqs)+" "+opts.items(), nil)
	if err != nil {
		return nil, err
	}
	bySeq := make(map[uint32]*Message, len(seqs))
	for _, m := range decodeFetchLines(s.log(), resp.Lines) {
		bySeq[m.Seq] = m
	}
	out := make([]*Message, 0, len(seqs))
	for _, seq := range seqs {
		if m, ok := bySeq[seq]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Find selects mailbox, searches, fetches, filters and sorts. When the sort
// order only depends on sequence numbers and a limit is set, messages are
// fetched in batches and fetching stops once the page is full.
func (s *Session) Find(ctx context.Context, mailbox string, opts FindOptions) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.selectMailbox(ctx, mailbox, false, true); err != nil {
		return nil, err
	}
	ids, err := s.search(ctx, opts.Filter)
	if err != nil {
		return nil, err
	}

	sorter := CompileSort(opts.Sort)
	residual := NeedsClientFilter(opts.Filter)
	fetchOpts := opts.Fetch
	if fetchOpts == (FetchOptions{}) {
		fetchOpts = DefaultFetchOptions
	}
	fetchOpts = fetchOpts.require(opts.Filter, opts.Sort)

	keep := func(m *Message) bool {
		return !residual || Match(opts.Filter, m)
	}

	if sorter.Limited {
		slices.SortFunc(ids, sorter.SeqCompare)
	}
	want := -1
	if opts.Limit > 0 {
		want = max(opts.Offset, 0) + opts.Limit
	}

	out := make([]*Message, 0)
	for start := 0; start < len(ids); start += s.opts.FetchBatchSize {
		batch := ids[start:min(start+s.opts.FetchBatchSize, len(ids))]
		msgs, err := s.fetch(ctx, batch, fetchOpts)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if keep(m) {
				out = append(out, m)
			}
		}
		if sorter.Limited && want >= 0 && len(out) >= want {
			s.debugLog("page filled early", "fetched", start+len(batch), "matched", len(ids))
			break
		}
	}

	if !sorter.Limited {
		slices.SortStableFunc(out, sorter.Compare)
	}
	return page(out, opts.Offset, opts.Limit), nil
}

func page(msgs []*Message, offset, limit int) []*Message {
	offset = max(offset, 0)
	if offset >= len(msgs) {
		return []*Message{}
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return msgs
}
