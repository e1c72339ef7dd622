package imap

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Mailbox is the selected mailbox as reported by SELECT or EXAMINE.
type Mailbox struct {
	Name           string
	ReadOnly       bool
	Delimiter      string
	Flags          []string
	PermanentFlags []string
	Exists         uint32
	Recent         uint32
	Unseen         uint32
	FirstUnseen    uint32
	UIDNext        uint32
	UIDValidity    uint32
}

func (m *Mailbox) clone() *Mailbox {
	c := *m
	c.Flags = slices.Clone(m.Flags)
	c.PermanentFlags = slices.Clone(m.PermanentFlags)
	return &c
}

// FolderStats represents statistics for a folder
type FolderStats struct {
	Name    string
	Count   uint32
	Unseen  uint32
	UIDNext uint32
	Error   error
}

// Mailbox returns a copy of the selected mailbox, or nil.
func (s *Session) Mailbox() *Mailbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mailbox == nil {
		return nil
	}
	return s.mailbox.clone()
}

// Select opens a mailbox read-write. With allowStale set, a mailbox that is
// already selected is returned from cache without a round trip.
func (s *Session) Select(ctx context.Context, name string, allowStale bool) (*Mailbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectMailbox(ctx, name, false, allowStale)
}

// Examine opens a mailbox read-only.
func (s *Session) Examine(ctx context.Context, name string) (*Mailbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectMailbox(ctx, name, true, false)
}

func (s *Session) selectMailbox(ctx context.Context, name string, readOnly, allowStale bool) (*Mailbox, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	if allowStale && s.mailbox != nil && s.mailbox.Name == name && s.mailbox.ReadOnly == readOnly {
		return s.mailbox.clone(), nil
	}

	s.setState(StateMailboxSelecting)
	verb := "SELECT"
	if readOnly {
		verb = "EXAMINE"
	}
	resp, err := s.exec(ctx, verb+" "+quoteMailbox(name), nil)
	if err != nil {
		if s.connected {
			// A failed SELECT leaves no mailbox selected.
			s.mailbox = nil
		}
		return nil, err
	}

	mb := parseSelectResponse(name, resp)
	mb.ReadOnly = readOnly || strings.EqualFold(codeName(resp.Code), "READ-ONLY")
	mb.Delimiter = s.hierarchyDelimiter(ctx)

	st, err := s.status(ctx, name, "UNSEEN")
	switch {
	case err == nil:
		mb.Unseen = st.Unseen
	case isConnectionError(err) || !s.connected:
		return nil, err
	default:
		s.warnLog("could not read unseen count", "mailbox", name, "error", err)
	}

	s.mailbox = mb
	s.restore = nil
	s.debugLog("mailbox selected", "mailbox", name, "exists", mb.Exists, "read_only", mb.ReadOnly)
	return mb.clone(), nil
}

func parseSelectResponse(name string, resp *Response) *Mailbox {
	mb := &Mailbox{Name: name}
	for _, line := range resp.Logical() {
		if n, kind, ok := parseUntaggedCount(line); ok {
			switch kind {
			case "EXISTS":
				mb.Exists = n
			case "RECENT":
				mb.Recent = n
			}
			continue
		}
		if data, ok := untaggedData(line, "FLAGS"); ok {
			mb.Flags = parseFlagList(data)
			continue
		}
		sl, ok := parseStatusLine(line)
		if !ok || sl.Tag != "*" || sl.Code == "" {
			continue
		}
		arg := codeArg(sl.Code)
		switch codeName(sl.Code) {
		case "UNSEEN":
			mb.FirstUnseen = parseUint32(arg)
		case "UIDNEXT":
			mb.UIDNext = parseUint32(arg)
		case "UIDVALIDITY":
			mb.UIDValidity = parseUint32(arg)
		case "PERMANENTFLAGS":
			mb.PermanentFlags = parseFlagList(arg)
		}
	}
	return mb
}

func parseFlagList(data string) []string {
	t, _, err := ReadToken(data, 0)
	if err != nil || t == nil || t.Type != TList {
		return nil
	}
	flags := make([]string, 0, len(t.Tokens))
	for _, f := range t.Tokens {
		flags = append(flags, f.Str)
	}
	return flags
}

func parseUint32(s string) uint32 {
	t := &Token{Type: TAtom, Str: strings.TrimSpace(s)}
	n, _ := t.Number()
	return uint32(n)
}

// hierarchyDelimiter returns the cached delimiter, asking the server once.
func (s *Session) hierarchyDelimiter(ctx context.Context) string {
	if s.delimiter != "" {
		return s.delimiter
	}
	resp, err := s.exec(ctx, `LIST "" ""`, nil)
	if err != nil {
		s.debugLog("could not read hierarchy delimiter", "error", err)
		return ""
	}
	for _, line := range resp.Logical() {
		if info, err := parseListResponse(line); err == nil {
			s.delimiter = info.Delimiter
			break
		}
	}
	return s.delimiter
}

// CloseMailbox closes the selected mailbox, expunging deleted messages when
// it was opened read-write.
func (s *Session) CloseMailbox(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireMailbox(); err != nil {
		return err
	}
	if _, err := s.exec(ctx, "CLOSE", nil); err != nil {
		return err
	}
	s.mailbox = nil
	s.restore = nil
	return nil
}

// List returns the mailboxes matching pattern under reference.
func (s *Session) List(ctx context.Context, reference, pattern string) ([]*MailboxInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx, reference, pattern)
}

func (s *Session) list(ctx context.Context, reference, pattern string) ([]*MailboxInfo, error) {
	resp, err := s.exec(ctx, "LIST "+quoteMailbox(reference)+" "+quoteMailbox(pattern), nil)
	if err != nil {
		return nil, err
	}
	infos := make([]*MailboxInfo, 0)
	for _, line := range resp.Logical() {
		if _, ok := untaggedData(line, "LIST"); !ok {
			continue
		}
		info, err := parseListResponse(line)
		if err != nil {
			s.warnLog("skipping undecodable LIST response", "error", err)
			continue
		}
		if info.Delimiter != "" && s.delimiter == "" {
			s.delimiter = info.Delimiter
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Folders returns the names of every mailbox.
func (s *Session) Folders(ctx context.Context) ([]string, error) {
	infos, err := s.List(ctx, "", "*")
	if err != nil {
		return nil, err
	}
	folders := make([]string, 0, len(infos))
	for _, info := range infos {
		folders = append(folders, info.Name)
	}
	return folders, nil
}

// Status asks for mailbox counters without selecting it. With no items,
// MESSAGES RECENT UIDNEXT UIDVALIDITY UNSEEN are requested.
func (s *Session) Status(ctx context.Context, name string, items ...string) (*MailboxStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status(ctx, name, items...)
}

func (s *Session) status(ctx context.Context, name string, items ...string) (*MailboxStatus, error) {
	if len(items) == 0 {
		items = []string{"MESSAGES", "RECENT", "UIDNEXT", "UIDVALIDITY", "UNSEEN"}
	}
	resp, err := s.exec(ctx, "STATUS "+quoteMailbox(name)+" ("+strings.Join(items, " ")+")", nil)
	if err != nil {
		return nil, err
	}
	for _, line := range resp.Logical() {
		if _, ok := untaggedData(line, "STATUS"); !ok {
			continue
		}
		return parseStatusResponse(line)
	}
	return nil, &ParseError{Err: fmt.Errorf("no STATUS response for %q", name)}
}

// CreateMailbox creates a mailbox.
func (s *Session) CreateMailbox(ctx context.Context, name string) error {
	return s.simple(ctx, "CREATE "+quoteMailbox(name))
}

// DeleteMailbox deletes a mailbox. Deleting the selected mailbox clears the
// selection.
func (s *Session) DeleteMailbox(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.exec(ctx, "DELETE "+quoteMailbox(name), nil); err != nil {
		return err
	}
	if s.mailbox != nil && s.mailbox.Name == name {
		s.mailbox = nil
	}
	return nil
}

// RenameMailbox renames a mailbox.
func (s *Session) RenameMailbox(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.exec(ctx, "RENAME "+quoteMailbox(from)+" "+quoteMailbox(to), nil); err != nil {
		return err
	}
	if s.mailbox != nil && s.mailbox.Name == from {
		s.mailbox.Name = to
	}
	return nil
}

// Subscribe adds a mailbox to the subscription list.
func (s *Session) Subscribe(ctx context.Context, name string) error {
	return s.simple(ctx, "SUBSCRIBE "+quoteMailbox(name))
}

// Unsubscribe removes a mailbox from the subscription list.
func (s *Session) Unsubscribe(ctx context.Context, name string) error {
	return s.simple(ctx, "UNSUBSCRIBE "+quoteMailbox(name))
}

func (s *Session) simple(ctx context.Context, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.exec(ctx, command, nil)
	return err
}

// GetFolderStats returns statistics for every mailbox from startFolder on,
// skipping excluded ones. Counters come from STATUS so the selected mailbox
// is left alone. A mailbox that fails carries its error in the result.
func (s *Session) GetFolderStats(ctx context.Context, startFolder string, excludedFolders ...string) ([]FolderStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos, err := s.list(ctx, "", "*")
	if err != nil {
		return nil, err
	}

	startFound := startFolder == ""
	stats := make([]FolderStats, 0, len(infos))
	for _, info := range infos {
		if !startFound {
			if info.Name != startFolder {
				continue
			}
			startFound = true
		}
		if slices.Contains(excludedFolders, info.Name) || slices.ContainsFunc(info.Attributes, func(a string) bool {
			return strings.EqualFold(a, `\Noselect`) || strings.EqualFold(a, `\NonExistent`)
		}) {
			continue
		}

		stat := FolderStats{Name: info.Name}
		st, err := s.status(ctx, info.Name, "MESSAGES", "UIDNEXT", "UNSEEN")
		if err != nil {
			if isConnectionError(err) || !s.connected {
				return stats, err
			}
			stat.Error = err
		} else {
			stat.Count = st.Messages
			stat.Unseen = st.Unseen
			stat.UIDNext = st.UIDNext
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// GetTotalEmailCount returns the message count across mailboxes, skipping
// excluded ones and those that fail.
func (s *Session) GetTotalEmailCount(ctx context.Context, excludedFolders ...string) (uint64, []error, error) {
	stats, err := s.GetFolderStats(ctx, "", excludedFolders...)
	if err != nil {
		return 0, nil, err
	}
	var count uint64
	var folderErrors []error
	for _, st := range stats {
		if st.Error != nil {
			folderErrors = append(folderErrors, fmt.Errorf("folder %s: %w", st.Name, st.Error))
			continue
		}
		count += uint64(st.Count)
	}
	return count, folderErrors, nil
}
