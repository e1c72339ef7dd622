package imap

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SearchUIDs is Search with UIDs instead of sequence numbers.
func (s *Session) SearchUIDs(ctx context.Context, f *Filter) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireMailbox(); err != nil {
		return nil, err
	}
	resp, err := s.exec(ctx, "UID "+CompileSearch(f), nil)
	if err != nil {
		return nil, err
	}
	return parseSearchResponse(resp.Logical())
}

// writable runs fn with the selected mailbox opened read-write, switching
// back to read-only afterwards when it was examined.
func (s *Session) writable(ctx context.Context, fn func() error) error {
	mb, err := s.requireMailbox()
	if err != nil {
		return err
	}
	if !mb.ReadOnly {
		return fn()
	}
	name := mb.Name
	if _, err := s.selectMailbox(ctx, name, false, false); err != nil {
		return err
	}
	err = fn()
	if _, e := s.selectMailbox(ctx, name, true, false); e != nil && err == nil {
		err = e
	}
	return err
}

// SetFlags applies update to the messages with the given UIDs. Additions
// and removals are sent as separate STORE commands.
func (s *Session) SetFlags(ctx context.Context, uids []uint32, update FlagUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writable(ctx, func() error {
		return s.store(ctx, uids, update)
	})
}

func (s *Session) store(ctx context.Context, uids []uint32, update FlagUpdate) error {
	if len(uids) == 0 {
		return nil
	}
	add, remove := update.split()
	set := formatNumSet(uids)
	if len(add) > 0 {
		if _, err := s.exec(ctx, fmt.Sprintf("UID STORE %s +FLAGS.SILENT (%s)", set, strings.Join(add, " ")), nil); err != nil {
			return err
		}
	}
	if len(remove) > 0 {
		if _, err := s.exec(ctx, fmt.Sprintf("UID STORE %s -FLAGS.SILENT (%s)", set, strings.Join(remove, " ")), nil); err != nil {
			return err
		}
	}
	return nil
}

// MarkSeen marks messages as seen/read
func (s *Session) MarkSeen(ctx context.Context, uids ...uint32) error {
	return s.SetFlags(ctx, uids, FlagUpdate{Seen: FlagAdd})
}

// Copy copies messages to another mailbox.
func (s *Session) Copy(ctx context.Context, uids []uint32, dest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireMailbox(); err != nil {
		return err
	}
	if len(uids) == 0 {
		return nil
	}
	_, err := s.exec(ctx, "UID COPY "+formatNumSet(uids)+" "+quoteMailbox(dest), nil)
	return err
}

// Move moves messages to another mailbox, with MOVE when the server has it
// and COPY, STORE \Deleted and EXPUNGE otherwise.
func (s *Session) Move(ctx context.Context, uids []uint32, dest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(uids) == 0 {
		_, err := s.requireMailbox()
		return err
	}
	return s.writable(ctx, func() error {
		set := formatNumSet(uids)
		if s.hasCap("MOVE") {
			_, err := s.exec(ctx, "UID MOVE "+set+" "+quoteMailbox(dest), nil)
			return err
		}
		if _, err := s.exec(ctx, "UID COPY "+set+" "+quoteMailbox(dest), nil); err != nil {
			return err
		}
		if err := s.store(ctx, uids, FlagUpdate{Deleted: FlagAdd}); err != nil {
			return err
		}
		return s.expunge(ctx, uids)
	})
}

// Expunge permanently removes messages marked \Deleted.
func (s *Session) Expunge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writable(ctx, func() error {
		return s.expunge(ctx, nil)
	})
}

// expunge removes deleted messages, limited to uids when the server
// supports UIDPLUS.
func (s *Session) expunge(ctx context.Context, uids []uint32) error {
	command := "EXPUNGE"
	if len(uids) > 0 && s.hasCap("UIDPLUS") {
		command = "UID EXPUNGE " + formatNumSet(uids)
	}
	_, err := s.exec(ctx, command, nil)
	return err
}

// Delete marks messages \Deleted and expunges them.
func (s *Session) Delete(ctx context.Context, uids ...uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(uids) == 0 {
		_, err := s.requireMailbox()
		return err
	}
	return s.writable(ctx, func() error {
		if err := s.store(ctx, uids, FlagUpdate{Deleted: FlagAdd}); err != nil {
			return err
		}
		return s.expunge(ctx, uids)
	})
}

// Append uploads a message to mailbox. A zero date lets the server pick the
// internal date.
func (s *Session) Append(ctx context.Context, mailbox string, flags []string, date time.Time, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}

	var b strings.Builder
	b.WriteString("APPEND ")
	b.WriteString(quoteMailbox(mailbox))
	safe := make([]string, 0, len(flags))
	for _, f := range flags {
		if !isSafeFlag(f) {
			s.warnLog("dropping flag that is not a valid flag atom", "flag", f)
			continue
		}
		safe = append(safe, f)
	}
	if len(safe) > 0 {
		b.WriteString(" (" + strings.Join(safe, " ") + ")")
	}
	if !date.IsZero() {
		b.WriteString(" " + quoteString(date.Format(TimeFormat)))
	}
	fmt.Fprintf(&b, " {%d}", len(msg))

	sent := false
	_, err := s.exec(ctx, b.String(), func(string) (string, error) {
		if sent {
			return "", fmt.Errorf("server asked for more than one literal")
		}
		sent = true
		return string(msg), nil
	})
	return err
}
