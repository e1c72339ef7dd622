package imap

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectAndGetCount(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	s := connectTestSession(t, srv, Options{})
	srv.resetCommands()

	mb, err := s.Select(context.Background(), "INBOX", false)
	require.NoError(t, err)

	assert.Equal(t, "INBOX", mb.Name)
	assert.False(t, mb.ReadOnly)
	assert.Equal(t, "/", mb.Delimiter)
	assert.Equal(t, uint32(23), mb.Exists)
	assert.Equal(t, uint32(2), mb.Recent)
	assert.Equal(t, uint32(5), mb.Unseen)
	assert.Equal(t, uint32(17), mb.FirstUnseen)
	assert.Equal(t, uint32(4392), mb.UIDNext)
	assert.Equal(t, uint32(3857529045), mb.UIDValidity)
	assert.Equal(t, []string{`\Answered`, `\Flagged`, `\Deleted`, `\Seen`, `\Draft`}, mb.Flags)
	assert.Equal(t, []string{`\Deleted`, `\Seen`, `\*`}, mb.PermanentFlags)

	assert.Equal(t, []string{`SELECT "INBOX"`, `LIST "" ""`, `STATUS "INBOX" (UNSEEN)`}, srv.received())
}

func TestExamineSelectRedundancy(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	s := connectTestSession(t, srv, Options{})
	ctx := context.Background()

	_, err := s.Select(ctx, "INBOX", false)
	require.NoError(t, err)
	srv.resetCommands()

	// Stale reads of the selected mailbox need no round trip.
	mb, err := s.Select(ctx, "INBOX", true)
	require.NoError(t, err)
	assert.Equal(t, uint32(23), mb.Exists)
	assert.Empty(t, srv.received())

	// Same mailbox opened read-only is a different selection.
	mb, err = s.Examine(ctx, "INBOX")
	require.NoError(t, err)
	assert.True(t, mb.ReadOnly)
	assert.Equal(t, []string{`EXAMINE "INBOX"`, `STATUS "INBOX" (UNSEEN)`}, srv.received())

	// Without allowStale the server is always asked, and the delimiter
	// stays cached.
	srv.resetCommands()
	_, err = s.Select(ctx, "INBOX", false)
	require.NoError(t, err)
	assert.Equal(t, []string{`SELECT "INBOX"`, `STATUS "INBOX" (UNSEEN)`}, srv.received())

	// Callers get copies.
	mb.Flags[0] = "changed"
	assert.Equal(t, `\Answered`, s.Mailbox().Flags[0])
}

func TestSelectFailureClearsMailbox(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	srv.handle("SELECT", func(c *mockConn, tag, args string) {
		if args == `"Nope"` {
			c.send(tag + " NO [NONEXISTENT] Unknown mailbox")
			return
		}
		srv.builtin("SELECT")(c, tag, args)
	})
	s := connectTestSession(t, srv, Options{})
	ctx := context.Background()

	_, err := s.Select(ctx, "INBOX", false)
	require.NoError(t, err)

	_, err = s.Select(ctx, "Nope", false)
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Nil(t, s.Mailbox())
	assert.True(t, s.Connected())

	_, err = s.Search(ctx, nil)
	assert.ErrorIs(t, err, ErrNoMailboxSelected)
}

func TestSelectUnseenFailureIsNotFatal(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	srv.handle("STATUS", func(c *mockConn, tag, _ string) {
		c.send(tag + " BAD STATUS not allowed on selected mailbox")
	})
	s := connectTestSession(t, srv, Options{})

	mb, err := s.Select(context.Background(), "INBOX", false)
	require.NoError(t, err)
	assert.Zero(t, mb.Unseen)
	assert.Equal(t, uint32(23), mb.Exists)
}

func TestEfficientFolderAccess(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	s := connectTestSession(t, srv, Options{})
	ctx := context.Background()

	_, err := s.Select(ctx, "INBOX", false)
	require.NoError(t, err)
	srv.resetCommands()

	stats, err := s.GetFolderStats(ctx, "")
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, FolderStats{Name: "INBOX", Count: 23, Unseen: 5, UIDNext: 4392}, stats[0])
	assert.Equal(t, FolderStats{Name: "Archive", Count: 10, UIDNext: 11}, stats[1])
	assert.Equal(t, FolderStats{Name: "[Gmail]/Spam", Count: 4, Unseen: 4, UIDNext: 5}, stats[2])

	// Counters come from STATUS and the selection is left alone.
	for _, c := range srv.received() {
		assert.NotContains(t, c, "SELECT")
		assert.NotContains(t, c, "EXAMINE")
	}
	assert.Equal(t, "INBOX", s.Mailbox().Name)

	stats, err = s.GetFolderStats(ctx, "Archive", "[Gmail]/Spam")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "Archive", stats[0].Name)
}

func TestGetTotalEmailCount(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	srv.handle("STATUS", func(c *mockConn, tag, args string) {
		if args == `"Archive" (MESSAGES UIDNEXT UNSEEN)` {
			c.send(tag + " NO [SERVERBUG] try again later")
			return
		}
		srv.builtin("STATUS")(c, tag, args)
	})
	s := connectTestSession(t, srv, Options{})
	ctx := context.Background()

	stats, err := s.GetFolderStats(ctx, "")
	require.NoError(t, err)
	require.Len(t, stats, 3)
	var ce *CommandError
	assert.ErrorAs(t, stats[1].Error, &ce)

	count, folderErrors, err := s.GetTotalEmailCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(27), count)
	require.Len(t, folderErrors, 1)
	assert.Contains(t, folderErrors[0].Error(), "folder Archive")

	count, folderErrors, err = s.GetTotalEmailCount(ctx, "INBOX", "Archive")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
	assert.Empty(t, folderErrors)
}

func TestFolders(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	srv.handle("LIST", func(c *mockConn, tag, _ string) {
		c.send(
			`* LIST (\HasNoChildren) "." "INBOX"`,
			`* LIST (\HasNoChildren \Drafts) "." "Entw&APw-rfe"`,
			fmt.Sprintf(`* LIST (\HasNoChildren) "." {%d}`, len("Team \"A\"")),
			`Team "A"`,
			`* LIST (\HasNoChildren) NIL "Flat"`,
			tag+" OK LIST completed",
		)
	})
	s := connectTestSession(t, srv, Options{})
	ctx := context.Background()

	folders, err := s.Folders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INBOX", "Entwürfe", `Team "A"`, "Flat"}, folders)

	infos, err := s.List(ctx, "", "*")
	require.NoError(t, err)
	require.Len(t, infos, 4)
	assert.Equal(t, []string{`\HasNoChildren`, `\Drafts`}, infos[1].Attributes)
	assert.Equal(t, ".", infos[0].Delimiter)
	assert.Empty(t, infos[3].Delimiter)
}

func TestStatus(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	s := connectTestSession(t, srv, Options{})
	srv.resetCommands()

	st, err := s.Status(context.Background(), "[Gmail]/Spam")
	require.NoError(t, err)
	assert.Equal(t, &MailboxStatus{Name: "[Gmail]/Spam", Messages: 4, UIDNext: 5, UIDValidity: 1, Unseen: 4}, st)
	assert.Equal(t, []string{`STATUS "[Gmail]/Spam" (MESSAGES RECENT UIDNEXT UIDVALIDITY UNSEEN)`}, srv.received())

	_, err = s.Status(context.Background(), "Missing")
	var ce *CommandError
	assert.ErrorAs(t, err, &ce)
}

func TestMailboxManagement(t *testing.T) {
	srv := newMockIMAPServer("testuser", "testpass")
	s := connectTestSession(t, srv, Options{})
	ctx := context.Background()

	require.NoError(t, s.CreateMailbox(ctx, "Projects"))
	_, err := s.Select(ctx, "INBOX", false)
	require.NoError(t, err)
	require.NoError(t, s.RenameMailbox(ctx, "INBOX", "Old"))
	assert.Equal(t, "Old", s.Mailbox().Name)
	require.NoError(t, s.Subscribe(ctx, "Projects"))
	require.NoError(t, s.Unsubscribe(ctx, "Projects"))
	require.NoError(t, s.DeleteMailbox(ctx, "Old"))
	assert.Nil(t, s.Mailbox())

	_, err = s.Select(ctx, "INBOX", false)
	require.NoError(t, err)
	srv.resetCommands()
	require.NoError(t, s.CloseMailbox(ctx))
	assert.Nil(t, s.Mailbox())
	assert.ErrorIs(t, s.CloseMailbox(ctx), ErrNoMailboxSelected)

	assert.Equal(t, []string{"CLOSE"}, srv.received())
}
