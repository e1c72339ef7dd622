package imap

import (
	"fmt"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// Message is one decoded FETCH record. Fields that were not requested keep
// their zero value.
type Message struct {
	Seq           uint32
	UID           uint32
	Flags         FlagSet
	Size          uint64
	ReceivedDate  time.Time
	Envelope      *Envelope
	Headers       Header
	BodyStructure *BodyStructure
	Body          *Body
}

// Body is the decoded content of BODY[] or RFC822.
type Body struct {
	Headers     Header
	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment is one part of a multipart body.
type Attachment struct {
	Index       int
	Name        string
	MimeType    string
	Encoding    string
	Disposition string
	Headers     Header
	Content     []byte
	Structure   *BodyStructure
}

// String returns a formatted string representation of a Message
func (m Message) String() string {
	email := strings.Builder{}

	email.WriteString(fmt.Sprintf("Seq: %d UID: %d\n", m.Seq, m.UID))
	if m.Envelope != nil {
		e := m.Envelope
		email.WriteString(fmt.Sprintf("Subject: %s\n", e.Subject))
		if len(e.To) != 0 {
			email.WriteString(fmt.Sprintf("To: %s\n", e.To))
		}
		if len(e.From) != 0 {
			email.WriteString(fmt.Sprintf("From: %s\n", e.From))
		}
		if len(e.Cc) != 0 {
			email.WriteString(fmt.Sprintf("CC: %s\n", e.Cc))
		}
		if len(e.Bcc) != 0 {
			email.WriteString(fmt.Sprintf("BCC: %s\n", e.Bcc))
		}
		if len(e.ReplyTo) != 0 {
			email.WriteString(fmt.Sprintf("ReplyTo: %s\n", e.ReplyTo))
		}
	}
	if len(m.Flags) != 0 {
		email.WriteString(fmt.Sprintf("Flags: %s\n", strings.Join(m.Flags.Slice(), " ")))
	}
	if m.Size != 0 {
		email.WriteString(fmt.Sprintf("Size: %s\n", humanize.Bytes(m.Size)))
	}
	if !m.ReceivedDate.IsZero() {
		email.WriteString(fmt.Sprintf("Received: %s (%s)\n", m.ReceivedDate.Format(time.RFC1123Z), humanize.Time(m.ReceivedDate)))
	}
	if m.Body != nil {
		email.WriteString(m.Body.String())
	}

	return email.String()
}

func (b Body) String() string {
	body := strings.Builder{}
	if len(b.Text) != 0 {
		if len(b.Text) > 20 {
			body.WriteString(fmt.Sprintf("Text: %s...", b.Text[:20]))
		} else {
			body.WriteString(fmt.Sprintf("Text: %s", b.Text))
		}
		body.WriteString(fmt.Sprintf("(%s)\n", humanize.Bytes(uint64(len(b.Text)))))
	}
	if len(b.HTML) != 0 {
		if len(b.HTML) > 20 {
			body.WriteString(fmt.Sprintf("HTML: %s...", b.HTML[:20]))
		} else {
			body.WriteString(fmt.Sprintf("HTML: %s", b.HTML))
		}
		body.WriteString(fmt.Sprintf(" (%s)\n", humanize.Bytes(uint64(len(b.HTML)))))
	}
	if len(b.Attachments) != 0 {
		body.WriteString(fmt.Sprintf("%d Attachment(s): %s\n", len(b.Attachments), b.Attachments))
	}
	return body.String()
}

// String returns a formatted string representation of an Attachment
func (a Attachment) String() string {
	return fmt.Sprintf("%s (%s %s)", a.Name, a.MimeType, humanize.Bytes(uint64(len(a.Content))))
}
