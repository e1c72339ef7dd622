package imap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime/v2"
)

// DecodeFetch decodes one FETCH group as produced by GroupFetchLines.
func DecodeFetch(group []string) (*Message, error) {
	raw := strings.Join(group, nl)
	seq, pos, err := readFetchPrefix(raw)
	if err != nil {
		return nil, err
	}
	record, _, err := ReadToken(raw, pos)
	if err != nil {
		return nil, err
	}
	if err := checkType(record, []TType{TList}, "for FETCH %d record", seq); err != nil {
		return nil, err
	}
	return decodeFetchRecord(seq, record.Tokens)
}

// DecodeFetchLines groups and decodes every FETCH response in lines.
// Responses that fail to decode are logged and skipped.
func DecodeFetchLines(lines []string) []*Message {
	return decodeFetchLines(getLogger(), lines)
}

func decodeFetchLines(log Logger, lines []string) []*Message {
	groups := GroupFetchLines(lines)
	msgs := make([]*Message, 0, len(groups))
	for _, g := range groups {
		m, err := DecodeFetch(g)
		if err != nil {
			log.Warn("skipping undecodable FETCH response", "error", err)
			if Verbose {
				log.Debug("undecodable FETCH response", "lines", spew.Sdump(g))
			}
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// readFetchPrefix consumes "* <seq> FETCH" and returns the sequence number.
func readFetchPrefix(raw string) (uint32, int, error) {
	star, pos, err := ReadToken(raw, 0)
	if err != nil {
		return 0, 0, err
	}
	if star == nil || star.Type != TAtom || star.Str != "*" {
		return 0, 0, parseErrorf(raw, "FETCH response does not start with '*'")
	}
	num, pos, err := ReadToken(raw, pos)
	if err != nil {
		return 0, 0, err
	}
	seq, ok := num.Number()
	if !ok || seq == 0 || seq > 1<<32-1 {
		return 0, 0, parseErrorf(raw, "invalid FETCH sequence number")
	}
	word, pos, err := ReadToken(raw, pos)
	if err != nil {
		return 0, 0, err
	}
	if word == nil || !strings.EqualFold(word.Str, "FETCH") {
		return 0, 0, parseErrorf(raw, "missing FETCH keyword")
	}
	return uint32(seq), pos, nil
}

// fetchItemName normalizes a FETCH key, dropping a partial <origin> suffix.
func fetchItemName(key string) string {
	key = strings.ToUpper(key)
	if i := strings.LastIndexByte(key, '<'); i > 0 && strings.HasSuffix(key, ">") {
		key = key[:i]
	}
	return key
}

func decodeFetchRecord(seq uint32, f []*Token) (*Message, error) {
	if len(f)%2 != 0 {
		return nil, &ParseError{Err: fmt.Errorf("FETCH %d record has an odd number of items", seq)}
	}
	m := &Message{Seq: seq, Flags: FlagSet{}}
	var raw string
	hasBody := false

	for i := 0; i < len(f); i += 2 {
		if err := checkType(f[i], []TType{TAtom}, "for FETCH %d key", seq); err != nil {
			return nil, err
		}
		key := fetchItemName(f[i].Str)
		val := f[i+1]
		switch key {
		case "UID":
			n, ok := val.Number()
			if !ok {
				return nil, parseErrorf(val.Encode(), "UID of FETCH %d is not a number", seq)
			}
			m.UID = uint32(n)
		case "FLAGS":
			if err := checkType(val, []TType{TList}, "for FETCH %d FLAGS", seq); err != nil {
				return nil, err
			}
			for _, fl := range val.Tokens {
				m.Flags.Add(fl.Str)
			}
		case "RFC822.SIZE":
			n, ok := val.Number()
			if !ok {
				return nil, parseErrorf(val.Encode(), "RFC822.SIZE of FETCH %d is not a number", seq)
			}
			m.Size = n
		case "INTERNALDATE":
			if err := checkType(val, []TType{TQuoted, TAtom}, "for FETCH %d INTERNALDATE", seq); err != nil {
				return nil, err
			}
			t, err := time.Parse(TimeFormat, val.Str)
			if err != nil {
				return nil, &ParseError{Data: val.Str, Err: err}
			}
			m.ReceivedDate = t
		case "ENVELOPE":
			env, err := DecodeEnvelope(val)
			if err != nil {
				return nil, err
			}
			m.Envelope = env
		case "BODYSTRUCTURE", "BODY":
			bs, err := DecodeBodyStructure(val)
			if err != nil {
				return nil, err
			}
			m.BodyStructure = bs
		case "BODY[HEADER]", "RFC822.HEADER":
			m.Headers = ParseHeader(val.NString())
		case "BODY[]", "RFC822":
			raw = val.NString()
			hasBody = true
		default:
			debugLog("ignoring unrequested FETCH item", "item", key)
		}
	}

	if hasBody {
		body, err := decodeBody(raw, m.BodyStructure)
		if err != nil {
			return nil, err
		}
		m.Body = body
		if len(m.Headers) == 0 {
			m.Headers = body.Headers
		}
	}
	return m, nil
}

// decodeBody splits a raw message into headers, text and attachments. Each
// multipart part is paired with the BODYSTRUCTURE child at the same index.
func decodeBody(raw string, bs *BodyStructure) (*Body, error) {
	headerBlock, bodyBlock := splitMessage(raw)
	body := &Body{Headers: ParseHeader(headerBlock)}

	if env, err := enmime.ReadEnvelope(strings.NewReader(raw)); err == nil {
		body.Text = env.Text
		body.HTML = env.HTML
	} else {
		debugLog("could not read message text", "error", err)
	}

	mediaType, params, err := mime.ParseMediaType(body.Headers.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return body, nil
	}

	mr := textproto.NewMultipartReader(strings.NewReader(bodyBlock), params["boundary"])
	for idx := 0; ; idx++ {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("multipart part %d: %w", idx, err)}
		}
		content, err := io.ReadAll(p)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("multipart part %d: %w", idx, err)}
		}
		var structure *BodyStructure
		if bs != nil && idx < len(bs.Children) {
			structure = bs.Children[idx]
		}
		body.Attachments = append(body.Attachments, newAttachment(idx, &p.Header, content, structure))
	}
	return body, nil
}

func newAttachment(idx int, h *textproto.Header, content []byte, bs *BodyStructure) Attachment {
	a := Attachment{Index: idx, Structure: bs}
	fields := h.Fields()
	for fields.Next() {
		a.Headers = append(a.Headers, HeaderField{Key: fields.Key(), Value: fields.Value()})
	}

	ctype, ctypeParams, _ := mime.ParseMediaType(h.Get("Content-Type"))
	disp, dispParams, _ := mime.ParseMediaType(h.Get("Content-Disposition"))

	a.Encoding = strings.ToUpper(strings.TrimSpace(h.Get("Content-Transfer-Encoding")))
	if bs != nil {
		a.MimeType = bs.MIMEType()
		a.Name = bs.Filename()
		a.Disposition = bs.Disposition.Type
		if a.Encoding == "" || !identityEncoding(bs.Encoding) {
			a.Encoding = bs.Encoding
		}
	}
	if a.MimeType == "" || a.MimeType == "/" {
		a.MimeType = ctype
	}
	if a.MimeType == "" {
		a.MimeType = "text/plain"
	}
	if a.Name == "" {
		a.Name = decodeHeaderWord(dispParams["filename"])
	}
	if a.Name == "" {
		a.Name = decodeHeaderWord(ctypeParams["name"])
	}
	if a.Disposition == "" {
		a.Disposition = strings.ToUpper(disp)
	}

	a.Content = decodeTransfer(a.Encoding, content)
	return a
}

// identityEncoding reports whether encoding leaves the content as is.
func identityEncoding(encoding string) bool {
	switch strings.ToUpper(encoding) {
	case "", "7BIT", "8BIT", "BINARY":
		return true
	}
	return false
}

// decodeTransfer undoes a content transfer encoding. Content that fails to
// decode is returned as received.
func decodeTransfer(encoding string, content []byte) []byte {
	switch strings.ToUpper(encoding) {
	case "BASE64":
		clean := bytes.Map(func(r rune) rune {
			if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, content)
		out := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))
		n, err := base64.StdEncoding.Decode(out, clean)
		if err != nil {
			debugLog("keeping undecodable base64 part", "error", err)
			return content
		}
		return out[:n]
	case "QUOTED-PRINTABLE":
		out, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(content)))
		if err != nil {
			debugLog("keeping undecodable quoted-printable part", "error", err)
			return content
		}
		return out
	}
	return content
}
