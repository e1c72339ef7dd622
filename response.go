package imap

import (
	"strconv"
	"strings"
)

// Response is everything the server sent for one tagged command.
type Response struct {
	Tag    string
	Status string
	Code   string
	Text   string
	// Lines holds the untagged and continuation lines in arrival order,
	// physical lines as read from the transport.
	Lines []string
}

// Logical returns Lines joined into complete responses.
func (r *Response) Logical() []string {
	return logicalLines(r.Lines)
}

// statusLine is a status response: "<tag> OK|NO|BAD|BYE|PREAUTH [code] text".
type statusLine struct {
	Tag    string
	Status string
	Code   string
	Text   string
}

func parseStatusLine(line string) (statusLine, bool) {
	tag, rest, ok := strings.Cut(line, " ")
	if !ok || tag == "" {
		return statusLine{}, false
	}
	word, text, _ := strings.Cut(rest, " ")
	status := strings.ToUpper(word)
	switch status {
	case "OK", "NO", "BAD", "BYE", "PREAUTH":
	default:
		return statusLine{}, false
	}
	sl := statusLine{Tag: tag, Status: status, Text: text}
	if strings.HasPrefix(text, "[") {
		if end := strings.IndexByte(text, ']'); end > 0 {
			sl.Code = text[1:end]
			sl.Text = strings.TrimSpace(text[end+1:])
		}
	}
	return sl, true
}

// codeName returns the upper-cased first word of a response code.
func codeName(code string) string {
	name, _, _ := strings.Cut(code, " ")
	return strings.ToUpper(name)
}

// codeArg returns the text after the first word of a response code.
func codeArg(code string) string {
	_, arg, _ := strings.Cut(code, " ")
	return strings.TrimSpace(arg)
}

// parseUntaggedCount recognizes "* <n> <KIND>" such as "* 23 EXISTS".
func parseUntaggedCount(line string) (uint32, string, bool) {
	rest, ok := strings.CutPrefix(line, "* ")
	if !ok {
		return 0, "", false
	}
	num, kind, ok := strings.Cut(rest, " ")
	if !ok {
		return 0, "", false
	}
	n, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return 0, "", false
	}
	kind, _, _ = strings.Cut(kind, " ")
	return uint32(n), strings.ToUpper(kind), true
}

// untaggedData returns the text after "* <NAME> " when line is an untagged
// response of the given name.
func untaggedData(line, name string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "* ")
	if !ok {
		return "", false
	}
	word, data, _ := strings.Cut(rest, " ")
	if !strings.EqualFold(word, name) {
		return "", false
	}
	return data, true
}

func parseCapabilities(text string) map[string]struct{} {
	caps := make(map[string]struct{})
	for _, c := range strings.Fields(text) {
		caps[strings.ToUpper(c)] = struct{}{}
	}
	return caps
}

// parseSearchResponse collects the numbers of every "* SEARCH" line.
func parseSearchResponse(lines []string) ([]uint32, error) {
	ids := make([]uint32, 0)
	for _, line := range lines {
		data, ok := untaggedData(line, "SEARCH")
		if !ok {
			continue
		}
		for _, f := range strings.Fields(data) {
			if strings.HasPrefix(f, "(") {
				// ESEARCH style modifiers such as (MODSEQ 123)
				break
			}
			n, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, parseErrorf(line, "invalid message number %q", f)
			}
			ids = append(ids, uint32(n))
		}
	}
	return ids, nil
}

// MailboxInfo is one entry of a LIST response.
type MailboxInfo struct {
	Name       string
	Delimiter  string
	Attributes []string
}

// parseListResponse decodes "* LIST (attrs) delim name".
func parseListResponse(line string) (*MailboxInfo, error) {
	data, ok := untaggedData(line, "LIST")
	if !ok {
		if data, ok = untaggedData(line, "LSUB"); !ok {
			return nil, parseErrorf(line, "not a LIST response")
		}
	}
	tokens, err := ParseTokens(data)
	if err != nil {
		return nil, err
	}
	if len(tokens) < 3 {
		return nil, parseErrorf(line, "LIST response has %d fields, want 3", len(tokens))
	}
	if err := checkType(tokens[0], []TType{TList}, "for LIST attributes"); err != nil {
		return nil, err
	}
	info := &MailboxInfo{
		Delimiter: tokens[1].NString(),
		Name:      decodeMailboxName(tokens[2].NString()),
	}
	for _, a := range tokens[0].Tokens {
		info.Attributes = append(info.Attributes, a.Str)
	}
	return info, nil
}

// MailboxStatus is the decoded result of a STATUS command.
type MailboxStatus struct {
	Name        string
	Messages    uint32
	Recent      uint32
	UIDNext     uint32
	UIDValidity uint32
	Unseen      uint32
}

// parseStatusResponse decodes "* STATUS name (ITEM n ...)".
func parseStatusResponse(line string) (*MailboxStatus, error) {
	data, ok := untaggedData(line, "STATUS")
	if !ok {
		return nil, parseErrorf(line, "not a STATUS response")
	}
	tokens, err := ParseTokens(data)
	if err != nil {
		return nil, err
	}
	if len(tokens) < 2 {
		return nil, parseErrorf(line, "STATUS response has %d fields, want 2", len(tokens))
	}
	if err := checkType(tokens[1], []TType{TList}, "for STATUS items"); err != nil {
		return nil, err
	}
	st := &MailboxStatus{Name: decodeMailboxName(tokens[0].NString())}
	items := tokens[1].Tokens
	for i := 0; i+1 < len(items); i += 2 {
		n, ok := items[i+1].Number()
		if !ok {
			return nil, parseErrorf(line, "STATUS item %s has non-numeric value", items[i].Str)
		}
		switch strings.ToUpper(items[i].Str) {
		case "MESSAGES":
			st.Messages = uint32(n)
		case "RECENT":
			st.Recent = uint32(n)
		case "UIDNEXT":
			st.UIDNext = uint32(n)
		case "UIDVALIDITY":
			st.UIDValidity = uint32(n)
		case "UNSEEN":
			st.Unseen = uint32(n)
		}
	}
	return st, nil
}
