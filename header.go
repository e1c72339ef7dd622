package imap

import "strings"

// HeaderField is one header line with continuations unfolded.
type HeaderField struct {
	Key   string
	Value string
}

// Header keeps header fields in their original order. Lookups are
// case-insensitive.
type Header []HeaderField

// Get returns the first value for key, or "".
func (h Header) Get(key string) string {
	for _, f := range h {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for key in order.
func (h Header) Values(key string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Key, key) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Key, key) {
			return true
		}
	}
	return false
}

// ParseHeader splits a header block into fields. Lines starting with
// whitespace continue the previous field. Lines without a colon are skipped.
func ParseHeader(block string) Header {
	h := make(Header, 0)
	for _, line := range strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n") {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(h) > 0 {
				last := &h[len(h)-1]
				cont := strings.TrimSpace(line)
				if last.Value == "" {
					last.Value = cont
				} else if cont != "" {
					last.Value += " " + cont
				}
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h = append(h, HeaderField{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return h
}

// splitMessage separates a raw message at its first empty line.
func splitMessage(raw string) (header, body string) {
	crlf := strings.Index(raw, "\r\n\r\n")
	lf := strings.Index(raw, "\n\n")
	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return raw[:crlf], raw[crlf+4:]
	case lf >= 0:
		return raw[:lf], raw[lf+2:]
	}
	return raw, ""
}
