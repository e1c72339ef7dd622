package imap

import (
	"fmt"
	"strings"
)

// Disposition is a Content-Disposition value from BODYSTRUCTURE.
type Disposition struct {
	Type   string
	Params map[string]string
}

func defaultDisposition() Disposition {
	return Disposition{Type: "ATTACHMENT", Params: map[string]string{}}
}

// BodyStructure describes one MIME part. A part with Children is a
// multipart container; any other part is a leaf.
type BodyStructure struct {
	Type        string
	Subtype     string
	Params      map[string]string
	ID          string
	Description string
	Encoding    string
	Size        uint64

	// Lines is set for TEXT/* and MESSAGE/RFC822 parts.
	Lines uint64
	// Envelope and Embedded describe the message inside a MESSAGE/RFC822
	// part.
	Envelope *Envelope
	Embedded *BodyStructure

	Children []*BodyStructure

	MD5         string
	Disposition Disposition
	Language    []string
	Location    string
}

// IsMultipart reports whether the part is a multipart container.
func (bs *BodyStructure) IsMultipart() bool {
	return bs.Children != nil
}

// MIMEType returns the lower-cased type/subtype.
func (bs *BodyStructure) MIMEType() string {
	return strings.ToLower(bs.Type + "/" + bs.Subtype)
}

// Filename returns the disposition filename, falling back to the name
// parameter.
func (bs *BodyStructure) Filename() string {
	if name := bs.Disposition.Params["filename"]; name != "" {
		return decodeHeaderWord(name)
	}
	return decodeHeaderWord(bs.Params["name"])
}

// DecodeBodyStructure decodes a BODY or BODYSTRUCTURE list.
func DecodeBodyStructure(t *Token) (*BodyStructure, error) {
	if err := checkType(t, []TType{TList}, "for BODYSTRUCTURE"); err != nil {
		return nil, err
	}
	if len(t.Tokens) == 0 {
		return nil, &ParseError{Data: t.Encode(), Err: fmt.Errorf("empty BODYSTRUCTURE")}
	}
	if t.Tokens[0].Type == TList {
		return decodeMultipart(t.Tokens)
	}
	return decodeSinglePart(t)
}

func decodeMultipart(f []*Token) (*BodyStructure, error) {
	bs := &BodyStructure{
		Type:        "MULTIPART",
		Encoding:    "7BIT",
		Params:      map[string]string{},
		Children:    make([]*BodyStructure, 0, len(f)),
		Disposition: defaultDisposition(),
	}
	i := 0
	for ; i < len(f) && f[i].Type == TList; i++ {
		child, err := DecodeBodyStructure(f[i])
		if err != nil {
			return nil, err
		}
		bs.Children = append(bs.Children, child)
	}
	if i < len(f) {
		bs.Subtype = strings.ToUpper(f[i].NString())
		i++
	}
	if i < len(f) {
		bs.Params = decodeParams(f[i])
		i++
	}
	decodeExtension(bs, f[i:])
	return bs, nil
}

func decodeSinglePart(t *Token) (*BodyStructure, error) {
	f := t.Tokens
	if len(f) < 7 {
		return nil, &ParseError{Data: t.Encode(), Err: fmt.Errorf("body part has %d fields, want at least 7", len(f))}
	}
	bs := &BodyStructure{
		Type:        strings.ToUpper(f[0].NString()),
		Subtype:     strings.ToUpper(f[1].NString()),
		Params:      decodeParams(f[2]),
		ID:          f[3].NString(),
		Description: decodeHeaderWord(f[4].NString()),
		Encoding:    strings.ToUpper(f[5].NString()),
		Disposition: defaultDisposition(),
	}
	if bs.Encoding == "" {
		bs.Encoding = "7BIT"
	}
	size, ok := f[6].Number()
	if !ok && !f[6].IsNil() {
		return nil, &ParseError{Data: t.Encode(), Err: fmt.Errorf("body part size %q is not a number", f[6].Str)}
	}
	bs.Size = size

	i := 7
	switch {
	case bs.Type == "TEXT":
		if i < len(f) {
			bs.Lines, _ = f[i].Number()
			i++
		}
	case bs.Type == "MESSAGE" && (bs.Subtype == "RFC822" || bs.Subtype == "GLOBAL"):
		if i+2 < len(f) {
			env, err := DecodeEnvelope(f[i])
			if err != nil {
				return nil, err
			}
			embedded, err := DecodeBodyStructure(f[i+1])
			if err != nil {
				return nil, err
			}
			bs.Envelope = env
			bs.Embedded = embedded
			bs.Lines, _ = f[i+2].Number()
			i += 3
		}
	}

	if i < len(f) {
		bs.MD5 = f[i].NString()
		i++
	}
	decodeExtension(bs, f[i:])
	return bs, nil
}

// decodeExtension reads the trailing disposition, language and location.
func decodeExtension(bs *BodyStructure, f []*Token) {
	if len(f) > 0 {
		bs.Disposition = decodeDisposition(f[0])
	}
	if len(f) > 1 {
		bs.Language = decodeLanguage(f[1])
	}
	if len(f) > 2 {
		bs.Location = f[2].NString()
	}
}

// decodeParams reads a ("key" "value" ...) list. Keys are lower-cased.
func decodeParams(t *Token) map[string]string {
	params := map[string]string{}
	if t == nil || t.Type != TList {
		return params
	}
	for i := 0; i+1 < len(t.Tokens); i += 2 {
		params[strings.ToLower(t.Tokens[i].NString())] = t.Tokens[i+1].NString()
	}
	return params
}

func decodeDisposition(t *Token) Disposition {
	if t == nil || t.Type != TList || len(t.Tokens) == 0 || !t.Tokens[0].IsString() && t.Tokens[0].Type != TAtom {
		return defaultDisposition()
	}
	d := Disposition{Type: strings.ToUpper(t.Tokens[0].NString()), Params: map[string]string{}}
	if d.Type == "" {
		return defaultDisposition()
	}
	if len(t.Tokens) > 1 {
		d.Params = decodeParams(t.Tokens[1])
	}
	return d
}

func decodeLanguage(t *Token) []string {
	switch {
	case t.IsNil():
		return nil
	case t.Type == TList:
		langs := make([]string, 0, len(t.Tokens))
		for _, l := range t.Tokens {
			langs = append(langs, l.NString())
		}
		return langs
	}
	return []string{t.NString()}
}
