// Package imap is an IMAP4rev1 client engine.
//
// It is built from four layers:
//
//   - a token reader for the IMAP grammar (atoms, quoted strings, literals
//     and parenthesized lists), see ReadToken and ParseTokens
//   - response decoders for FETCH records, ENVELOPE and BODYSTRUCTURE, see
//     GroupFetchLines, DecodeFetch, DecodeEnvelope and DecodeBodyStructure
//   - a query compiler that turns a typed Filter into a SEARCH command plus
//     a flag telling whether results must be re-checked locally, see
//     CompileSearch, NeedsClientFilter, Match and CompileSort
//   - a Session that tags and serializes commands, enforces per-command
//     deadlines and reconnects with exponential backoff
//
// A Session drives any Transport. NewTLSTransport dials implicit TLS, and
// Dial builds a connected session from a Config read by LoadConfig.
//
//	cfg, err := imap.LoadConfig()
//	if err != nil {
//		return err
//	}
//	s, err := imap.Dial(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	msgs, err := s.Find(ctx, "INBOX", imap.FindOptions{
//		Filter: &imap.Filter{Flags: &imap.FlagCriterion{HasNone: []string{"Seen"}}},
//		Sort:   []imap.SortKey{{Field: imap.SortSeq, Desc: true}},
//		Limit:  20,
//	})
package imap
