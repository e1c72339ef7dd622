package imap

// Match reports whether m satisfies every criterion of f. Dates compare at
// millisecond precision. A criterion on a field m does not carry fails.
func Match(f *Filter, m *Message) bool {
	if f == nil {
		return true
	}
	if m == nil {
		return false
	}
	if f.Seq != nil && !f.Seq.matches(uint64(m.Seq)) {
		return false
	}
	if f.UID != nil && (m.UID == 0 || !f.UID.matches(uint64(m.UID))) {
		return false
	}
	if f.Size != nil && !f.Size.matches(m.Size) {
		return false
	}
	if f.ReceivedDate != nil && (m.ReceivedDate.IsZero() || !f.ReceivedDate.matches(m.ReceivedDate)) {
		return false
	}
	if f.Flags != nil && !f.Flags.matches(m.Flags) {
		return false
	}
	if f.Envelope != nil && !matchEnvelope(f.Envelope, m.Envelope) {
		return false
	}
	return true
}

func matchEnvelope(f *EnvelopeFilter, env *Envelope) bool {
	if env == nil {
		return false
	}
	if f.Date != nil && (env.Date.IsZero() || !f.Date.matches(env.Date)) {
		return false
	}
	if f.Subject != nil && !f.Subject.matches(env.Subject) {
		return false
	}
	if f.InReplyTo != nil && !f.InReplyTo.matches(env.InReplyTo) {
		return false
	}
	if f.MessageID != nil && !f.MessageID.matches(env.MessageID) {
		return false
	}
	addresses := []struct {
		c    *AddressCriterion
		list AddressList
	}{
		{f.From, env.From},
		{f.Sender, env.Sender},
		{f.ReplyTo, env.ReplyTo},
		{f.To, env.To},
		{f.Cc, env.Cc},
		{f.Bcc, env.Bcc},
	}
	for _, a := range addresses {
		if a.c != nil && !a.c.matches(a.list) {
			return false
		}
	}
	return true
}
