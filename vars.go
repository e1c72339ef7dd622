package imap

import (
	"strings"
	"time"
)

// AddSlashes escapes backslashes and double quotes for IMAP quoted strings
var AddSlashes = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Verbose outputs every command and its response with the IMAP server
var Verbose = false

// SkipResponses skips printing server responses in verbose mode
var SkipResponses = false

// RetryCount is how many times a TLS dial is retried inside a single
// connect. Session level reconnects are governed by Options.
var RetryCount = 3

// DialTimeout defines how long to wait when establishing a new connection.
// Zero means no timeout.
var DialTimeout time.Duration

// TLSSkipVerify disables certificate verification when establishing new
// connections. Use with caution; skipping verification exposes the
// connection to man-in-the-middle attacks.
var TLSSkipVerify bool

// FetchBatchSize is the default number of messages requested per FETCH.
var FetchBatchSize = 100
