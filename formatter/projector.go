package formatter

import (
	"fmt"

	"github.com/Philipp01105/contextlog/core"
)

// Record field names.
const (
	KeyTimestamp     = "timestamp"
	KeyLevel         = "level"
	KeyLogger        = "logger"
	KeyThread        = "thread"
	KeyMessage       = "message"
	KeySessionID     = "sessionId"
	KeyProcessID     = "processId"
	KeyMachineName   = "machineName"
	KeyOS            = "os"
	KeyArch          = "arch"
	KeyIs64Bit       = "is64Bit"
	KeyGoVersion     = "goVersion"
	KeyUserName      = "userName"
	KeyIdentity      = "identity"
	KeyDomain        = "domain"
	KeyCaller        = "caller"
	KeyException     = "exception"
	KeyExceptionText = "exceptionText"
	KeyProperties    = "properties"
)

// Pair is one member of a Record.
type Pair struct {
	Key   string
	Value any
}

// Record is an ordered JSON object. Unlike maps, its members are encoded
// in insertion order, and unlike structs, field filters do not apply to
// its keys.
type Record []Pair

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, p := range r {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Keys returns the member names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, p := range r {
		keys[i] = p.Key
	}
	return keys
}

// Project builds the record written for e in the given style. The compact
// record is always a prefix of the full one.
func Project(e *core.Entry, pc *core.ProcessContext, style Style) Record {
	r := Record{
		{KeyTimestamp, e.Time.UTC()},
		{KeyLevel, e.Level.String()},
		{KeyLogger, e.LoggerName},
		{KeyThread, e.ThreadName},
		{KeyMessage, e.Message},
	}
	if style == StyleCompact {
		return r
	}

	userName := e.UserName
	if userName == "" && pc != nil {
		userName = pc.UserName
	}
	if pc != nil {
		r = append(r,
			Pair{KeySessionID, pc.SessionID},
			Pair{KeyProcessID, pc.PID},
			Pair{KeyMachineName, pc.MachineName},
			Pair{KeyOS, pc.OS},
			Pair{KeyArch, pc.Arch},
			Pair{KeyIs64Bit, pc.Is64Bit},
			Pair{KeyGoVersion, pc.GoVersion},
		)
	}
	r = append(r,
		Pair{KeyUserName, userName},
		Pair{KeyIdentity, e.Identity},
		Pair{KeyDomain, e.Domain},
	)
	if e.Caller.Defined {
		r = append(r, Pair{KeyCaller, Record{
			{"file", e.Caller.ShortFile},
			{"line", e.Caller.Line},
			{"function", e.Caller.Function},
		}})
	}
	if e.Exception != nil {
		r = append(r,
			Pair{KeyException, e.Exception},
			Pair{KeyExceptionText, fmt.Sprintf("%+v", e.Exception)},
		)
	}

	props := make(Record, len(e.Properties))
	for i, f := range e.Properties {
		props[i] = Pair{f.Key, f.Value()}
	}
	return append(r, Pair{KeyProperties, props})
}
