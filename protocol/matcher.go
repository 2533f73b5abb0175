package protocol

// Matcher selects incoming frames. A matcher always compares the header;
// Fields optionally narrows the match to frames whose payload satisfies it,
// so a matcher with nil Fields is a partial match on the command alone.
type Matcher struct {
	Header Header
	Fields func(*Frame) bool
}

// Callback returns a partial matcher for the given callback header.
func Callback(h Header) Matcher {
	return Matcher{Header: h}
}

// Matches reports whether f is selected by the matcher.
func (m Matcher) Matches(f *Frame) bool {
	if f == nil || f.Header != m.Header {
		return false
	}
	if m.Fields == nil {
		return true
	}
	return m.Fields(f)
}

// Well-known callback matchers.
var (
	HandshakeRspCallback = Callback(NewHeader(TypeAREQ, SubsystemUBL, CmdUBLHandshakeRsp))
	ReadRspCallback      = Callback(NewHeader(TypeAREQ, SubsystemUBL, CmdUBLReadRsp))
	ResetIndCallback     = Callback(NewHeader(TypeAREQ, SubsystemSYS, CmdSysResetInd))
)
