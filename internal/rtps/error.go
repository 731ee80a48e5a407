package rtps

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeBadMagic liberr.CodeError = iota + liberr.MinAvailable + 300
	codeUnknownSubmsg
	codeShortSubmsg
)

func init() {
	liberr.RegisterIdFctMessage(codeBadMagic, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeBadMagic:
		return "rtps: bad message magic"
	case codeUnknownSubmsg:
		return "rtps: unknown submessage kind"
	case codeShortSubmsg:
		return "rtps: truncated submessage"
	}
	return ""
}

// ErrBadMagic reports a message not starting with the RTPS magic tag.
func ErrBadMagic() liberr.Error { return status.Wrap(status.ERROR, codeBadMagic.Error()) }

// ErrUnknownSubmsg reports a submessage id this decoder does not recognize.
func ErrUnknownSubmsg() liberr.Error { return status.Wrap(status.UNSUPPORTED, codeUnknownSubmsg.Error()) }

// ErrShortSubmsg reports a submessage whose declared length exceeds the
// remaining buffer.
func ErrShortSubmsg() liberr.Error { return status.Wrap(status.ERROR, codeShortSubmsg.Error()) }
