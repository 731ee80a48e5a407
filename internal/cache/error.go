package cache

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

// Diagnostic CodeError range for this package, registered per the
// golib per-package error.go convention (see e.g. its console/error.go):
// a block of codes starting at errors.MinAvailable plus this package's
// offset, each given a message via RegisterIdFctMessage. These are kept as
// the parent of the DDS §2.2.1 status.Code actually returned to callers, so
// GetParentCode/HasCode still recovers the precise cause.
const (
	codeRejected liberr.CodeError = iota + liberr.MinAvailable + 100
	codeTimeout
)

func init() {
	liberr.RegisterIdFctMessage(codeRejected, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeRejected:
		return "sample rejected by history cache"
	case codeTimeout:
		return "write blocked past max_blocking_time"
	}
	return ""
}

// ErrRejected reports a change the HistoryCache would not accept — surfaced
// to the reader/writer as SAMPLE_REJECTED, RTPS §8.2/§7.
func ErrRejected() liberr.Error {
	return status.Wrap(status.PRECONDITION_NOT_MET, codeRejected.Error())
}

// ErrTimeout reports a writer blocked past reliability.max_blocking_time.
func ErrTimeout() liberr.Error {
	return status.Wrap(status.TIMEOUT, codeTimeout.Error())
}
