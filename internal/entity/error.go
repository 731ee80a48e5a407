package entity

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeNameTooLong liberr.CodeError = iota + liberr.MinAvailable + 400
	codeWaitTimeout
	codeInvalidLeaseDuration
	codeInvalidQoS
	codeInconsistentQoS
)

func init() {
	liberr.RegisterIdFctMessage(codeNameTooLong, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeNameTooLong:
		return "entity: topic name exceeds 256 characters"
	case codeWaitTimeout:
		return "entity: waitset wait timed out"
	case codeInvalidLeaseDuration:
		return "entity: participant lease_duration must be positive or infinite"
	case codeInvalidQoS:
		return "entity: qos validation failed"
	case codeInconsistentQoS:
		return "entity: qos is internally inconsistent"
	}
	return ""
}

// ErrNameTooLong reports a topic name longer than DDS §2.2 allows.
func ErrNameTooLong() liberr.Error { return status.Wrap(status.BAD_PARAMETER, codeNameTooLong.Error()) }

// ErrWaitTimeout reports that no condition transitioned to triggered before
// a WaitSet.Wait deadline.
func ErrWaitTimeout() liberr.Error { return status.Wrap(status.TIMEOUT, codeWaitTimeout.Error()) }

// ErrInvalidLeaseDuration reports a participant created with
// lease_duration=0, the boundary case distinguishing "never renews" from
// the infinite-lease sentinel: BAD_PARAMETER on create.
func ErrInvalidLeaseDuration() liberr.Error {
	return status.Wrap(status.BAD_PARAMETER, codeInvalidLeaseDuration.Error())
}

// ErrInvalidQoS wraps a field-level QoS validation failure (bounded
// strings, non-negative resource limits) as BAD_PARAMETER.
func ErrInvalidQoS(parent error) liberr.Error {
	return status.Wrap(status.BAD_PARAMETER, codeInvalidQoS.Error(parent))
}

// ErrInconsistentQoS reports a QoS record that fails its own internal
// consistency rules (history depth vs resource limits), DDS §2.2.1's
// INCONSISTENT_POLICY.
func ErrInconsistentQoS() liberr.Error {
	return status.Wrap(status.INCONSISTENT_POLICY, codeInconsistentQoS.Error())
}
