package transport

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeResolveBindAddr liberr.CodeError = iota + liberr.MinAvailable + 320
	codeListen
	codeResolveGroup
	codeJoinGroup
	codeRead
	codeInvalidLocator
	codeDial
	codeWrite
	codeClosed
)

func init() {
	liberr.RegisterIdFctMessage(codeResolveBindAddr, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeResolveBindAddr:
		return "transport: resolve bind addr"
	case codeListen:
		return "transport: listen"
	case codeResolveGroup:
		return "transport: resolve multicast group"
	case codeJoinGroup:
		return "transport: join multicast group"
	case codeRead:
		return "transport: read"
	case codeInvalidLocator:
		return "transport: invalid locator kind"
	case codeDial:
		return "transport: dial"
	case codeWrite:
		return "transport: write"
	case codeClosed:
		return "transport: endpoint closed"
	}
	return ""
}

func errResolveBindAddr(parent error) liberr.Error {
	return status.Wrap(status.BAD_PARAMETER, codeResolveBindAddr.Error(parent))
}

func errListen(parent error) liberr.Error {
	return status.Wrap(status.ERROR, codeListen.Error(parent))
}

func errResolveGroup(parent error) liberr.Error {
	return status.Wrap(status.BAD_PARAMETER, codeResolveGroup.Error(parent))
}

func errJoinGroup(parent error) liberr.Error {
	return status.Wrap(status.ERROR, codeJoinGroup.Error(parent))
}

func errRead(parent error) liberr.Error {
	return status.Wrap(status.ERROR, codeRead.Error(parent))
}

func errInvalidLocator(kind int) liberr.Error {
	return status.Wrapf(status.BAD_PARAMETER, codeInvalidLocator.Error(), "transport: invalid locator kind %d", kind)
}

func errDial(parent error) liberr.Error {
	return status.Wrap(status.ERROR, codeDial.Error(parent))
}

func errWrite(parent error) liberr.Error {
	return status.Wrap(status.ERROR, codeWrite.Error(parent))
}

func errClosed() liberr.Error {
	return status.Wrap(status.ALREADY_DELETED, codeClosed.Error())
}
