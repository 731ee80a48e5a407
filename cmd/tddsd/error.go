package main

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeLoadConfig liberr.CodeError = iota + liberr.MinAvailable + 800
	codeOpenTraceDB
	codeBindTransport
	codeResolveSPDPGroup
)

func init() {
	liberr.RegisterIdFctMessage(codeLoadConfig, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeLoadConfig:
		return "tddsd: load config"
	case codeOpenTraceDB:
		return "tddsd: open trace db"
	case codeBindTransport:
		return "tddsd: bind transport"
	case codeResolveSPDPGroup:
		return "tddsd: resolve spdp group"
	}
	return ""
}

func errLoadConfig(parent error) liberr.Error {
	return status.Wrap(status.ERROR, codeLoadConfig.Error(parent))
}

func errOpenTraceDB(parent error) liberr.Error {
	return status.Wrap(status.ERROR, codeOpenTraceDB.Error(parent))
}

func errBindTransport(parent error) liberr.Error {
	return status.Wrap(status.ERROR, codeBindTransport.Error(parent))
}

func errResolveSPDPGroup(parent error) liberr.Error {
	return status.Wrap(status.BAD_PARAMETER, codeResolveSPDPGroup.Error(parent))
}
