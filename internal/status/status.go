// Package status defines the exit codes reported by an execution context and
// the fault type that carries them.
//
// ExitStatus values are ordinal-stable: clients decode replies by position, so
// new codes are only ever appended before exitStatusCount.
package status

import (
	"errors"
	"fmt"
)

// ExitStatus is the outcome of an execution-context operation.
type ExitStatus uint8

const (
	OK ExitStatus = iota
	Error
	VersionMismatch
	NoWorkingMode
	ChannelSetupFailed
	ChannelTeardownFailed
	ChannelWriteFailed
	ChannelReadFailed
	ChannelReadTimeout
	ChannelProtocolMismatch
	ChannelUnavailable
	ChannelTimeout
	ManagerUnreachable
	EXCDuplicate
	EXCNotRegistered
	EXCRegistrationFailed
	EXCMissingRecipe
	EXCUnregistrationFailed
	EXCNotStarted
	EXCEnableFailed
	EXCNotEnabled
	EXCDisableFailed
	EXCGWMFailed
	EXCGWMStart
	EXCGWMReconf
	EXCGWMMigrec
	EXCGWMMigrate
	EXCGWMBlocked
	EXCSyncMode
	EXCSyncpFailed
	EXCWorkloadNone
	EXCCgroupNone
	ArgParseFailed
	RegistrationLost

	exitStatusCount
)

var names = [exitStatusCount]string{
	OK:                      "OK",
	Error:                   "ERROR",
	VersionMismatch:         "VERSION_MISMATCH",
	NoWorkingMode:           "NO_WORKING_MODE",
	ChannelSetupFailed:      "CHANNEL_SETUP_FAILED",
	ChannelTeardownFailed:   "CHANNEL_TEARDOWN_FAILED",
	ChannelWriteFailed:      "CHANNEL_WRITE_FAILED",
	ChannelReadFailed:       "CHANNEL_READ_FAILED",
	ChannelReadTimeout:      "CHANNEL_READ_TIMEOUT",
	ChannelProtocolMismatch: "CHANNEL_PROTOCOL_MISMATCH",
	ChannelUnavailable:      "CHANNEL_UNAVAILABLE",
	ChannelTimeout:          "CHANNEL_TIMEOUT",
	ManagerUnreachable:      "MANAGER_UNREACHABLE",
	EXCDuplicate:            "EXC_DUPLICATE",
	EXCNotRegistered:        "EXC_NOT_REGISTERED",
	EXCRegistrationFailed:   "EXC_REGISTRATION_FAILED",
	EXCMissingRecipe:        "EXC_MISSING_RECIPE",
	EXCUnregistrationFailed: "EXC_UNREGISTRATION_FAILED",
	EXCNotStarted:           "EXC_NOT_STARTED",
	EXCEnableFailed:         "EXC_ENABLE_FAILED",
	EXCNotEnabled:           "EXC_NOT_ENABLED",
	EXCDisableFailed:        "EXC_DISABLE_FAILED",
	EXCGWMFailed:            "EXC_GWM_FAILED",
	EXCGWMStart:             "EXC_GWM_START",
	EXCGWMReconf:            "EXC_GWM_RECONF",
	EXCGWMMigrec:            "EXC_GWM_MIGREC",
	EXCGWMMigrate:           "EXC_GWM_MIGRATE",
	EXCGWMBlocked:           "EXC_GWM_BLOCKED",
	EXCSyncMode:             "EXC_SYNC_MODE",
	EXCSyncpFailed:          "EXC_SYNCP_FAILED",
	EXCWorkloadNone:         "EXC_WORKLOAD_NONE",
	EXCCgroupNone:           "EXC_CGROUP_NONE",
	ArgParseFailed:          "ARG_PARSE_FAILED",
	RegistrationLost:        "REGISTRATION_LOST",
}

func (s ExitStatus) String() string {
	if s < exitStatusCount {
		return names[s]
	}
	return fmt.Sprintf("EXIT_STATUS(%d)", uint8(s))
}

// Valid reports whether s is a known exit status.
func (s ExitStatus) Valid() bool { return s < exitStatusCount }

// All returns every known exit status in ordinal order.
func All() []ExitStatus {
	out := make([]ExitStatus, 0, exitStatusCount)
	for s := OK; s < exitStatusCount; s++ {
		out = append(out, s)
	}
	return out
}

// Parse resolves a status by name, e.g. "EXC_NOT_REGISTERED".
func Parse(name string) (ExitStatus, error) {
	for i, n := range names {
		if n == name {
			return ExitStatus(i), nil
		}
	}
	return Error, fmt.Errorf("unknown exit status %q", name)
}

// Fault is a classified failure raised by an execution-context operation.
type Fault struct {
	Status ExitStatus
	Op     string
	Err    error
}

// NewFault builds a fault for op with the given status.
func NewFault(op string, s ExitStatus) *Fault {
	return &Fault{Status: s, Op: op}
}

// Wrap builds a fault for op carrying err as its cause.
func Wrap(op string, s ExitStatus, err error) *Fault {
	return &Fault{Status: s, Op: op, Err: err}
}

func (f *Fault) Error() string {
	msg := f.Status.String()
	if f.Op != "" {
		msg = f.Op + ": " + msg
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Fault) Unwrap() error { return f.Err }

// Of converts err into the status a reply should carry. A nil error is OK;
// an error without a classified fault in its chain is Error.
func Of(err error) ExitStatus {
	if err == nil {
		return OK
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Status
	}
	return Error
}

// Is reports whether err carries the given status.
func Is(err error, s ExitStatus) bool {
	var f *Fault
	return errors.As(err, &f) && f.Status == s
}
