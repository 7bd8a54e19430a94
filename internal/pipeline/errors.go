package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies the step of a run an error came from.
type Stage int

const (
	StageAcquire Stage = iota + 1
	StageConfigure
	StageCompile
	StageStage
	StageRegister
	StageCleanup
)

func (s Stage) String() string {
	switch s {
	case StageAcquire:
		return "acquisition"
	case StageConfigure:
		return "configuration"
	case StageCompile:
		return "compilation"
	case StageStage:
		return "staging"
	case StageRegister:
		return "registration"
	case StageCleanup:
		return "cleanup"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Fatal reports whether an error in s aborts the run.
func (s Stage) Fatal() bool {
	return s < StageRegister
}

// Error is a failure of one stage.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the exit code of the external tool that failed, or 1.
func (e *Error) ExitCode() int {
	var coder interface{ ExitCode() int }
	if errors.As(e.Err, &coder) {
		if code := coder.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}

// StageOf returns the stage err was raised in.
func StageOf(err error) (Stage, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage, true
	}
	return 0, false
}

// ExitCode maps err to a process exit code: 0 for nil, the failing tool's
// code when known, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return 1
}
