package pid

import (
	"errors"
	"fmt"
)

// Lookup errors.
var (
	ErrUnknownPid         = errors.New("unknown pid")
	ErrUnsupportedCommand = errors.New("command class not supported")
)

// StructuralError reports a self-contradictory definition. It fails the
// whole load.
type StructuralError struct {
	Source string // definition file, empty for groups built in code
	Pid    string
	Msg    string
}

func (e *StructuralError) Error() string {
	switch {
	case e.Source != "" && e.Pid != "":
		return fmt.Sprintf("%s: pid %s: %s", e.Source, e.Pid, e.Msg)
	case e.Source != "":
		return fmt.Sprintf("%s: %s", e.Source, e.Msg)
	case e.Pid != "":
		return fmt.Sprintf("pid %s: %s", e.Pid, e.Msg)
	default:
		return e.Msg
	}
}

func structuralf(format string, args ...any) *StructuralError {
	return &StructuralError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports caller arguments or addressing that do not fit a
// parameter. Nothing is sent when one is returned.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Field == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Field, msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// UnpackError reports parameter data that does not match a layout.
type UnpackError struct {
	Field string
	Msg   string
}

func (e *UnpackError) Error() string {
	if e.Field == "" {
		return "unpack: " + e.Msg
	}
	return fmt.Sprintf("unpack %s: %s", e.Field, e.Msg)
}

func unpackf(field, format string, args ...any) *UnpackError {
	return &UnpackError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
