package haptic

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorCode is the four-way error taxonomy returned to clients over the
// wire protocol (spec.md §7): a validation failure, a capability the device
// doesn't advertise, a kernel/device-level failure, or the device being
// absent entirely.
type ErrorCode string

const (
	ErrCodeInvalidArgument ErrorCode = "invalid argument"
	ErrCodeNotSupported    ErrorCode = "not supported"
	ErrCodeDeviceError     ErrorCode = "device error"
	ErrCodeNoDevice        ErrorCode = "no device"
)

// Error is a structured haptic daemon error with enough context to both log
// usefully and map back onto the wire protocol's signed result code.
type Error struct {
	Op    string        // operation that failed, e.g. "UploadAndStart"
	Code  ErrorCode     // high-level category
	Errno syscall.Errno // kernel errno, if this wraps one
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op == "" {
		return fmt.Sprintf("haptic: %s", msg)
	}
	if e.Errno != 0 {
		return fmt.Sprintf("haptic: %s: %s (errno=%d)", e.Op, msg, e.Errno)
	}
	return fmt.Sprintf("haptic: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// Result maps the error onto the negative-errno convention of spec.md §6/§7:
// InvalidArgument -> -EINVAL, NotSupported -> -ENOTSUP, DeviceError ->
// -errno (or a generic -EIO if no errno was captured), NoDevice -> -ENODEV.
// A nil *Error (the zero value of this method's receiver is never called on
// nil in practice, callers should check err == nil first) has no meaningful
// Result.
func (e *Error) Result() int32 {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return -int32(syscall.EINVAL)
	case ErrCodeNotSupported:
		return -int32(syscall.ENOTSUP)
	case ErrCodeNoDevice:
		return -int32(syscall.ENODEV)
	case ErrCodeDeviceError:
		if e.Errno != 0 {
			return -int32(e.Errno)
		}
		return -int32(syscall.EIO)
	default:
		return -int32(syscall.EIO)
	}
}

// NewInvalidArgument builds an InvalidArgument error (spec.md §4.4's
// validation table returns these without touching the device).
func NewInvalidArgument(op, msg string) *Error {
	return &Error{Op: op, Code: ErrCodeInvalidArgument, Msg: msg}
}

// NewNotSupported builds a NotSupported error, e.g. a PredefinedEffect or
// Calibrate request the probed capability mask rejects.
func NewNotSupported(op, msg string) *Error {
	return &Error{Op: op, Code: ErrCodeNotSupported, Msg: msg}
}

// NewDeviceError wraps a kernel errno returned by an ffdev call. Device
// errors are returned to the client; they never crash the daemon (spec.md
// §7).
func NewDeviceError(op string, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: ErrCodeDeviceError, Errno: errno, Msg: errno.Error()}
}

// NewNoDevice builds a NoDevice error. This code is fatal only at bootstrap
// (spec.md §7) — dispatch never returns it mid-session.
func NewNoDevice(op, msg string) *Error {
	return &Error{Op: op, Code: ErrCodeNoDevice, Msg: msg}
}

// WrapDeviceError classifies an arbitrary error from an ffdev call as a
// DeviceError, extracting its errno if it carries one.
func WrapDeviceError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	if he, ok := err.(*Error); ok {
		return he
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return NewDeviceError(op, errno)
	}
	return &Error{Op: op, Code: ErrCodeDeviceError, Msg: err.Error(), Inner: err}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Code == code
	}
	return false
}
