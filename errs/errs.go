// Package errs defines the error taxonomy shared by every layer of the
// runtime: lexing and parsing surface their own error types upstream, but
// everything from lowering down to the debug control plane reports through
// this package so that fault policies and diagnostic codes can switch on a
// stable Kind instead of string-matching messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies one taxonomy entry from the specification's error design.
type Kind int

const (
	KindUnknown Kind = iota
	KindUndefinedName
	KindInvalidTaskSingle
	KindInvalidIoAddress
	KindTypeMismatch
	KindInvalidArgumentCount
	KindInvalidArgumentName
	KindAssertionFailed
	KindDivisionByZero
	KindModuloByZero
	KindOverflow
	KindIndexOutOfBounds
	KindNullReference
	KindInvalidControlFlow
	KindForStepZero
	KindConditionNotBool
	KindCaseSelectorType
	KindDateTimeRange
	KindInvalidFrame
	KindResourceFaulted
	KindIoDriver
	KindUnsupportedBytecodeVersion
	KindInvalidBytecodeMetadata
	KindInvalidBytecode
	KindThreadSpawn
	KindWatchdogTimeout
	KindExecutionTimeout
	KindSimulationFault
	KindInvalidConfig
	KindInvalidBundle
	KindRetainStore
	KindControlError
	KindUnsupportedType
	KindDuplicateDeclaration
	KindCyclicDependency
	KindCompileError
)

var names = map[Kind]string{
	KindUnknown:                    "Unknown",
	KindUndefinedName:              "UndefinedName",
	KindInvalidTaskSingle:          "InvalidTaskSingle",
	KindInvalidIoAddress:           "InvalidIoAddress",
	KindTypeMismatch:               "TypeMismatch",
	KindInvalidArgumentCount:       "InvalidArgumentCount",
	KindInvalidArgumentName:        "InvalidArgumentName",
	KindAssertionFailed:            "AssertionFailed",
	KindDivisionByZero:             "DivisionByZero",
	KindModuloByZero:               "ModuloByZero",
	KindOverflow:                   "Overflow",
	KindIndexOutOfBounds:           "IndexOutOfBounds",
	KindNullReference:              "NullReference",
	KindInvalidControlFlow:         "InvalidControlFlow",
	KindForStepZero:                "ForStepZero",
	KindConditionNotBool:           "ConditionNotBool",
	KindCaseSelectorType:           "CaseSelectorType",
	KindDateTimeRange:              "DateTimeRange",
	KindInvalidFrame:               "InvalidFrame",
	KindResourceFaulted:            "ResourceFaulted",
	KindIoDriver:                   "IoDriver",
	KindUnsupportedBytecodeVersion: "UnsupportedBytecodeVersion",
	KindInvalidBytecodeMetadata:    "InvalidBytecodeMetadata",
	KindInvalidBytecode:            "InvalidBytecode",
	KindThreadSpawn:                "ThreadSpawn",
	KindWatchdogTimeout:            "WatchdogTimeout",
	KindExecutionTimeout:           "ExecutionTimeout",
	KindSimulationFault:            "SimulationFault",
	KindInvalidConfig:              "InvalidConfig",
	KindInvalidBundle:              "InvalidBundle",
	KindRetainStore:                "RetainStore",
	KindControlError:               "ControlError",
	KindUnsupportedType:            "UnsupportedType",
	KindDuplicateDeclaration:       "DuplicateDeclaration",
	KindCyclicDependency:           "CyclicDependency",
	KindCompileError:               "CompileError",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "Unknown"
}

// Error is the concrete error type carried through the runtime. It wraps an
// optional cause so errors.Is/errors.As keep working across layers.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, errs.New(KindX, "")) match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that carries a lower-level cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindUnknown, false
}

// IndexOutOfBounds is the structured payload for KindIndexOutOfBounds, kept
// as a distinct type because S6/property 6 wants callers to inspect the
// bounds, not just format them into a string.
type IndexOutOfBounds struct {
	Index, Lower, Upper int64
}

func NewIndexOutOfBounds(index, lower, upper int64) *Error {
	return &Error{
		Kind:    KindIndexOutOfBounds,
		Message: fmt.Sprintf("index %d out of bounds [%d..%d]", index, lower, upper),
		Cause:   IndexOutOfBounds{Index: index, Lower: lower, Upper: upper},
	}
}

func (b IndexOutOfBounds) Error() string {
	return fmt.Sprintf("index %d out of bounds [%d..%d]", b.Index, b.Lower, b.Upper)
}
