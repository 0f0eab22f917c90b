package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeIO                 ErrorType = "io"
	ErrorTypeConfig             ErrorType = "config"
	ErrorTypeExecutableNotFound ErrorType = "executable_not_found"
	ErrorTypeAlreadyRunning     ErrorType = "already_running"
	ErrorTypeStartTimeout       ErrorType = "start_timeout"
	ErrorTypeStopFailed         ErrorType = "stop_failed"
	ErrorTypeLaunch             ErrorType = "launch"
	ErrorTypeSignal             ErrorType = "signal"
	ErrorTypeExitStatus         ErrorType = "exit_status"
	ErrorTypeProcessTable       ErrorType = "process_table"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// ExitStatusError is the cause carried by an exit_status error.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("exited with status %d", e.Code)
}

// SignalError is the cause carried by a signal error.
type SignalError struct {
	Signal     int
	CoreDumped bool
}

func (e *SignalError) Error() string {
	if e.CoreDumped {
		return fmt.Sprintf("terminated by signal %d (core dumped)", e.Signal)
	}
	return fmt.Sprintf("terminated by signal %d (no core dump)", e.Signal)
}

// Configuration errors
func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewConfigError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeConfig, message, cause)
}

// Lifecycle errors
func NewExecutableNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeExecutableNotFound, message, cause)
}

func NewAlreadyRunningError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeAlreadyRunning, message, cause)
}

func NewStartTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeStartTimeout, message, cause)
}

func NewStopFailedError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeStopFailed, message, cause)
}

func NewProcessTableError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProcessTable, message, cause)
}

// Indexer run outcomes
func NewLaunchError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeLaunch, message, cause)
}

func NewSignalError(message string, signal int, coreDumped bool) *DomainError {
	return NewDomainError(ErrorTypeSignal, message, &SignalError{Signal: signal, CoreDumped: coreDumped}).
		WithContext("signal", signal).
		WithContext("core_dumped", coreDumped)
}

func NewExitStatusError(message string, code int) *DomainError {
	return NewDomainError(ErrorTypeExitStatus, message, &ExitStatusError{Code: code}).
		WithContext("exit_code", code)
}

// Error checking helpers
func isType(err error, errorType ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == errorType
}

func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

func IsIOError(err error) bool {
	return isType(err, ErrorTypeIO)
}

func IsConfigError(err error) bool {
	return isType(err, ErrorTypeConfig)
}

func IsExecutableNotFoundError(err error) bool {
	return isType(err, ErrorTypeExecutableNotFound)
}

func IsAlreadyRunningError(err error) bool {
	return isType(err, ErrorTypeAlreadyRunning)
}

func IsStartTimeoutError(err error) bool {
	return isType(err, ErrorTypeStartTimeout)
}

func IsStopFailedError(err error) bool {
	return isType(err, ErrorTypeStopFailed)
}

func IsProcessTableError(err error) bool {
	return isType(err, ErrorTypeProcessTable)
}

func IsLaunchError(err error) bool {
	return isType(err, ErrorTypeLaunch)
}

func IsSignalError(err error) bool {
	return isType(err, ErrorTypeSignal)
}

func IsExitStatusError(err error) bool {
	return isType(err, ErrorTypeExitStatus)
}

// Error aggregation for bulk operations
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
