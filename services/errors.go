package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind is the caller-facing error taxonomy.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindRateLimited  ErrorKind = "rate_limited"
	KindAntiCheat    ErrorKind = "anti_cheat"
	KindInternal     ErrorKind = "internal"
)

// EngineError is returned by every workflow. Message is safe to show to the caller.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *EngineError {
	return newError(KindNotFound, format, args...)
}

func validation(format string, args ...interface{}) *EngineError {
	return newError(KindValidation, format, args...)
}

func conflict(format string, args ...interface{}) *EngineError {
	return newError(KindConflict, format, args...)
}

func forbidden(format string, args ...interface{}) *EngineError {
	return newError(KindForbidden, format, args...)
}

func rateLimited(format string, args ...interface{}) *EngineError {
	return newError(KindRateLimited, format, args...)
}

func antiCheat(format string, args ...interface{}) *EngineError {
	return newError(KindAntiCheat, format, args...)
}

// Unauthorized is returned when no verified identity accompanies a request.
func Unauthorized(message string) *EngineError {
	return &EngineError{Kind: KindUnauthorized, Message: message}
}

func internal(err error, format string, args ...interface{}) *EngineError {
	e := newError(KindInternal, format, args...)
	e.Err = err
	return e
}

// WithDetail attaches a machine-readable detail to the error and returns it.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// KindOf classifies any error. Anything that is not an EngineError is Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// AsEngineError converts err into an EngineError, wrapping unknown errors as Internal.
func AsEngineError(err error) *EngineError {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return internal(err, "internal error, please retry")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
