package convert

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies conversion errors for HTTP mapping and retry decisions.
// Client kinds are never retried by the queue; ConversionFailure and
// StorageFailure are.
type Kind string

const (
	KindFileTooLarge          Kind = "file_too_large"
	KindUnsupportedFormat     Kind = "unsupported_format"
	KindUnsupportedConversion Kind = "unsupported_conversion"
	KindPageOutOfRange        Kind = "page_out_of_range"
	KindConversionFailure     Kind = "conversion_failure"
	KindStorageFailure        Kind = "storage_failure"
	KindUnknown               Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Message string
	// Allowed carries the permitted outputs for UnsupportedConversion.
	Allowed []Format
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Retryable reports whether the queue should re-attempt a job that failed
// with this error. Client-side rejections are final on the first attempt.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindFileTooLarge, KindUnsupportedFormat, KindUnsupportedConversion, KindPageOutOfRange:
		return false
	}
	return true
}

func errFileTooLarge(size int) *Error {
	return &Error{
		Kind:    KindFileTooLarge,
		Message: fmt.Sprintf("file too large (%.1fMB), max %dMB", float64(size)/1024/1024, MaxFileSize/1024/1024),
	}
}

func errUnsupportedFormat() *Error {
	return &Error{Kind: KindUnsupportedFormat, Message: "unsupported file format"}
}

func errUnsupportedConversion(in, out Format, allowed []Format) *Error {
	return &Error{
		Kind:    KindUnsupportedConversion,
		Message: fmt.Sprintf("cannot convert %s to %s", in, out),
		Allowed: allowed,
	}
}

func errPageOutOfRange(page, total int) *Error {
	return &Error{
		Kind:    KindPageOutOfRange,
		Message: fmt.Sprintf("page %d out of range (document has %d pages)", page, total),
	}
}

// ConversionTimeoutErr marks a conversion that overran its time budget.
// Classified as a conversion failure so the queue retries it.
func ConversionTimeoutErr(budget time.Duration) *Error {
	return &Error{
		Kind:    KindConversionFailure,
		Message: fmt.Sprintf("conversion exceeded %s time budget", budget),
	}
}

func conversionErr(op string, err error) *Error {
	return &Error{Kind: KindConversionFailure, Message: op, Err: err}
}

// BadOutputFormatErr rejects an output tag outside the closed format set.
func BadOutputFormatErr(s string) *Error {
	return &Error{
		Kind:    KindUnsupportedConversion,
		Message: fmt.Sprintf("unknown output format %q", s),
	}
}

// StorageErr wraps an object-storage failure so the worker can classify it.
func StorageErr(op string, err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: op, Err: err}
}
