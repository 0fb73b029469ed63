package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies caller-recoverable booking failures.
type ErrorCode string

const (
	ErrCodeTripNotFound       ErrorCode = "TRIP_NOT_FOUND"
	ErrCodeTripDeparted       ErrorCode = "TRIP_DEPARTED"
	ErrCodeTripNotBookable    ErrorCode = "TRIP_NOT_BOOKABLE"
	ErrCodeSeatUnavailable    ErrorCode = "SEAT_UNAVAILABLE"
	ErrCodeInvalidStop        ErrorCode = "INVALID_STOP_SELECTION"
	ErrCodeRouteNotFound      ErrorCode = "ROUTE_NOT_FOUND"
	ErrCodeFareNotDefined     ErrorCode = "FARE_NOT_DEFINED"
	ErrCodeDuplicateBookingID ErrorCode = "DUPLICATE_BOOKING_ID"
	ErrCodeBookingNotFound    ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodeAlreadyPaid        ErrorCode = "ALREADY_PAID"
	ErrCodeAlreadyCancelled   ErrorCode = "ALREADY_CANCELLED"
	ErrCodeNotCancellable     ErrorCode = "NOT_CANCELLABLE"
	ErrCodeNotConfirmed       ErrorCode = "NOT_CONFIRMED"
	ErrCodeInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
)

// BookingError is a typed, caller-recoverable business-rule failure. It
// carries a human-readable message; infrastructure failures are returned as
// plain wrapped errors instead.
type BookingError struct {
	Code    ErrorCode
	Message string
}

func (e *BookingError) Error() string {
	return e.Message
}

// NewBookingError builds a BookingError with a formatted message.
func NewBookingError(code ErrorCode, format string, args ...interface{}) *BookingError {
	return &BookingError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrCode extracts the error code from err, or "" if err is not a
// BookingError.
func ErrCode(err error) ErrorCode {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsCode reports whether err is a BookingError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return ErrCode(err) == code
}
