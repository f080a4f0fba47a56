// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInvalidSeries    = errors.New("invalid series")
	ErrInsufficientData = errors.New("insufficient data for calculation")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrDataNotFound     = errors.New("data not found")
	ErrFeedUnavailable  = errors.New("market data feed unavailable")
	ErrUnknownSymbol    = errors.New("unknown symbol")
	ErrRateLimited      = errors.New("rate limited")
	ErrDatabaseError    = errors.New("database error")
)

// SeriesError describes an OHLCV series that violates its ordering or shape invariants.
// It always matches ErrInvalidSeries.
type SeriesError struct {
	Symbol    string
	Timeframe string
	Index     int
	Message   string
}

func (e *SeriesError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid series %s/%s at candle %d: %s", e.Symbol, e.Timeframe, e.Index, e.Message)
	}
	return fmt.Sprintf("invalid series %s/%s: %s", e.Symbol, e.Timeframe, e.Message)
}

func (e *SeriesError) Unwrap() error {
	return ErrInvalidSeries
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// FeedError represents a failure fetching candles from an exchange.
type FeedError struct {
	Source    string
	Symbol    string
	Timeframe string
	Err       error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed error [%s] %s/%s: %v", e.Source, e.Symbol, e.Timeframe, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new FeedError.
func NewFeedError(source, symbol, timeframe string, err error) *FeedError {
	return &FeedError{
		Source:    source,
		Symbol:    symbol,
		Timeframe: timeframe,
		Err:       err,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
