package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML or payload parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeOracle represents text-completion oracle errors
	ErrorTypeOracle ErrorType = "oracle"
	// ErrorTypePricing represents price reference API errors
	ErrorTypePricing ErrorType = "pricing"
	// ErrorTypeStore represents evaluation store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeNotification represents mail notification errors
	ErrorTypeNotification ErrorType = "notification"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents an error from one stage of the deal pipeline
type PipelineError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error could succeed on a later cycle
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypePricing:
		return true
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, component, message string, err error) *PipelineError {
	return &PipelineError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(component, message string, err error) *PipelineError {
	return New(ErrorTypeNetwork, component, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *PipelineError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(component string, duration time.Duration) *PipelineError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, component, message, nil)
}

// NewOracle creates a new oracle error
func NewOracle(component, message string, err error) *PipelineError {
	return New(ErrorTypeOracle, component, message, err)
}

// NewPricing creates a new pricing error
func NewPricing(component, message string, err error) *PipelineError {
	return New(ErrorTypePricing, component, message, err)
}

// NewStore creates a new store error
func NewStore(component, message string, err error) *PipelineError {
	return New(ErrorTypeStore, component, message, err)
}

// NewNotification creates a new notification error
func NewNotification(component, message string, err error) *PipelineError {
	return New(ErrorTypeNotification, component, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}
