package ai

import (
	"context"
	"errors"
)

// Kind classifies a refinement failure. Users see one generic message
// regardless of kind; the kind is kept for logs.
type Kind string

const (
	KindRequest    Kind = "request"
	KindNoResponse Kind = "no_response"
	KindParse      Kind = "parse"
)

const (
	msgNoResponse = "No response from Gemini"
	msgParse      = "Failed to parse Gemini response"
	msgUnknown    = "An unknown error occurred"
	msgTimeout    = "The request to Gemini timed out"
	msgCanceled   = "The request was cancelled"
)

// Error is returned by every Refiner failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the failure kind, or "" for errors not produced here.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage is the single line shown to the user for any failure.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return fallback(e.Message)
	}
	return fallback(err.Error())
}

// requestError passes the backend's message through. Local context
// failures get a fixed message.
func requestError(err error) *Error {
	msg := ""
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		msg = msgTimeout
	case errors.Is(err, context.Canceled):
		msg = msgCanceled
	default:
		msg = err.Error()
	}
	return &Error{Kind: KindRequest, Message: fallback(msg), Err: err}
}

func fallback(msg string) string {
	if msg == "" {
		return msgUnknown
	}
	return msg
}
