package mayday

import (
	"context"
	"net/url"
)

// OutcomeKind identifies the visible state of a submission.
type OutcomeKind string

const (
	// OutcomePending is shown from the moment a submission is dispatched
	// until it settles.
	OutcomePending OutcomeKind = "pending"
	// OutcomeSuccess is terminal: the collector accepted the report.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeFailure is terminal: the submission failed and the reason is
	// user-visible.
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the tagged state of a single submission. Exactly one kind is
// active; ReportID is meaningful only for success, Reason only for failure.
// A submission moves Pending -> (Success | Failure) once and never back.
type Outcome struct {
	Kind     OutcomeKind
	ReportID string
	Reason   string
}

// Pending returns the initial outcome of a dispatched submission.
func Pending() Outcome {
	return Outcome{Kind: OutcomePending}
}

// Succeeded returns a terminal success outcome carrying the report ID
// assigned by the collector.
func Succeeded(reportID string) Outcome {
	return Outcome{Kind: OutcomeSuccess, ReportID: reportID}
}

// Failed returns a terminal failure outcome carrying a user-visible reason.
func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailure, Reason: reason}
}

// Request is a single crash submission: a target URL and an opaque payload.
// It is immutable once constructed and consumed exactly once by a transport.
type Request struct {
	URL     string
	Payload []byte
}

// HandlerContext travels with the asynchronous completion callbacks so that
// error messages can reference the endpoint the request was sent to.
type HandlerContext struct {
	BaseURL string
}

// NewHandlerContext derives the callback context for a submission URL. The
// base URL is scheme and host only; URLs that do not parse are carried as
// given so the error path can still name something.
func NewHandlerContext(rawURL string) HandlerContext {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return HandlerContext{BaseURL: rawURL}
	}
	return HandlerContext{BaseURL: u.Scheme + "://" + u.Host}
}

// ResponseHandler receives the raw response body once the collector answered,
// regardless of what the body says. Interpretation happens downstream.
type ResponseHandler func(hc HandlerContext, body string)

// ErrorHandler receives transport-level failures. statusCode is 0 when no
// numeric HTTP status is available; errMsg is empty when the transport has no
// error text. Both absent means only the endpoint itself can be named.
type ErrorHandler func(hc HandlerContext, statusCode int, errMsg string)

// Transport delivers one submission to the collector. Implementations must
// invoke exactly one of the two handlers exactly once per Post; the
// orchestrator additionally enforces this with a settle guard because not
// every underlying primitive promises it.
type Transport interface {
	Post(ctx context.Context, req Request, onResponse ResponseHandler, onError ErrorHandler)
	Name() string
}

// Renderer displays the outcome of a submission. All UI mutation funnels
// through Render; there is no other way the flow touches a display.
type Renderer interface {
	Render(o Outcome)
}

// Logger defines the interface for logging in mayday.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
