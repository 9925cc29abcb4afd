// Package submitter orchestrates crash report submission: probe the
// environment, pick a transport, dispatch, and interpret whatever comes back.
// Outcomes are delivered through the renderer, never as return values.
package submitter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/user/mayday"
	"github.com/user/mayday/pkg/probe"
	"github.com/user/mayday/pkg/transport/credentialed"
	"github.com/user/mayday/pkg/transport/legacy"
	"github.com/user/mayday/pkg/transport/unsupported"
)

type Submitter struct {
	env      probe.Environment
	renderer mayday.Renderer
	logger   mayday.Logger
}

// New returns a submitter rendering outcomes to renderer. The environment is
// probed again on every Submit call, so a later-configured gateway is picked
// up without rebuilding the submitter.
func New(env probe.Environment, renderer mayday.Renderer) *Submitter {
	return &Submitter{
		env:      env,
		renderer: renderer,
		logger:   NewDefaultLogger(),
	}
}

// SetLogger replaces the default logger.
func (s *Submitter) SetLogger(logger mayday.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Submit dispatches one crash report and returns without waiting for it to
// settle. Pending is rendered before any network activity. Exactly one
// terminal outcome follows per submission.
//
// The unsupported path settles synchronously, before Submit returns.
func (s *Submitter) Submit(ctx context.Context, url string, payload []byte) {
	s.renderer.Render(mayday.Pending())

	req := mayday.Request{URL: url, Payload: payload}
	mode := probe.Resolve(s.env)
	transport := s.transportFor(mode)
	s.logger.Debug("dispatching crash report", "transport", transport.Name(), "url", url, "bytes", len(req.Payload))

	s.dispatch(ctx, req, transport, mode == probe.ModeUnsupported)
}

// dispatch sends the request with both completion callbacks funneled through
// a settle guard: whatever the transport does, at most one terminal outcome
// is rendered. Not every callback primitive promises mutual exclusion, so the
// guard sits here rather than in each transport.
func (s *Submitter) dispatch(ctx context.Context, req mayday.Request, transport mayday.Transport, synchronous bool) {
	var settle sync.Once
	onResponse := func(hc mayday.HandlerContext, body string) {
		settle.Do(func() { s.handleResponse(hc, body) })
	}
	onError := func(hc mayday.HandlerContext, statusCode int, errMsg string) {
		settle.Do(func() { s.handleError(hc, statusCode, errMsg) })
	}

	if synchronous {
		transport.Post(ctx, req, onResponse, onError)
		return
	}
	go transport.Post(ctx, req, onResponse, onError)
}

func (s *Submitter) transportFor(mode probe.Mode) mayday.Transport {
	switch mode {
	case probe.ModeCredentialed:
		return credentialed.New(s.env.Client)
	case probe.ModeLegacy:
		return legacy.New(s.env.GatewayURL)
	default:
		return unsupported.New()
	}
}

// handleResponse interprets a delivered body. Both network transports
// converge here; there is no per-transport interpretation. A body opening
// with "OK" succeeds, with the report identifier being everything after the
// first space. Anything else is a failure carrying the body verbatim.
func (s *Submitter) handleResponse(hc mayday.HandlerContext, body string) {
	if strings.HasPrefix(body, "OK") {
		var id string
		if i := strings.IndexByte(body, ' '); i >= 0 {
			id = body[i+1:]
		}
		s.logger.Info("crash report accepted", "report_id", id)
		s.renderer.Render(mayday.Succeeded(id))
		return
	}

	s.logger.Warn("crash report rejected", "reason", body)
	s.renderer.Render(mayday.Failed(body))
}

// handleError interprets a transport failure into exactly one reason, by
// priority: a numeric status first, then the transport's error text, then a
// guess naming the endpoint.
func (s *Submitter) handleError(hc mayday.HandlerContext, statusCode int, errMsg string) {
	var reason string
	switch {
	case statusCode != 0:
		reason = fmt.Sprintf("HTTP: %d", statusCode)
	case errMsg != "":
		reason = errMsg
	default:
		reason = fmt.Sprintf("Maybe %s not reachable", hc.BaseURL)
	}

	s.logger.Warn("crash report submission failed", "reason", reason)
	s.renderer.Render(mayday.Failed(reason))
}
