// Package statuspage models the crash submission status display as explicit
// state: three fixed elements whose visibility and text a single Render call
// drives, instead of show/hide calls scattered through the flow.
package statuspage

import (
	"strings"
	"sync"

	"github.com/user/mayday"
)

// Fixed element identifiers the host display provides.
const (
	PendingID = "crash_report_pending"
	SuccessID = "crash_report_success"
	FailID    = "crash_report_fail"
)

// idPlaceholder is substituted with the report identifier on success.
const idPlaceholder = "###ID###"

// Element is one status display slot. Text is a template for the success
// element until the first successful render consumes the placeholder.
type Element struct {
	ID      string
	Visible bool
	Text    string
}

// Page is the shared crash status display. All mutation goes through Render,
// which keeps exactly one element visible at a time. Safe for concurrent use;
// when two submissions settle against the same page, the last render wins.
type Page struct {
	mu      sync.Mutex
	pending Element
	success Element
	fail    Element
}

// New returns a page with all elements hidden and default texts. The success
// text carries the identifier placeholder.
func New() *Page {
	return &Page{
		pending: Element{ID: PendingID, Text: "Sending crash report..."},
		success: Element{ID: SuccessID, Text: "Crash report successfully submitted. Report ID: " + idPlaceholder + "."},
		fail:    Element{ID: FailID, Text: "Failed to submit crash report"},
	}
}

// SetText replaces an element's text template. Unknown identifiers are
// ignored.
func (p *Page) SetText(id, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch id {
	case PendingID:
		p.pending.Text = text
	case SuccessID:
		p.success.Text = text
	case FailID:
		p.fail.Text = text
	}
}

// Element returns a snapshot of the named element.
func (p *Page) Element(id string) (Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch id {
	case PendingID:
		return p.pending, true
	case SuccessID:
		return p.success, true
	case FailID:
		return p.fail, true
	}
	return Element{}, false
}

// Render applies an outcome to the page.
//
// Pending reveals the pending element. Success hides pending (a no-op when
// already hidden), substitutes the identifier into the success text exactly
// once and reveals it; once consumed, the placeholder is gone and later
// renders leave the text alone. Failure hides pending and appends exactly one
// " (<reason>)." suffix to the failure text per call.
func (p *Page) Render(o mayday.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch o.Kind {
	case mayday.OutcomePending:
		p.pending.Visible = true
		p.success.Visible = false
		p.fail.Visible = false
	case mayday.OutcomeSuccess:
		p.pending.Visible = false
		p.success.Text = strings.Replace(p.success.Text, idPlaceholder, o.ReportID, 1)
		p.success.Visible = true
		p.fail.Visible = false
	case mayday.OutcomeFailure:
		p.pending.Visible = false
		p.success.Visible = false
		p.fail.Text += " (" + o.Reason + ")."
		p.fail.Visible = true
	}
}
