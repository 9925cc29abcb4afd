package statuspage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/user/mayday"
)

func TestRenderPending(t *testing.T) {
	p := New()
	p.Render(mayday.Pending())

	if el, _ := p.Element(PendingID); !el.Visible {
		t.Error("pending element should be visible")
	}
	if el, _ := p.Element(SuccessID); el.Visible {
		t.Error("success element should stay hidden")
	}
	if el, _ := p.Element(FailID); el.Visible {
		t.Error("fail element should stay hidden")
	}
}

func TestRenderSuccessSubstitutesIDOnce(t *testing.T) {
	p := New()
	p.Render(mayday.Pending())
	p.Render(mayday.Succeeded("20231001-abc123"))

	el, _ := p.Element(SuccessID)
	if !el.Visible {
		t.Fatal("success element should be visible")
	}
	if !strings.Contains(el.Text, "20231001-abc123") {
		t.Errorf("success text should contain the report id, got %q", el.Text)
	}
	if strings.Contains(el.Text, "###ID###") {
		t.Errorf("placeholder should be consumed, got %q", el.Text)
	}
	if el, _ := p.Element(PendingID); el.Visible {
		t.Error("pending element should be hidden after settle")
	}

	// The placeholder is gone; a later render leaves the text alone.
	p.Render(mayday.Succeeded("other-id"))
	el, _ = p.Element(SuccessID)
	if strings.Contains(el.Text, "other-id") {
		t.Errorf("consumed template must not substitute again, got %q", el.Text)
	}
}

func TestRenderFailureAppendsReason(t *testing.T) {
	p := New()
	p.Render(mayday.Pending())
	p.Render(mayday.Failed("HTTP: 500"))

	el, _ := p.Element(FailID)
	if !el.Visible {
		t.Fatal("fail element should be visible")
	}
	if want := "Failed to submit crash report (HTTP: 500)."; el.Text != want {
		t.Errorf("fail text = %q, want %q", el.Text, want)
	}
	if el, _ := p.Element(PendingID); el.Visible {
		t.Error("pending element should be hidden after settle")
	}
	if el, _ := p.Element(SuccessID); el.Visible {
		t.Error("success element should stay hidden")
	}
}

func TestRenderFailureAppendsOncePerCall(t *testing.T) {
	p := New()
	p.Render(mayday.Failed("first"))
	p.Render(mayday.Failed("second"))

	el, _ := p.Element(FailID)
	if want := "Failed to submit crash report (first). (second)."; el.Text != want {
		t.Errorf("fail text = %q, want %q", el.Text, want)
	}
}

func TestRenderLastWriteWins(t *testing.T) {
	p := New()
	p.Render(mayday.Succeeded("id-1"))
	p.Render(mayday.Failed("relay refused"))

	if el, _ := p.Element(SuccessID); el.Visible {
		t.Error("success element should be hidden after a later failure")
	}
	if el, _ := p.Element(FailID); !el.Visible {
		t.Error("fail element should be visible after the last render")
	}
}

func TestPendingHideIdempotent(t *testing.T) {
	p := New()
	p.Render(mayday.Pending())
	p.Render(mayday.Failed("boom"))
	// Settling again must not resurrect or break anything.
	p.Render(mayday.Failed("boom again"))

	if el, _ := p.Element(PendingID); el.Visible {
		t.Error("pending element should remain hidden")
	}
}

func TestSetText(t *testing.T) {
	p := New()
	p.SetText(SuccessID, "Report ###ID### filed.")
	p.Render(mayday.Succeeded("z9"))

	el, _ := p.Element(SuccessID)
	if want := "Report z9 filed."; el.Text != want {
		t.Errorf("success text = %q, want %q", el.Text, want)
	}
}

func TestElementUnknownID(t *testing.T) {
	p := New()
	if _, ok := p.Element("nope"); ok {
		t.Error("unknown element id should not resolve")
	}
}

func TestConsoleRender(t *testing.T) {
	var buf bytes.Buffer
	c := Console{Out: &buf}

	c.Render(mayday.Pending())
	c.Render(mayday.Succeeded("abc"))
	c.Render(mayday.Failed("HTTP: 404"))

	out := buf.String()
	for _, want := range []string{
		"Sending crash report...",
		"Report ID: abc.",
		"Failed to submit crash report (HTTP: 404).",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}
