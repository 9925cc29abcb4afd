package mayday

import "testing"

func TestNewHandlerContext(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{"strips path", "https://monitor.example/crash/submit", "https://monitor.example"},
		{"strips query", "http://host:8080/x?y=1", "http://host:8080"},
		{"host only unchanged", "http://host", "http://host"},
		{"unparseable carried as given", "::::", "::::"},
		{"relative carried as given", "/crash/submit", "/crash/submit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewHandlerContext(tt.rawURL).BaseURL; got != tt.want {
				t.Errorf("BaseURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutcomeConstructors(t *testing.T) {
	if o := Pending(); o.Kind != OutcomePending || o.ReportID != "" || o.Reason != "" {
		t.Errorf("unexpected pending outcome: %+v", o)
	}
	if o := Succeeded("id-1"); o.Kind != OutcomeSuccess || o.ReportID != "id-1" {
		t.Errorf("unexpected success outcome: %+v", o)
	}
	if o := Failed("why"); o.Kind != OutcomeFailure || o.Reason != "why" {
		t.Errorf("unexpected failure outcome: %+v", o)
	}
}
