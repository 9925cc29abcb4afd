package collector

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/user/mayday"
	"github.com/user/mayday/internal/storage"
	"github.com/user/mayday/pkg/archive"
	"github.com/user/mayday/pkg/probe"
	"github.com/user/mayday/pkg/submitter"
)

func TestSubmitAccepted(t *testing.T) {
	_, store, ts := newTestServer(t, testConfig())

	data := testArchive(t, "daemon")
	id := submitArchive(t, ts, data)

	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("assigned id %q is not a UUID: %v", id, err)
	}

	rep, err := store.GetReport(context.Background(), id)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if rep.Category != "daemon" || rep.Version != "2.3.0" {
		t.Errorf("indexed fields = %q/%q, want daemon/2.3.0", rep.Category, rep.Version)
	}
	if rep.ExcType != "ValueError" || !strings.Contains(rep.ExcValue, "boom") {
		t.Errorf("exception fields = %q/%q", rep.ExcType, rep.ExcValue)
	}
	if rep.Fingerprint != archive.Fingerprint(data) {
		t.Errorf("fingerprint mismatch")
	}
	if rep.Legacy {
		t.Error("direct submission marked legacy")
	}
	if rep.RemoteAddr != "127.0.0.1" {
		t.Errorf("remote addr = %q, want 127.0.0.1", rep.RemoteAddr)
	}
	if rep.Size != int64(len(data)) {
		t.Errorf("size = %d, want %d", rep.Size, len(data))
	}

	// Receipt metadata is stamped into the stored info document.
	if got := gjson.Get(rep.Info, "report_id").String(); got != id {
		t.Errorf("stamped report_id = %q, want %q", got, id)
	}
	if gjson.Get(rep.Info, "received_at").String() == "" {
		t.Error("received_at not stamped")
	}
	if got := gjson.Get(rep.Info, "remote_addr").String(); got != "127.0.0.1" {
		t.Errorf("stamped remote_addr = %q", got)
	}
	// The client-side fields survive the stamping.
	if got := gjson.Get(rep.Info, "category").String(); got != "daemon" {
		t.Errorf("info category = %q, want daemon", got)
	}
}

func TestSubmitDuplicateReturnsSameID(t *testing.T) {
	_, store, ts := newTestServer(t, testConfig())

	data := testArchive(t, "daemon")
	first := submitArchive(t, ts, data)
	second := submitArchive(t, ts, data)

	if first != second {
		t.Errorf("duplicate submission got new id: %q != %q", first, second)
	}

	_, total, err := store.ListReports(context.Background(), storage.ReportFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if total != 1 {
		t.Errorf("stored reports = %d, want 1", total)
	}
}

func TestSubmitLegacyBase64(t *testing.T) {
	_, store, ts := newTestServer(t, testConfig())

	data := testArchive(t, "gui")
	encoded := base64.StdEncoding.EncodeToString(data)

	resp, err := http.Post(ts.URL+"/submit", "text/plain", strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST /submit: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "OK ") {
		t.Fatalf("legacy submit: status %d body %q", resp.StatusCode, body)
	}
	id := strings.TrimPrefix(string(body), "OK ")

	rep, err := store.GetReport(context.Background(), id)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if !rep.Legacy {
		t.Error("base64 submission not marked legacy")
	}
	if rep.Fingerprint != archive.Fingerprint(data) {
		t.Error("legacy submission fingerprints decoded bytes, not the base64 text")
	}
}

func TestSubmitInvalidBase64(t *testing.T) {
	_, _, ts := newTestServer(t, testConfig())

	resp, err := http.Post(ts.URL+"/", "text/plain", strings.NewReader("!!! not base64 !!!"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	// Rejections ride a 200 so the client can show the reason verbatim.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "Invalid base64 payload" {
		t.Errorf("reason = %q", body)
	}
}

func TestSubmitInvalidArchive(t *testing.T) {
	_, _, ts := newTestServer(t, testConfig())

	resp, err := http.Post(ts.URL+"/", "application/octet-stream", strings.NewReader("not a tarball"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.HasPrefix(string(body), "Invalid crash archive:") {
		t.Errorf("reason = %q", body)
	}
	if strings.HasPrefix(string(body), "OK") {
		t.Error("rejection must not look like an acknowledgement")
	}
}

func TestSubmitBodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 64
	_, _, ts := newTestServer(t, cfg)

	resp, err := http.Post(ts.URL+"/", "application/octet-stream", bytes.NewReader(make([]byte, 4096)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "Crash report exceeds the size limit" {
		t.Errorf("reason = %q", body)
	}
}

func TestSubmitRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	_, _, ts := newTestServer(t, cfg)

	submitArchive(t, ts, testArchive(t, "daemon"))

	resp, err := http.Post(ts.URL+"/", "application/octet-stream", bytes.NewReader(testArchive(t, "gui")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
}

func TestClientHost(t *testing.T) {
	if got := clientHost("10.1.2.3:5555"); got != "10.1.2.3" {
		t.Errorf("clientHost = %q", got)
	}
	if got := clientHost("[::1]:5555"); got != "::1" {
		t.Errorf("clientHost v6 = %q", got)
	}
	if got := clientHost("weird"); got != "weird" {
		t.Errorf("clientHost fallback = %q", got)
	}
}

// outcomeRecorder captures rendered outcomes and signals when a terminal one
// arrives.
type outcomeRecorder struct {
	mu   sync.Mutex
	got  []mayday.Outcome
	done chan struct{}
	once sync.Once
}

func newOutcomeRecorder() *outcomeRecorder {
	return &outcomeRecorder{done: make(chan struct{})}
}

func (r *outcomeRecorder) Render(o mayday.Outcome) {
	r.mu.Lock()
	r.got = append(r.got, o)
	r.mu.Unlock()
	if o.Kind != mayday.OutcomePending {
		r.once.Do(func() { close(r.done) })
	}
}

func (r *outcomeRecorder) wait(t *testing.T) mayday.Outcome {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a terminal outcome")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.got[len(r.got)-1]
}

// The full client flow against a live collector: capability probe, transport
// post, response interpretation.
func TestSubmitterAgainstCollector(t *testing.T) {
	_, store, ts := newTestServer(t, testConfig())
	data := testArchive(t, "daemon")

	t.Run("credentialed", func(t *testing.T) {
		jar, _ := cookiejar.New(nil)
		rec := newOutcomeRecorder()
		env := probe.Environment{Client: &http.Client{Jar: jar}}

		submitter.New(env, rec).Submit(context.Background(), ts.URL+"/", data)
		outcome := rec.wait(t)

		if outcome.Kind != mayday.OutcomeSuccess {
			t.Fatalf("outcome = %+v, want success", outcome)
		}
		if _, err := store.GetReport(context.Background(), outcome.ReportID); err != nil {
			t.Errorf("reported id %q not stored: %v", outcome.ReportID, err)
		}
	})

	t.Run("legacy gateway", func(t *testing.T) {
		rec := newOutcomeRecorder()
		env := probe.Environment{GatewayURL: ts.URL + "/submit"}

		submitter.New(env, rec).Submit(context.Background(), ts.URL+"/", data)
		outcome := rec.wait(t)

		if outcome.Kind != mayday.OutcomeSuccess {
			t.Fatalf("outcome = %+v, want success", outcome)
		}
		rep, err := store.GetReport(context.Background(), outcome.ReportID)
		if err != nil {
			t.Fatalf("reported id not stored: %v", err)
		}
		// Same archive as the credentialed run, so the fingerprint dedup
		// returns the existing report.
		if !strings.EqualFold(rep.Fingerprint, archive.Fingerprint(data)) {
			t.Error("fingerprint mismatch")
		}
	})
}
