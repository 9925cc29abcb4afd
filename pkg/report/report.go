package report

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report is the diagnostic payload describing an application failure. The ID
// is provisional: the collector assigns the authoritative one and returns it
// in its response.
type Report struct {
	ID        string         `json:"id"`
	Category  string         `json:"category"`
	Version   string         `json:"version"`
	Time      time.Time      `json:"time"`
	Hostname  string         `json:"hostname,omitempty"`
	OS        string         `json:"os"`
	Arch      string         `json:"arch"`
	GoVersion string         `json:"go_version"`
	ExcType   string         `json:"exc_type,omitempty"`
	ExcValue  string         `json:"exc_value,omitempty"`
	Traceback []string       `json:"traceback,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// New creates a report for the given category (e.g. "daemon", "gui", "check")
// and application version, snapshotting the execution environment.
func New(category, version string) *Report {
	hostname, _ := os.Hostname()
	return &Report{
		ID:        uuid.NewString(),
		Category:  category,
		Version:   version,
		Time:      time.Now().UTC(),
		Hostname:  hostname,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		Details:   make(map[string]any),
	}
}

// FromError builds a report describing err. The exception type is the
// concrete Go type of the error.
func FromError(category, version string, err error) *Report {
	r := New(category, version)
	if err != nil {
		r.ExcType = fmt.Sprintf("%T", err)
		r.ExcValue = err.Error()
	}
	return r
}

// FromPanic builds a report from a recovered panic value, capturing the
// current goroutine stack.
func FromPanic(category, version string, v any) *Report {
	r := New(category, version)
	r.ExcType = fmt.Sprintf("%T", v)
	r.ExcValue = fmt.Sprintf("%v", v)
	r.Traceback = stackLines()
	return r
}

// SetDetail records an arbitrary key/value on the report.
func (r *Report) SetDetail(key string, value any) {
	if r.Details == nil {
		r.Details = make(map[string]any)
	}
	r.Details[key] = value
}

// InfoJSON serializes the report for inclusion in a crash archive.
func (r *Report) InfoJSON() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal crash info: %w", err)
	}
	return data, nil
}

// ParseInfo decodes a crash info document as produced by InfoJSON.
func ParseInfo(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse crash info: %w", err)
	}
	return &r, nil
}

func stackLines() []string {
	raw := strings.TrimRight(string(debug.Stack()), "\n")
	return strings.Split(raw, "\n")
}
