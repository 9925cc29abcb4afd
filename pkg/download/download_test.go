package download

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

var crashNamePattern = regexp.MustCompile(`^Crash-\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z\.tar\.gz$`)

func TestSave(t *testing.T) {
	dir := t.TempDir()
	d, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	d.now = func() time.Time {
		return time.Date(2023, 10, 1, 12, 30, 45, 123_000_000, time.UTC)
	}

	payload := []byte("gzipped tar bytes")
	dataURL := "data:application/gzip;base64," + base64.StdEncoding.EncodeToString(payload)

	path, err := d.Save(dataURL)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got := filepath.Base(path); got != "Crash-2023-10-01T12:30:45.123Z.tar.gz" {
		t.Errorf("unexpected filename %q", got)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	if string(content) != string(payload) {
		t.Errorf("saved content mismatch: got %q", content)
	}
}

func TestSaveFilenameShape(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	path, err := d.Save("data:application/gzip;base64,AAAA")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if name := filepath.Base(path); !crashNamePattern.MatchString(name) {
		t.Errorf("filename %q does not match Crash-<ISO8601>.tar.gz", name)
	}
}

func TestSaveLeavesNoPartFile(t *testing.T) {
	dir := t.TempDir()
	d, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := d.Save("data:application/gzip;base64,AAAA"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	parts, err := filepath.Glob(filepath.Join(dir, "*.part"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(parts) != 0 {
		t.Errorf("transient files left behind: %v", parts)
	}
}

func TestSaveRejectsBadInput(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, bad := range []string{
		"http://example.com/not-a-data-url",
		"data:application/gzip;base64",
		"data:application/gzip;base64,!!notbase64!!",
	} {
		if _, err := d.Save(bad); err == nil {
			t.Errorf("expected error for %q, got nil", bad)
		}
	}
}

func TestDownloadSilent(t *testing.T) {
	dir := t.TempDir()
	d, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Both calls return nothing; the bad one must simply leave no file.
	d.Download("data:application/gzip;base64,AAAA")
	d.Download("not a data url")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one saved archive, got %d", len(entries))
	}
}

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantType  string
		wantData  string
		expectErr bool
	}{
		{
			name:     "base64 gzip",
			input:    "data:application/gzip;base64," + base64.StdEncoding.EncodeToString([]byte("x")),
			wantType: "application/gzip",
			wantData: "x",
		},
		{
			name:     "plain percent-encoded",
			input:    "data:text/plain,hello%20world",
			wantType: "text/plain",
			wantData: "hello world",
		},
		{
			name:     "empty media type defaults",
			input:    "data:,abc",
			wantType: "text/plain;charset=US-ASCII",
			wantData: "abc",
		},
		{
			name:      "missing separator",
			input:     "data:application/gzip;base64",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, data, err := parseDataURL(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mediaType != tt.wantType {
				t.Errorf("media type = %q, want %q", mediaType, tt.wantType)
			}
			if string(data) != tt.wantData {
				t.Errorf("data = %q, want %q", data, tt.wantData)
			}
		})
	}
}
