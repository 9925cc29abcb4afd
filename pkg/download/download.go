// Package download turns an in-memory crash archive, addressed as a data
// URL, into a file on disk named after the moment of the call.
package download

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// timestampLayout matches the ISO 8601 form the saved filename carries.
const timestampLayout = "2006-01-02T15:04:05.000Z"

type Downloader struct {
	dir string
	now func() time.Time
}

// New returns a downloader saving into dir, creating it if needed.
func New(dir string) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &Downloader{dir: dir, now: time.Now}, nil
}

// Save decodes the data URL and writes it to Crash-<timestamp>.tar.gz inside
// the downloader's directory. The write goes through a transient .part file
// that is renamed into place on success and removed on failure, so no partial
// artifact survives the call.
func (d *Downloader) Save(dataURL string) (string, error) {
	_, data, err := parseDataURL(dataURL)
	if err != nil {
		return "", err
	}

	name := "Crash-" + d.now().UTC().Format(timestampLayout) + ".tar.gz"
	path := filepath.Join(d.dir, name)
	part := path + ".part"

	if err := os.WriteFile(part, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write crash archive: %w", err)
	}
	if err := os.Rename(part, path); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("failed to finalize crash archive: %w", err)
	}
	return path, nil
}

// Download is the fire-and-forget form of Save: no result, and failures are
// silent at this level.
func (d *Downloader) Download(dataURL string) {
	d.Save(dataURL)
}

// parseDataURL splits an RFC 2397 data URL into its media type and decoded
// payload. Base64 and percent-encoded payloads are both accepted.
func parseDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL: %q", truncate(dataURL, 32))
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL: no payload separator")
	}

	if encoded, isBase64 := strings.CutSuffix(meta, ";base64"); isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("failed to decode data URL payload: %w", err)
		}
		return mediaTypeOrDefault(encoded), data, nil
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to unescape data URL payload: %w", err)
	}
	return mediaTypeOrDefault(meta), []byte(unescaped), nil
}

func mediaTypeOrDefault(mediaType string) string {
	if mediaType == "" {
		return "text/plain;charset=US-ASCII"
	}
	return mediaType
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
