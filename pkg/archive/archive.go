package archive

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// InfoName is the well-known entry holding the serialized crash report.
const InfoName = "info.json"

// Pack builds a crash archive: a gzip'd tar with the crash info document
// first, followed by the attachment entries in deterministic order.
func Pack(info []byte, files map[string][]byte) ([]byte, error) {
	if len(info) == 0 {
		return nil, fmt.Errorf("crash archive requires a non-empty %s", InfoName)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	now := time.Now()
	write := func(name string, data []byte) error {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("failed to write tar entry %s: %w", name, err)
		}
		return nil
	}

	if err := write(InfoName, info); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := write(name, files[name]); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reads a crash archive back into its info document and attachments.
// maxBytes caps the total decompressed size; 0 means no cap. Entries with
// unsafe names (absolute or escaping the archive root) are rejected.
func Unpack(data []byte, maxBytes int64) (info []byte, files map[string][]byte, err error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	var budget io.Reader = zr
	if maxBytes > 0 {
		// One extra byte so an archive right at the cap still reads fully.
		budget = io.LimitReader(zr, maxBytes+1)
	}

	tr := tar.NewReader(budget)
	files = make(map[string][]byte)
	var total int64

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read tar entry: %w", err)
		}
		name := path.Clean(hdr.Name)
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return nil, nil, fmt.Errorf("unsafe entry name in crash archive: %s", hdr.Name)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read tar entry %s: %w", name, err)
		}
		total += int64(len(content))
		if maxBytes > 0 && total > maxBytes {
			return nil, nil, fmt.Errorf("crash archive exceeds %d decompressed bytes", maxBytes)
		}

		if name == InfoName {
			info = content
			continue
		}
		files[name] = content
	}

	if len(info) == 0 {
		return nil, nil, fmt.Errorf("crash archive is missing %s", InfoName)
	}
	return info, files, nil
}

// Fingerprint returns the hex sha256 of the raw archive bytes. Identical
// archives fingerprint identically, which is what resubmission dedup keys on.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
