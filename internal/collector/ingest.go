package collector

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/user/mayday/internal/storage"
	"github.com/user/mayday/pkg/archive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "mayday.ingest")
	defer span.End()

	host := clientHost(r.RemoteAddr)
	if !s.limiter.allow(host) {
		reportsReceived.WithLabelValues("throttled").Inc()
		span.SetAttributes(attribute.String("outcome", "throttled"))
		s.logger.Warn("submission throttled", "remote", host)
		http.Error(w, "too many submissions", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.reject(w, span, host, "Crash report exceeds the size limit")
		return
	}

	// Legacy clients relay the archive base64-encoded as text/plain.
	raw := body
	legacy := false
	if ct := r.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/plain") {
		legacy = true
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
		if err != nil {
			s.reject(w, span, host, "Invalid base64 payload")
			return
		}
		raw = decoded
	}

	info, _, err := archive.Unpack(raw, s.cfg.MaxArchiveBytes)
	if err != nil {
		s.reject(w, span, host, fmt.Sprintf("Invalid crash archive: %v", err))
		return
	}

	fingerprint := archive.Fingerprint(raw)
	existing, err := s.storage.GetReportByFingerprint(ctx, fingerprint)
	if err == nil {
		s.acceptDuplicate(w, span, existing.ID, fingerprint)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.fail(w, span, err)
		return
	}

	rep := storage.CrashReport{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		Category:    gjson.GetBytes(info, "category").String(),
		Version:     gjson.GetBytes(info, "version").String(),
		ExcType:     gjson.GetBytes(info, "exc_type").String(),
		ExcValue:    gjson.GetBytes(info, "exc_value").String(),
		ReceivedAt:  time.Now().UTC(),
		RemoteAddr:  host,
		Legacy:      legacy,
		Size:        int64(len(raw)),
		Archive:     raw,
	}
	rep.Info = string(stampReceipt(info, rep))

	if err := s.storage.CreateReport(ctx, rep); err != nil {
		// A concurrent submission of the same archive may have won the
		// unique fingerprint race.
		if existing, ferr := s.storage.GetReportByFingerprint(ctx, fingerprint); ferr == nil {
			s.acceptDuplicate(w, span, existing.ID, fingerprint)
			return
		}
		s.fail(w, span, err)
		return
	}

	reportsReceived.WithLabelValues("accepted").Inc()
	reportBytes.Observe(float64(rep.Size))
	span.SetAttributes(
		attribute.String("outcome", "accepted"),
		attribute.String("report.id", rep.ID),
		attribute.String("report.category", rep.Category),
		attribute.Int64("report.size", rep.Size),
	)
	s.logger.Info("crash report accepted",
		"id", rep.ID, "category", rep.Category, "fingerprint", fingerprint,
		"size", rep.Size, "legacy", legacy, "remote", host)

	if s.notifier != nil {
		s.notifier.CrashReceived(ctx, rep)
	}
	s.accept(w, rep.ID)
}

// accept writes the acknowledgement line clients parse for the report ID.
func (s *Server) accept(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "OK %s", id)
}

func (s *Server) acceptDuplicate(w http.ResponseWriter, span trace.Span, id, fingerprint string) {
	reportsReceived.WithLabelValues("duplicate").Inc()
	span.SetAttributes(attribute.String("outcome", "duplicate"))
	s.logger.Debug("duplicate crash report", "id", id, "fingerprint", fingerprint)
	s.accept(w, id)
}

// reject refuses a submission with a reason the client displays verbatim.
// The response is deliberately 200: transports only hand the body to the
// response handler on a successful status.
func (s *Server) reject(w http.ResponseWriter, span trace.Span, host, reason string) {
	reportsReceived.WithLabelValues("rejected").Inc()
	span.SetAttributes(attribute.String("outcome", "rejected"))
	s.logger.Warn("crash report rejected", "remote", host, "reason", reason)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, reason)
}

func (s *Server) fail(w http.ResponseWriter, span trace.Span, err error) {
	reportsReceived.WithLabelValues("error").Inc()
	span.SetAttributes(attribute.String("outcome", "error"))
	s.logger.Error("crash report ingest failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// stampReceipt records collector-side receipt metadata in the stored info
// document.
func stampReceipt(info []byte, rep storage.CrashReport) []byte {
	out := info
	out, _ = sjson.SetBytes(out, "report_id", rep.ID)
	out, _ = sjson.SetBytes(out, "received_at", rep.ReceivedAt.Format(time.RFC3339Nano))
	out, _ = sjson.SetBytes(out, "remote_addr", rep.RemoteAddr)
	return out
}

func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
