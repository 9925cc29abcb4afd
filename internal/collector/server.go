package collector

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/mayday"
	"github.com/user/mayday/internal/config"
	"github.com/user/mayday/internal/notification"
	"github.com/user/mayday/internal/storage"
	"github.com/user/mayday/pkg/submitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

//go:embed all:static
var staticFS embed.FS

// downloadStamp is the timestamp embedded in downloaded archive names. It
// matches the name the client-side download helper produces.
const downloadStamp = "2006-01-02T15:04:05.000Z"

type Server struct {
	storage  storage.Storage
	cfg      config.CollectorConfig
	limiter  *ipLimiter
	logger   mayday.Logger
	notifier *notification.Service
	tracer   trace.Tracer
}

func NewServer(store storage.Storage, cfg config.CollectorConfig) *Server {
	return &Server{
		storage: store,
		cfg:     cfg,
		limiter: newIPLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:  submitter.NewDefaultLogger(),
		tracer:  otel.Tracer("mayday/collector"),
	}
}

func (s *Server) SetLogger(l mayday.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Server) SetNotifier(n *notification.Service) {
	s.notifier = n
}

// Init assigns this collector a stable identity on first run.
func (s *Server) Init(ctx context.Context) error {
	_, err := s.storage.GetSetting(ctx, "collector_id")
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to load collector id: %w", err)
	}
	if err := s.storage.SaveSetting(ctx, "collector_id", uuid.NewString()); err != nil {
		return fmt.Errorf("failed to save collector id: %w", err)
	}
	return nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{$}", s.handleSubmit)
	mux.HandleFunc("POST /submit", s.handleSubmit)

	mux.HandleFunc("GET /api/status", s.getStatus)
	mux.HandleFunc("GET /api/reports", s.listReports)
	mux.HandleFunc("GET /api/reports/{id}", s.getReport)
	mux.HandleFunc("GET /api/reports/{id}/download", s.downloadReport)
	mux.HandleFunc("DELETE /api/reports/{id}", s.deleteReport)

	mux.Handle("GET /metrics", promhttp.Handler())

	// Static status page
	if sub, err := fs.Sub(staticFS, "static"); err == nil {
		mux.Handle("GET /", http.FileServer(http.FS(sub)))
	}

	return s.corsMiddleware(mux)
}

// Browser GUIs submit cross-origin, so every response carries CORS headers
// and preflight requests short-circuit here.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := s.cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Mayday-Client")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	id, err := s.storage.GetSetting(r.Context(), "collector_id")
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	_, total, err := s.storage.ListReports(r.Context(), storage.ReportFilter{Limit: 1})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"collector_id": id,
		"reports":      total,
	})
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.ReportFilter{
		Page:     1,
		Limit:    50,
		Search:   query.Get("search"),
		Category: query.Get("category"),
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	reports, total, err := s.storage.ListReports(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []storage.CrashReport{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"reports": reports,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.storage.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rep, err := s.storage.GetReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	archive, err := s.storage.GetReportArchive(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	name := "Crash-" + rep.ReceivedAt.UTC().Format(downloadStamp) + ".tar.gz"
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.Write(archive)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.storage.DeleteReport(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	s.logger.Info("crash report deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
