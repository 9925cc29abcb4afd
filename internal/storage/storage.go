package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// CrashReport is one accepted submission. Info holds the raw info.json
// document from the archive; Archive holds the full .tar.gz and is only
// populated by GetReportArchive.
type CrashReport struct {
	ID          string    `json:"id" bson:"id"`
	Fingerprint string    `json:"fingerprint" bson:"fingerprint"`
	Category    string    `json:"category,omitempty" bson:"category"`
	Version     string    `json:"version,omitempty" bson:"version"`
	ExcType     string    `json:"exc_type,omitempty" bson:"exc_type"`
	ExcValue    string    `json:"exc_value,omitempty" bson:"exc_value"`
	ReceivedAt  time.Time `json:"received_at" bson:"received_at"`
	RemoteAddr  string    `json:"remote_addr,omitempty" bson:"remote_addr"`
	Legacy      bool      `json:"legacy" bson:"legacy"`
	Size        int64     `json:"size" bson:"size"`
	Info        string    `json:"info,omitempty" bson:"info"`
	Archive     []byte    `json:"-" bson:"archive,omitempty"`
}

type ReportFilter struct {
	Page     int
	Limit    int
	Search   string
	Category string
}

type Storage interface {
	ListReports(ctx context.Context, filter ReportFilter) ([]CrashReport, int, error)
	CreateReport(ctx context.Context, rep CrashReport) error
	GetReport(ctx context.Context, id string) (CrashReport, error)
	GetReportByFingerprint(ctx context.Context, fingerprint string) (CrashReport, error)
	GetReportArchive(ctx context.Context, id string) ([]byte, error)
	DeleteReport(ctx context.Context, id string) error
	DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key string, value string) error
}
