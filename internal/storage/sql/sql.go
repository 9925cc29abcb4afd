package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/user/mayday/internal/storage"
)

type sqlStorage struct {
	db      *sql.DB
	driver  string
	queries *queryRegistry
}

// NewSQLStorage wraps db for the given driver name (sqlite, pgx, mysql).
// The driver decides placeholder style and type rewrites.
func NewSQLStorage(db *sql.DB, driver string) storage.Storage {
	return &sqlStorage{
		db:      db,
		driver:  driver,
		queries: newQueryRegistry(driver),
	}
}

// prepareQuery rewrites portable DDL types into what the driver expects.
func (s *sqlStorage) prepareQuery(query string) string {
	if s.driver == "pgx" {
		query = strings.ReplaceAll(query, "BLOB", "BYTEA")
		query = strings.ReplaceAll(query, "REAL", "DOUBLE PRECISION")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}
	return query
}

// preparePlaceholders converts ? placeholders to the driver's numbered style.
func (s *sqlStorage) preparePlaceholders(query string) string {
	switch s.driver {
	case "pgx":
		return numberPlaceholders(query, func(n int) string { return fmt.Sprintf("$%d", n) })
	case "sqlserver":
		return numberPlaceholders(query, func(n int) string { return fmt.Sprintf("@p%d", n) })
	default:
		return query
	}
}

func numberPlaceholders(query string, format func(int) string) string {
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(format(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *sqlStorage) exec(ctx context.Context, key string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.preparePlaceholders(s.queries.get(key)), args...)
}

func (s *sqlStorage) Init(ctx context.Context) error {
	for _, key := range []string{QueryInitCrashReportsTable, QueryInitSettingsTable} {
		if _, err := s.db.ExecContext(ctx, s.prepareQuery(s.queries.get(key))); err != nil {
			return fmt.Errorf("failed to execute init query: %w", err)
		}
	}

	// Index creation errors are ignored: the index may already exist and not
	// every driver understands IF NOT EXISTS here.
	for _, key := range []string{QueryIndexReceivedAt, QueryIndexCategory} {
		_, _ = s.db.ExecContext(ctx, s.prepareQuery(s.queries.get(key)))
	}

	return nil
}

func (s *sqlStorage) ListReports(ctx context.Context, filter storage.ReportFilter) ([]storage.CrashReport, int, error) {
	baseQuery := s.queries.get(QueryListReports)
	countQuery := s.queries.get(QueryCountReports)
	var args []interface{}
	var where []string

	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		where = append(where, "(id LIKE ? OR category LIKE ? OR exc_type LIKE ? OR exc_value LIKE ?)")
		args = append(args, search, search, search, search)
	}

	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}

	if len(where) > 0 {
		baseQuery += " WHERE " + strings.Join(where, " AND ")
		countQuery += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.preparePlaceholders(countQuery), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	baseQuery += " ORDER BY received_at DESC"
	if filter.Limit > 0 {
		baseQuery += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Page > 0 {
			baseQuery += " OFFSET ?"
			args = append(args, (filter.Page-1)*filter.Limit)
		}
	}

	rows, err := s.db.QueryContext(ctx, s.preparePlaceholders(baseQuery), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []storage.CrashReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	return reports, total, rows.Err()
}

func (s *sqlStorage) CreateReport(ctx context.Context, rep storage.CrashReport) error {
	_, err := s.exec(ctx, QueryCreateReport,
		rep.ID, rep.Fingerprint, rep.Category, rep.Version, rep.ExcType, rep.ExcValue,
		rep.ReceivedAt.UTC(), rep.RemoteAddr, rep.Legacy, rep.Size, rep.Info, rep.Archive)
	return err
}

func (s *sqlStorage) GetReport(ctx context.Context, id string) (storage.CrashReport, error) {
	row := s.db.QueryRowContext(ctx, s.preparePlaceholders(s.queries.get(QueryGetReport)), id)
	return scanReportRow(row)
}

func (s *sqlStorage) GetReportByFingerprint(ctx context.Context, fingerprint string) (storage.CrashReport, error) {
	row := s.db.QueryRowContext(ctx, s.preparePlaceholders(s.queries.get(QueryGetReportByFingerprint)), fingerprint)
	return scanReportRow(row)
}

func (s *sqlStorage) GetReportArchive(ctx context.Context, id string) ([]byte, error) {
	var archive []byte
	err := s.db.QueryRowContext(ctx, s.preparePlaceholders(s.queries.get(QueryGetReportArchive)), id).Scan(&archive)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return archive, nil
}

func (s *sqlStorage) DeleteReport(ctx context.Context, id string) error {
	res, err := s.exec(ctx, QueryDeleteReport, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *sqlStorage) DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, QueryDeleteReportsBefore, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqlStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.preparePlaceholders(s.queries.get(QueryGetSetting)), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *sqlStorage) SaveSetting(ctx context.Context, key string, value string) error {
	// The registry already carries driver-specific upserts with their own
	// placeholder style, so no conversion here.
	_, err := s.db.ExecContext(ctx, s.queries.get(QuerySaveSetting), key, value)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(r rowScanner) (storage.CrashReport, error) {
	var rep storage.CrashReport
	var category, version, excType, excValue, remoteAddr, info sql.NullString
	err := r.Scan(&rep.ID, &rep.Fingerprint, &category, &version, &excType, &excValue,
		&rep.ReceivedAt, &remoteAddr, &rep.Legacy, &rep.Size, &info)
	if err != nil {
		return storage.CrashReport{}, err
	}
	rep.Category = category.String
	rep.Version = version.String
	rep.ExcType = excType.String
	rep.ExcValue = excValue.String
	rep.RemoteAddr = remoteAddr.String
	rep.Info = info.String
	return rep, nil
}

func scanReportRow(row *sql.Row) (storage.CrashReport, error) {
	rep, err := scanReport(row)
	if err == sql.ErrNoRows {
		return storage.CrashReport{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.CrashReport{}, err
	}
	return rep, nil
}
