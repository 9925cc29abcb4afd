package sql

// queryRegistry holds all SQL queries used by the storage.
// It allows for driver-specific overrides and keeps SQL logic separated from Go code.
type queryRegistry struct {
	driver string
}

func newQueryRegistry(driver string) *queryRegistry {
	return &queryRegistry{driver: driver}
}

// get returns the query for the given key, favoring driver-specific versions if they exist.
func (r *queryRegistry) get(key string) string {
	if driverQueries, ok := driverOverrides[r.driver]; ok {
		if q, ok := driverQueries[key]; ok {
			return q
		}
	}
	return commonQueries[key]
}

const (
	// Table creation
	QueryInitCrashReportsTable = "InitCrashReportsTable"
	QueryInitSettingsTable     = "InitSettingsTable"
	QueryIndexReceivedAt       = "IndexReceivedAt"
	QueryIndexCategory         = "IndexCategory"

	// Crash reports
	QueryListReports            = "ListReports"
	QueryCountReports           = "CountReports"
	QueryCreateReport           = "CreateReport"
	QueryGetReport              = "GetReport"
	QueryGetReportByFingerprint = "GetReportByFingerprint"
	QueryGetReportArchive       = "GetReportArchive"
	QueryDeleteReport           = "DeleteReport"
	QueryDeleteReportsBefore    = "DeleteReportsBefore"

	// Settings
	QueryGetSetting  = "GetSetting"
	QuerySaveSetting = "SaveSetting"
)

const reportColumns = "id, fingerprint, category, version, exc_type, exc_value, received_at, remote_addr, legacy, size, info"

var commonQueries = map[string]string{
	QueryInitCrashReportsTable: `CREATE TABLE IF NOT EXISTS crash_reports (
			id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL UNIQUE,
			category TEXT,
			version TEXT,
			exc_type TEXT,
			exc_value TEXT,
			received_at DATETIME,
			remote_addr TEXT,
			legacy BOOLEAN DEFAULT FALSE,
			size INTEGER,
			info TEXT,
			archive BLOB
		)`,
	QueryInitSettingsTable: `CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	QueryIndexReceivedAt: "CREATE INDEX IF NOT EXISTS idx_crash_reports_received_at ON crash_reports(received_at)",
	QueryIndexCategory:   "CREATE INDEX IF NOT EXISTS idx_crash_reports_category ON crash_reports(category)",

	QueryListReports:            "SELECT " + reportColumns + " FROM crash_reports",
	QueryCountReports:           "SELECT COUNT(*) FROM crash_reports",
	QueryCreateReport:           "INSERT INTO crash_reports (" + reportColumns + ", archive) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	QueryGetReport:              "SELECT " + reportColumns + " FROM crash_reports WHERE id = ?",
	QueryGetReportByFingerprint: "SELECT " + reportColumns + " FROM crash_reports WHERE fingerprint = ?",
	QueryGetReportArchive:       "SELECT archive FROM crash_reports WHERE id = ?",
	QueryDeleteReport:           "DELETE FROM crash_reports WHERE id = ?",
	QueryDeleteReportsBefore:    "DELETE FROM crash_reports WHERE received_at < ?",

	QueryGetSetting:  "SELECT value FROM settings WHERE key = ?",
	QuerySaveSetting: "INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
}

var driverOverrides = map[string]map[string]string{
	"mysql": {
		// TEXT columns cannot carry UNIQUE or PRIMARY KEY constraints on
		// MySQL, so the keyed columns get sized VARCHARs.
		QueryInitCrashReportsTable: `CREATE TABLE IF NOT EXISTS crash_reports (
			id VARCHAR(36) PRIMARY KEY,
			fingerprint VARCHAR(64) NOT NULL UNIQUE,
			category VARCHAR(191),
			version VARCHAR(191),
			exc_type TEXT,
			exc_value TEXT,
			received_at DATETIME,
			remote_addr VARCHAR(191),
			legacy BOOLEAN DEFAULT FALSE,
			size BIGINT,
			info MEDIUMTEXT,
			archive LONGBLOB
		)`,
		QueryInitSettingsTable: "CREATE TABLE IF NOT EXISTS settings (`key` VARCHAR(191) PRIMARY KEY, value TEXT NOT NULL)",
		QueryIndexReceivedAt:   "CREATE INDEX idx_crash_reports_received_at ON crash_reports(received_at)",
		QueryIndexCategory:     "CREATE INDEX idx_crash_reports_category ON crash_reports(category)",
		QueryGetSetting:        "SELECT value FROM settings WHERE `key` = ?",
		QuerySaveSetting:       "INSERT INTO settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
	},
	"pgx": {
		QuerySaveSetting: "INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
	},
}
