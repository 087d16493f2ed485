package audit

import "time"

// Config holds audit trail settings.
type Config struct {
	// RetentionDays is how long entries are kept. Zero or negative disables retention.
	RetentionDays  int  `env:"AUDIT_RETENTION_DAYS" envDefault:"90"`
	ArchiveEnabled bool `env:"AUDIT_ARCHIVE_ENABLED" envDefault:"false"`
	// ArchivePartRows caps the rows held in memory per uploaded archive object.
	ArchivePartRows int           `env:"AUDIT_ARCHIVE_PART_ROWS" envDefault:"10000"`
	ActionsCacheTTL time.Duration `env:"AUDIT_ACTIONS_CACHE_TTL" envDefault:"1m"`
	PageSize        int           `env:"AUDIT_PAGE_SIZE" envDefault:"25"`
	// CleanupInterval is how often the retention job runs inside the server.
	CleanupInterval time.Duration `env:"AUDIT_CLEANUP_INTERVAL" envDefault:"24h"`
}

// ReaderOptions converts the configuration into reader options.
func (c Config) ReaderOptions() []ReaderOption {
	return []ReaderOption{
		WithActionsCacheTTL(c.ActionsCacheTTL),
		WithPageSize(c.PageSize),
	}
}
