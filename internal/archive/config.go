package archive

import "time"

// Config describes the bucket audit archives are written to.
type Config struct {
	Bucket         string        `env:"AUDIT_ARCHIVE_BUCKET"`
	Region         string        `env:"AUDIT_ARCHIVE_REGION" envDefault:"us-east-1"`
	AccessKeyID    string        `env:"AUDIT_ARCHIVE_ACCESS_KEY_ID"`
	SecretKey      string        `env:"AUDIT_ARCHIVE_SECRET_ACCESS_KEY"`
	Endpoint       string        `env:"AUDIT_ARCHIVE_ENDPOINT"` // S3-compatible services
	ForcePathStyle bool          `env:"AUDIT_ARCHIVE_FORCE_PATH_STYLE" envDefault:"false"`
	Prefix         string        `env:"AUDIT_ARCHIVE_PREFIX"`
	UploadTimeout  time.Duration `env:"AUDIT_ARCHIVE_UPLOAD_TIMEOUT" envDefault:"2m"`
}
