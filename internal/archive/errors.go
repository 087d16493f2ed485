package archive

import "errors"

var (
	ErrInvalidConfig      = errors.New("archive: bucket and region are required")
	ErrFailedToLoadConfig = errors.New("archive: failed to load aws config")
	ErrEmptyName          = errors.New("archive: object name is empty")
	ErrBucketNotFound     = errors.New("archive: bucket not found")
	ErrAccessDenied       = errors.New("archive: access denied")
	ErrServiceUnavailable = errors.New("archive: storage service unavailable")
	ErrOperationTimeout   = errors.New("archive: operation timed out")
	ErrOperationCanceled  = errors.New("archive: operation canceled")
	ErrUploadFailed       = errors.New("archive: upload failed")
)
