// Package archive stores CSV snapshots of audit log entries in S3 before
// the retention job deletes them. S3Archiver implements audit.Archiver.
package archive
