package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natvps/panel/internal/archive"
	"github.com/natvps/panel/internal/store"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/config"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit log maintenance",
	}
	cmd.AddCommand(newAuditCleanupCmd())
	return cmd
}

func newAuditCleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit log entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := newLogger()

			var auditCfg audit.Config
			if err := config.Load(&auditCfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("days") {
				auditCfg.RetentionDays = days
			}

			pool, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			auditLogs := store.NewAuditLogs(pool)
			opts := []audit.RetentionOption{
				audit.WithAuditLogger(audit.NewLogger(auditLogs, audit.WithLogger(log))),
				audit.WithRetentionLogger(log),
			}
			if auditCfg.ArchiveEnabled {
				var archiveCfg archive.Config
				if err := config.Load(&archiveCfg); err != nil {
					return err
				}
				archiver, err := archive.New(ctx, archiveCfg)
				if err != nil {
					return err
				}
				opts = append(opts,
					audit.WithArchiver(archiver),
					audit.WithArchivePartRows(auditCfg.ArchivePartRows),
				)
			}

			report, err := audit.NewRetentionJob(auditLogs, auditCfg.RetentionDays, opts...).Run(ctx)
			if err != nil {
				return fmt.Errorf("audit cleanup: %w", err)
			}

			out := cmd.OutOrStdout()
			if report.Disabled {
				fmt.Fprintln(out, "Audit log retention is disabled (retention days <= 0).")
				return nil
			}
			fmt.Fprintf(out, "Deleted %d audit log entries older than %d days.\n", report.Deleted, report.Days)
			if len(report.Parts) > 0 {
				fmt.Fprintf(out, "Archived %d entries to %s (%d objects).\n", report.Archived, report.Archive, len(report.Parts))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Override AUDIT_RETENTION_DAYS for this run")
	return cmd
}
