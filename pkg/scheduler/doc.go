// Package scheduler runs periodic maintenance jobs inside the server
// process, such as the audit log retention job.
//
//	s := scheduler.New(scheduler.WithLogger(log))
//	_ = s.Add("audit_retention", scheduler.DailyAt(3, 0), func(ctx context.Context) error {
//	    _, err := job.Run(ctx)
//	    return err
//	})
//	go s.Start(ctx)
//
// A job never overlaps with itself. When a run is still active at the next
// due time the tick is skipped and logged.
package scheduler
